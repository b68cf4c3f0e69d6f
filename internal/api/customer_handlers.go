package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/crm-engine/internal/pkg/httputil"
	"github.com/ignite/crm-engine/internal/service/customer"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func customerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, customer.ErrNotFound):
		httputil.NotFound(w, "customer not found")
	case errors.Is(err, customer.ErrDuplicateEmail):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, customer.ErrValidation):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Customers.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, customers)
}

func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.BadRequest(w, "invalid customer id")
		return
	}
	c, err := h.Customers.Get(r.Context(), id)
	if err != nil {
		customerError(w, err)
		return
	}
	httputil.OK(w, c)
}

// SubmitCustomer is the fire-and-forget create: the payload is validated,
// published, and acknowledged with 202 before anything is persisted.
func (h *Handlers) SubmitCustomer(w http.ResponseWriter, r *http.Request) {
	var in customer.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	if err := h.Customers.Submit(r.Context(), in); err != nil {
		customerError(w, err)
		return
	}
	httputil.Accepted(w, map[string]string{"status": "queued"})
}

// CreateCustomer is the synchronous create, kept for integrations that need
// the assigned id in the response.
func (h *Handlers) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var in customer.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	c, err := h.Customers.Create(r.Context(), in)
	if err != nil {
		customerError(w, err)
		return
	}
	httputil.Created(w, c)
}

func (h *Handlers) SubmitCustomerUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.BadRequest(w, "invalid customer id")
		return
	}
	var u customer.UpdateFields
	if !httputil.Decode(w, r, &u) {
		return
	}
	if err := h.Customers.SubmitUpdate(r.Context(), id, u); err != nil {
		customerError(w, err)
		return
	}
	httputil.Accepted(w, map[string]string{"status": "queued"})
}

func (h *Handlers) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.BadRequest(w, "invalid customer id")
		return
	}
	var u customer.UpdateFields
	if !httputil.Decode(w, r, &u) {
		return
	}
	c, err := h.Customers.Update(r.Context(), id, u)
	if err != nil {
		customerError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handlers) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.BadRequest(w, "invalid customer id")
		return
	}
	orders, err := h.Customers.ListOrdersByCustomer(r.Context(), id)
	if err != nil {
		customerError(w, err)
		return
	}
	httputil.OK(w, orders)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Customers.ListOrders(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, orders)
}

func (h *Handlers) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var in customer.OrderInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	if err := h.Customers.SubmitOrder(r.Context(), in); err != nil {
		customerError(w, err)
		return
	}
	httputil.Accepted(w, map[string]string{"status": "queued"})
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in customer.OrderInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	o, err := h.Customers.CreateOrder(r.Context(), in)
	if err != nil {
		customerError(w, err)
		return
	}
	httputil.Created(w, o)
}
