package api

import (
	"errors"
	"net/http"

	"github.com/ignite/crm-engine/internal/bus"
	"github.com/ignite/crm-engine/internal/pkg/httputil"
	"github.com/ignite/crm-engine/internal/service/campaign"
	"github.com/ignite/crm-engine/internal/service/delivery"
)

func campaignError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		httputil.NotFound(w, "campaign not found")
	case errors.Is(err, campaign.ErrForbidden):
		httputil.Forbidden(w, "campaign belongs to another user")
	case errors.Is(err, campaign.ErrSegmentNotFound):
		httputil.NotFound(w, "segment not found")
	case errors.Is(err, campaign.ErrAlreadySent):
		httputil.Conflict(w, "campaign has already been sent or is sending")
	case errors.Is(err, campaign.ErrValidation):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Campaigns.List(r.Context(), userID(r))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, campaigns)
}

func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var in campaign.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	c, err := h.Campaigns.Create(r.Context(), userID(r), in)
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.Created(w, c)
}

func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.BadRequest(w, "invalid campaign id")
		return
	}
	c, err := h.Campaigns.Get(r.Context(), userID(r), id)
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

// SendCampaign claims the campaign and acknowledges with 202; batches go out
// on the dispatcher's own goroutine after this response is written.
func (h *Handlers) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.BadRequest(w, "invalid campaign id")
		return
	}
	c, err := h.Campaigns.Send(r.Context(), userID(r), id)
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.Accepted(w, c)
}

func (h *Handlers) CampaignLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.BadRequest(w, "invalid campaign id")
		return
	}
	// Ownership check rides on the campaign read.
	if _, err := h.Campaigns.Get(r.Context(), userID(r), id); err != nil {
		campaignError(w, err)
		return
	}
	logs, err := h.Delivery.Logs(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, logs)
}

func (h *Handlers) MessageSuggestions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Objective string `json:"objective"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	httputil.OK(w, map[string]any{
		"suggestions": h.Assist.MessageSuggestions(r.Context(), body.Objective),
	})
}

func (h *Handlers) CampaignSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.BadRequest(w, "invalid campaign id")
		return
	}
	c, err := h.Campaigns.Get(r.Context(), userID(r), id)
	if err != nil {
		campaignError(w, err)
		return
	}
	httputil.OK(w, map[string]string{
		"summary": h.Assist.CampaignSummary(r.Context(), c),
	})
}

// IngestReceipts is the vendor-facing webhook: receipts are published to the
// bus and acknowledged immediately; the delivery consumer settles the ledger.
func (h *Handlers) IngestReceipts(w http.ResponseWriter, r *http.Request) {
	var receipts []delivery.Receipt
	if !httputil.Decode(w, r, &receipts) {
		return
	}
	if len(receipts) == 0 {
		httputil.BadRequest(w, "empty receipt batch")
		return
	}
	if err := h.Bus.Publish(r.Context(), bus.ChannelDeliveryReceipt, receipts); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Accepted(w, map[string]any{"queued": len(receipts)})
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}
