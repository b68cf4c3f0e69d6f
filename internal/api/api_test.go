package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ignite/crm-engine/internal/ai"
	"github.com/ignite/crm-engine/internal/bus"
	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/repository/memory"
	engine "github.com/ignite/crm-engine/internal/segment"
	"github.com/ignite/crm-engine/internal/service/campaign"
	"github.com/ignite/crm-engine/internal/service/customer"
	"github.com/ignite/crm-engine/internal/service/delivery"
	"github.com/ignite/crm-engine/internal/service/segment"
	"github.com/ignite/crm-engine/internal/transmit"
)

type testEnv struct {
	srv   *httptest.Server
	store *memory.Store
	disp  *campaign.Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	b := bus.NewMemoryBus()
	t.Cleanup(func() { b.Close() })

	eval := engine.New(engine.DefaultOptions())
	customers := customer.NewService(store, b)
	customer.NewConsumer(customers).Attach(b)

	segments := segment.NewService(store, store, eval)
	deliverySvc := delivery.NewService(store)
	delivery.NewConsumer(deliverySvc).Attach(b)

	disp := campaign.NewDispatcher(store, segments, transmit.NewSimulator(1.0, 7), b,
		campaign.DispatchOptions{BatchSize: 10})
	campaigns := campaign.NewService(store, segments, disp)

	h := &Handlers{
		Customers: customers,
		Segments:  segments,
		Campaigns: campaigns,
		Delivery:  deliverySvc,
		Assist:    ai.NewAssist(nil),
		Bus:       b,
	}

	srv := httptest.NewServer(Routes(h))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store, disp: disp}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, user string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d", resp.StatusCode, want)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodGet, "/health", nil, "")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestCustomerSubmitIsAsync(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/customers", map[string]any{
		"firstName": "Priya", "lastName": "Sharma", "email": "priya@example.com",
	}, "1")
	wantStatus(t, resp, http.StatusAccepted)
	resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp := e.do(t, http.MethodGet, "/api/customers", nil, "1")
		customers := decodeBody[[]domain.Customer](t, resp)
		if len(customers) == 1 && customers[0].Email == "priya@example.com" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("customer never appeared, got %v", customers)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCustomerDirectCreateAndValidation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/customers/direct", map[string]any{
		"firstName": "Arjun", "lastName": "Patel", "email": "arjun@example.com",
	}, "1")
	wantStatus(t, resp, http.StatusCreated)
	created := decodeBody[domain.Customer](t, resp)
	if created.ID == 0 || created.Status != domain.CustomerNew {
		t.Fatalf("created = %+v", created)
	}

	resp = e.do(t, http.MethodPost, "/api/customers/direct", map[string]any{
		"firstName": "Dup", "lastName": "Patel", "email": "arjun@example.com",
	}, "1")
	wantStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = e.do(t, http.MethodPost, "/api/customers/direct", map[string]any{
		"firstName": "", "lastName": "Patel", "email": "x@example.com",
	}, "1")
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func seedCustomers(t *testing.T, e *testEnv, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		resp := e.do(t, http.MethodPost, "/api/customers/direct", map[string]any{
			"firstName": fmt.Sprintf("User%d", i),
			"lastName":  "Test",
			"email":     fmt.Sprintf("user%d@example.com", i),
			"status":    "active",
		}, "1")
		wantStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}
}

func TestSegmentCreatePreviewAndOwnership(t *testing.T) {
	e := newTestEnv(t)
	seedCustomers(t, e, 3)

	rules := map[string]any{
		"logicalOperator": "AND",
		"rules": []map[string]any{
			{"field": "status", "operator": "equals", "value": "active"},
		},
	}

	resp := e.do(t, http.MethodPost, "/api/segments/preview", map[string]any{"rules": rules}, "1")
	wantStatus(t, resp, http.StatusOK)
	preview := decodeBody[segment.Preview](t, resp)
	if preview.AudienceSize != 3 {
		t.Fatalf("preview audience = %d, want 3", preview.AudienceSize)
	}

	resp = e.do(t, http.MethodPost, "/api/segments", map[string]any{"name": "Actives", "rules": rules}, "1")
	wantStatus(t, resp, http.StatusCreated)
	seg := decodeBody[domain.Segment](t, resp)
	if seg.AudienceSize != 3 {
		t.Fatalf("snapshot = %d, want 3", seg.AudienceSize)
	}

	resp = e.do(t, http.MethodGet, fmt.Sprintf("/api/segments/%d", seg.ID), nil, "2")
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

func TestGenerateSegmentRulesFallback(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/segments/generate", map[string]any{
		"prompt": "customers who spend a lot",
	}, "1")
	wantStatus(t, resp, http.StatusOK)

	body := decodeBody[struct {
		Rules       domain.RuleGroup `json:"rules"`
		GeneratedBy string           `json:"generatedBy"`
	}](t, resp)
	if body.GeneratedBy != "fallback" {
		t.Fatalf("generatedBy = %q", body.GeneratedBy)
	}
	if err := body.Rules.Validate(); err != nil {
		t.Fatalf("fallback rules invalid: %v", err)
	}
}

func TestCampaignSendLifecycle(t *testing.T) {
	e := newTestEnv(t)
	seedCustomers(t, e, 3)

	rules := map[string]any{"logicalOperator": "AND", "rules": []any{}}
	resp := e.do(t, http.MethodPost, "/api/segments", map[string]any{"name": "All", "rules": rules}, "1")
	seg := decodeBody[domain.Segment](t, resp)

	resp = e.do(t, http.MethodPost, "/api/campaigns", map[string]any{
		"name": "Welcome", "segmentId": seg.ID, "message": "Hi {{customer.firstName}}!",
	}, "1")
	wantStatus(t, resp, http.StatusCreated)
	c := decodeBody[domain.Campaign](t, resp)
	if c.Status != domain.CampaignDraft {
		t.Fatalf("status = %q, want draft", c.Status)
	}

	resp = e.do(t, http.MethodPost, fmt.Sprintf("/api/campaigns/%d/send", c.ID), nil, "1")
	wantStatus(t, resp, http.StatusAccepted)
	resp.Body.Close()

	e.disp.Wait()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp := e.do(t, http.MethodGet, fmt.Sprintf("/api/campaigns/%d", c.ID), nil, "1")
		cur := decodeBody[domain.Campaign](t, resp)
		if cur.Status == domain.CampaignSent && cur.SentCount+cur.FailedCount == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("campaign never settled: %+v", cur)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A second send hits the lifecycle gate.
	resp = e.do(t, http.MethodPost, fmt.Sprintf("/api/campaigns/%d/send", c.ID), nil, "1")
	wantStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, fmt.Sprintf("/api/campaigns/%d/logs", c.ID), nil, "1")
	wantStatus(t, resp, http.StatusOK)
	logs := decodeBody[[]domain.CommunicationLog](t, resp)
	if len(logs) != 3 {
		t.Fatalf("logs = %d, want 3", len(logs))
	}
	if logs[0].Message != "Hi User0!" {
		t.Fatalf("personalized = %q", logs[0].Message)
	}

	resp = e.do(t, http.MethodGet, fmt.Sprintf("/api/campaigns/%d/summary", c.ID), nil, "1")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestReceiptWebhook(t *testing.T) {
	e := newTestEnv(t)
	seedCustomers(t, e, 1)

	// Hand-build a pending ledger row, then settle it via the webhook.
	logs, err := e.store.CreateLogs(nil, []domain.CommunicationLog{
		{CampaignID: 1, CustomerID: 1, Status: domain.LogSending},
	})
	if err != nil {
		t.Fatalf("CreateLogs: %v", err)
	}

	resp := e.do(t, http.MethodPost, "/api/receipts", []map[string]any{
		{"logId": logs[0].ID, "status": "failed", "failureReason": "Failed to deliver message"},
	}, "1")
	wantStatus(t, resp, http.StatusAccepted)
	resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		l, err := e.store.GetLog(nil, logs[0].ID)
		if err == nil && l.Status == domain.LogFailed {
			if l.FailureReason != "Failed to deliver message" {
				t.Fatalf("reason = %q", l.FailureReason)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("receipt never settled")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOrdersFlow(t *testing.T) {
	e := newTestEnv(t)
	seedCustomers(t, e, 1)

	resp := e.do(t, http.MethodPost, "/api/orders/direct", map[string]any{
		"customerId": 1, "amount": 499.5,
	}, "1")
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/api/customers/1/orders", nil, "1")
	wantStatus(t, resp, http.StatusOK)
	orders := decodeBody[[]domain.Order](t, resp)
	if len(orders) != 1 || orders[0].Amount != 499.5 {
		t.Fatalf("orders = %+v", orders)
	}

	resp = e.do(t, http.MethodGet, "/api/customers/1", nil, "1")
	cust := decodeBody[domain.Customer](t, resp)
	if cust.TotalSpend != 499.5 {
		t.Fatalf("totalSpend = %v", cust.TotalSpend)
	}
}
