package transmit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ignite/crm-engine/internal/pkg/httpretry"
)

// VendorTransmitter posts message batches to an external delivery vendor's
// HTTP API. The vendor answers each batch with one outcome per message.
// Transient failures are retried by the wrapped client; a batch that never
// gets through is a transport error.
type VendorTransmitter struct {
	client httpretry.HTTPDoer
	url    string
}

// NewVendorTransmitter wraps the vendor endpoint with a retrying client.
func NewVendorTransmitter(url string) *VendorTransmitter {
	return &VendorTransmitter{
		client: httpretry.NewRetryClient(nil, 3),
		url:    url,
	}
}

type vendorMessage struct {
	LogID     int64  `json:"logId"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

type vendorOutcome struct {
	LogID         int64  `json:"logId"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}

// Send posts the batch and decodes the vendor's verdicts.
func (t *VendorTransmitter) Send(ctx context.Context, msgs []Message) ([]Outcome, error) {
	payload := make([]vendorMessage, len(msgs))
	for i, m := range msgs {
		payload[i] = vendorMessage{LogID: m.LogID, Recipient: m.Recipient, Subject: m.Subject, Body: m.Body}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal vendor batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build vendor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vendor request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vendor returned %d", resp.StatusCode)
	}

	var verdicts []vendorOutcome
	if err := json.NewDecoder(resp.Body).Decode(&verdicts); err != nil {
		return nil, fmt.Errorf("decode vendor response: %w", err)
	}
	if len(verdicts) != len(msgs) {
		return nil, fmt.Errorf("vendor returned %d outcomes for %d messages", len(verdicts), len(msgs))
	}

	out := make([]Outcome, len(verdicts))
	for i, v := range verdicts {
		status := OutcomeFailed
		if v.Status == string(OutcomeDelivered) {
			status = OutcomeDelivered
		}
		reason := v.FailureReason
		if status == OutcomeFailed && reason == "" {
			reason = "rejected by vendor"
		}
		out[i] = Outcome{LogID: v.LogID, Status: status, FailureReason: reason}
	}
	return out, nil
}
