// vendor-stub is a local stand-in for an external delivery vendor. It
// accepts the batch endpoint the HTTP transmitter posts to, decides each
// message's fate with the same success rate as the simulator, and answers
// with per-message outcomes.
//
// Run it next to the server with TRANSMIT_VENDOR=http and
// TRANSMIT_VENDOR_URL=http://localhost:9099/send.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"time"
)

type message struct {
	LogID     int64  `json:"logId"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

type outcome struct {
	LogID         int64  `json:"logId"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}

func main() {
	addr := flag.String("addr", ":9099", "listen address")
	successRate := flag.Float64("success-rate", 0.9, "per-message delivery probability")
	flag.Parse()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	http.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		var msgs []message
		if err := json.NewDecoder(r.Body).Decode(&msgs); err != nil {
			http.Error(w, "invalid batch: "+err.Error(), http.StatusBadRequest)
			return
		}

		out := make([]outcome, len(msgs))
		for i, m := range msgs {
			if rng.Float64() < *successRate {
				out[i] = outcome{LogID: m.LogID, Status: "delivered"}
			} else {
				out[i] = outcome{LogID: m.LogID, Status: "failed", FailureReason: "Failed to deliver message"}
			}
		}
		log.Printf("[VendorStub] batch of %d messages processed", len(msgs))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})

	log.Printf("[VendorStub] listening on %s (success rate %.2f)", *addr, *successRate)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
