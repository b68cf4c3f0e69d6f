package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/ignite/crm-engine/internal/domain"
)

func TestSeedLoadsDemoData(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.Seed(ctx); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	customers, err := s.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if len(customers) != 5 {
		t.Fatalf("customers = %d, want 5", len(customers))
	}
	orders, _ := s.ListOrders(ctx)
	if len(orders) != 3 {
		t.Fatalf("orders = %d, want 3", len(orders))
	}
}

func TestStatusCASUnderContention(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	id, err := s.CreateCampaign(ctx, &domain.Campaign{Name: "Race", Status: domain.CampaignDraft})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}

	const claimers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := s.UpdateStatusIf(ctx, id, domain.CampaignDraft, domain.CampaignSending, nil)
			if err != nil {
				t.Errorf("UpdateStatusIf: %v", err)
				return
			}
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	total := 0
	for won := range wins {
		if won {
			total++
		}
	}
	if total != 1 {
		t.Fatalf("winners = %d, want exactly 1", total)
	}
}

func TestTransitionLogSticky(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	logs, err := s.CreateLogs(ctx, []domain.CommunicationLog{
		{CampaignID: 1, CustomerID: 1, Status: domain.LogPending},
	})
	if err != nil {
		t.Fatalf("CreateLogs: %v", err)
	}
	id := logs[0].ID

	applied, err := s.TransitionLog(ctx, id, domain.LogFailed, nil, "Failed to deliver message")
	if err != nil || !applied {
		t.Fatalf("first transition: applied=%v err=%v", applied, err)
	}
	applied, err = s.TransitionLog(ctx, id, domain.LogDelivered, nil, "")
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if applied {
		t.Fatal("terminal log accepted a second transition")
	}

	l, _ := s.GetLog(ctx, id)
	if l.Status != domain.LogFailed || l.FailureReason != "Failed to deliver message" {
		t.Fatalf("log = %+v", l)
	}
}
