package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/service/customer"
	"github.com/ignite/crm-engine/internal/service/delivery"
)

func TestCustomerGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM customers WHERE id").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewCustomerRepo(db)
	if _, err := repo.GetCustomer(context.Background(), 42); !errors.Is(err, customer.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCustomerCreateOrderRollsBackOnMissingCustomer(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("UPDATE customers").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewCustomerRepo(db)
	_, err = repo.CreateOrder(context.Background(), &domain.Order{
		CustomerID: 99, Amount: 10, OrderDate: now, Status: domain.OrderCompleted, CreatedAt: now,
	})
	if !errors.Is(err, customer.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCampaignStatusCASLoserSeesZeroRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE campaigns SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE campaigns SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCampaignRepo(db)
	ctx := context.Background()

	won, err := repo.UpdateStatusIf(ctx, 5, domain.CampaignDraft, domain.CampaignSending, nil)
	if err != nil || !won {
		t.Fatalf("first CAS: won=%v err=%v", won, err)
	}
	won, err = repo.UpdateStatusIf(ctx, 5, domain.CampaignDraft, domain.CampaignSending, nil)
	if err != nil {
		t.Fatalf("second CAS: %v", err)
	}
	if won {
		t.Fatal("second CAS reported a win")
	}
}

func TestTransitionLogAbsorbsTerminalRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE communication_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE communication_logs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewDeliveryRepo(db)
	ctx := context.Background()

	applied, err := repo.TransitionLog(ctx, 3, domain.LogDelivered, &now, "")
	if err != nil || !applied {
		t.Fatalf("first transition: applied=%v err=%v", applied, err)
	}
	applied, err = repo.TransitionLog(ctx, 3, domain.LogFailed, nil, "late bounce")
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if applied {
		t.Fatal("terminal row accepted a second transition")
	}
}

func TestGetLogNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM communication_logs WHERE id").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewDeliveryRepo(db)
	if _, err := repo.GetLog(context.Background(), 404); !errors.Is(err, delivery.ErrNotFound) {
		t.Fatalf("err = %v, want delivery.ErrNotFound", err)
	}
}

func TestCreateLogsAssignsIDsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO communication_logs")
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectCommit()

	repo := NewCampaignRepo(db)
	logs, err := repo.CreateLogs(context.Background(), []domain.CommunicationLog{
		{CampaignID: 1, CustomerID: 100, Message: "a", Status: domain.LogPending, CreatedAt: now},
		{CampaignID: 1, CustomerID: 101, Message: "b", Status: domain.LogPending, CreatedAt: now},
	})
	if err != nil {
		t.Fatalf("CreateLogs: %v", err)
	}
	if logs[0].ID != 11 || logs[1].ID != 12 {
		t.Fatalf("ids = %d,%d want 11,12", logs[0].ID, logs[1].ID)
	}
}
