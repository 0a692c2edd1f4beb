package entries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	"github.com/snapmarket/snapmarket-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Request{}, &models.Entry{}, &models.Payment{}, &models.User{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return conn
}

func seedRequest(t *testing.T, db *gorm.DB, status enums.RequestStatus) *models.Request {
	t.Helper()
	request := &models.Request{
		ID:       uuid.New(),
		BuyerID:  uuid.New(),
		Title:    "test request",
		Budget:   decimal.NewFromInt(1000),
		Deadline: time.Now().Add(24 * time.Hour),
		Category: "test",
		Status:   status,
	}
	if err := db.Create(request).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return request
}

func seedEntry(t *testing.T, db *gorm.DB, requestID uuid.UUID, mutate func(*models.Entry)) *models.Entry {
	t.Helper()
	entry := &models.Entry{
		ID:           uuid.New(),
		RequestID:    requestID,
		SellerID:     uuid.New(),
		SellerName:   "seller",
		Title:        "photo",
		FileKey:      "entries/r/s/" + uuid.NewString(),
		ThumbnailKey: "entries/r/s/" + uuid.NewString() + "_thumbnail",
		Price:        decimal.NewFromInt(100),
	}
	if mutate != nil {
		mutate(entry)
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	return entry
}

func backdate(t *testing.T, db *gorm.DB, model any, id uuid.UUID, at time.Time) {
	t.Helper()
	if err := db.Model(model).Where("id = ?", id).UpdateColumn("updated_at", at).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
}

func TestMarkSelected_SingleWinner(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	request := seedRequest(t, db, enums.RequestStatusOpen)
	entry := seedEntry(t, db, request.ID, nil)

	won, err := repo.MarkSelected(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("first MarkSelected: %v", err)
	}
	if !won {
		t.Fatal("first caller should win the flip")
	}

	won, err = repo.MarkSelected(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("second MarkSelected: %v", err)
	}
	if won {
		t.Fatal("second caller must lose the flip")
	}

	if err := repo.ClearSelected(context.Background(), entry.ID); err != nil {
		t.Fatalf("ClearSelected: %v", err)
	}
	won, err = repo.MarkSelected(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("MarkSelected after release: %v", err)
	}
	if !won {
		t.Fatal("released entry should be winnable again")
	}
}

func TestClearSelected_SkipsPurchased(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	request := seedRequest(t, db, enums.RequestStatusOpen)
	entry := seedEntry(t, db, request.ID, func(e *models.Entry) {
		e.Selected = true
		e.Purchased = true
	})

	if err := repo.ClearSelected(context.Background(), entry.ID); err != nil {
		t.Fatalf("ClearSelected: %v", err)
	}

	got, err := repo.FindByID(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !got.Selected {
		t.Fatal("purchased entry must stay selected")
	}
}

func TestFindUnselectedForPurge(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	past := time.Now().Add(-31 * 24 * time.Hour)

	closedRequest := seedRequest(t, db, enums.RequestStatusClosed)
	stillOpen := seedRequest(t, db, enums.RequestStatusOpen)

	eligible := seedEntry(t, db, closedRequest.ID, nil)
	selected := seedEntry(t, db, closedRequest.ID, func(e *models.Entry) { e.Selected = true })
	stamped := seedEntry(t, db, closedRequest.ID, func(e *models.Entry) {
		at := past
		e.FilePurgedAt = &at
	})
	onOpen := seedEntry(t, db, stillOpen.ID, nil)

	backdate(t, db, &models.Request{}, closedRequest.ID, past)
	backdate(t, db, &models.Request{}, stillOpen.ID, past)

	rows, err := repo.FindUnselectedForPurge(context.Background(), time.Now().Add(-30*24*time.Hour), 100)
	if err != nil {
		t.Fatalf("FindUnselectedForPurge: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != eligible.ID {
		t.Fatalf("expected only the eligible entry, got %v", rows)
	}
	for _, skipped := range []uuid.UUID{selected.ID, stamped.ID, onOpen.ID} {
		for _, row := range rows {
			if row.ID == skipped {
				t.Fatalf("entry %s must not be purgeable", skipped)
			}
		}
	}
}

func TestFindUnselectedForPurge_RespectsGrace(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)

	closedRequest := seedRequest(t, db, enums.RequestStatusClosed)
	seedEntry(t, db, closedRequest.ID, nil)

	// request turned terminal just now, cutoff is in the past
	rows, err := repo.FindUnselectedForPurge(context.Background(), time.Now().Add(-30*24*time.Hour), 100)
	if err != nil {
		t.Fatalf("FindUnselectedForPurge: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("entries inside the grace window must be kept, got %v", rows)
	}
}

func TestFindPurchasedForPurge(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	past := time.Now().Add(-8 * 24 * time.Hour)

	request := seedRequest(t, db, enums.RequestStatusClosed)
	purchased := seedEntry(t, db, request.ID, func(e *models.Entry) {
		e.Selected = true
		e.Purchased = true
	})
	pendingEntry := seedEntry(t, db, request.ID, func(e *models.Entry) { e.Selected = true })

	completedPayment := &models.Payment{
		ID:        uuid.New(),
		RequestID: request.ID,
		EntryID:   purchased.ID,
		BuyerID:   request.BuyerID,
		SellerID:  purchased.SellerID,
		Amount:    purchased.Price,
		Status:    enums.PaymentStatusCompleted,
		SessionID: "session_completed",
	}
	pendingPayment := &models.Payment{
		ID:        uuid.New(),
		RequestID: request.ID,
		EntryID:   pendingEntry.ID,
		BuyerID:   request.BuyerID,
		SellerID:  pendingEntry.SellerID,
		Amount:    pendingEntry.Price,
		Status:    enums.PaymentStatusPending,
		SessionID: "session_pending",
	}
	for _, p := range []*models.Payment{completedPayment, pendingPayment} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed payment: %v", err)
		}
	}
	backdate(t, db, &models.Payment{}, completedPayment.ID, past)
	backdate(t, db, &models.Payment{}, pendingPayment.ID, past)

	rows, err := repo.FindPurchasedForPurge(context.Background(), time.Now().Add(-7*24*time.Hour), 100)
	if err != nil {
		t.Fatalf("FindPurchasedForPurge: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != purchased.ID {
		t.Fatalf("expected only the settled purchase, got %v", rows)
	}
}

func TestDeleteByID_RemovesRecord(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	request := seedRequest(t, db, enums.RequestStatusClosed)
	entry := seedEntry(t, db, request.ID, nil)

	if err := repo.DeleteByID(context.Background(), entry.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}

	if _, err := repo.FindByID(context.Background(), entry.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record gone, got %v", err)
	}

	// deleting again is a no-op
	if err := repo.DeleteByID(context.Background(), entry.ID); err != nil {
		t.Fatalf("second DeleteByID: %v", err)
	}
}

func TestMarkFilePurged_StampsOnce(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	request := seedRequest(t, db, enums.RequestStatusClosed)
	entry := seedEntry(t, db, request.ID, nil)

	first := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.MarkFilePurged(context.Background(), entry.ID, first); err != nil {
		t.Fatalf("first MarkFilePurged: %v", err)
	}
	if err := repo.MarkFilePurged(context.Background(), entry.ID, first.Add(time.Hour)); err != nil {
		t.Fatalf("second MarkFilePurged: %v", err)
	}

	got, err := repo.FindByID(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.FilePurgedAt == nil || !got.FilePurgedAt.Equal(first) {
		t.Fatalf("purge stamp must not move, got %v", got.FilePurgedAt)
	}
}
