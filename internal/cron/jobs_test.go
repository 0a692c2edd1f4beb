package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	"github.com/snapmarket/snapmarket-backend/pkg/enums"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
)

type fakeExpirer struct {
	ids    []uuid.UUID
	err    error
	gotNow time.Time
}

func (f *fakeExpirer) ExpireOpenPastDeadline(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	f.gotNow = now
	return f.ids, f.err
}

type fakePurgeRepo struct {
	pending    []models.Entry
	purgedIDs  []uuid.UUID
	removedIDs []uuid.UUID
	markErr    error
	removeErr  error
	queryErr   error
}

func (f *fakePurgeRepo) FindUnselectedForPurge(ctx context.Context, cutoff time.Time, limit int) ([]models.Entry, error) {
	return f.find(limit)
}

func (f *fakePurgeRepo) FindPurchasedForPurge(ctx context.Context, cutoff time.Time, limit int) ([]models.Entry, error) {
	return f.find(limit)
}

func (f *fakePurgeRepo) find(limit int) ([]models.Entry, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.pending) <= limit {
		return f.pending, nil
	}
	return f.pending[:limit], nil
}

func (f *fakePurgeRepo) MarkFilePurged(_ context.Context, id uuid.UUID, _ time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.purgedIDs = append(f.purgedIDs, id)
	f.drain(id)
	return nil
}

func (f *fakePurgeRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removedIDs = append(f.removedIDs, id)
	f.drain(id)
	return nil
}

func (f *fakePurgeRepo) drain(id uuid.UUID) {
	for i, e := range f.pending {
		if e.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
}

type fakeStore struct {
	deleted   []string
	deleteErr error
}

func (f *fakeStore) PresignPut(_ context.Context, key, _ string, _ int64, _ time.Duration) (string, error) {
	return "https://storage.test/put/" + key, nil
}

func (f *fakeStore) PresignGet(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://storage.test/get/" + key, nil
}

func (f *fakeStore) SetStatusTag(_ context.Context, _ string, _ enums.AssetStatus) error {
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func pendingEntry() models.Entry {
	return models.Entry{
		ID:           uuid.New(),
		RequestID:    uuid.New(),
		SellerID:     uuid.New(),
		FileKey:      "entries/r/s/file-" + uuid.NewString(),
		ThumbnailKey: "entries/r/s/file-" + uuid.NewString() + "_thumbnail",
	}
}

func TestRequestExpiryJob_PassesFrozenClock(t *testing.T) {
	expirer := &fakeExpirer{ids: []uuid.UUID{uuid.New(), uuid.New()}}
	job, err := NewRequestExpiryJob(RequestExpiryJobParams{
		Logger:  testLogger(),
		Expirer: expirer,
	})
	if err != nil {
		t.Fatalf("NewRequestExpiryJob: %v", err)
	}

	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	job.(*requestExpiryJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !expirer.gotNow.Equal(now) {
		t.Fatalf("expected sweep at %v, got %v", now, expirer.gotNow)
	}
}

func TestRequestExpiryJob_PropagatesError(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	job, err := NewRequestExpiryJob(RequestExpiryJobParams{
		Logger:  testLogger(),
		Expirer: expirer,
	})
	if err != nil {
		t.Fatalf("NewRequestExpiryJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing sweep")
	}
}

func TestUnselectedPurgeJob_DeletesObjectsAndRecords(t *testing.T) {
	repo := &fakePurgeRepo{pending: []models.Entry{pendingEntry(), pendingEntry()}}
	store := &fakeStore{}
	job, err := NewUnselectedPurgeJob(UnselectedPurgeJobParams{
		Logger: testLogger(),
		Repo:   repo,
		Store:  store,
		Grace:  720 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewUnselectedPurgeJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.deleted) != 4 {
		t.Fatalf("expected 4 deletes (file + thumbnail per entry), got %d", len(store.deleted))
	}
	if len(repo.removedIDs) != 2 {
		t.Fatalf("expected 2 record deletions, got %d", len(repo.removedIDs))
	}
	if len(repo.purgedIDs) != 0 {
		t.Fatal("unselected purge must remove records, not stamp them")
	}
	if len(repo.pending) != 0 {
		t.Fatal("all pending entries should be drained")
	}
}

func TestUnselectedPurgeJob_RecordDeleteFailureReportsError(t *testing.T) {
	repo := &fakePurgeRepo{
		pending:   []models.Entry{pendingEntry()},
		removeErr: errors.New("db write failed"),
	}
	store := &fakeStore{}
	job, err := NewUnselectedPurgeJob(UnselectedPurgeJobParams{
		Logger: testLogger(),
		Repo:   repo,
		Store:  store,
		Grace:  720 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewUnselectedPurgeJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected combined error when the record delete fails")
	}
	if len(repo.removedIDs) != 0 {
		t.Fatal("entry must stay when the record delete fails")
	}
}

func TestUnselectedPurgeJob_StoreFailureDoesNotSpin(t *testing.T) {
	repo := &fakePurgeRepo{pending: []models.Entry{pendingEntry(), pendingEntry()}}
	store := &fakeStore{deleteErr: errors.New("bucket unreachable")}
	job, err := NewUnselectedPurgeJob(UnselectedPurgeJobParams{
		Logger: testLogger(),
		Repo:   repo,
		Store:  store,
		Grace:  720 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewUnselectedPurgeJob: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- job.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error when every delete fails")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job is spinning on a fully failing batch")
	}
	if len(repo.removedIDs) != 0 {
		t.Fatal("no records should be removed when object deletes fail")
	}
}

func TestPurchasedPurgeJob_KeepsRecordsDeletesBinaries(t *testing.T) {
	entry := pendingEntry()
	repo := &fakePurgeRepo{pending: []models.Entry{entry}}
	store := &fakeStore{}
	job, err := NewPurchasedPurgeJob(PurchasedPurgeJobParams{
		Logger:    testLogger(),
		Repo:      repo,
		Store:     store,
		Retention: 168 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewPurchasedPurgeJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.deleted) != 2 {
		t.Fatalf("expected file and thumbnail deletes, got %v", store.deleted)
	}
	if len(repo.purgedIDs) != 1 || repo.purgedIDs[0] != entry.ID {
		t.Fatalf("expected purge stamp for %s, got %v", entry.ID, repo.purgedIDs)
	}
	if len(repo.removedIDs) != 0 {
		t.Fatal("purchased purge must keep entry records")
	}
}

func TestPurchasedPurgeJob_QueryFailureReturnsError(t *testing.T) {
	repo := &fakePurgeRepo{queryErr: errors.New("join failed")}
	job, err := NewPurchasedPurgeJob(PurchasedPurgeJobParams{
		Logger:    testLogger(),
		Repo:      repo,
		Store:     &fakeStore{},
		Retention: 168 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewPurchasedPurgeJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error when the purge query fails")
	}
}
