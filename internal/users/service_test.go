package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(openTestDB(t)))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSync_CreatesAndUpdates(t *testing.T) {
	svc := newTestService(t)
	userID := uuid.New()

	created, err := svc.Sync(context.Background(), userID, SyncInput{
		Email: " Aiko@Example.COM ",
		Name:  "Aiko",
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if created.Email != "aiko@example.com" {
		t.Fatalf("email should be normalized, got %q", created.Email)
	}
	if created.Verified {
		t.Fatal("verified must follow the input")
	}

	updated, err := svc.Sync(context.Background(), userID, SyncInput{
		Email:    "aiko@example.com",
		Name:     "Aiko T",
		Verified: true,
	})
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if updated.Name != "Aiko T" || !updated.Verified {
		t.Fatalf("profile not updated: %+v", updated)
	}

	got, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Aiko T" {
		t.Fatalf("upsert should update in place, got %q", got.Name)
	}
}

func TestSync_ValidatesInput(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name  string
		input SyncInput
	}{
		{"bad email", SyncInput{Email: "not-an-email", Name: "Aiko"}},
		{"missing name", SyncInput{Email: "aiko@example.com"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Sync(context.Background(), uuid.New(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGet_UnknownUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
