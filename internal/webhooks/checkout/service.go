package checkoutwebhook

import (
	"context"
	"strings"

	"github.com/snapmarket/snapmarket-backend/internal/payments"
	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
)

// Event is the provider's settlement callback payload.
type Event struct {
	EventID       string `json:"event_id"`
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type settlementService interface {
	ApplyResult(ctx context.Context, input payments.ResultInput) (*models.Payment, error)
}

type Service struct {
	payments settlementService
}

func NewService(paymentsService settlementService) (*Service, error) {
	if paymentsService == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	return &Service{payments: paymentsService}, nil
}

// HandleEvent applies one verified provider event to the payment it names.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event payload required")
	}
	if strings.TrimSpace(event.SessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if strings.TrimSpace(event.Status) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "status required")
	}

	input := payments.ResultInput{
		SessionID:      event.SessionID,
		ProviderStatus: event.Status,
	}
	if txn := strings.TrimSpace(event.TransactionID); txn != "" {
		input.TransactionID = &txn
	}

	_, err := s.payments.ApplyResult(ctx, input)
	return err
}
