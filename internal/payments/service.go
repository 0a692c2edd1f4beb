package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapmarket/snapmarket-backend/pkg/checkout"
	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	"github.com/snapmarket/snapmarket-backend/pkg/enums"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
	"github.com/snapmarket/snapmarket-backend/pkg/mailer"
	"github.com/snapmarket/snapmarket-backend/pkg/storage/s3"
)

type paymentsRepository interface {
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Payment, error)
	SettleFromPending(ctx context.Context, sessionID string, to enums.PaymentStatus, transactionID *string) (bool, error)
	HasCompletedForBuyerEntry(ctx context.Context, buyerID, entryID uuid.UUID) (bool, error)
}

type entriesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Entry, error)
	MarkSelected(ctx context.Context, id uuid.UUID) (bool, error)
	MarkPurchased(ctx context.Context, id uuid.UUID) error
	ClearSelected(ctx context.Context, id uuid.UUID) error
}

type requestsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
}

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service exposes purchase and settlement semantics.
type Service interface {
	InitiatePurchase(ctx context.Context, buyerID, requestID, entryID uuid.UUID) (*PurchaseOutput, error)
	ApplyResult(ctx context.Context, input ResultInput) (*models.Payment, error)
	CanDownload(ctx context.Context, userID, entryID uuid.UUID) (bool, error)
	ListMine(ctx context.Context, buyerID uuid.UUID) ([]models.Payment, error)
}

type service struct {
	repo     paymentsRepository
	entries  entriesRepository
	requests requestsRepository
	users    usersRepository
	sessions checkout.SessionCreator
	store    s3.ObjectStore
	mail     mailer.Sender
	logg     *logger.Logger
}

// Params bundles the service dependencies.
type Params struct {
	Repo     paymentsRepository
	Entries  entriesRepository
	Requests requestsRepository
	Users    usersRepository
	Sessions checkout.SessionCreator
	Store    s3.ObjectStore
	Mail     mailer.Sender
	Logger   *logger.Logger
}

// NewService constructs a payment service from the provided dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Entries == nil {
		return nil, fmt.Errorf("entries repository required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("checkout session creator required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		entries:  params.Entries,
		requests: params.Requests,
		users:    params.Users,
		sessions: params.Sessions,
		store:    params.Store,
		mail:     params.Mail,
		logg:     params.Logger,
	}, nil
}

// PurchaseOutput carries the created payment and the provider redirect.
type PurchaseOutput struct {
	Payment     *models.Payment `json:"payment"`
	RedirectURL string          `json:"redirect_url"`
}

// ResultInput is the provider's settlement callback, already verified.
type ResultInput struct {
	SessionID      string
	ProviderStatus string
	TransactionID  *string
}

// InitiatePurchase selects the entry for the buyer and opens a checkout
// session. The selected flip is conditional, so when two buyers race on the
// same entry exactly one reaches the provider; the loser gets a conflict and
// no payment row.
func (s *service) InitiatePurchase(ctx context.Context, buyerID, requestID, entryID uuid.UUID) (*PurchaseOutput, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer identity missing")
	}
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id missing")
	}
	if entryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id missing")
	}

	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading entry")
	}
	if entry.RequestID != requestID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry does not belong to this request")
	}

	request, err := s.requests.FindByID(ctx, entry.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading request")
	}
	if request.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another buyer")
	}

	if entry.Purchased {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "entry already purchased")
	}
	if entry.Selected {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "entry already selected")
	}

	won, err := s.entries.MarkSelected(ctx, entryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "selecting entry")
	}
	if !won {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "entry already selected")
	}

	s.tagSelected(ctx, entry)

	sessionID := "session_" + uuid.NewString()
	session, err := s.sessions.CreateSession(ctx, checkout.SessionParams{
		Amount:      entry.Price,
		Reference:   sessionID,
		Description: entry.Title,
	})
	if err != nil {
		s.releaseEntry(ctx, entry)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening checkout session")
	}

	payment := &models.Payment{
		ID:        uuid.New(),
		RequestID: entry.RequestID,
		EntryID:   entry.ID,
		BuyerID:   buyerID,
		SellerID:  entry.SellerID,
		Amount:    entry.Price,
		Status:    enums.PaymentStatusPending,
		SessionID: session.SessionID,
	}
	created, err := s.repo.Create(ctx, payment)
	if err != nil {
		s.releaseEntry(ctx, entry)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating payment")
	}

	return &PurchaseOutput{
		Payment:     created,
		RedirectURL: session.RedirectURL,
	}, nil
}

// ApplyResult settles a pending payment from a verified provider callback.
// Replays and late duplicates are no-ops: the first terminal status wins and
// every later callback just reads back the stored row.
func (s *service) ApplyResult(ctx context.Context, input ResultInput) (*models.Payment, error) {
	if input.SessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id missing")
	}

	target := enums.MapProviderStatus(input.ProviderStatus)

	won, err := s.repo.SettleFromPending(ctx, input.SessionID, target, input.TransactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling payment")
	}

	payment, err := s.repo.FindBySessionID(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
	}

	if !won {
		if payment.Status != target {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"session_id": input.SessionID,
				"stored":     payment.Status,
				"received":   target,
			}), "payment callback after settlement with different status")
		}
		return payment, nil
	}

	// Only completion touches the entry. A failed, canceled or errored
	// settlement records the terminal status and nothing else: the entry stays
	// selected, so it is never picked up by the unselected sweep.
	if target == enums.PaymentStatusCompleted {
		if err := s.entries.MarkPurchased(ctx, payment.EntryID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking entry purchased")
		}
		s.notifyPurchase(ctx, payment)
	}

	return payment, nil
}

// CanDownload reports whether the user may fetch the entry's full asset. The
// seller always may view their own submission; anyone else needs a completed
// payment for the entry.
func (s *service) CanDownload(ctx context.Context, userID, entryID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || entryID == uuid.Nil {
		return false, nil
	}
	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading entry")
	}
	if entry.SellerID == userID {
		return true, nil
	}
	ok, err := s.repo.HasCompletedForBuyerEntry(ctx, userID, entryID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking purchase")
	}
	return ok, nil
}

func (s *service) ListMine(ctx context.Context, buyerID uuid.UUID) ([]models.Payment, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer identity missing")
	}
	rows, err := s.repo.ListByBuyer(ctx, buyerID, 100)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing payments")
	}
	return rows, nil
}

// tagSelected retags the stored objects. Tag drift is tolerable, the database
// row is the source of truth, so failures only log.
func (s *service) tagSelected(ctx context.Context, entry *models.Entry) {
	for _, key := range []string{entry.FileKey, entry.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := s.store.SetStatusTag(ctx, key, enums.AssetStatusSelected); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "key", key), "tagging object selected failed")
		}
	}
}

// notifyPurchase mails the buyer and the seller after a completed settlement.
// Notification is best-effort; failures only log.
func (s *service) notifyPurchase(ctx context.Context, payment *models.Payment) {
	if s.mail == nil {
		return
	}
	s.sendTo(ctx, payment.BuyerID, mailer.Message{
		Subject: "Your purchase is complete",
		Body:    fmt.Sprintf("Your payment of %s went through. The full image is ready to download.", payment.Amount.String()),
	})
	s.sendTo(ctx, payment.SellerID, mailer.Message{
		Subject: "Your photo was purchased",
		Body:    fmt.Sprintf("Your entry sold for %s. Payment %s is complete.", payment.Amount.String(), payment.ID),
	})
}

func (s *service) sendTo(ctx context.Context, userID uuid.UUID, msg mailer.Message) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "loading user for notification failed")
		return
	}
	msg.To = user.Email
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "purchase notification failed")
	}
}

func (s *service) releaseEntry(ctx context.Context, entry *models.Entry) {
	if err := s.entries.ClearSelected(ctx, entry.ID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "entry_id", entry.ID.String()), "releasing entry failed")
		return
	}
	for _, key := range []string{entry.FileKey, entry.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := s.store.SetStatusTag(ctx, key, enums.AssetStatusUnselected); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "key", key), "tagging object unselected failed")
		}
	}
}
