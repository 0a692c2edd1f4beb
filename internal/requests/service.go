package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	"github.com/snapmarket/snapmarket-backend/pkg/enums"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
	"github.com/snapmarket/snapmarket-backend/pkg/pagination"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxCategoryLen    = 100
	maxTags           = 10
	maxTagLen         = 50
)

type requestsRepository interface {
	Create(ctx context.Context, request *models.Request) (*models.Request, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	ListByStatus(ctx context.Context, status enums.RequestStatus, cursor *pagination.Cursor, limit int) ([]models.Request, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Request, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.RequestStatus) (bool, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service exposes request lifecycle semantics.
type Service interface {
	Create(ctx context.Context, buyerID uuid.UUID, buyerName string, input CreateInput) (*models.Request, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Request, error)
	ListOpen(ctx context.Context, params pagination.Params) (*Page, error)
	ListMine(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*Page, error)
	Close(ctx context.Context, buyerID, requestID uuid.UUID) (*models.Request, error)
}

type service struct {
	repo  requestsRepository
	users userFinder
	now   func() time.Time
}

// NewService constructs a request service backed by the provided repositories.
func NewService(repo requestsRepository, users userFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{
		repo:  repo,
		users: users,
		now:   time.Now,
	}, nil
}

// CreateInput models the payload required to open a request.
type CreateInput struct {
	Title       string
	Description string
	Budget      decimal.Decimal
	Deadline    time.Time
	Category    string
	Tags        []string
}

// Page is one cursor page of requests.
type Page struct {
	Items      []models.Request `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func (s *service) Create(ctx context.Context, buyerID uuid.UUID, buyerName string, input CreateInput) (*models.Request, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer identity missing")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxTitleLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required").
			WithDetails(map[string]any{"field": "title", "max_length": maxTitleLen})
	}
	description := strings.TrimSpace(input.Description)
	if len(description) > maxDescriptionLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description too long").
			WithDetails(map[string]any{"field": "description", "max_length": maxDescriptionLen})
	}
	category := strings.TrimSpace(input.Category)
	if category == "" || len(category) > maxCategoryLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required").
			WithDetails(map[string]any{"field": "category", "max_length": maxCategoryLen})
	}
	if !input.Budget.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget must be positive").
			WithDetails(map[string]any{"field": "budget"})
	}
	if !input.Deadline.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deadline must be in the future").
			WithDetails(map[string]any{"field": "deadline"})
	}
	tags, err := normalizeTags(input.Tags)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, buyerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading buyer")
	}

	request := &models.Request{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		BuyerName:   strings.TrimSpace(buyerName),
		Title:       title,
		Description: description,
		Budget:      input.Budget,
		Deadline:    input.Deadline.UTC(),
		Category:    category,
		Tags:        tags,
		Status:      enums.RequestStatusOpen,
	}

	created, err := s.repo.Create(ctx, request)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating request")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id missing")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading request")
	}
	return request, nil
}

func (s *service) ListOpen(ctx context.Context, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByStatus(ctx, enums.RequestStatusOpen, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing open requests")
	}
	return buildPage(rows, limit), nil
}

func (s *service) ListMine(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*Page, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByBuyer(ctx, buyerID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing buyer requests")
	}
	return buildPage(rows, limit), nil
}

// Close moves an open request to closed. Only the owning buyer may close it,
// and a request already closed or expired stays untouched.
func (s *service) Close(ctx context.Context, buyerID, requestID uuid.UUID) (*models.Request, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer identity missing")
	}

	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another buyer")
	}
	if request.Status != enums.RequestStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request is not open").
			WithDetails(map[string]any{"status": request.Status})
	}

	won, err := s.repo.TransitionStatus(ctx, requestID, enums.RequestStatusOpen, enums.RequestStatusClosed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "closing request")
	}
	if !won {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request is not open")
	}

	request.Status = enums.RequestStatusClosed
	return request, nil
}

func normalizeTags(raw []string) (pq.StringArray, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) > maxTags {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many tags").
			WithDetails(map[string]any{"field": "tags", "max_tags": maxTags})
	}

	seen := make(map[string]struct{}, len(raw))
	tags := make(pq.StringArray, 0, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if len(tag) > maxTagLen {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tag too long").
				WithDetails(map[string]any{"field": "tags", "max_length": maxTagLen})
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}

func buildPage(rows []models.Request, limit int) *Page {
	page := &Page{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		last := page.Items[len(page.Items)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	if page.Items == nil {
		page.Items = []models.Request{}
	}
	return page
}
