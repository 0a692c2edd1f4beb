package entries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	"github.com/snapmarket/snapmarket-backend/pkg/enums"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
	"github.com/snapmarket/snapmarket-backend/pkg/pagination"
	"github.com/snapmarket/snapmarket-backend/pkg/storage/s3"
)

const (
	maxUploadBytes      = 10 * 1024 * 1024
	maxEntriesPerSeller = 5
	maxTitleLen         = 200
	maxDescriptionLen   = 2000
)

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

type entriesRepository interface {
	Create(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Entry, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Entry, error)
	CountByRequestAndSeller(ctx context.Context, requestID, sellerID uuid.UUID) (int64, error)
}

type requestsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type downloadAuthorizer interface {
	CanDownload(ctx context.Context, userID, entryID uuid.UUID) (bool, error)
}

// Service exposes entry submission and asset transfer semantics.
type Service interface {
	PresignUpload(ctx context.Context, sellerID, requestID uuid.UUID, input PresignInput) (*PresignOutput, error)
	Create(ctx context.Context, sellerID uuid.UUID, sellerName string, input CreateInput) (*models.Entry, error)
	List(ctx context.Context, requestID uuid.UUID, params pagination.Params) (*Page, error)
	Download(ctx context.Context, userID, requestID, entryID uuid.UUID) (*DownloadOutput, error)
}

type service struct {
	repo        entriesRepository
	requests    requestsRepository
	users       userFinder
	store       s3.ObjectStore
	authorizer  downloadAuthorizer
	uploadTTL   time.Duration
	downloadTTL time.Duration
}

// Params bundles the service dependencies.
type Params struct {
	Repo        entriesRepository
	Requests    requestsRepository
	Users       userFinder
	Store       s3.ObjectStore
	Authorizer  downloadAuthorizer
	UploadTTL   time.Duration
	DownloadTTL time.Duration
}

// NewService constructs an entry service from the provided dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("entries repository required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Authorizer == nil {
		return nil, fmt.Errorf("download authorizer required")
	}
	if params.UploadTTL <= 0 {
		return nil, fmt.Errorf("upload ttl must be positive")
	}
	if params.DownloadTTL <= 0 {
		return nil, fmt.Errorf("download ttl must be positive")
	}
	return &service{
		repo:        params.Repo,
		requests:    params.Requests,
		users:       params.Users,
		store:       params.Store,
		authorizer:  params.Authorizer,
		uploadTTL:   params.UploadTTL,
		downloadTTL: params.DownloadTTL,
	}, nil
}

// PresignInput models the payload required to request upload URLs.
type PresignInput struct {
	MimeType  string
	SizeBytes int64
}

// PresignOutput contains the keys and signed PUT URLs for one asset pair.
type PresignOutput struct {
	FileKey          string    `json:"file_key"`
	ThumbnailKey     string    `json:"thumbnail_key"`
	UploadURL        string    `json:"upload_url"`
	ThumbnailURL     string    `json:"thumbnail_upload_url"`
	ContentType      string    `json:"content_type"`
	MaxBytes         int64     `json:"max_bytes"`
	ExpiresAt        time.Time `json:"expires_at"`
	ThumbnailMaxSize int64     `json:"thumbnail_max_bytes"`
}

// CreateInput models the payload required to submit an entry.
type CreateInput struct {
	RequestID    uuid.UUID
	Title        string
	Description  string
	Price        decimal.Decimal
	FileKey      string
	ThumbnailKey string
}

// ListItem is the public projection of an entry. Storage keys stay private;
// the thumbnail is exposed as a short-lived signed URL instead.
type ListItem struct {
	ID           uuid.UUID       `json:"id"`
	RequestID    uuid.UUID       `json:"request_id"`
	SellerID     uuid.UUID       `json:"seller_id"`
	SellerName   string          `json:"seller_name"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Selected     bool            `json:"selected"`
	Purchased    bool            `json:"purchased"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Page is one cursor page of entries.
type Page struct {
	Items      []ListItem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// DownloadOutput carries the signed GET URL for a purchased asset.
type DownloadOutput struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PresignUpload hands the seller signed PUT URLs for the asset and its
// thumbnail. Objects are tagged unselected at upload time.
func (s *service) PresignUpload(ctx context.Context, sellerID, requestID uuid.UUID, input PresignInput) (*PresignOutput, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller identity missing")
	}

	mimeType := strings.ToLower(strings.TrimSpace(input.MimeType))
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported content type").
			WithDetails(map[string]any{"field": "mime_type", "allowed": []string{"image/jpeg", "image/png", "image/gif", "image/webp"}})
	}
	if input.SizeBytes <= 0 || input.SizeBytes > maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file size out of range").
			WithDetails(map[string]any{"field": "size_bytes", "max_bytes": maxUploadBytes})
	}

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != enums.RequestStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request is not open").
			WithDetails(map[string]any{"status": request.Status})
	}
	if request.BuyerID == sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyers cannot submit to their own request")
	}

	fileKey := s3.ObjectKey(requestID.String(), sellerID.String(), uuid.NewString())
	thumbKey := s3.ThumbnailKey(fileKey)

	uploadURL, err := s.store.PresignPut(ctx, fileKey, mimeType, input.SizeBytes, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presigning asset upload")
	}
	thumbURL, err := s.store.PresignPut(ctx, thumbKey, mimeType, input.SizeBytes, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presigning thumbnail upload")
	}

	return &PresignOutput{
		FileKey:          fileKey,
		ThumbnailKey:     thumbKey,
		UploadURL:        uploadURL,
		ThumbnailURL:     thumbURL,
		ContentType:      mimeType,
		MaxBytes:         maxUploadBytes,
		ExpiresAt:        time.Now().Add(s.uploadTTL),
		ThumbnailMaxSize: maxUploadBytes,
	}, nil
}

// Create records the seller's submission once both objects are uploaded.
func (s *service) Create(ctx context.Context, sellerID uuid.UUID, sellerName string, input CreateInput) (*models.Entry, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller identity missing")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxTitleLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required").
			WithDetails(map[string]any{"field": "title", "max_length": maxTitleLen})
	}
	if len(strings.TrimSpace(input.Description)) > maxDescriptionLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description too long").
			WithDetails(map[string]any{"field": "description", "max_length": maxDescriptionLen})
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive").
			WithDetails(map[string]any{"field": "price"})
	}

	request, err := s.loadRequest(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status != enums.RequestStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request is not open").
			WithDetails(map[string]any{"status": request.Status})
	}
	if request.BuyerID == sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyers cannot submit to their own request")
	}

	if _, err := s.users.FindByID(ctx, sellerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading seller")
	}

	// Keys must sit under this seller's prefix for this request so nobody can
	// claim another seller's upload.
	prefix := s3.ObjectKey(input.RequestID.String(), sellerID.String(), "")
	if !strings.HasPrefix(input.FileKey, prefix) || input.FileKey == prefix {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file key does not match upload prefix")
	}
	if input.ThumbnailKey != s3.ThumbnailKey(input.FileKey) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thumbnail key does not match file key")
	}

	count, err := s.repo.CountByRequestAndSeller(ctx, input.RequestID, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting seller entries")
	}
	if count >= maxEntriesPerSeller {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "entry limit reached for this request").
			WithDetails(map[string]any{"max_entries": maxEntriesPerSeller})
	}

	entry := &models.Entry{
		ID:           uuid.New(),
		RequestID:    input.RequestID,
		SellerID:     sellerID,
		SellerName:   strings.TrimSpace(sellerName),
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		FileKey:      input.FileKey,
		ThumbnailKey: input.ThumbnailKey,
		Price:        input.Price,
	}

	created, err := s.repo.Create(ctx, entry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating entry")
	}
	return created, nil
}

// List returns a request's entries with signed thumbnail GET URLs. Thumbnails
// are ungated previews; the full asset stays behind Download.
func (s *service) List(ctx context.Context, requestID uuid.UUID, params pagination.Params) (*Page, error) {
	if _, err := s.loadRequest(ctx, requestID); err != nil {
		return nil, err
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByRequest(ctx, requestID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing entries")
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	page := &Page{Items: make([]ListItem, 0, len(rows))}
	for _, row := range rows {
		item := ListItem{
			ID:          row.ID,
			RequestID:   row.RequestID,
			SellerID:    row.SellerID,
			SellerName:  row.SellerName,
			Title:       row.Title,
			Description: row.Description,
			Price:       row.Price,
			Selected:    row.Selected,
			Purchased:   row.Purchased,
			CreatedAt:   row.CreatedAt,
		}
		if row.FilePurgedAt == nil && row.ThumbnailKey != "" {
			url, err := s.store.PresignGet(ctx, row.ThumbnailKey, s3.FilenameFromKey(row.ThumbnailKey), s.downloadTTL)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presigning thumbnail")
			}
			item.ThumbnailURL = url
		}
		page.Items = append(page.Items, item)
	}
	if hasMore {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// Download returns a signed GET URL for the full asset. The seller of the
// entry or a buyer holding a completed payment may download, and only while
// the binary is still retained.
func (s *service) Download(ctx context.Context, userID, requestID, entryID uuid.UUID) (*DownloadOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id missing")
	}

	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading entry")
	}
	if entry.RequestID != requestID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry does not belong to this request")
	}

	allowed, err := s.authorizer.CanDownload(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "download not permitted")
	}

	if entry.FilePurgedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset no longer available")
	}

	filename := s3.FilenameFromKey(entry.FileKey)
	url, err := s.store.PresignGet(ctx, entry.FileKey, filename, s.downloadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presigning download")
	}

	return &DownloadOutput{
		URL:       url,
		ExpiresAt: time.Now().Add(s.downloadTTL),
	}, nil
}

func (s *service) loadRequest(ctx context.Context, requestID uuid.UUID) (*models.Request, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id missing")
	}
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading request")
	}
	return request, nil
}
