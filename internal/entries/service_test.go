package entries

import (
	"context"
	"testing"
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

type fakeEntriesRepo struct {
	entries map[uuid.UUID]*models.Entry
	count   int64
	created []*models.Entry
}

func newFakeEntriesRepo() *fakeEntriesRepo {
	return &fakeEntriesRepo{entries: map[uuid.UUID]*models.Entry{}}
}

func (f *fakeEntriesRepo) Create(_ context.Context, entry *models.Entry) (*models.Entry, error) {
	f.entries[entry.ID] = entry
	f.created = append(f.created, entry)
	return entry, nil
}

func (f *fakeEntriesRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (f *fakeEntriesRepo) ListByRequest(_ context.Context, requestID uuid.UUID, _ *pagination.Cursor, limit int) ([]models.Entry, error) {
	var rows []models.Entry
	for _, e := range f.entries {
		if e.RequestID == requestID && len(rows) < limit {
			rows = append(rows, *e)
		}
	}
	return rows, nil
}

func (f *fakeEntriesRepo) CountByRequestAndSeller(_ context.Context, _, _ uuid.UUID) (int64, error) {
	return f.count, nil
}

type fakeRequestsRepo struct {
	requests map[uuid.UUID]*models.Request
}

func newFakeRequestsRepo(rs ...*models.Request) *fakeRequestsRepo {
	f := &fakeRequestsRepo{requests: map[uuid.UUID]*models.Request{}}
	for _, r := range rs {
		f.requests[r.ID] = r
	}
	return f
}

func (f *fakeRequestsRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Request, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

type fakeObjectStore struct {
	putKeys    []string
	getKeys    []string
	deleted    []string
	tagged     map[string]enums.AssetStatus
	presignErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{tagged: map[string]enums.AssetStatus{}}
}

func (f *fakeObjectStore) PresignPut(_ context.Context, key, _ string, _ int64, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.putKeys = append(f.putKeys, key)
	return "https://storage.test/put/" + key, nil
}

func (f *fakeObjectStore) PresignGet(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.getKeys = append(f.getKeys, key)
	return "https://storage.test/get/" + key, nil
}

func (f *fakeObjectStore) SetStatusTag(_ context.Context, key string, status enums.AssetStatus) error {
	f.tagged[key] = status
	return nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeAuthorizer struct {
	allowed bool
	err     error
}

func (f *fakeAuthorizer) CanDownload(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return f.allowed, f.err
}

type fakeUserFinder struct {
	missing bool
}

func (f *fakeUserFinder) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if f.missing {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.User{ID: id, Email: "mika@example.com", Name: "Mika"}, nil
}

func openRequest(buyerID uuid.UUID) *models.Request {
	return &models.Request{
		ID:       uuid.New(),
		BuyerID:  buyerID,
		Title:    "City at night",
		Budget:   decimal.NewFromInt(3000),
		Deadline: time.Now().Add(48 * time.Hour),
		Category: "urban",
		Status:   enums.RequestStatusOpen,
	}
}

type entryServiceTest struct {
	svc      Service
	repo     *fakeEntriesRepo
	requests *fakeRequestsRepo
	users    *fakeUserFinder
	store    *fakeObjectStore
	auth     *fakeAuthorizer
}

func newEntryServiceTest(t *testing.T, rs ...*models.Request) *entryServiceTest {
	t.Helper()

	h := &entryServiceTest{
		repo:     newFakeEntriesRepo(),
		requests: newFakeRequestsRepo(rs...),
		users:    &fakeUserFinder{},
		store:    newFakeObjectStore(),
		auth:     &fakeAuthorizer{},
	}

	svc, err := NewService(Params{
		Repo:        h.repo,
		Requests:    h.requests,
		Users:       h.users,
		Store:       h.store,
		Authorizer:  h.auth,
		UploadTTL:   15 * time.Minute,
		DownloadTTL: 5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

func TestPresignUpload_IssuesPairedURLs(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)
	sellerID := uuid.New()

	out, err := h.svc.PresignUpload(context.Background(), sellerID, request.ID, PresignInput{
		MimeType:  "image/jpeg",
		SizeBytes: 1024,
	})
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}
	if out.ThumbnailKey != s3.ThumbnailKey(out.FileKey) {
		t.Fatalf("thumbnail key %q does not pair with file key %q", out.ThumbnailKey, out.FileKey)
	}
	if len(h.store.putKeys) != 2 {
		t.Fatalf("expected 2 presigned PUTs, got %d", len(h.store.putKeys))
	}
}

func TestPresignUpload_AcceptsWebp(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)

	if _, err := h.svc.PresignUpload(context.Background(), uuid.New(), request.ID, PresignInput{
		MimeType:  "image/webp",
		SizeBytes: 1024,
	}); err != nil {
		t.Fatalf("PresignUpload webp: %v", err)
	}
}

func TestPresignUpload_RejectsBadMimeAndSize(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)
	sellerID := uuid.New()

	cases := []struct {
		name  string
		input PresignInput
	}{
		{"unsupported mime", PresignInput{MimeType: "application/pdf", SizeBytes: 1024}},
		{"zero size", PresignInput{MimeType: "image/png", SizeBytes: 0}},
		{"oversized", PresignInput{MimeType: "image/png", SizeBytes: maxUploadBytes + 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.PresignUpload(context.Background(), sellerID, request.ID, tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPresignUpload_RejectsBuyerAndClosedRequest(t *testing.T) {
	buyerID := uuid.New()
	request := openRequest(buyerID)
	h := newEntryServiceTest(t, request)

	_, err := h.svc.PresignUpload(context.Background(), buyerID, request.ID, PresignInput{
		MimeType:  "image/jpeg",
		SizeBytes: 1024,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for buyer, got %v", err)
	}

	request.Status = enums.RequestStatusClosed
	_, err = h.svc.PresignUpload(context.Background(), uuid.New(), request.ID, PresignInput{
		MimeType:  "image/jpeg",
		SizeBytes: 1024,
	})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for closed request, got %v", err)
	}
}

func TestCreate_RejectsForeignKeyPrefix(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)
	sellerID := uuid.New()
	otherSeller := uuid.New()

	foreignKey := s3.ObjectKey(request.ID.String(), otherSeller.String(), uuid.NewString())
	_, err := h.svc.Create(context.Background(), sellerID, "Mika", CreateInput{
		RequestID:    request.ID,
		Title:        "Neon alley",
		Price:        decimal.NewFromInt(500),
		FileKey:      foreignKey,
		ThumbnailKey: s3.ThumbnailKey(foreignKey),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for foreign key prefix, got %v", err)
	}
}

func TestCreate_EnforcesPerSellerCap(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)
	h.repo.count = maxEntriesPerSeller
	sellerID := uuid.New()

	fileKey := s3.ObjectKey(request.ID.String(), sellerID.String(), uuid.NewString())
	_, err := h.svc.Create(context.Background(), sellerID, "Mika", CreateInput{
		RequestID:    request.ID,
		Title:        "Neon alley",
		Price:        decimal.NewFromInt(500),
		FileKey:      fileKey,
		ThumbnailKey: s3.ThumbnailKey(fileKey),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict at cap, got %v", err)
	}
	if len(h.repo.created) != 0 {
		t.Fatal("no entry should be created past the cap")
	}
}

func TestCreate_RequiresSellerProfile(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)
	h.users.missing = true
	sellerID := uuid.New()

	fileKey := s3.ObjectKey(request.ID.String(), sellerID.String(), uuid.NewString())
	_, err := h.svc.Create(context.Background(), sellerID, "Mika", CreateInput{
		RequestID:    request.ID,
		Title:        "Neon alley",
		Price:        decimal.NewFromInt(500),
		FileKey:      fileKey,
		ThumbnailKey: s3.ThumbnailKey(fileKey),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found without seller profile, got %v", err)
	}
	if len(h.repo.created) != 0 {
		t.Fatal("no entry should be created without a seller profile")
	}
}

func TestCreate_PersistsEntry(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)
	sellerID := uuid.New()

	fileKey := s3.ObjectKey(request.ID.String(), sellerID.String(), uuid.NewString())
	entry, err := h.svc.Create(context.Background(), sellerID, "Mika", CreateInput{
		RequestID:    request.ID,
		Title:        "  Neon alley  ",
		Description:  "long exposure",
		Price:        decimal.NewFromInt(500),
		FileKey:      fileKey,
		ThumbnailKey: s3.ThumbnailKey(fileKey),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.Title != "Neon alley" {
		t.Fatalf("title not trimmed: %q", entry.Title)
	}
	if entry.Selected || entry.Purchased {
		t.Fatal("new entry must start unselected and unpurchased")
	}
}

func TestDownload_RequiresCompletedPurchase(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)

	entry := &models.Entry{
		ID:        uuid.New(),
		RequestID: request.ID,
		SellerID:  uuid.New(),
		FileKey:   s3.ObjectKey(request.ID.String(), uuid.NewString(), uuid.NewString()),
	}
	h.repo.entries[entry.ID] = entry

	_, err := h.svc.Download(context.Background(), uuid.New(), request.ID, entry.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden without completed payment, got %v", err)
	}

	h.auth.allowed = true
	out, err := h.svc.Download(context.Background(), uuid.New(), request.ID, entry.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if out.URL == "" {
		t.Fatal("expected signed url")
	}
	if len(h.store.getKeys) != 1 || h.store.getKeys[0] != entry.FileKey {
		t.Fatalf("expected presigned GET for %q, got %v", entry.FileKey, h.store.getKeys)
	}
}

func TestDownload_PurgedAssetIsGone(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)
	h.auth.allowed = true

	purgedAt := time.Now().Add(-time.Hour)
	entry := &models.Entry{
		ID:           uuid.New(),
		RequestID:    request.ID,
		SellerID:     uuid.New(),
		FileKey:      "entries/a/b/c",
		Purchased:    true,
		FilePurgedAt: &purgedAt,
	}
	h.repo.entries[entry.ID] = entry

	_, err := h.svc.Download(context.Background(), uuid.New(), request.ID, entry.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for purged asset, got %v", err)
	}
	if len(h.store.getKeys) != 0 {
		t.Fatal("no url should be signed for a purged asset")
	}
}

func TestDownload_RejectsMismatchedRequest(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)
	h.auth.allowed = true

	entry := &models.Entry{
		ID:        uuid.New(),
		RequestID: request.ID,
		SellerID:  uuid.New(),
		FileKey:   "entries/a/b/c",
	}
	h.repo.entries[entry.ID] = entry

	_, err := h.svc.Download(context.Background(), uuid.New(), uuid.New(), entry.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for mismatched request, got %v", err)
	}
	if len(h.store.getKeys) != 0 {
		t.Fatal("no url should be signed on a request mismatch")
	}
}

func TestDownload_UnknownEntry(t *testing.T) {
	h := newEntryServiceTest(t)

	_, err := h.svc.Download(context.Background(), uuid.New(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestList_SignsThumbnailsAndHidesKeys(t *testing.T) {
	request := openRequest(uuid.New())
	h := newEntryServiceTest(t, request)

	live := &models.Entry{
		ID:           uuid.New(),
		RequestID:    request.ID,
		SellerID:     uuid.New(),
		Title:        "Harbor fog",
		Price:        decimal.NewFromInt(700),
		FileKey:      "entries/r/s/a",
		ThumbnailKey: "entries/r/s/a_thumbnail",
	}
	purgedAt := time.Now().Add(-time.Hour)
	purged := &models.Entry{
		ID:           uuid.New(),
		RequestID:    request.ID,
		SellerID:     uuid.New(),
		Title:        "Old pier",
		Price:        decimal.NewFromInt(900),
		FileKey:      "entries/r/s/b",
		ThumbnailKey: "entries/r/s/b_thumbnail",
		Purchased:    true,
		FilePurgedAt: &purgedAt,
	}
	h.repo.entries[live.ID] = live
	h.repo.entries[purged.ID] = purged

	page, err := h.svc.List(context.Background(), request.ID, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	for _, item := range page.Items {
		switch item.ID {
		case live.ID:
			if item.ThumbnailURL != "https://storage.test/get/"+live.ThumbnailKey {
				t.Fatalf("unexpected thumbnail url: %q", item.ThumbnailURL)
			}
		case purged.ID:
			if item.ThumbnailURL != "" {
				t.Fatal("purged entry must not get a thumbnail url")
			}
		default:
			t.Fatalf("unexpected item %s", item.ID)
		}
	}
}
