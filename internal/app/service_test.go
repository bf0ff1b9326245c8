package app

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/model"
	"docvault/internal/platform/database"
	"docvault/internal/rag"
	"docvault/internal/rag/ragtest"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.IngestionEvent
}

func (p *recordingPublisher) PublishIngestionEvent(ctx context.Context, event model.IngestionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type blankRenderer struct{}

// Render returns one small PNG per page declared by the document.
func (blankRenderer) Render(ctx context.Context, pdf []byte) ([][]byte, error) {
	n := bytes.Count(pdf, []byte("/Type /Page "))
	pages := make([][]byte, n)
	for i := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4+i, 4))); err != nil {
			return nil, err
		}
		pages[i] = buf.Bytes()
	}
	return pages, nil
}

type testEnv struct {
	db       *gorm.DB
	auth     *AuthService
	orgs     *OrganizationService
	fs       *FilesystemService
	search   *SearchService
	client   *ragtest.FakeClient
	events   *recordingPublisher
	blobRoot string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, blankRenderer{}, nil)
}

// newTestEnvWith builds the environment around renderer. A nil ingester uses the real pipeline.
func newTestEnvWith(t *testing.T, renderer rag.PageRenderer, ingester Ingester) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(context.Background(), "sqlite", filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	blobRoot := filepath.Join(dir, "blobs")
	blobs, err := storage.NewLocal(blobRoot)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	ragRepo := repository.NewRAGRepository(db)

	client := ragtest.NewFakeClient()
	logger := zap.NewNop()
	if ingester == nil {
		ingester = rag.NewPipeline(rag.NewExtractor(blobs, renderer, 0), client, ragRepo, 2, logger)
	}
	engine := rag.NewEngine(ragRepo, client, nil, rag.DefaultTopK, logger)

	orgs := NewOrganizationService(orgRepo, userRepo, logger)
	events := &recordingPublisher{}
	fs := NewFilesystemService(FilesystemDeps{
		DirRepo:   repository.NewDirectoryRepository(db),
		FileRepo:  repository.NewFileRepository(db),
		OrgRepo:   orgRepo,
		RAGRepo:   ragRepo,
		Orgs:      orgs,
		Blobs:     blobs,
		Ingester:  ingester,
		Events:    events,
		MaxUpload: 1 << 20,
		Logger:    logger,
	})

	return &testEnv{
		db:       db,
		auth:     NewAuthService(userRepo, "test-secret", time.Hour),
		orgs:     orgs,
		fs:       fs,
		search:   NewSearchService(orgs, engine),
		client:   client,
		events:   events,
		blobRoot: blobRoot,
	}
}

func (e *testEnv) register(t *testing.T, email string) *model.User {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "password123",
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return res.User
}

func (e *testEnv) organization(t *testing.T, owner *model.User, name string) *OrganizationDescription {
	t.Helper()
	desc, err := e.orgs.CreateOrganization(context.Background(), CreateOrganizationInput{UserID: owner.ID, Name: name})
	require.NoError(t, err)
	return desc
}

func (e *testEnv) upload(user *model.User, dirID uuid.UUID, name, content string) (*UploadResult, error) {
	return e.fs.UploadFile(context.Background(), UploadFileInput{
		UserID:      user.ID,
		DirectoryID: dirID,
		Filename:    name,
		Content:     strings.NewReader(content),
	})
}

func (e *testEnv) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(e.blobRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}
