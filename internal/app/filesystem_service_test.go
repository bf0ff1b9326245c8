package app

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/pkg/pdfextract/pdftest"
	"docvault/internal/rag"
)

func TestCreateAndListDirectories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	org := env.organization(t, owner, "Acme")

	reports, err := env.fs.CreateDirectory(ctx, CreateDirectoryInput{UserID: owner.ID, ParentID: org.OrgRootDirectoryID, Name: "reports"})
	require.NoError(t, err)
	_, err = env.fs.CreateDirectory(ctx, CreateDirectoryInput{UserID: owner.ID, ParentID: reports.DirectoryID, Name: "2024"})
	require.NoError(t, err)

	root, err := env.fs.GetDirectory(ctx, owner.ID, org.OrgRootDirectoryID)
	require.NoError(t, err)
	require.Len(t, root.SubDirectories, 1)
	assert.Equal(t, "reports", root.SubDirectories[0].Name)
	assert.Equal(t, owner.ID, root.SubDirectories[0].CreatedBy)

	var nested model.Directory
	require.NoError(t, env.db.Where("name = ?", "2024").First(&nested).Error)
	assert.Equal(t, org.OrgRootDirectoryID.String()+"/"+reports.DirectoryID.String(), nested.Path)
	require.NotNil(t, nested.ParentID)
	assert.Equal(t, reports.DirectoryID, *nested.ParentID)
}

func TestCreateDirectoryErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	outsider := env.register(t, "outsider@example.com")
	org := env.organization(t, owner, "Acme")

	_, err := env.fs.CreateDirectory(ctx, CreateDirectoryInput{UserID: owner.ID, ParentID: uuid.New(), Name: "x"})
	assert.ErrorIs(t, err, ErrDirectoryNotFound)

	_, err = env.fs.CreateDirectory(ctx, CreateDirectoryInput{UserID: outsider.ID, ParentID: org.OrgRootDirectoryID, Name: "x"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = env.fs.CreateDirectory(ctx, CreateDirectoryInput{UserID: owner.ID, ParentID: org.OrgRootDirectoryID, Name: strings.Repeat("a", 33)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.fs.GetDirectory(ctx, outsider.ID, org.OrgRootDirectoryID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestUploadPlainTextIsIngested(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	org := env.organization(t, owner, "Acme")

	res, err := env.upload(owner, org.OrgRootDirectoryID, "notes.txt", "quarterly budget notes")
	require.NoError(t, err)
	assert.True(t, res.Ingested)
	assert.Equal(t, 1, res.PageCount)
	assert.Equal(t, "plain", res.File.FileType)
	assert.EqualValues(t, len("quarterly budget notes"), res.File.FileSize)

	detail, err := env.fs.GetFile(ctx, owner.ID, res.File.FileID)
	require.NoError(t, err)
	assert.True(t, detail.Ingested)
	require.Len(t, detail.Pages, 1)
	assert.Equal(t, 0, detail.Pages[0].PageNumber)
	assert.Equal(t, "quarterly budget notes", detail.Pages[0].Summary)

	listing, err := env.fs.GetDirectory(ctx, owner.ID, org.OrgRootDirectoryID)
	require.NoError(t, err)
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "notes.txt", listing.Files[0].Name)

	require.Len(t, env.events.events, 1)
	assert.Equal(t, model.IngestionSucceeded, env.events.events[0].Status)
	assert.Equal(t, 1, env.events.events[0].PageCount)
}

func TestUploadPDFIngestsEveryPage(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")
	org := env.organization(t, owner, "Acme")

	res, err := env.upload(owner, org.OrgRootDirectoryID, "deck.pdf", string(pdftest.Blank(3)))
	require.NoError(t, err)
	assert.Equal(t, "pdf", res.File.FileType)
	assert.True(t, res.Ingested)
	assert.Equal(t, 3, res.PageCount)
	assert.EqualValues(t, 3, env.count(t, &model.RAGPage{}))
}

func TestUploadIngestionFailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")
	org := env.organization(t, owner, "Acme")
	env.client.FailSummarizeCall = 2

	_, err := env.upload(owner, org.OrgRootDirectoryID, "deck.pdf", string(pdftest.Blank(3)))
	assert.ErrorIs(t, err, rag.ErrSummarization)

	assert.Zero(t, env.count(t, &model.File{}))
	assert.Zero(t, env.count(t, &model.RAGProfile{}))
	assert.Zero(t, env.count(t, &model.RAGPage{}))
	assert.Zero(t, env.blobCount(t))

	require.Len(t, env.events.events, 1)
	assert.Equal(t, model.IngestionFailed, env.events.events[0].Status)
	assert.NotEmpty(t, env.events.events[0].Error)
}

func TestUploadUnsupportedTypeIsStoredOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")
	org := env.organization(t, owner, "Acme")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))

	res, err := env.upload(owner, org.OrgRootDirectoryID, "logo.png", buf.String())
	require.NoError(t, err)
	assert.False(t, res.Ingested)
	assert.Equal(t, "png", res.File.FileType)
	assert.EqualValues(t, 1, env.count(t, &model.File{}))
	assert.Zero(t, env.count(t, &model.RAGProfile{}))
	assert.Equal(t, 1, env.blobCount(t))
	assert.Zero(t, env.client.SummarizeCalls())
}

func TestUploadLimits(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")
	outsider := env.register(t, "outsider@example.com")
	org := env.organization(t, owner, "Acme")

	_, err := env.upload(owner, org.OrgRootDirectoryID, "big.txt", strings.Repeat("a", (1<<20)+1))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = env.upload(owner, org.OrgRootDirectoryID, "empty.txt", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.upload(outsider, org.OrgRootDirectoryID, "a.txt", "hello")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = env.upload(owner, uuid.New(), "a.txt", "hello")
	assert.ErrorIs(t, err, ErrDirectoryNotFound)

	require.NoError(t, env.db.Model(&model.Organization{}).Where("id = ?", org.OrgID).Update("storage_limit_gb", 0).Error)
	_, err = env.upload(owner, org.OrgRootDirectoryID, "a.txt", "hello")
	assert.ErrorIs(t, err, ErrStorageLimitExceeded)

	assert.Zero(t, env.count(t, &model.File{}))
	assert.Zero(t, env.blobCount(t))
}

func TestDeleteFileCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	outsider := env.register(t, "outsider@example.com")
	org := env.organization(t, owner, "Acme")

	res, err := env.upload(owner, org.OrgRootDirectoryID, "notes.txt", "some text")
	require.NoError(t, err)

	assert.ErrorIs(t, env.fs.DeleteFile(ctx, outsider.ID, res.File.FileID), ErrAccessDenied)
	require.NoError(t, env.fs.DeleteFile(ctx, owner.ID, res.File.FileID))

	assert.Zero(t, env.count(t, &model.File{}))
	assert.Zero(t, env.count(t, &model.RAGProfile{}))
	assert.Zero(t, env.count(t, &model.RAGPage{}))
	assert.Zero(t, env.blobCount(t))

	assert.ErrorIs(t, env.fs.DeleteFile(ctx, owner.ID, res.File.FileID), ErrFileNotFound)
	_, err = env.fs.GetFile(ctx, owner.ID, res.File.FileID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

type panickingRenderer struct{}

func (panickingRenderer) Render(ctx context.Context, pdf []byte) ([][]byte, error) {
	panic("renderer blew up")
}

type panickingIngester struct{}

func (panickingIngester) Ingest(ctx context.Context, src rag.Source) (*rag.Profile, error) {
	panic("ingester blew up")
}

func TestUploadMalformedPDFLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")
	org := env.organization(t, owner, "Acme")

	var err error
	require.NotPanics(t, func() {
		_, err = env.upload(owner, org.OrgRootDirectoryID, "broken.pdf", string(pdftest.Corrupt()))
	})
	assert.Error(t, err)

	assert.Zero(t, env.count(t, &model.File{}))
	assert.Zero(t, env.count(t, &model.RAGProfile{}))
	assert.Zero(t, env.blobCount(t))
	require.Len(t, env.events.events, 1)
	assert.Equal(t, model.IngestionFailed, env.events.events[0].Status)
}

func TestUploadRendererPanicLeavesNothing(t *testing.T) {
	env := newTestEnvWith(t, panickingRenderer{}, nil)
	owner := env.register(t, "owner@example.com")
	org := env.organization(t, owner, "Acme")

	var err error
	require.NotPanics(t, func() {
		_, err = env.upload(owner, org.OrgRootDirectoryID, "deck.pdf", string(pdftest.Blank(2)))
	})
	assert.ErrorContains(t, err, "panicked")

	assert.Zero(t, env.count(t, &model.File{}))
	assert.Zero(t, env.blobCount(t))
}

func TestUploadIngesterPanicStillDiscardsFile(t *testing.T) {
	env := newTestEnvWith(t, blankRenderer{}, panickingIngester{})
	owner := env.register(t, "owner@example.com")
	org := env.organization(t, owner, "Acme")

	assert.Panics(t, func() {
		_, _ = env.upload(owner, org.OrgRootDirectoryID, "notes.txt", "some text")
	})

	assert.Zero(t, env.count(t, &model.File{}))
	assert.Zero(t, env.blobCount(t))
}
