package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"docvault/internal/model"
	"docvault/internal/rag"
	"docvault/internal/repository"
)

var (
	ErrDirectoryNotFound    = errors.New("directory not found")
	ErrFileNotFound         = errors.New("file not found")
	ErrFileTooLarge         = errors.New("file exceeds upload limit")
	ErrStorageLimitExceeded = errors.New("organization storage limit exceeded")
)

// BlobStore keeps uploaded file bytes.
type BlobStore interface {
	Save(path string, r io.Reader) (int64, error)
	Remove(path string) error
}

type Ingester interface {
	Ingest(ctx context.Context, src rag.Source) (*rag.Profile, error)
}

type IngestionEventPublisher interface {
	PublishIngestionEvent(ctx context.Context, event model.IngestionEvent) error
}

type FilesystemService struct {
	dirRepo   *repository.DirectoryRepository
	fileRepo  *repository.FileRepository
	orgRepo   *repository.OrganizationRepository
	ragRepo   *repository.RAGRepository
	orgs      *OrganizationService
	blobs     BlobStore
	ingester  Ingester
	events    IngestionEventPublisher
	maxUpload int64
	logger    *zap.Logger
}

type FilesystemDeps struct {
	DirRepo   *repository.DirectoryRepository
	FileRepo  *repository.FileRepository
	OrgRepo   *repository.OrganizationRepository
	RAGRepo   *repository.RAGRepository
	Orgs      *OrganizationService
	Blobs     BlobStore
	Ingester  Ingester
	Events    IngestionEventPublisher // optional
	MaxUpload int64
	Logger    *zap.Logger
}

func NewFilesystemService(deps FilesystemDeps) *FilesystemService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilesystemService{
		dirRepo:   deps.DirRepo,
		fileRepo:  deps.FileRepo,
		orgRepo:   deps.OrgRepo,
		ragRepo:   deps.RAGRepo,
		orgs:      deps.Orgs,
		blobs:     deps.Blobs,
		ingester:  deps.Ingester,
		events:    deps.Events,
		maxUpload: deps.MaxUpload,
		logger:    logger,
	}
}

type FileDescription struct {
	FileID    uuid.UUID `json:"file_id"`
	Name      string    `json:"name"`
	FileType  string    `json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy uuid.UUID `json:"created_by"`
	FileSize  int64     `json:"file_size"`
}

type DirectoryDescription struct {
	DirectoryID uuid.UUID `json:"directory_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   uuid.UUID `json:"created_by"`
}

type DirectoryListing struct {
	DirectoryID    uuid.UUID              `json:"directory_id"`
	Name           string                 `json:"name"`
	Files          []FileDescription      `json:"files"`
	SubDirectories []DirectoryDescription `json:"sub_directories"`
}

type PageDescription struct {
	PageID     uuid.UUID `json:"rag_page_id"`
	PageNumber int       `json:"page"`
	Summary    string    `json:"summary"`
}

type FileDetail struct {
	FileDescription
	Ingested bool              `json:"ingested"`
	Pages    []PageDescription `json:"pages"`
}

func describeFile(f *model.File) FileDescription {
	return FileDescription{
		FileID:    f.ID,
		Name:      f.Name,
		FileType:  f.FileType,
		CreatedAt: f.CreatedAt,
		CreatedBy: f.CreatedBy,
		FileSize:  f.Size,
	}
}

type CreateDirectoryInput struct {
	UserID   uuid.UUID
	ParentID uuid.UUID
	Name     string
}

func (s *FilesystemService) CreateDirectory(ctx context.Context, input CreateDirectoryInput) (*DirectoryDescription, error) {
	name := strings.TrimSpace(input.Name)
	if !validName(name) || strings.ContainsRune(name, '/') {
		return nil, ErrInvalidInput
	}

	parent, err := s.dirRepo.GetByID(ctx, input.ParentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrDirectoryNotFound
	}
	if _, err := s.orgs.EnsureMember(ctx, input.UserID, parent.OrganizationID); err != nil {
		return nil, err
	}

	dir := &model.Directory{
		OrganizationID: parent.OrganizationID,
		ParentID:       &parent.ID,
		Name:           name,
		Path:           parent.ChildPath(),
		CreatedBy:      input.UserID,
	}
	if err := s.dirRepo.Create(ctx, dir); err != nil {
		return nil, err
	}
	return &DirectoryDescription{
		DirectoryID: dir.ID,
		Name:        dir.Name,
		CreatedAt:   dir.CreatedAt,
		CreatedBy:   dir.CreatedBy,
	}, nil
}

func (s *FilesystemService) GetDirectory(ctx context.Context, userID, directoryID uuid.UUID) (*DirectoryListing, error) {
	dir, err := s.dirRepo.GetByID(ctx, directoryID)
	if err != nil {
		return nil, err
	}
	if dir == nil {
		return nil, ErrDirectoryNotFound
	}
	if _, err := s.orgs.EnsureMember(ctx, userID, dir.OrganizationID); err != nil {
		return nil, err
	}

	files, err := s.fileRepo.ListByDirectory(ctx, dir.ID)
	if err != nil {
		return nil, err
	}
	children, err := s.dirRepo.ListChildren(ctx, dir.ID)
	if err != nil {
		return nil, err
	}

	listing := &DirectoryListing{
		DirectoryID:    dir.ID,
		Name:           dir.Name,
		Files:          make([]FileDescription, len(files)),
		SubDirectories: make([]DirectoryDescription, len(children)),
	}
	for i := range files {
		listing.Files[i] = describeFile(&files[i])
	}
	for i, c := range children {
		listing.SubDirectories[i] = DirectoryDescription{
			DirectoryID: c.ID,
			Name:        c.Name,
			CreatedAt:   c.CreatedAt,
			CreatedBy:   c.CreatedBy,
		}
	}
	return listing, nil
}

type UploadFileInput struct {
	UserID      uuid.UUID
	DirectoryID uuid.UUID
	Filename    string
	Content     io.Reader
}

type UploadResult struct {
	File      FileDescription `json:"file"`
	Ingested  bool            `json:"ingested"`
	PageCount int             `json:"page_count"`
}

// UploadFile stores the file and, for supported types, ingests it before returning. When
// ingestion fails the file record and its bytes are removed again and the ingestion error is
// returned.
func (s *FilesystemService) UploadFile(ctx context.Context, input UploadFileInput) (*UploadResult, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(input.Filename), "\\", "/"))
	if name == "" || name == "." || name == "/" || utf8.RuneCountInString(name) > 255 || input.Content == nil {
		return nil, ErrInvalidInput
	}

	dir, err := s.dirRepo.GetByID(ctx, input.DirectoryID)
	if err != nil {
		return nil, err
	}
	if dir == nil {
		return nil, ErrDirectoryNotFound
	}
	if _, err := s.orgs.EnsureMember(ctx, input.UserID, dir.OrganizationID); err != nil {
		return nil, err
	}

	data, err := s.readLimited(input.Content)
	if err != nil {
		return nil, err
	}
	// Early rejection before the bytes are written; CreateWithinQuota enforces the limit.
	if err := s.checkQuota(ctx, dir.OrganizationID, int64(len(data))); err != nil {
		return nil, err
	}

	fileType := rag.FileTypeFromMIME(mimetype.Detect(data).String())
	file := &model.File{
		ID:             uuid.New(),
		OrganizationID: dir.OrganizationID,
		DirectoryID:    dir.ID,
		Name:           name,
		FileType:       string(fileType),
		Size:           int64(len(data)),
		CreatedBy:      input.UserID,
	}
	file.StoragePath = dir.OrganizationID.String() + "/" + file.ID.String()

	if _, err := s.blobs.Save(file.StoragePath, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	if err := s.fileRepo.CreateWithinQuota(ctx, file); err != nil {
		s.removeBlob(file)
		switch {
		case errors.Is(err, repository.ErrQuotaExceeded):
			return nil, ErrStorageLimitExceeded
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAccessDenied
		}
		return nil, err
	}

	result := &UploadResult{File: describeFile(file)}
	if !fileType.IsSupported() {
		return result, nil
	}

	// The file is kept only once ingestion returns successfully, also when the ingester panics.
	committed := false
	defer func() {
		if !committed {
			s.discardFile(ctx, file)
		}
	}()

	profile, err := s.ingester.Ingest(ctx, rag.Source{
		FileID:         file.ID,
		OrganizationID: file.OrganizationID,
		Name:           file.Name,
		Path:           file.StoragePath,
		Type:           fileType,
	})
	if err != nil {
		s.publish(ctx, file, model.IngestionFailed, 0, err)
		return nil, err
	}
	committed = true

	s.publish(ctx, file, model.IngestionSucceeded, len(profile.Pages), nil)
	result.Ingested = true
	result.PageCount = len(profile.Pages)
	return result, nil
}

func (s *FilesystemService) GetFile(ctx context.Context, userID, fileID uuid.UUID) (*FileDetail, error) {
	file, err := s.authorizedFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	detail := &FileDetail{FileDescription: describeFile(file), Pages: []PageDescription{}}
	profile, err := s.ragRepo.GetProfileByFileID(ctx, file.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return detail, nil
	}

	pages, err := s.ragRepo.ListPagesByProfile(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	detail.Ingested = true
	for _, p := range pages {
		detail.Pages = append(detail.Pages, PageDescription{PageID: p.ID, PageNumber: p.PageNumber, Summary: p.Summary})
	}
	return detail, nil
}

func (s *FilesystemService) DeleteFile(ctx context.Context, userID, fileID uuid.UUID) error {
	file, err := s.authorizedFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if err := s.fileRepo.DeleteCascade(ctx, file.ID); err != nil {
		return err
	}
	s.removeBlob(file)
	return nil
}

func (s *FilesystemService) authorizedFile(ctx context.Context, userID, fileID uuid.UUID) (*model.File, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, ErrFileNotFound
	}
	if _, err := s.orgs.EnsureMember(ctx, userID, file.OrganizationID); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *FilesystemService) readLimited(r io.Reader) ([]byte, error) {
	limit := s.maxUpload
	if limit <= 0 {
		limit = 25 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrInvalidInput
	}
	return data, nil
}

func (s *FilesystemService) checkQuota(ctx context.Context, organizationID uuid.UUID, size int64) error {
	org, err := s.orgRepo.GetByID(ctx, organizationID)
	if err != nil {
		return err
	}
	if org == nil {
		return ErrAccessDenied
	}
	used, err := s.orgRepo.UsedStorage(ctx, organizationID)
	if err != nil {
		return err
	}
	if used+size > org.StorageLimitBytes() {
		return ErrStorageLimitExceeded
	}
	return nil
}

// discardFile undoes an upload whose ingestion failed. It runs even if ctx was cancelled.
func (s *FilesystemService) discardFile(ctx context.Context, file *model.File) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.fileRepo.DeleteCascade(cleanupCtx, file.ID); err != nil {
		s.logger.Error("delete file after failed ingestion",
			zap.String("file_id", file.ID.String()),
			zap.Error(err),
		)
	}
	s.removeBlob(file)
}

func (s *FilesystemService) removeBlob(file *model.File) {
	if err := s.blobs.Remove(file.StoragePath); err != nil {
		s.logger.Warn("remove blob failed",
			zap.String("file_id", file.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *FilesystemService) publish(ctx context.Context, file *model.File, status string, pages int, cause error) {
	if s.events == nil {
		return
	}
	event := model.IngestionEvent{
		ID:             uuid.New(),
		FileID:         file.ID,
		OrganizationID: file.OrganizationID,
		FileName:       file.Name,
		Status:         status,
		PageCount:      pages,
		CreatedAt:      time.Now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if err := s.events.PublishIngestionEvent(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("publish ingestion event failed",
			zap.String("file_id", file.ID.String()),
			zap.Error(err),
		)
	}
}
