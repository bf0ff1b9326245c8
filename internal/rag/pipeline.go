package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Profile marks a file as ingested and owns its pages.
type Profile struct {
	ID             uuid.UUID
	FileID         uuid.UUID
	OrganizationID uuid.UUID
	FileName       string
	Pages          []Page
}

type Page struct {
	ID         uuid.UUID
	PageNumber int
	Summary    string
	Embeddings [][]float32
}

// PageRecord is a stored page as seen by the query engine.
type PageRecord struct {
	PageID     uuid.UUID
	ProfileID  uuid.UUID
	FileID     uuid.UUID
	FileName   string
	PageNumber int
	Embeddings [][]float32
}

// Store persists profiles and serves the pages of an organization.
// SaveProfile must write the profile and all of its pages atomically and
// return ErrAlreadyIngested when the file already has a profile.
// ListPages returns pages ordered by profile creation, then page number.
type Store interface {
	ProfileExists(ctx context.Context, fileID uuid.UUID) (bool, error)
	SaveProfile(ctx context.Context, profile *Profile) error
	HasProfiles(ctx context.Context, organizationID uuid.UUID) (bool, error)
	ListPages(ctx context.Context, organizationID uuid.UUID) ([]PageRecord, error)
}

type Pipeline struct {
	extractor   PageExtractor
	client      ModelClient
	store       Store
	concurrency int
	logger      *zap.Logger
}

func NewPipeline(extractor PageExtractor, client ModelClient, store Store, concurrency int, logger *zap.Logger) *Pipeline {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		extractor:   extractor,
		client:      client,
		store:       store,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Ingest summarizes and embeds every page of src and stores the result as one profile.
// Either the profile and all its pages are stored, or nothing is. A panic in an extractor or
// model client is returned as an error.
func (p *Pipeline) Ingest(ctx context.Context, src Source) (profile *Profile, err error) {
	defer func() {
		if r := recover(); r != nil {
			profile, err = nil, fmt.Errorf("ingest %s panicked: %v", src.FileID, r)
			p.logger.Error("rag ingestion panicked",
				zap.String("file_id", src.FileID.String()),
				zap.Any("panic", r),
			)
		}
	}()

	if !src.Type.IsSupported() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, src.Type)
	}

	exists, err := p.store.ProfileExists(ctx, src.FileID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyIngested
	}

	units, err := p.extractor.Extract(ctx, src)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("extract %s: no pages", src.FileID)
	}

	pages, err := p.buildPages(ctx, units)
	if err != nil {
		p.logger.Warn("rag ingestion aborted",
			zap.String("file_id", src.FileID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	profile = &Profile{
		ID:             uuid.New(),
		FileID:         src.FileID,
		OrganizationID: src.OrganizationID,
		FileName:       src.Name,
		Pages:          pages,
	}
	if err := p.store.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	p.logger.Info("rag profile ingested",
		zap.String("file_id", src.FileID.String()),
		zap.String("organization_id", src.OrganizationID.String()),
		zap.Int("pages", len(pages)),
	)
	return profile, nil
}

func (p *Pipeline) buildPages(ctx context.Context, units []PageUnit) ([]Page, error) {
	pages := make([]Page, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("page %d panicked: %v", i, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			summary, err := p.client.Summarize(gctx, unit)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			embeddings, err := p.client.Embed(gctx, summary)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			pages[i] = Page{
				ID:         uuid.New(),
				PageNumber: i,
				Summary:    summary,
				Embeddings: embeddings,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}
