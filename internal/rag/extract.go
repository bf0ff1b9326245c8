package rag

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"docvault/internal/pkg/imageutil"
	"docvault/internal/pkg/pdfextract"
)

// Source is a stored file handed to the extractor and the pipeline.
type Source struct {
	FileID         uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Path           string
	Type           FileType
}

type UnitKind int

const (
	UnitText UnitKind = iota
	UnitImage
)

// PageUnit is one page worth of content: either the text of the page or a rendered image.
type PageUnit struct {
	Kind     UnitKind
	Text     string
	Image    []byte
	MIMEType string
}

// Opener gives read access to stored file bytes.
type Opener interface {
	Open(path string) (io.ReadCloser, error)
}

// PageRenderer rasterizes every page of a PDF document, returning PNG images in page order.
type PageRenderer interface {
	Render(ctx context.Context, pdf []byte) ([][]byte, error)
}

// PageExtractor turns a source into ordered page units.
type PageExtractor interface {
	Extract(ctx context.Context, src Source) ([]PageUnit, error)
}

type Extractor struct {
	opener       Opener
	renderer     PageRenderer
	maxImageSide int
	countPages   func([]byte) (int, error)
}

func NewExtractor(opener Opener, renderer PageRenderer, maxImageSide int) *Extractor {
	return &Extractor{
		opener:       opener,
		renderer:     renderer,
		maxImageSide: maxImageSide,
		countPages:   pdfextract.PageCount,
	}
}

func (e *Extractor) Extract(ctx context.Context, src Source) ([]PageUnit, error) {
	if !src.Type.IsSupported() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, src.Type)
	}

	data, err := e.read(src.Path)
	if err != nil {
		return nil, err
	}

	switch src.Type {
	case FileTypePlain:
		return []PageUnit{{Kind: UnitText, Text: string(data)}}, nil
	case FileTypePDF:
		return e.extractPDF(ctx, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, src.Type)
	}
}

func (e *Extractor) read(path string) ([]byte, error) {
	rc, err := e.opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file failed: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read file failed: %w", err)
	}
	return data, nil
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) ([]PageUnit, error) {
	expected, err := e.countPages(data)
	if err != nil {
		return nil, fmt.Errorf("count pdf pages failed: %w", err)
	}

	images, err := e.renderer.Render(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("render pdf failed: %w", err)
	}
	if len(images) != expected {
		return nil, fmt.Errorf("render pdf: got %d pages, document has %d", len(images), expected)
	}

	units := make([]PageUnit, len(images))
	for i, img := range images {
		fitted, err := imageutil.Fit(img, e.maxImageSide)
		if err != nil {
			return nil, fmt.Errorf("prepare page %d image failed: %w", i, err)
		}
		units[i] = PageUnit{Kind: UnitImage, Image: fitted, MIMEType: "image/png"}
	}
	return units, nil
}
