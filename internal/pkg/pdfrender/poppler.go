// Package pdfrender rasterizes PDF pages with poppler's pdftoppm.
package pdfrender

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type Poppler struct {
	binary string
	dpi    int
}

func NewPoppler(binary string, dpi int) *Poppler {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 100
	}
	return &Poppler{binary: binary, dpi: dpi}
}

// Render writes the document to a scratch directory, runs pdftoppm over it and returns the
// PNG of every page in page order.
func (p *Poppler) Render(ctx context.Context, pdf []byte) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "docvault-render-*")
	if err != nil {
		return nil, fmt.Errorf("create render dir failed: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write render input failed: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.binary, "-png", "-r", strconv.Itoa(p.dpi), input, filepath.Join(dir, "page"))
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return collectPages(dir)
}

// collectPages reads page-N.png files (N possibly zero padded) sorted by N.
func collectPages(dir string) ([][]byte, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}

	type numbered struct {
		n    int
		path string
	}
	files := make([]numbered, 0, len(matches))
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".png")
		n, err := strconv.Atoi(strings.TrimPrefix(base, "page-"))
		if err != nil {
			continue
		}
		files = append(files, numbered{n: n, path: m})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].n < files[j].n })

	pages := make([][]byte, len(files))
	for i, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("read rendered page failed: %w", err)
		}
		pages[i] = data
	}
	return pages, nil
}
