package extract

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"

	"planform/pkg/logger"
)

// RenderedPage is one rasterized page image on disk.
type RenderedPage struct {
	Page int // 1-based
	Path string
}

// PageRenderer rasterizes every page of a document into an image file and
// returns the written pages in ascending page order.
type PageRenderer interface {
	RenderPages(path, imagesDir string) ([]RenderedPage, error)
}

// FitzRenderer rasterizes pages with MuPDF.
type FitzRenderer struct {
	log *logger.Logger
	dpi float64
}

func NewFitzRenderer(dpi float64, log *logger.Logger) *FitzRenderer {
	return &FitzRenderer{log: log, dpi: dpi}
}

// RenderPages writes one PNG per page into imagesDir, named page_N_full.png
// with N starting at 1. A page that fails to rasterize is logged and
// skipped; the remaining pages still render.
func (r *FitzRenderer) RenderPages(path, imagesDir string) ([]RenderedPage, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s for rendering: %w", path, err)
	}
	defer doc.Close()

	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images directory %s: %w", imagesDir, err)
	}

	var pages []RenderedPage
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			r.log.Warn(fmt.Sprintf("Failed to rasterize page %d of %s, skipping: %v", i+1, path, err))
			continue
		}

		out := filepath.Join(imagesDir, fmt.Sprintf("page_%d_full.png", i+1))
		f, err := os.Create(out)
		if err != nil {
			r.log.Warn(fmt.Sprintf("Failed to create image file %s, skipping: %v", out, err))
			continue
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			os.Remove(out)
			r.log.Warn(fmt.Sprintf("Failed to encode page %d image, skipping: %v", i+1, err))
			continue
		}
		if err := f.Close(); err != nil {
			r.log.Warn(fmt.Sprintf("Failed to close image file %s, skipping: %v", out, err))
			continue
		}
		pages = append(pages, RenderedPage{Page: i + 1, Path: out})
	}
	return pages, nil
}

var _ PageRenderer = (*FitzRenderer)(nil)
