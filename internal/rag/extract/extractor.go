package extract

import (
	"context"
	"fmt"
	"strings"

	"planform/internal/rag/interfaces"
	"planform/internal/rag/schema"
	"planform/pkg/logger"
)

// PDFExtractor turns a PDF into content units. Text comes from the embedded
// text layer when any page has one; when every page is blank the document is
// treated as scanned and OCR runs over the rendered page images instead.
// Page images are rendered either way and emitted as image units.
type PDFExtractor struct {
	text     TextSource
	renderer PageRenderer
	ocr      OCREngine
	log      *logger.Logger
}

// NewPDFExtractor wires an extractor from its parts.
func NewPDFExtractor(text TextSource, renderer PageRenderer, ocr OCREngine, log *logger.Logger) *PDFExtractor {
	return &PDFExtractor{text: text, renderer: renderer, ocr: ocr, log: log}
}

// Extract reads pdfPath and writes rendered page images under imagesDir.
// Text units precede image units; both run in ascending page order.
func (e *PDFExtractor) Extract(ctx context.Context, pdfPath, imagesDir string) ([]*schema.ContentUnit, error) {
	texts, err := e.text.PageTexts(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("text extraction failed: %w", err)
	}

	rendered, err := e.renderer.RenderPages(pdfPath, imagesDir)
	if err != nil {
		return nil, fmt.Errorf("page rendering failed: %w", err)
	}

	var units []*schema.ContentUnit
	if allBlank(texts) {
		e.log.Warn(fmt.Sprintf("No text layer found in %s, falling back to OCR over %d page images", pdfPath, len(rendered)))
		units = e.ocrUnits(ctx, rendered)
	} else {
		for i, text := range texts {
			if strings.TrimSpace(text) == "" {
				continue
			}
			units = append(units, &schema.ContentUnit{
				Kind:   schema.KindText,
				Text:   text,
				Page:   i + 1,
				Source: "pdf",
			})
		}
	}

	for _, page := range rendered {
		units = append(units, &schema.ContentUnit{
			Kind:      schema.KindImage,
			ImagePath: page.Path,
			Page:      page.Page,
		})
	}

	e.log.Info(fmt.Sprintf("Extracted %d content units from %s", len(units), pdfPath))
	return units, nil
}

// ocrUnits recognizes each rendered page. A page whose recognition fails is
// logged and skipped.
func (e *PDFExtractor) ocrUnits(ctx context.Context, rendered []RenderedPage) []*schema.ContentUnit {
	var units []*schema.ContentUnit
	for _, page := range rendered {
		if err := ctx.Err(); err != nil {
			return units
		}
		text, err := e.ocr.Recognize(page.Path)
		if err != nil {
			e.log.Warn(fmt.Sprintf("OCR failed for page %d, skipping: %v", page.Page, err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		units = append(units, &schema.ContentUnit{
			Kind:   schema.KindText,
			Text:   text,
			Page:   page.Page,
			Source: "ocr",
		})
	}
	return units
}

// allBlank reports whether every page text is empty or whitespace. The OCR
// fallback is all-or-nothing: one readable page keeps the text layer.
func allBlank(texts []string) bool {
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			return false
		}
	}
	return true
}

var _ interfaces.Extractor = (*PDFExtractor)(nil)
