package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextSource extracts the embedded text layer of a document, one string per
// page in ascending page order.
type TextSource interface {
	PageTexts(path string) ([]string, error)
}

// PDFTextSource reads the text layer directly from the PDF structure.
type PDFTextSource struct{}

func NewPDFTextSource() *PDFTextSource { return &PDFTextSource{} }

// PageTexts returns one string per page. Pages whose text cannot be decoded
// yield an empty string rather than failing the whole document; scanned
// documents legitimately have no text layer at all.
func (s *PDFTextSource) PageTexts(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	texts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, text)
	}
	return texts, nil
}

var _ TextSource = (*PDFTextSource)(nil)
