package extract

import (
	"fmt"
	"os"

	"github.com/otiai10/gosseract/v2"
)

// OCREngine recognizes the text in a rendered page image.
type OCREngine interface {
	Recognize(imagePath string) (string, error)
}

// TesseractOCR recognizes text with a local Tesseract installation.
type TesseractOCR struct {
	languages []string
}

func NewTesseractOCR(languages []string) *TesseractOCR {
	return &TesseractOCR{languages: languages}
}

// Recognize runs OCR over a single image file.
func (t *TesseractOCR) Recognize(imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", imagePath, err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return "", fmt.Errorf("failed to set OCR languages: %w", err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to load image into OCR engine: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed for %s: %w", imagePath, err)
	}
	return text, nil
}

var _ OCREngine = (*TesseractOCR)(nil)
