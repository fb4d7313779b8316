// Package extract pulls text out of uploaded documents.
//
// PDFs are first read directly; scanned PDFs and images fall back to an
// OCR service. The extractor also tags the document with a type that the
// script generator uses to pick a prompting style.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DocumentType categorizes the uploaded document for script styling.
type DocumentType string

const (
	TypeResearchArticle DocumentType = "research_article"
	TypeReviewArticle   DocumentType = "review_article"
	TypeCaseStudy       DocumentType = "case_study"
)

// ScriptStyle returns the narration style associated with a document type.
func (t DocumentType) ScriptStyle() string {
	switch t {
	case TypeReviewArticle:
		return "explanatory"
	case TypeCaseStudy:
		return "conversational"
	default:
		return "analytical"
	}
}

// Document is the extraction result handed to the script generator.
type Document struct {
	Text string
	Type DocumentType
}

// OCRClient recognizes text in a document the direct path cannot read.
type OCRClient interface {
	Recognize(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Extractor reads documents from disk.
type Extractor struct {
	ocr      OCRClient
	maxChars int
}

// New creates an extractor. ocr may be nil, in which case scanned documents
// and images fail with an error instead of falling back.
func New(ocr OCRClient, maxChars int) *Extractor {
	return &Extractor{ocr: ocr, maxChars: maxChars}
}

// ExtractFile reads the document at path, choosing the extraction strategy
// from the file extension.
func (e *Extractor) ExtractFile(ctx context.Context, path string, docType DocumentType) (*Document, error) {
	if docType == "" {
		docType = TypeResearchArticle
	}

	var text string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = e.extractPDF(ctx, path)
	case ".png", ".jpg", ".jpeg":
		text, err = e.extractImage(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if e.maxChars > 0 && len(text) > e.maxChars {
		slog.Info("document text truncated", "from", len(text), "to", e.maxChars)
		text = text[:e.maxChars]
	}

	return &Document{Text: text, Type: docType}, nil
}

// extractPDF tries direct text extraction first and falls back to OCR for
// scanned documents that carry no text layer.
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	text, err := readPDFText(path)
	if err != nil {
		slog.Warn("direct pdf text extraction failed, trying ocr", "path", path, "error", err)
	} else if strings.TrimSpace(text) != "" {
		slog.Info("extracted pdf text directly", "path", path, "chars", len(text))
		return text, nil
	} else {
		slog.Info("pdf has no text layer, trying ocr", "path", path)
	}

	if e.ocr == nil {
		return "", fmt.Errorf("pdf %s has no extractable text and no ocr client is configured", path)
	}

	data, err := readFile(path)
	if err != nil {
		return "", err
	}
	recognized, err := e.ocr.Recognize(ctx, data, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("ocr fallback for %s: %w", path, err)
	}
	return recognized, nil
}

// extractImage always goes through OCR.
func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	if e.ocr == nil {
		return "", fmt.Errorf("image extraction requires an ocr client")
	}

	data, err := readFile(path)
	if err != nil {
		return "", err
	}

	mimeType := "image/png"
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	}

	text, err := e.ocr.Recognize(ctx, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("ocr for %s: %w", path, err)
	}
	return text, nil
}

// readPDFText extracts the text layer of a PDF page by page.
func readPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("reading pdf page %d: %w", i, err)
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
