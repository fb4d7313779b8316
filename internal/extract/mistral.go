package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/paperwave/paperwave/internal/config"
)

// MistralOCR implements OCRClient against the Mistral OCR API.
type MistralOCR struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewMistralOCR creates an OCR client from config. The API key is required;
// without it OCR requests would fail on every call, so this is surfaced at
// construction time.
func NewMistralOCR(cfg config.OCRConfig) (*MistralOCR, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mistral ocr: api key is required")
	}
	return &MistralOCR{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   &http.Client{},
	}, nil
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ocrResponse struct {
	Pages []struct {
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// Recognize sends the document to the OCR service as a base64 data URI and
// returns the concatenated page text.
func (m *MistralOCR) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)

	doc := ocrDocument{Type: "image_url", ImageURL: dataURI}
	if mimeType == "application/pdf" {
		doc = ocrDocument{Type: "document_url", DocumentURL: dataURI}
	}

	body, err := json.Marshal(ocrRequest{Model: m.model, Document: doc})
	if err != nil {
		return "", fmt.Errorf("marshalling ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating ocr request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ocr failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding ocr response: %w", err)
	}

	var sb strings.Builder
	for _, page := range result.Pages {
		sb.WriteString(page.Markdown)
		sb.WriteString("\n\n")
	}

	text := sb.String()
	slog.Debug("ocr complete", "pages", len(result.Pages), "chars", len(text))
	return text, nil
}
