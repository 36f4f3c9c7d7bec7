package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"rag-platform/internal/logger"
)

// TextExtractor produces plain text from a document on disk.
type TextExtractor interface {
	Extract(ctx context.Context, filePath string) (string, error)
}

// PDFExtractor extracts text from PDF files page by page.
type PDFExtractor struct {
	// maxFileBytes caps in-memory extraction; files over the cap are rejected.
	maxFileBytes int64
}

func NewPDFExtractor(maxFileBytes int64) *PDFExtractor {
	if maxFileBytes <= 0 {
		maxFileBytes = 200 << 20
	}
	return &PDFExtractor{maxFileBytes: maxFileBytes}
}

func (e *PDFExtractor) Extract(ctx context.Context, filePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > e.maxFileBytes {
		return "", fmt.Errorf("pdf too large for in-memory extraction: %d bytes", stat.Size())
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF file: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract page text", "file", filePath, "page", i, "error", err)
			continue
		}

		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n\n")
		}
		textBuilder.WriteString(text)
	}

	return textBuilder.String(), nil
}
