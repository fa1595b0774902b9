package document

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"learncards/internal/util"

	"github.com/ledongthuc/pdf"
)

// ExtractText returns the plain text of an uploaded document. PDFs are read
// with the pdf reader; .txt and .md files are taken as-is.
func ExtractText(name string, data []byte) (string, error) {
	var text string
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		t, err := pdfText(data)
		if err != nil {
			return "", err
		}
		text = t
	case ".txt", ".md", ".markdown":
		text = string(data)
	default:
		return "", fmt.Errorf("unsupported document type %q: %w", filepath.Ext(name), util.ErrValidation)
	}
	text = util.SanitizeText(strings.TrimSpace(text))
	if text == "" {
		return "", util.ErrNoExtractableText
	}
	return text, nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return buf.String(), nil
}
