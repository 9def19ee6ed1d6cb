package knowledge

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"
)

// loadExcerpts reads standard text excerpts from PDF files named
// "part<N>.pdf" inside dir. A missing directory is fine; an unreadable
// PDF is logged and skipped.
func (idx *Index) loadExcerpts(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var part int
		if _, err := fmt.Sscanf(entry.Name(), "part%d.pdf", &part); err != nil {
			continue
		}
		text, err := extractPDFText(filepath.Join(dir, entry.Name()))
		if err != nil {
			idx.logger.Warn("skipping unreadable excerpt", "file", entry.Name(), "error", err)
			continue
		}
		idx.excerpts[part] = text
	}
	return nil
}

// extractPDFText returns the plain text of a PDF file.
func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	return buf.String(), nil
}
