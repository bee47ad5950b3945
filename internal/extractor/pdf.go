package extractor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/digimosa/content-moderation/internal/models"
)

// PDFLoader extracts the plain text of every page.
type PDFLoader struct{}

func (l *PDFLoader) Load(reader io.Reader) (models.Submission, error) {
	// ledongthuc/pdf needs an io.ReaderAt and the size.
	var readerAt io.ReaderAt
	var size int64

	switch r := reader.(type) {
	case *os.File:
		stat, err := r.Stat()
		if err != nil {
			return models.Submission{}, err
		}
		readerAt = r
		size = stat.Size()
	case *bytes.Reader:
		readerAt = r
		size = int64(r.Len())
	default:
		data, err := io.ReadAll(reader)
		if err != nil {
			return models.Submission{}, err
		}
		readerAt = bytes.NewReader(data)
		size = int64(len(data))
	}

	doc, err := pdf.NewReader(readerAt, size)
	if err != nil {
		return models.Submission{}, fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue // a broken page should not hide the rest
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}
	return models.Submission{Text: strings.Join(pages, "\n")}, nil
}
