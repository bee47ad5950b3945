package extractor

import (
	"fmt"
	"io"
	"strings"

	"github.com/digimosa/content-moderation/internal/models"
)

// Loader turns one submission file into moderatable content.
type Loader interface {
	Load(reader io.Reader) (models.Submission, error)
}

// maxTextBytes bounds how much of a text file is moderated.
const maxTextBytes = 1 << 20

// TextLoader reads plain text, replacing control bytes with spaces.
type TextLoader struct{}

func (l *TextLoader) Load(reader io.Reader) (models.Submission, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxTextBytes))
	if err != nil {
		return models.Submission{}, fmt.Errorf("read text: %w", err)
	}
	return models.Submission{Text: strings.TrimSpace(string(sanitizeBytes(data)))}, nil
}

// ImageLoader passes the encoded bytes through untouched.
type ImageLoader struct{}

func (l *ImageLoader) Load(reader io.Reader) (models.Submission, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return models.Submission{}, fmt.Errorf("read image: %w", err)
	}
	return models.Submission{Images: [][]byte{data}}, nil
}

// sanitizeBytes replaces non-printable characters with spaces but keeps
// tabs, newlines and anything above 0x7F so UTF-8 text survives.
func sanitizeBytes(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		if (b >= 32 && b <= 126) || b == 9 || b == 10 || b == 13 || b > 127 {
			out[i] = b
		} else {
			out[i] = ' '
		}
	}
	return out
}
