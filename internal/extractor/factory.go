package extractor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFile marks submission files that carry nothing a moderator
// could read: executables, audio and video, archives.
var ErrUnsupportedFile = errors.New("unsupported submission file")

// Factory maps a submission file to the Loader that turns it into text and
// images for the moderation engine. Unknown extensions are read as text.
type Factory struct {
	loaders map[string]func() Loader
	skipped map[string]struct{}
}

func NewFactory() *Factory {
	f := &Factory{
		loaders: map[string]func() Loader{
			".pdf":  func() Loader { return &PDFLoader{} },
			".xlsx": func() Loader { return &ExcelLoader{} },
		},
		skipped: make(map[string]struct{}),
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp"} {
		f.loaders[ext] = func() Loader { return &ImageLoader{} }
	}
	for _, ext := range []string{
		".exe", ".dll", ".so", ".dylib", ".bin",
		".mp3", ".mp4", ".wav", ".avi", ".mov", ".mkv",
		".zip", ".tar", ".gz", ".rar", ".7z", ".iso",
	} {
		f.skipped[ext] = struct{}{}
	}
	return f
}

// LoaderFor returns a fresh Loader for the submission at path and its
// lowercased extension.
func (f *Factory) LoaderFor(path string) (Loader, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !f.IsSupported(ext) {
		return nil, ext, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}
	if newLoader, ok := f.loaders[ext]; ok {
		return newLoader(), ext, nil
	}
	return &TextLoader{}, ext, nil
}

// IsSupported reports whether submissions with the lowercased ext are
// moderated at all.
func (f *Factory) IsSupported(ext string) bool {
	_, skip := f.skipped[ext]
	return !skip
}
