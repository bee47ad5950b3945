package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/models"
)

func (s *Scanner) walkFiles() {
	defer close(s.jobs)

	err := filepath.WalkDir(s.cfg.RootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == s.cfg.RootPath {
				return err
			}
			s.log.Warn("error accessing path", zap.String("path", path), zap.Error(err))
			return nil
		}

		if d.IsDir() {
			if path != s.cfg.RootPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !s.factory.IsSupported(ext) {
			return nil
		}

		select {
		case <-s.ctx.Done():
			return filepath.SkipAll
		case s.jobs <- models.Job{Path: path, ContentID: s.contentID(path)}:
		}
		return nil
	})

	if err != nil {
		s.log.Error("error walking directory", zap.String("root", s.cfg.RootPath), zap.Error(err))
		s.walkErr.Store(fmt.Errorf("walk %s: %w", s.cfg.RootPath, err))
	}
}

// contentID is the slash-separated path relative to the scan root.
func (s *Scanner) contentID(path string) string {
	rel, err := filepath.Rel(s.cfg.RootPath, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
