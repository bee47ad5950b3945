package scanner

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/storage"
)

// moderateFile loads one submission file, moderates it and persists the
// verdict.
func (s *Scanner) moderateFile(job models.Job) Result {
	res := Result{Path: job.Path, ContentID: job.ContentID}

	info, err := os.Stat(job.Path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Size = info.Size()

	loader, ext, err := s.factory.LoaderFor(job.Path)
	if err != nil {
		res.Err = err
		return res
	}
	res.FileType = ext

	file, err := os.Open(job.Path)
	if err != nil {
		res.Err = fmt.Errorf("failed to open file: %w", err)
		return res
	}
	defer file.Close()

	sub, err := loader.Load(file)
	if err != nil {
		res.Err = fmt.Errorf("load %s: %w", ext, err)
		return res
	}

	ref := models.ContentRef{ContentID: job.ContentID, ContentType: models.ContentPost}
	if sub.Text == "" && len(sub.Images) > 0 {
		ref.ContentType = models.ContentImage
	}

	s.log.Debug("moderating file", zap.String("content_id", job.ContentID), zap.String("type", ext))
	verdict, err := s.engine.Moderate(s.ctx, ref, sub)
	if err != nil {
		res.Err = err
		return res
	}
	res.Verdict = verdict

	if s.store != nil {
		_, err := s.store.SaveResult(s.ctx, verdict, storage.SaveOptions{ScanID: s.ScanID, SourcePath: job.Path})
		if err != nil {
			s.log.Error("failed to persist verdict", zap.String("content_id", job.ContentID), zap.Error(err))
			res.Err = err
		}
	}
	return res
}
