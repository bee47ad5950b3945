package scanner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/models"
)

func (s *Scanner) processResults() {
	defer close(s.done)

	count := 0
	var queued, pii int64
	start := time.Now()

	for res := range s.results {
		count++
		s.Report.AddResult(res.Path, res.ContentID, res.Verdict, res.Err)

		if res.Err != nil {
			s.log.Warn("file not moderated", zap.String("path", res.Path), zap.Error(res.Err))
			continue
		}

		v := res.Verdict
		pii += int64(len(v.DetectedPII))
		if v.Status == models.StatusPending || v.Status == models.StatusFlagged {
			queued++
		}
		if v.Status != models.StatusApproved {
			s.log.Info("needs attention",
				zap.String("content_id", res.ContentID),
				zap.String("status", string(v.Status)),
				zap.Stringer("severity", v.Severity),
				zap.Int("pii_count", len(v.DetectedPII)))
		}

		if count%1000 == 0 {
			s.log.Info("progress",
				zap.Int("processed", count),
				zap.Float64("files_per_sec", float64(count)/time.Since(start).Seconds()))
		}
	}

	s.Report.Finalize()

	if s.store != nil && s.ScanID != nil {
		scan, err := s.store.GetScanByID(context.WithoutCancel(s.ctx), *s.ScanID)
		if err == nil {
			err = s.store.CompleteScan(context.WithoutCancel(s.ctx), scan, int64(count), queued, pii, s.ctx.Err() != nil)
		}
		if err != nil {
			s.log.Error("failed to complete scan record", zap.Error(err))
		}
	}
	s.log.Info("scan finished", zap.Int("files", count), zap.Int64("queued", queued), zap.Int64("pii", pii))
}
