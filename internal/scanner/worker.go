package scanner

import (
	"fmt"

	"go.uber.org/zap"
)

func (s *Scanner) worker(id int) {
	defer s.wg.Done()
	log := s.log.With(zap.Int("worker", id))

	for job := range s.jobs {
		select {
		case <-s.ctx.Done():
			return
		default:
			s.results <- s.safeModerate(log, job.Path, func() Result { return s.moderateFile(job) })
		}
	}
}

// safeModerate turns a panic while handling one file into a failed result so
// the rest of the scan continues.
func (s *Scanner) safeModerate(log *zap.Logger, path string, fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while moderating file", zap.String("path", path), zap.Any("panic", r))
			res = Result{Path: path, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return fn()
}
