// Package scanner moderates every submission file below a directory with a
// pool of workers.
package scanner

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/config"
	"github.com/digimosa/content-moderation/internal/extractor"
	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/reporting"
	"github.com/digimosa/content-moderation/internal/storage"
)

// Moderator is the part of the moderation engine the scanner needs.
type Moderator interface {
	Moderate(ctx context.Context, ref models.ContentRef, sub models.Submission) (*models.ModerationResult, error)
}

// Result is the outcome for one file.
type Result struct {
	Path      string
	ContentID string
	FileType  string
	Size      int64
	Verdict   *models.ModerationResult
	Err       error
}

// Scanner handles the orchestration of batch moderation
type Scanner struct {
	cfg     *config.Config
	log     *zap.Logger
	engine  Moderator
	store   *storage.Store
	factory *extractor.Factory

	jobs    chan models.Job
	results chan Result
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	Report *reporting.Report
	ScanID *uint // current scan record, nil without a store

	walkErr atomic.Value
}

// NewScanner prepares a scan of cfg.RootPath. store may be nil, in which
// case verdicts only end up in the report.
func NewScanner(ctx context.Context, cfg *config.Config, log *zap.Logger, engine Moderator, store *storage.Store) *Scanner {
	ctx, cancel := context.WithCancel(ctx)
	workers := max(cfg.Workers, 1)

	return &Scanner{
		cfg:     cfg,
		log:     log.Named("scanner"),
		engine:  engine,
		store:   store,
		factory: extractor.NewFactory(),
		jobs:    make(chan models.Job, workers*4),
		results: make(chan Result, workers*4),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		Report:  reporting.NewReport(cfg.RootPath),
	}
}

// Start creates the scan record and starts the walker, the workers and the
// result processor.
func (s *Scanner) Start() {
	if s.store != nil {
		scan, err := s.store.CreateScan(s.ctx, s.cfg.RootPath)
		if err != nil {
			s.log.Warn("could not create scan record, verdicts will not be linked", zap.Error(err))
		} else {
			s.ScanID = &scan.ID
		}
	}

	workers := max(s.cfg.Workers, 1)
	s.log.Info("starting scan", zap.String("root", s.cfg.RootPath), zap.Int("workers", workers))
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	go s.processResults()
	go s.walkFiles()
}

// Wait blocks until scanning is complete and returns the walk error, if any,
// or the cancellation cause.
func (s *Scanner) Wait() error {
	s.wg.Wait()
	close(s.results)
	<-s.done

	if err, ok := s.walkErr.Load().(error); ok {
		return err
	}
	return s.ctx.Err()
}

// Stop abandons the scan; files already handed to workers still finish.
func (s *Scanner) Stop() {
	s.cancel()
}

// Run is Start followed by Wait.
func (s *Scanner) Run() error {
	defer s.cancel()
	s.Start()
	return s.Wait()
}
