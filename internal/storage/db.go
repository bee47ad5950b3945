// Package storage persists moderation verdicts and batch scan runs so human
// moderators can work through the review queue.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/digimosa/content-moderation/internal/models"
)

// ErrNotFound is returned when no row matches a lookup.
var ErrNotFound = errors.New("not found")

type ScanModel struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	RootPath    string        `json:"root_path"`
	Status      string        `json:"status"` // "Running", "Completed", "Failed"
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	TotalFiles  int64         `json:"total_files"`
	QueuedFiles int64         `json:"queued_files"`
	TotalPII    int64         `json:"total_pii"`
}

// ResultModel is one stored verdict. A content id may be moderated more than
// once; the most recently saved row is the current verdict.
type ResultModel struct {
	ID          uint                  `gorm:"primaryKey" json:"id"`
	ScanID      *uint                 `gorm:"index" json:"scan_id,omitempty"`
	ContentID   string                `gorm:"index;not null" json:"content_id"`
	ContentType models.ContentType    `json:"content_type"`
	SourcePath  string                `json:"source_path,omitempty"`
	Status      models.Status         `gorm:"index" json:"status"`
	Flags       models.FlagSet        `gorm:"serializer:json" json:"flags"`
	Confidence  float64               `json:"confidence"`
	Severity    models.Severity       `json:"severity"`
	Reason      string                `json:"reason"`
	DetectedPII []models.PIIDetection `gorm:"serializer:json" json:"detected_pii"`
	PIICount    int                   `json:"pii_count"`
	CreatedAt   time.Time             `gorm:"index" json:"created_at"`
	ReviewedAt  *time.Time            `json:"reviewed_at,omitempty"`
	ReviewedBy  *string               `json:"reviewed_by,omitempty"`
	Notes       *string               `json:"notes,omitempty"`
}

func (m *ResultModel) Result() *models.ModerationResult {
	flags := m.Flags
	if flags == nil {
		flags = models.FlagSet{}
	}
	pii := m.DetectedPII
	if pii == nil {
		pii = []models.PIIDetection{}
	}
	return &models.ModerationResult{
		ContentID:   m.ContentID,
		ContentType: m.ContentType,
		Status:      m.Status,
		Flags:       flags,
		Confidence:  m.Confidence,
		Severity:    m.Severity,
		Reason:      m.Reason,
		DetectedPII: pii,
		CreatedAt:   m.CreatedAt,
		ReviewedAt:  m.ReviewedAt,
		ReviewedBy:  m.ReviewedBy,
		Notes:       m.Notes,
	}
}

// Store wraps the sqlite database. It is safe for concurrent use.
type Store struct {
	db *gorm.DB
}

// Open creates or migrates the database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&ScanModel{}, &ResultModel{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveOptions attach a verdict to the batch run that produced it.
type SaveOptions struct {
	ScanID     *uint
	SourcePath string
}

// SaveResult stores a new verdict.
func (s *Store) SaveResult(ctx context.Context, r *models.ModerationResult, opts SaveOptions) (*ResultModel, error) {
	m := &ResultModel{
		ScanID:      opts.ScanID,
		ContentID:   r.ContentID,
		ContentType: r.ContentType,
		SourcePath:  opts.SourcePath,
		Status:      r.Status,
		Flags:       r.Flags,
		Confidence:  r.Confidence,
		Severity:    r.Severity,
		Reason:      r.Reason,
		DetectedPII: r.DetectedPII,
		PIICount:    len(r.DetectedPII),
		CreatedAt:   r.CreatedAt,
		ReviewedAt:  r.ReviewedAt,
		ReviewedBy:  r.ReviewedBy,
		Notes:       r.Notes,
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("save result %s: %w", r.ContentID, err)
	}
	return m, nil
}

// GetResult returns the current verdict for contentID.
func (s *Store) GetResult(ctx context.Context, contentID string) (*ResultModel, error) {
	var m ResultModel
	err := s.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("id desc").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", contentID, err)
	}
	return &m, nil
}

// QueueFilter selects verdicts for the review queue.
type QueueFilter struct {
	// Statuses to include; empty means pending and flagged.
	Statuses        []models.Status
	IncludeReviewed bool
	ScanID          *uint
	Limit           int
}

// currentIDs selects the row id of the current verdict of every content id.
func (s *Store) currentIDs(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&ResultModel{}).Select("MAX(id)").Group("content_id")
}

// ListQueue returns matching current verdicts oldest first. Superseded
// verdicts never show up.
func (s *Store) ListQueue(ctx context.Context, f QueueFilter) ([]ResultModel, error) {
	statuses := f.Statuses
	if len(statuses) == 0 {
		statuses = []models.Status{models.StatusPending, models.StatusFlagged}
	}

	q := s.db.WithContext(ctx).
		Where("id IN (?)", s.currentIDs(ctx)).
		Where("status IN ?", statuses)
	if !f.IncludeReviewed {
		q = q.Where("reviewed_at IS NULL")
	}
	if f.ScanID != nil {
		q = q.Where("scan_id = ?", *f.ScanID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []ResultModel
	if err := q.Order("created_at asc, id asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return out, nil
}

// RecordReview fills the review fields of the current verdict for contentID.
// It succeeds at most once per verdict; later calls get
// models.ErrAlreadyReviewed.
func (s *Store) RecordReview(ctx context.Context, contentID, reviewer, notes string, at time.Time) (*ResultModel, error) {
	current, err := s.GetResult(ctx, contentID)
	if err != nil {
		return nil, err
	}

	res := current.Result()
	if err := res.ApplyReview(reviewer, notes, at.UTC()); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Model(&ResultModel{}).
		Where("id = ? AND reviewed_at IS NULL", current.ID).
		Updates(map[string]any{
			"reviewed_at": res.ReviewedAt,
			"reviewed_by": res.ReviewedBy,
			"notes":       res.Notes,
		})
	if tx.Error != nil {
		return nil, fmt.Errorf("record review %s: %w", contentID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, models.ErrAlreadyReviewed
	}

	current.ReviewedAt, current.ReviewedBy, current.Notes = res.ReviewedAt, res.ReviewedBy, res.Notes
	return current, nil
}

// StatusCounts tallies current verdicts by status.
func (s *Store) StatusCounts(ctx context.Context) (map[models.Status]int64, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&ResultModel{}).
		Where("id IN (?)", s.currentIDs(ctx)).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count statuses: %w", err)
	}
	out := make(map[models.Status]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func (s *Store) CreateScan(ctx context.Context, rootPath string) (*ScanModel, error) {
	scan := &ScanModel{
		RootPath:  rootPath,
		Status:    "Running",
		StartTime: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(scan).Error; err != nil {
		return nil, fmt.Errorf("create scan: %w", err)
	}
	return scan, nil
}

// CompleteScan records the totals of a finished run. failed marks runs that
// were interrupted.
func (s *Store) CompleteScan(ctx context.Context, scan *ScanModel, totalFiles, queuedFiles, totalPII int64, failed bool) error {
	scan.EndTime = time.Now()
	scan.Duration = scan.EndTime.Sub(scan.StartTime)
	scan.Status = "Completed"
	if failed {
		scan.Status = "Failed"
	}
	scan.TotalFiles = totalFiles
	scan.QueuedFiles = queuedFiles
	scan.TotalPII = totalPII
	return s.db.WithContext(ctx).Model(scan).
		Select("EndTime", "Duration", "Status", "TotalFiles", "QueuedFiles", "TotalPII").
		Updates(scan).Error
}

func (s *Store) GetAllScans(ctx context.Context) ([]ScanModel, error) {
	var scans []ScanModel
	err := s.db.WithContext(ctx).Order("start_time desc").Find(&scans).Error
	return scans, err
}

func (s *Store) GetScanByID(ctx context.Context, id uint) (*ScanModel, error) {
	var scan ScanModel
	err := s.db.WithContext(ctx).First(&scan, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &scan, err
}
