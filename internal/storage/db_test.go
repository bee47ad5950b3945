package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digimosa/content-moderation/internal/models"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "moderation.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func result(id string, status models.Status, at time.Time) *models.ModerationResult {
	return &models.ModerationResult{
		ContentID:   id,
		ContentType: models.ContentPost,
		Status:      status,
		Flags:       models.NewFlagSet(models.FlagSpam, models.FlagHarassment),
		Confidence:  0.65,
		Severity:    models.SeverityHigh,
		Reason:      "Multiple policy violations detected: Harassment or bullying, Spam or promotional content",
		DetectedPII: []models.PIIDetection{{
			Type: models.PIIPhoneNumber, Confidence: 0.9, Text: "555-123-4567",
			Location: models.Rect{X: 1, Y: 2, Width: 3, Height: 4},
		}},
		CreatedAt: at,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.SaveResult(ctx, result("c-1", models.StatusFlagged, at), SaveOptions{SourcePath: "inbox/c-1.txt"})
	require.NoError(t, err)

	got, err := s.GetResult(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "inbox/c-1.txt", got.SourcePath)
	assert.Equal(t, 1, got.PIICount)

	r := got.Result()
	assert.Equal(t, models.StatusFlagged, r.Status)
	assert.Equal(t, models.FlagSet{models.FlagHarassment, models.FlagSpam}, r.Flags)
	assert.Equal(t, models.SeverityHigh, r.Severity)
	assert.Equal(t, 0.65, r.Confidence)
	require.Len(t, r.DetectedPII, 1)
	assert.Equal(t, models.Rect{X: 1, Y: 2, Width: 3, Height: 4}, r.DetectedPII[0].Location)
	assert.True(t, at.Equal(r.CreatedAt))
	assert.False(t, r.Reviewed())

	_, err = s.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_NewestVerdictWins(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.SaveResult(ctx, result("c-1", models.StatusPending, at), SaveOptions{})
	require.NoError(t, err)
	_, err = s.SaveResult(ctx, result("c-1", models.StatusRejected, at.Add(time.Minute)), SaveOptions{})
	require.NoError(t, err)

	got, err := s.GetResult(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
}

func TestStore_ListQueue(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, st := range []models.Status{models.StatusFlagged, models.StatusApproved, models.StatusPending, models.StatusRejected, models.StatusFlagged} {
		_, err := s.SaveResult(ctx, result(string(rune('a'+i)), st, at.Add(time.Duration(i)*time.Second)), SaveOptions{})
		require.NoError(t, err)
	}
	_, err := s.RecordReview(ctx, "e", "mod", "", at)
	require.NoError(t, err)

	queue, err := s.ListQueue(ctx, QueueFilter{})
	require.NoError(t, err)
	var ids []string
	for _, q := range queue {
		ids = append(ids, q.ContentID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)

	all, err := s.ListQueue(ctx, QueueFilter{Statuses: []models.Status{models.StatusFlagged}, IncludeReviewed: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	limited, err := s.ListQueue(ctx, QueueFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "a", limited[0].ContentID)

	counts, err := s.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.StatusFlagged])
	assert.Equal(t, int64(1), counts[models.StatusApproved])
}

func TestStore_QueueSeesOnlyCurrentVerdict(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.SaveResult(ctx, result("c-1", models.StatusFlagged, at), SaveOptions{})
	require.NoError(t, err)
	_, err = s.SaveResult(ctx, result("c-1", models.StatusApproved, at.Add(time.Second)), SaveOptions{})
	require.NoError(t, err)
	_, err = s.SaveResult(ctx, result("c-2", models.StatusApproved, at), SaveOptions{})
	require.NoError(t, err)
	_, err = s.SaveResult(ctx, result("c-2", models.StatusPending, at.Add(time.Second)), SaveOptions{})
	require.NoError(t, err)

	queue, err := s.ListQueue(ctx, QueueFilter{})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "c-2", queue[0].ContentID)
	assert.Equal(t, models.StatusPending, queue[0].Status)

	counts, err := s.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.Status]int64{
		models.StatusApproved: 1,
		models.StatusPending:  1,
	}, counts)

	_, err = s.RecordReview(ctx, "c-2", "moderator", "", at.Add(time.Hour))
	require.NoError(t, err)
	queue, err = s.ListQueue(ctx, QueueFilter{})
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestStore_RecordReviewExactlyOnce(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.SaveResult(ctx, result("c-1", models.StatusFlagged, at), SaveOptions{})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		already   int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordReview(ctx, "c-1", "moderator", "checked", at.Add(time.Hour))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, models.ErrAlreadyReviewed):
				already++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, 7, already)

	got, err := s.GetResult(ctx, "c-1")
	require.NoError(t, err)
	r := got.Result()
	require.True(t, r.Reviewed())
	assert.Equal(t, "moderator", *r.ReviewedBy)
	assert.Equal(t, "checked", *r.Notes)
	assert.Equal(t, models.StatusFlagged, r.Status)

	_, err = s.RecordReview(ctx, "nope", "m", "", at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Scans(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	scan, err := s.CreateScan(ctx, "/data/inbox")
	require.NoError(t, err)
	_, err = s.SaveResult(ctx, result("f-1", models.StatusFlagged, time.Now()), SaveOptions{ScanID: &scan.ID})
	require.NoError(t, err)
	require.NoError(t, s.CompleteScan(ctx, scan, 4, 1, 1, false))

	got, err := s.GetScanByID(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Completed", got.Status)
	assert.Equal(t, int64(4), got.TotalFiles)

	queue, err := s.ListQueue(ctx, QueueFilter{ScanID: &scan.ID})
	require.NoError(t, err)
	assert.Len(t, queue, 1)

	scans, err := s.GetAllScans(ctx)
	require.NoError(t, err)
	assert.Len(t, scans, 1)

	_, err = s.GetScanByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
