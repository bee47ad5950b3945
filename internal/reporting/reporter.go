// Package reporting summarizes a batch moderation run as JSON.
package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/digimosa/content-moderation/internal/models"
)

type Summary struct {
	TotalFilesScanned int64                    `json:"total_files_scanned"`
	TotalFilesQueued  int64                    `json:"total_files_queued"`
	TotalFilesFailed  int64                    `json:"total_files_failed"`
	TotalPIIFound     int64                    `json:"total_pii_found"`
	Statuses          map[models.Status]int64  `json:"statuses"`
	Flags             map[models.Flag]int64    `json:"flags"`
	PIITypes          map[models.PIIType]int64 `json:"pii_types"`
	ScanDuration      time.Duration            `json:"scan_duration"`
	StartTime         time.Time                `json:"start_time"`
	EndTime           time.Time                `json:"end_time"`
	RootPath          string                   `json:"root_path"`
}

// Entry is one file that needs a moderator's attention.
type Entry struct {
	Path      string                   `json:"path"`
	ContentID string                   `json:"content_id,omitempty"`
	Result    *models.ModerationResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

type Report struct {
	Summary Summary `json:"summary"`
	Entries []Entry `json:"entries"`
	mu      sync.Mutex
}

func NewReport(rootPath string) *Report {
	return &Report{
		Summary: Summary{
			StartTime: time.Now(),
			RootPath:  rootPath,
			Statuses:  make(map[models.Status]int64),
			Flags:     make(map[models.Flag]int64),
			PIITypes:  make(map[models.PIIType]int64),
		},
		Entries: make([]Entry, 0),
	}
}

// AddResult records one moderated file. Approved files only count towards
// the totals; everything else is listed with PII values masked.
func (r *Report) AddResult(path, contentID string, res *models.ModerationResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Summary.TotalFilesScanned++
	if err != nil {
		r.Summary.TotalFilesFailed++
		r.Entries = append(r.Entries, Entry{Path: path, ContentID: contentID, Error: err.Error()})
		return
	}

	r.Summary.Statuses[res.Status]++
	for _, f := range res.Flags {
		r.Summary.Flags[f]++
	}
	for _, d := range res.DetectedPII {
		r.Summary.PIITypes[d.Type]++
	}
	r.Summary.TotalPIIFound += int64(len(res.DetectedPII))

	if res.Status == models.StatusApproved {
		return
	}
	if res.Status == models.StatusPending || res.Status == models.StatusFlagged {
		r.Summary.TotalFilesQueued++
	}
	r.Entries = append(r.Entries, Entry{Path: path, ContentID: contentID, Result: masked(res)})
}

func (r *Report) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Summary.EndTime = time.Now()
	r.Summary.ScanDuration = r.Summary.EndTime.Sub(r.Summary.StartTime)
}

func (r *Report) WriteJSON(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

func (r *Report) SaveJSON(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer file.Close()
	return r.WriteJSON(file)
}

// masked copies res with every PII value reduced to its last two characters.
func masked(res *models.ModerationResult) *models.ModerationResult {
	out := *res
	out.DetectedPII = make([]models.PIIDetection, len(res.DetectedPII))
	for i, d := range res.DetectedPII {
		d.Text = MaskValue(d.Text)
		out.DetectedPII[i] = d
	}
	return &out
}

// MaskValue hides all but the last two runes of v.
func MaskValue(v string) string {
	n := utf8.RuneCountInString(v)
	if n <= 2 {
		return v
	}
	runes := []rune(v)
	for i := 0; i < n-2; i++ {
		runes[i] = '*'
	}
	return string(runes)
}
