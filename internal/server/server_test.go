package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/digimosa/content-moderation/internal/allowlist"
	"github.com/digimosa/content-moderation/internal/classifier"
	"github.com/digimosa/content-moderation/internal/config"
	"github.com/digimosa/content-moderation/internal/extractor"
	"github.com/digimosa/content-moderation/internal/imaging"
	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/moderation"
	"github.com/digimosa/content-moderation/internal/ocr"
	"github.com/digimosa/content-moderation/internal/redaction"
	"github.com/digimosa/content-moderation/internal/storage"
)

// phoneOCR reports a phone number in the top-left quarter of every image.
var phoneOCR = ocr.RecognizerFunc(func(context.Context, []byte) ([]ocr.Observation, error) {
	return []ocr.Observation{{
		Text:       "call 555-123-4567",
		Box:        models.Rect{Width: 0.5, Height: 0.5},
		Confidence: 0.9,
	}}, nil
})

type fixture struct {
	srv   *Server
	store *storage.Store
	allow *allowlist.Allowlist
}

func newFixture(t *testing.T, withStore bool) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	allow := allowlist.New("support@platform.example")
	pii := extractor.NewPIIDetector(log, phoneOCR, allow)
	cls := classifier.NewKeywordClassifier()
	engine := moderation.NewEngine(log, pii, cls, imaging.NewAnalyzer(log, phoneOCR, pii, cls, imaging.Options{}))
	redactor, err := redaction.New(log)
	require.NoError(t, err)

	var store *storage.Store
	if withStore {
		store, err = storage.Open(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
	}

	cfg := config.DefaultConfig().Server
	cfg.GinMode = gin.TestMode
	return &fixture{srv: NewServer(cfg, log, engine, redactor, store, allow), store: store, allow: allow}
}

func (f *fixture) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func pngBytes(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][][]byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, blobs := range files {
		for i, blob := range blobs {
			fw, err := mw.CreateFormFile(field, field+string(rune('0'+i))+".png")
			require.NoError(t, err)
			_, err = fw.Write(blob)
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) models.ModerationResult {
	var r models.ModerationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestModerateText_QueuesVerdict(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(t, http.MethodPost, "/api/moderate/text",
		jsonBody(t, gin.H{"content_id": "post-1", "text": "Contact me at 555-123-4567"}), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	r := decode(t, w)
	assert.Equal(t, models.StatusFlagged, r.Status)
	assert.Equal(t, models.ContentPost, r.ContentType)
	require.Len(t, r.DetectedPII, 1)

	w = f.do(t, http.MethodGet, "/api/queue", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var queue struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queue))
	assert.Equal(t, 1, queue.Count)

	w = f.do(t, http.MethodGet, "/api/results/post-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusFlagged, decode(t, w).Status)
}

func TestModerateText_Validation(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodPost, "/api/moderate/text", bytes.NewBufferString("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/moderate/text", jsonBody(t, gin.H{"content_type": "story", "text": "x"}), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/moderate/text", jsonBody(t, gin.H{"text": "hello there everyone"}), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w).ContentID, "a content id is generated")
}

func TestModerateImage(t *testing.T) {
	f := newFixture(t, false)
	body, ct := multipartBody(t, map[string]string{"content_id": "img-1"}, map[string][][]byte{"image": {pngBytes(t, 200, 100)}})

	w := f.do(t, http.MethodPost, "/api/moderate/image", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	r := decode(t, w)
	assert.Equal(t, models.ContentImage, r.ContentType)
	assert.Equal(t, models.StatusFlagged, r.Status)
	require.Len(t, r.DetectedPII, 1)
	assert.Equal(t, models.Rect{Width: 100, Height: 50}, r.DetectedPII[0].Location)

	w = f.do(t, http.MethodPost, "/api/moderate/image", &bytes.Buffer{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModerateReview_CrossChannelPII(t *testing.T) {
	f := newFixture(t, false)
	body, ct := multipartBody(t,
		map[string]string{"content_id": "rev-9", "text": "Lovely evening, great food and company."},
		map[string][][]byte{"images": {pngBytes(t, 300, 200), pngBytes(t, 300, 200)}})

	w := f.do(t, http.MethodPost, "/api/moderate/review", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	r := decode(t, w)
	assert.Equal(t, "rev-9", r.ContentID)
	assert.Equal(t, models.ContentReview, r.ContentType)
	assert.Len(t, r.DetectedPII, 2)
	assert.Equal(t, models.StatusFlagged, r.Status)
}

func TestRedact(t *testing.T) {
	f := newFixture(t, false)
	img := pngBytes(t, 120, 80)

	// explicit empty-location detection leaves the image untouched
	body, ct := multipartBody(t,
		map[string]string{"detections": `[{"type":"email","location":{"x":0,"y":0,"width":0,"height":0},"confidence":0.95,"text":"a@b.co"}]`},
		map[string][][]byte{"image": {img}})
	w := f.do(t, http.MethodPost, "/api/redact", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, img, w.Body.Bytes())
	assert.Equal(t, "0", w.Header().Get("X-Redacted-Regions"))

	// without detections the image is analyzed first
	body, ct = multipartBody(t, nil, map[string][][]byte{"image": {img}})
	w = f.do(t, http.MethodPost, "/api/redact", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Redacted-Regions"))
	assert.NotEqual(t, img, w.Body.Bytes())

	body, ct = multipartBody(t, map[string]string{"detections": "nope"}, map[string][][]byte{"image": {img}})
	w = f.do(t, http.MethodPost, "/api/redact", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReview_ExactlyOnce(t *testing.T) {
	f := newFixture(t, true)
	w := f.do(t, http.MethodPost, "/api/moderate/text",
		jsonBody(t, gin.H{"content_id": "c-7", "text": "you are worthless, kill yourself"}), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/results/c-7/review", jsonBody(t, gin.H{"reviewed_by": "mod-1", "notes": "agree"}), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r := decode(t, w)
	require.NotNil(t, r.ReviewedBy)
	assert.Equal(t, "mod-1", *r.ReviewedBy)
	assert.Equal(t, models.StatusRejected, r.Status)

	w = f.do(t, http.MethodPost, "/api/results/c-7/review", jsonBody(t, gin.H{"reviewed_by": "mod-2"}), "application/json")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/results/missing/review", jsonBody(t, gin.H{"reviewed_by": "mod-2"}), "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/results/c-7/review", jsonBody(t, gin.H{"notes": "x"}), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueue_Filters(t *testing.T) {
	f := newFixture(t, true)
	for id, text := range map[string]string{
		"a": "Contact me at 555-123-4567",
		"b": "hello there everyone",
	} {
		w := f.do(t, http.MethodPost, "/api/moderate/text", jsonBody(t, gin.H{"content_id": id, "text": text}), "application/json")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := f.do(t, http.MethodGet, "/api/queue?status=approved", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"content_id":"b"`)
	assert.NotContains(t, w.Body.String(), `"content_id":"a"`)

	w = f.do(t, http.MethodGet, "/api/queue?status=bogus", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/queue?limit=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueRoutesNeedStore(t *testing.T) {
	f := newFixture(t, false)
	for _, path := range []string{"/api/queue", "/api/results/x", "/api/stats", "/api/scans", "/api/scans/1"} {
		w := f.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestAllowlist(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodPost, "/api/moderate/text", jsonBody(t, gin.H{"text": "write to jane@example.com"}), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w).DetectedPII, 1)

	w = f.do(t, http.MethodPost, "/api/allowlist", jsonBody(t, gin.H{"value": "Jane@Example.com"}), "application/json")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodPost, "/api/moderate/text", jsonBody(t, gin.H{"text": "write to jane@example.com"}), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w).DetectedPII)

	w = f.do(t, http.MethodGet, "/api/allowlist", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jane@example.com")

	w = f.do(t, http.MethodPost, "/api/allowlist", jsonBody(t, gin.H{"value": "  "}), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllowlistNotConfigured(t *testing.T) {
	f := newFixture(t, false)
	f.srv.allow = nil

	w := f.do(t, http.MethodGet, "/api/allowlist", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = f.do(t, http.MethodPost, "/api/allowlist", jsonBody(t, gin.H{"value": "x@y.co"}), "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStats_CountsCurrentVerdicts(t *testing.T) {
	f := newFixture(t, true)
	for _, text := range []string{"Contact me at 555-123-4567", "hello there everyone"} {
		w := f.do(t, http.MethodPost, "/api/moderate/text", jsonBody(t, gin.H{"content_id": "s-1", "text": text}), "application/json")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := f.do(t, http.MethodPost, "/api/moderate/text", jsonBody(t, gin.H{"content_id": "s-2", "text": "write to jane@example.com"}), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Statuses map[models.Status]int64 `json:"statuses"`
		Total    int64                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Statuses[models.StatusApproved])
	assert.Equal(t, int64(1), stats.Statuses[models.StatusFlagged])
}

func TestScans(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	scan, err := f.store.CreateScan(ctx, "/data/inbox")
	require.NoError(t, err)
	require.NoError(t, f.store.CompleteScan(ctx, scan, 3, 1, 2, false))

	w := f.do(t, http.MethodGet, "/api/scans", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []storage.ScanModel `json:"items"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "/data/inbox", list.Items[0].RootPath)

	w = f.do(t, http.MethodGet, "/api/scans/"+strconv.FormatUint(uint64(scan.ID), 10), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got storage.ScanModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Completed", got.Status)
	assert.Equal(t, int64(3), got.TotalFiles)

	w = f.do(t, http.MethodGet, "/api/scans/999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodGet, "/api/scans/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPingAndMetrics(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/ping", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	f.do(t, http.MethodPost, "/api/moderate/text", jsonBody(t, gin.H{"text": "hello there everyone"}), "application/json")
	w = f.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "moderation_verdicts_total"))
}
