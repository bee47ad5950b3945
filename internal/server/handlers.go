package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/storage"
)

type moderateTextRequest struct {
	ContentID   string             `json:"content_id"`
	ContentType models.ContentType `json:"content_type"`
	Text        string             `json:"text"`
}

type reviewRequest struct {
	ReviewedBy string `json:"reviewed_by" binding:"required"`
	Notes      string `json:"notes"`
}

type allowlistRequest struct {
	Value string `json:"value" binding:"required"`
}

func (s *Server) handleModerateText(c *gin.Context) {
	var req moderateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ref, err := contentRef(req.ContentID, req.ContentType, models.ContentPost)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.engine.ModerateText(c.Request.Context(), ref, req.Text)
	s.respond(c, res, err)
}

func (s *Server) handleModerateImage(c *gin.Context) {
	ref, err := contentRef(c.PostForm("content_id"), models.ContentType(c.PostForm("content_type")), models.ContentImage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	data, err := s.readUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.engine.ModerateImage(c.Request.Context(), ref, data)
	s.respond(c, res, err)
}

func (s *Server) handleModerateReview(c *gin.Context) {
	contentID := c.PostForm("content_id")
	if contentID == "" {
		contentID = uuid.NewString()
	}

	var images [][]byte
	if form, err := c.MultipartForm(); err == nil {
		for _, fh := range form.File["images"] {
			data, err := s.readUpload(fh)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			images = append(images, data)
		}
	}

	res, err := s.engine.ModerateReview(c.Request.Context(), contentID, c.PostForm("text"), images)
	s.respond(c, res, err)
}

// handleRedact paints over the detections given in the "detections" form
// field, or over whatever the image channel finds when the field is absent.
func (s *Server) handleRedact(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	data, err := s.readUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var detections []models.PIIDetection
	if raw := c.PostForm("detections"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &detections); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "detections must be a JSON array"})
			return
		}
	} else {
		detections, err = s.engine.LocateImagePII(c.Request.Context(), data)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
	}

	out, err := s.redactor.Redact(data, detections)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Header("X-Redacted-Regions", strconv.Itoa(countRegions(detections)))
	c.Data(http.StatusOK, http.DetectContentType(out), out)
}

func (s *Server) handleQueue(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	filter := storage.QueueFilter{IncludeReviewed: c.Query("include_reviewed") == "true"}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := models.Status(strings.TrimSpace(part))
			if !st.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown status %q", part)})
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	rows, err := s.store.ListQueue(c.Request.Context(), filter)
	if err != nil {
		s.log.Error("failed to list queue", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list queue"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "count": len(rows)})
}

func (s *Server) handleGetResult(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	row, err := s.store.GetResult(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no result for content"})
		return
	}
	if err != nil {
		s.log.Error("failed to load result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load result"})
		return
	}
	c.JSON(http.StatusOK, row.Result())
}

func (s *Server) handleReview(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ReviewedBy) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reviewed_by is required"})
		return
	}

	row, err := s.store.RecordReview(c.Request.Context(), c.Param("id"), req.ReviewedBy, req.Notes, time.Now())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no result for content"})
	case errors.Is(err, models.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		s.log.Error("failed to record review", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record review"})
	default:
		s.log.Info("review recorded", zap.String("content_id", row.ContentID), zap.String("status", string(row.Status)))
		c.JSON(http.StatusOK, row.Result())
	}
}

func (s *Server) handleStats(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	counts, err := s.store.StatusCounts(c.Request.Context())
	if err != nil {
		s.log.Error("failed to count verdicts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count verdicts"})
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{"statuses": counts, "total": total})
}

func (s *Server) handleListScans(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	scans, err := s.store.GetAllScans(c.Request.Context())
	if err != nil {
		s.log.Error("failed to list scans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list scans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": scans, "count": len(scans)})
}

func (s *Server) handleGetScan(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan id"})
		return
	}
	scan, err := s.store.GetScanByID(c.Request.Context(), uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	if err != nil {
		s.log.Error("failed to load scan", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scan"})
		return
	}
	c.JSON(http.StatusOK, scan)
}

func (s *Server) handleListAllowlist(c *gin.Context) {
	if !s.requireAllowlist(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": s.allow.Values()})
}

func (s *Server) handleAllowlist(c *gin.Context) {
	if !s.requireAllowlist(c) {
		return
	}
	var req allowlistRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Value) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value cannot be empty"})
		return
	}
	if err := s.allow.Add(req.Value); err != nil {
		s.log.Error("failed to add to allowlist", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save allowlist"})
		return
	}
	s.log.Info("allowlist entry added", zap.Int("entries", s.allow.Len()))
	c.Status(http.StatusNoContent)
}

// respond persists a fresh verdict when a store is configured and writes it.
func (s *Server) respond(c *gin.Context, res *models.ModerationResult, err error) {
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if s.store != nil {
		if _, err := s.store.SaveResult(c.Request.Context(), res, storage.SaveOptions{}); err != nil {
			s.log.Error("failed to queue verdict", zap.String("content_id", res.ContentID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue verdict"})
			return
		}
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "moderation queue is not configured"})
		return false
	}
	return true
}

func (s *Server) requireAllowlist(c *gin.Context) bool {
	if s.allow == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "allowlist is not configured"})
		return false
	}
	return true
}

func (s *Server) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%s exceeds the %d byte upload limit", fh.Filename, s.cfg.MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes))
}

func contentRef(id string, typ, fallback models.ContentType) (models.ContentRef, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if typ == "" {
		typ = fallback
	}
	if !typ.Valid() {
		return models.ContentRef{}, fmt.Errorf("unknown content_type %q", typ)
	}
	return models.ContentRef{ContentID: id, ContentType: typ}, nil
}

func countRegions(detections []models.PIIDetection) int {
	n := 0
	for _, d := range detections {
		if !d.Location.IsEmpty() {
			n++
		}
	}
	return n
}
