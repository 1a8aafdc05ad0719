package clipboardapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clipsync-server-go/internal/domain/sync"
	"clipsync-server-go/internal/platform/logging"
	"clipsync-server-go/internal/platform/storage"
	"clipsync-server-go/internal/platform/storage/blob"
	httptransport "clipsync-server-go/internal/transport/http"
)

// Service exposes clipboard history and publishing over HTTP, for clients
// that sync without holding a websocket open.
type Service struct {
	repo         *storage.ClipboardRepository
	orchestrator *sync.Orchestrator
	blobs        *blob.Store
	logger       *logging.Logger
}

// NewService creates the clipboard API service.
func NewService(repo *storage.ClipboardRepository, orchestrator *sync.Orchestrator,
	blobs *blob.Store, logger *logging.Logger) *Service {
	return &Service{repo: repo, orchestrator: orchestrator, blobs: blobs, logger: logger}
}

// Register wires the routes onto the token-protected group.
func (s *Service) Register(secured *gin.RouterGroup) {
	group := secured.Group("/clipboard")
	group.POST("/sync", s.handlePublish)
	group.GET("/history", s.handleList)
	group.GET("/history/:id", s.handleGet)
	group.PUT("/history/:id", s.handleUpdate)
	group.DELETE("/history/:id", s.handleDelete)
	group.POST("/history/batch-delete", s.handleBatchDelete)
	group.DELETE("/history", s.handleClear)
}

type publishRequest struct {
	Content     string `json:"content" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	DeviceID    string `json:"device_id"`
	DeviceName  string `json:"device_name"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	MimeType    string `json:"mime_type"`
}

type updateRequest struct {
	IsFavorite *bool   `json:"is_favorite"`
	Tags       *string `json:"tags"`
}

type batchDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

func (s *Service) handlePublish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "content and content_type required", nil)
		return
	}

	identity := httptransport.IdentityFrom(c)
	result, err := s.orchestrator.Publish(c.Request.Context(), sync.PublishRequest{
		UserID:     identity.UserID,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		Content:    req.Content,
		Kind:       sync.ContentKind(req.ContentType),
		FileName:   req.FileName,
		FileSize:   req.FileSize,
		MimeType:   req.MimeType,
	})
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	status := http.StatusCreated
	if result.IsDuplicate {
		status = http.StatusOK
	}
	httptransport.RespondSuccess(c, status, result.Payload, "")
}

func (s *Service) handleList(c *gin.Context) {
	identity := httptransport.IdentityFrom(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, total, err := s.repo.List(c.Request.Context(), storage.ClipboardQuery{
		UserID:      identity.UserID,
		ContentType: c.Query("content_type"),
		Search:      c.Query("search"),
		OnlyStarred: c.Query("favorites") == "true",
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}

	items := make([]sync.ClipboardPayload, len(records))
	for i, record := range records {
		items[i] = sync.PayloadFromRecord(record, false)
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}, "")
}

func (s *Service) handleGet(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid record id", nil)
		return
	}
	identity := httptransport.IdentityFrom(c)
	record, err := s.repo.GetByID(c.Request.Context(), id, identity.UserID)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, sync.PayloadFromRecord(record, false), "")
}

func (s *Service) handleUpdate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid record id", nil)
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "malformed update payload", nil)
		return
	}

	identity := httptransport.IdentityFrom(c)
	record, err := s.repo.Update(c.Request.Context(), id, identity.UserID, storage.ClipboardUpdate{
		IsFavorite: req.IsFavorite,
		Tags:       req.Tags,
	})
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, sync.PayloadFromRecord(record, false), "record updated")
}

func (s *Service) handleDelete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid record id", nil)
		return
	}
	identity := httptransport.IdentityFrom(c)
	record, err := s.repo.Delete(c.Request.Context(), id, identity.UserID)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	s.cleanupBlob(record)
	httptransport.RespondSuccess(c, http.StatusOK, nil, "record deleted")
}

func (s *Service) handleBatchDelete(c *gin.Context) {
	var req batchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "ids required", nil)
		return
	}

	identity := httptransport.IdentityFrom(c)
	var deleted int64
	for _, id := range req.IDs {
		record, err := s.repo.Delete(c.Request.Context(), id, identity.UserID)
		if err != nil {
			continue
		}
		s.cleanupBlob(record)
		deleted++
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"deleted": deleted}, "")
}

func (s *Service) handleClear(c *gin.Context) {
	identity := httptransport.IdentityFrom(c)
	records, err := s.repo.DeleteAllByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	for _, record := range records {
		s.cleanupBlob(record)
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"deleted": len(records)}, "history cleared")
}

func (s *Service) cleanupBlob(record *sync.Record) {
	if s.blobs == nil || !record.ContentKind.FileBacked() || record.Content == "" {
		return
	}
	if _, err := s.blobs.DeleteIfExists(record.Content); err != nil {
		s.logger.WarnTag("Files", "blob cleanup for record %d failed: %v", record.ID, err)
	}
}
