package fileapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"clipsync-server-go/internal/platform/logging"
	"clipsync-server-go/internal/platform/storage/blob"
	httptransport "clipsync-server-go/internal/transport/http"
)

// maxUploadBytes caps clipboard file uploads at 100 MiB.
const maxUploadBytes = 100 << 20

// FileNameSource resolves a blob's original upload filename.
type FileNameSource interface {
	FileNameForBlob(ctx context.Context, blobID string) (string, error)
}

// Service exposes blob upload and download over HTTP.
type Service struct {
	blobs  *blob.Store
	names  FileNameSource
	logger *logging.Logger
}

// NewService creates the file API service. names may be nil; downloads then
// fall back to the blob identifier as the filename.
func NewService(blobs *blob.Store, names FileNameSource, logger *logging.Logger) *Service {
	return &Service{blobs: blobs, names: names, logger: logger}
}

// Register wires the routes onto the token-protected group. Downloads sit
// behind the same group; clients without header control pass ?token=.
func (s *Service) Register(secured *gin.RouterGroup) {
	group := secured.Group("/files")
	group.POST("/upload", s.handleUpload)
	group.GET("/download/:id", s.handleDownload)
	group.GET("/:id/info", s.handleInfo)
	group.DELETE("/:id", s.handleDelete)
}

func (s *Service) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "file field required", nil)
		return
	}
	src, err := header.Open()
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "unreadable upload", nil)
		return
	}
	defer src.Close()

	info, err := s.blobs.Save(src, header.Filename)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}

	s.logger.InfoTag("Files", "stored blob %s (%d bytes)", info.ID, info.Size)
	httptransport.RespondSuccess(c, http.StatusCreated, gin.H{
		"file_id":   info.ID,
		"file_name": header.Filename,
		"file_size": info.Size,
		"mime_type": info.MimeType,
		"file_url":  "/api/v1/files/download/" + info.ID,
	}, "uploaded")
}

func (s *Service) handleDownload(c *gin.Context) {
	path, err := s.blobs.Path(c.Param("id"))
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid file id", nil)
		return
	}
	file, info, err := s.blobs.Open(c.Param("id"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	_ = file.Close()

	filename := info.ID
	if s.names != nil {
		if name, err := s.names.FileNameForBlob(c.Request.Context(), info.ID); err == nil && name != "" {
			filename = name
		}
	}

	c.Header("Content-Type", info.MimeType)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	// ServeFile handles Range requests, so partial image fetches work.
	http.ServeFile(c.Writer, c.Request, path)
}

func (s *Service) handleInfo(c *gin.Context) {
	file, info, err := s.blobs.Open(c.Param("id"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	_ = file.Close()

	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"file_id":   info.ID,
		"file_size": info.Size,
		"mime_type": info.MimeType,
	}, "")
}

func (s *Service) handleDelete(c *gin.Context) {
	deleted, err := s.blobs.DeleteIfExists(c.Param("id"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	if !deleted {
		httptransport.RespondError(c, http.StatusNotFound, "not found", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, nil, "file deleted")
}
