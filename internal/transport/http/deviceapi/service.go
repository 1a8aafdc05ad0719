package deviceapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clipsync-server-go/internal/domain/sync"
	"clipsync-server-go/internal/platform/storage"
	httptransport "clipsync-server-go/internal/transport/http"
)

// Service exposes device presence over HTTP.
type Service struct {
	registry *sync.Registry
	devices  *storage.DeviceRepository
}

// NewService creates the device API service.
func NewService(registry *sync.Registry, devices *storage.DeviceRepository) *Service {
	return &Service{registry: registry, devices: devices}
}

// Register wires the routes onto the token-protected group.
func (s *Service) Register(secured *gin.RouterGroup) {
	group := secured.Group("/devices")
	group.GET("/online", s.handleOnline)
	group.GET("", s.handleList)
}

func (s *Service) handleOnline(c *gin.Context) {
	identity := httptransport.IdentityFrom(c)
	devices := s.registry.ListDevices(identity.UserID)
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"devices": devices,
		"count":   len(devices),
	}, "")
}

type deviceView struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	IsOnline   bool      `json:"is_online"`
	LastSeen   time.Time `json:"last_seen"`
}

func (s *Service) handleList(c *gin.Context) {
	identity := httptransport.IdentityFrom(c)
	rows, err := s.devices.ListByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	views := make([]deviceView, len(rows))
	for i, row := range rows {
		views[i] = deviceView{
			DeviceID:   row.DeviceID,
			DeviceName: row.DeviceName,
			IsOnline:   row.IsOnline,
			LastSeen:   row.LastSeen,
		}
	}
	httptransport.RespondSuccess(c, http.StatusOK, views, "")
}
