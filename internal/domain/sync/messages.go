package sync

import "time"

// Server-pushed message types. Names are part of the wire protocol shared
// with desktop clients; do not rename.
const (
	MessageConnected        = "connected"
	MessageClipboardSync    = "clipboard_sync"
	MessageTimestampUpdated = "timestamp_updated"
	MessageSyncConfirmed    = "sync_confirmed"
	MessageDeviceOnline     = "device_online"
	MessageDeviceOffline    = "device_offline"
	MessageOnlineDevices    = "online_devices"
	MessagePong             = "pong"
	MessageError            = "error"
)

// Message is the envelope every server push uses.
type Message struct {
	Type           string      `json:"type"`
	Data           interface{} `json:"data"`
	SourceDeviceID string      `json:"source_device_id,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

// NewMessage stamps a push message with the current time.
func NewMessage(msgType string, data interface{}) Message {
	return Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// ClipboardPayload is the clipboard data carried by clipboard_sync,
// timestamp_updated and sync_confirmed messages, and mirrored in HTTP
// publish responses.
type ClipboardPayload struct {
	ClipboardID int64  `json:"clipboard_id"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	DeviceID    string `json:"device_id,omitempty"`
	DeviceName  string `json:"device_name,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	FileURL     string `json:"file_url,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	IsDuplicate bool   `json:"is_duplicate"`
}

// fileDownloadPrefix matches the HTTP file API route.
const fileDownloadPrefix = "/api/v1/files/download/"

// PayloadFromRecord flattens a record into its wire representation. File
// backed records gain a download URL.
func PayloadFromRecord(record *Record, isDuplicate bool) ClipboardPayload {
	payload := ClipboardPayload{
		ClipboardID: record.ID,
		Content:     record.Content,
		ContentType: string(record.ContentKind),
		DeviceID:    record.DeviceID,
		DeviceName:  record.DeviceName,
		FileName:    record.FileName,
		FileSize:    record.FileSize,
		MimeType:    record.MimeType,
		IsDuplicate: isDuplicate,
	}
	if !record.CreatedAt.IsZero() {
		payload.CreatedAt = record.CreatedAt.Format(time.RFC3339)
	}
	if !record.UpdatedAt.IsZero() {
		payload.UpdatedAt = record.UpdatedAt.Format(time.RFC3339)
	}
	if record.ContentKind.FileBacked() && record.Content != "" {
		payload.FileURL = fileDownloadPrefix + record.Content
	}
	return payload
}
