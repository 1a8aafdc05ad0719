package sync

import (
	"context"
	"time"

	"clipsync-server-go/internal/platform/errors"
	"clipsync-server-go/internal/platform/logging"
)

// PublishRequest is one clipboard item arriving from a device, over either
// the WebSocket sync_clipboard action or the HTTP publish endpoint.
type PublishRequest struct {
	UserID     int64
	DeviceID   string
	DeviceName string
	Content    string
	Kind       ContentKind
	FileName   string
	FileSize   int64
	MimeType   string
}

// PublishResult is what the source device gets back.
type PublishResult struct {
	Record      *Record
	Payload     ClipboardPayload
	IsDuplicate bool
}

// Orchestrator runs the full publish pipeline: dedup, persist or refresh,
// evict, broadcast.
type Orchestrator struct {
	store        Store
	deduper      *Deduper
	evictor      *Evictor
	queue        *BroadcastQueue
	registry     *Registry
	storeTimeout time.Duration
	logger       *logging.Logger
}

// NewOrchestrator wires the publish pipeline. storeTimeout bounds every
// store call on the publish path; non-positive values fall back to 5s.
func NewOrchestrator(store Store, deduper *Deduper, evictor *Evictor, queue *BroadcastQueue,
	registry *Registry, storeTimeout time.Duration, logger *logging.Logger) *Orchestrator {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Orchestrator{
		store:        store,
		deduper:      deduper,
		evictor:      evictor,
		queue:        queue,
		registry:     registry,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Publish accepts one clipboard item. Duplicates refresh the stored record's
// timestamp and notify peers with timestamp_updated; new content is
// persisted, eviction runs best-effort, and a clipboard_sync broadcast is
// queued for the user's other devices. The returned result is what the
// source device should be acknowledged with.
func (o *Orchestrator) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	const op = "sync.publish"

	if req.Content == "" {
		return nil, errors.New(errors.KindDomain, op, "content must not be empty")
	}
	if !req.Kind.Valid() {
		return nil, errors.New(errors.KindDomain, op, "unsupported content type: "+string(req.Kind))
	}
	if req.UserID == 0 {
		return nil, errors.New(errors.KindDomain, op, "missing user")
	}

	hash := Fingerprint(req.Kind, req.Content)

	storeCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	defer cancel()

	existing, err := o.deduper.CheckAndRefresh(storeCtx, req.UserID, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		payload := PayloadFromRecord(existing, true)
		msg := NewMessage(MessageTimestampUpdated, payload)
		msg.SourceDeviceID = req.DeviceID
		o.registry.FanOut(msg, req.DeviceID, req.UserID)
		o.logger.DebugTag("Sync", "duplicate clipboard for user %d, refreshed record %d",
			req.UserID, existing.ID)
		return &PublishResult{Record: existing, Payload: payload, IsDuplicate: true}, nil
	}

	record := &Record{
		Content:     req.Content,
		ContentKind: req.Kind,
		ContentHash: hash,
		UserID:      req.UserID,
		DeviceID:    req.DeviceID,
		DeviceName:  req.DeviceName,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		MimeType:    req.MimeType,
		Synced:      true,
	}
	inserted, err := o.store.Insert(storeCtx, record)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "persist failed", err)
	}

	// Eviction never fails a publish.
	if _, err := o.evictor.Enforce(storeCtx, req.UserID); err != nil {
		o.logger.WarnTag("Sync", "eviction for user %d failed: %v", req.UserID, err)
	}

	payload := PayloadFromRecord(inserted, false)
	if err := o.queue.Enqueue(ctx, Envelope{
		Payload:        payload,
		UserID:         req.UserID,
		SourceDeviceID: req.DeviceID,
	}); err != nil {
		return nil, errors.Wrap(errors.KindPlatform, op, "broadcast enqueue failed", err)
	}

	o.logger.InfoTag("Sync", "clipboard %d (%s) from %s queued for user %d",
		inserted.ID, inserted.ContentKind, req.DeviceID, req.UserID)
	return &PublishResult{Record: inserted, Payload: payload, IsDuplicate: false}, nil
}
