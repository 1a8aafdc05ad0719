package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"clipsync-server-go/internal/domain/sync"
	"clipsync-server-go/internal/platform/errors"
)

// ClipboardQuery narrows history listings.
type ClipboardQuery struct {
	UserID      int64
	ContentType string
	Search      string
	OnlyStarred bool
	Limit       int
	Offset      int
}

// ClipboardUpdate carries the mutable fields of a history entry.
type ClipboardUpdate struct {
	IsFavorite *bool
	Tags       *string
}

// ClipboardRepository persists clipboard history in SQLite and implements
// the sync engine's store contract.
type ClipboardRepository struct {
	db *gorm.DB
}

// NewClipboardRepository creates a repository over the database handle.
func NewClipboardRepository(db *gorm.DB) *ClipboardRepository {
	return &ClipboardRepository{db: db}
}

func (r *ClipboardRepository) toModel(record *sync.Record) *ClipboardHistory {
	return &ClipboardHistory{
		ID:          record.ID,
		UserID:      record.UserID,
		Content:     record.Content,
		ContentType: string(record.ContentKind),
		ContentHash: record.ContentHash,
		DeviceID:    record.DeviceID,
		DeviceName:  record.DeviceName,
		FileName:    record.FileName,
		FileSize:    record.FileSize,
		MimeType:    record.MimeType,
		IsFavorite:  record.Favorite,
		Tags:        record.Tags,
		IsSynced:    record.Synced,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func (r *ClipboardRepository) fromModel(model *ClipboardHistory) *sync.Record {
	return &sync.Record{
		ID:          model.ID,
		UserID:      model.UserID,
		Content:     model.Content,
		ContentKind: sync.ContentKind(model.ContentType),
		ContentHash: model.ContentHash,
		DeviceID:    model.DeviceID,
		DeviceName:  model.DeviceName,
		FileName:    model.FileName,
		FileSize:    model.FileSize,
		MimeType:    model.MimeType,
		Favorite:    model.IsFavorite,
		Tags:        model.Tags,
		Synced:      model.IsSynced,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// FindLatestByFingerprint returns the newest record carrying hash for the
// user, or (nil, nil) when none exists.
func (r *ClipboardRepository) FindLatestByFingerprint(ctx context.Context, userID int64, hash string) (*sync.Record, error) {
	var model ClipboardHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND content_hash = ?", userID, hash).
		Order("created_at DESC, id DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "clipboard.find_by_fingerprint", "failed to find record", err)
	}
	return r.fromModel(&model), nil
}

// Insert stores a new record and returns it with its assigned id and
// timestamps.
func (r *ClipboardRepository) Insert(ctx context.Context, record *sync.Record) (*sync.Record, error) {
	model := r.toModel(record)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "clipboard.insert", "failed to insert record", err)
	}
	return r.fromModel(model), nil
}

// CountByUser reports the user's history size.
func (r *ClipboardRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ClipboardHistory{}).
		Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(errors.KindStorage, "clipboard.count", "failed to count records", err)
	}
	return count, nil
}

// OldestN returns the user's n oldest records by creation time.
func (r *ClipboardRepository) OldestN(ctx context.Context, userID int64, n int) ([]*sync.Record, error) {
	if n <= 0 {
		return nil, nil
	}
	var models []ClipboardHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Limit(n).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "clipboard.oldest", "failed to list oldest records", err)
	}
	records := make([]*sync.Record, len(models))
	for i := range models {
		records[i] = r.fromModel(&models[i])
	}
	return records, nil
}

// DeleteByIDs removes records by id and reports how many rows went away.
func (r *ClipboardRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&ClipboardHistory{})
	if result.Error != nil {
		return 0, errors.Wrap(errors.KindStorage, "clipboard.delete_batch", "failed to delete records", result.Error)
	}
	return result.RowsAffected, nil
}

// TouchUpdatedAt bumps a record's updated_at and returns the fresh row.
func (r *ClipboardRepository) TouchUpdatedAt(ctx context.Context, id int64) (*sync.Record, error) {
	err := r.db.WithContext(ctx).Model(&ClipboardHistory{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "clipboard.touch", "failed to refresh record", err)
	}
	return r.GetByID(ctx, id, 0)
}

// GetByID loads one record. A non-zero userID restricts the lookup to that
// owner; misses surface ErrNotFound.
func (r *ClipboardRepository) GetByID(ctx context.Context, id, userID int64) (*sync.Record, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	var model ClipboardHistory
	if err := query.First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.Wrap(errors.KindStorage, "clipboard.get", "record not found", errors.ErrNotFound)
		}
		return nil, errors.Wrap(errors.KindStorage, "clipboard.get", "failed to load record", err)
	}
	return r.fromModel(&model), nil
}

// List returns matching records newest first plus the total match count for
// pagination.
func (r *ClipboardRepository) List(ctx context.Context, q ClipboardQuery) ([]*sync.Record, int64, error) {
	base := r.db.WithContext(ctx).Model(&ClipboardHistory{}).Where("user_id = ?", q.UserID)
	if q.ContentType != "" {
		base = base.Where("content_type = ?", q.ContentType)
	}
	if q.Search != "" {
		base = base.Where("content LIKE ? OR file_name LIKE ?", "%"+q.Search+"%", "%"+q.Search+"%")
	}
	if q.OnlyStarred {
		base = base.Where("is_favorite = ?", true)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(errors.KindStorage, "clipboard.list", "failed to count records", err)
	}

	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var models []ClipboardHistory
	err := base.Order("updated_at DESC, id DESC").Limit(limit).Offset(q.Offset).Find(&models).Error
	if err != nil {
		return nil, 0, errors.Wrap(errors.KindStorage, "clipboard.list", "failed to list records", err)
	}
	records := make([]*sync.Record, len(models))
	for i := range models {
		records[i] = r.fromModel(&models[i])
	}
	return records, total, nil
}

// FileNameForBlob resolves the original upload filename for a blob from the
// newest history record referencing it. The content column holds either the
// bare blob identifier or a download path ending in it. Returns "" when no
// record references the blob.
func (r *ClipboardRepository) FileNameForBlob(ctx context.Context, blobID string) (string, error) {
	var model ClipboardHistory
	err := r.db.WithContext(ctx).
		Where("content = ? OR content LIKE ?", blobID, "%/"+blobID).
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", errors.Wrap(errors.KindStorage, "clipboard.file_name_for_blob", "failed to find record", err)
	}
	return model.FileName, nil
}

// Update applies the mutable fields to a record owned by userID.
func (r *ClipboardRepository) Update(ctx context.Context, id, userID int64, update ClipboardUpdate) (*sync.Record, error) {
	fields := map[string]interface{}{}
	if update.IsFavorite != nil {
		fields["is_favorite"] = *update.IsFavorite
	}
	if update.Tags != nil {
		fields["tags"] = *update.Tags
	}
	if len(fields) > 0 {
		result := r.db.WithContext(ctx).Model(&ClipboardHistory{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(fields)
		if result.Error != nil {
			return nil, errors.Wrap(errors.KindStorage, "clipboard.update", "failed to update record", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, errors.Wrap(errors.KindStorage, "clipboard.update", "record not found", errors.ErrNotFound)
		}
	}
	return r.GetByID(ctx, id, userID)
}

// Delete removes one record owned by userID and returns it so callers can
// clean up referenced blobs.
func (r *ClipboardRepository) Delete(ctx context.Context, id, userID int64) (*sync.Record, error) {
	record, err := r.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&ClipboardHistory{}, record.ID).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "clipboard.delete", "failed to delete record", err)
	}
	return record, nil
}

// DeleteAllByUser wipes the user's history and returns the removed records.
func (r *ClipboardRepository) DeleteAllByUser(ctx context.Context, userID int64) ([]*sync.Record, error) {
	var models []ClipboardHistory
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "clipboard.delete_all", "failed to load records", err)
	}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&ClipboardHistory{}).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "clipboard.delete_all", "failed to delete records", err)
	}
	records := make([]*sync.Record, len(models))
	for i := range models {
		records[i] = r.fromModel(&models[i])
	}
	return records, nil
}
