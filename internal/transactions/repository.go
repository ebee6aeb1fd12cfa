package transactions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListBySession returns a session's records, newest first.
	ListBySession(ctx context.Context, sessionID string, filter ListFilter) ([]Record, error)
	// ListPending returns pending records across sessions, oldest first.
	ListPending(ctx context.Context, limit int) ([]Record, error)
	// UpdateStatus settles rec if it is still in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from Status, update StatusUpdate) error
	DeleteBySession(ctx context.Context, sessionID string) error
}

type memoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*memoryEntry
	seq     uint64
}

type memoryEntry struct {
	record Record
	seq    uint64
}

// NewMemoryRepository keeps records for the lifetime of the process.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[uuid.UUID]*memoryEntry)}
}

func (r *memoryRepository) Create(ctx context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if _, exists := r.records[rec.ID]; exists {
		return fmt.Errorf("transaction record %s already exists", rec.ID)
	}
	r.seq++
	r.records[rec.ID] = &memoryEntry{record: *rec, seq: r.seq}
	return nil
}

func (r *memoryRepository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	rec := e.record
	return &rec, nil
}

func (r *memoryRepository) ListBySession(ctx context.Context, sessionID string, filter ListFilter) ([]Record, error) {
	r.mu.RLock()
	var entries []*memoryEntry
	for _, e := range r.records {
		if e.record.SessionID != sessionID {
			continue
		}
		if filter.Status != "" && e.record.Status != filter.Status {
			continue
		}
		if filter.Operation != "" && e.record.Operation != filter.Operation {
			continue
		}
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })
	return collect(entries, filter.Limit), nil
}

func (r *memoryRepository) ListPending(ctx context.Context, limit int) ([]Record, error) {
	r.mu.RLock()
	var entries []*memoryEntry
	for _, e := range r.records {
		if e.record.Status == StatusPending {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	return collect(entries, limit), nil
}

func collect(entries []*memoryEntry, limit int) []Record {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.record)
	}
	return out
}

func (r *memoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from Status, update StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	if e.record.Status != from {
		return ErrStaleStatus
	}
	update.apply(&e.record)
	return nil
}

func (r *memoryRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.records {
		if e.record.SessionID == sessionID {
			delete(r.records, id)
		}
	}
	return nil
}

type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository stores records in a SQL database through GORM.
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// AutoMigrate creates or updates the records table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Record{})
}

func (r *gormRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create transaction record: %w", err)
	}
	return nil
}

func (r *gormRepository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	var rec Record
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get transaction record: %w", err)
	}
	return &rec, nil
}

func (r *gormRepository) ListBySession(ctx context.Context, sessionID string, filter ListFilter) ([]Record, error) {
	query := r.db.WithContext(ctx).Model(&Record{}).
		Where("session_id = ?", sessionID).
		Order("created_at DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []Record
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list transaction records: %w", err)
	}
	return records, nil
}

func (r *gormRepository) ListPending(ctx context.Context, limit int) ([]Record, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []Record
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending records: %w", err)
	}
	return records, nil
}

func (r *gormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from Status, update StatusUpdate) error {
	updates := map[string]interface{}{
		"status":         update.Status,
		"failure_reason": update.FailureReason,
		"updated_at":     update.At,
	}
	if len(update.Effects) > 0 {
		updates["effects"] = update.Effects
	}
	if update.Checkpoint != nil {
		updates["checkpoint"] = *update.Checkpoint
	}
	if update.Status == StatusConfirmed {
		updates["confirmed_at"] = update.At
	}

	result := r.db.WithContext(ctx).Model(&Record{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrStaleStatus
	}
	return nil
}

func (r *gormRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("failed to delete session records: %w", err)
	}
	return nil
}
