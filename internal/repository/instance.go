package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zapticket/zapticket/internal/domain"
)

type instanceRepository struct {
	db *gorm.DB
}

func (r *instanceRepository) FindByID(ctx context.Context, id string) (*domain.Instance, error) {
	var inst domain.Instance
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error
	if err != nil {
		return nil, errors.Wrap(notFoundAsNil(err), "find instance")
	}
	return &inst, nil
}

func (r *instanceRepository) List(ctx context.Context) ([]domain.Instance, error) {
	var instances []domain.Instance
	err := r.db.WithContext(ctx).Order("created_at").Find(&instances).Error
	return instances, errors.Wrap(err, "list instances")
}

func (r *instanceRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Instance, error) {
	var instances []domain.Instance
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at").Find(&instances).Error
	return instances, errors.Wrap(err, "list tenant instances")
}

func (r *instanceRepository) Create(ctx context.Context, inst *domain.Instance) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(inst).Error, "create instance")
}

func (r *instanceRepository) UpdateConnection(ctx context.Context, id, status, qrcode string) error {
	err := r.db.WithContext(ctx).Model(&domain.Instance{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"qrcode":     qrcode,
		"updated_at": time.Now(),
	}).Error
	return errors.Wrap(err, "update instance connection")
}

func (r *instanceRepository) Delete(ctx context.Context, id string) error {
	return errors.Wrap(r.db.WithContext(ctx).Delete(&domain.Instance{}, "id = ?", id).Error, "delete instance")
}

type credentialRepository struct {
	db *gorm.DB
}

func (r *credentialRepository) Get(ctx context.Context, sessionID, category string, itemIDs []string) (map[string][]byte, error) {
	var records []domain.CredentialRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND category = ? AND item_id IN ?", sessionID, category, itemIDs).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "get credentials")
	}
	out := make(map[string][]byte, len(records))
	for _, rec := range records {
		out[rec.ItemID] = rec.Value
	}
	return out, nil
}

func (r *credentialRepository) Upsert(ctx context.Context, sessionID, category, itemID string, value []byte) error {
	rec := domain.CredentialRecord{
		SessionID: sessionID,
		Category:  category,
		ItemID:    itemID,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "category"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	return errors.Wrap(err, "upsert credential")
}

func (r *credentialRepository) Delete(ctx context.Context, sessionID, category, itemID string) error {
	err := r.db.WithContext(ctx).
		Delete(&domain.CredentialRecord{}, "session_id = ? AND category = ? AND item_id = ?", sessionID, category, itemID).Error
	return errors.Wrap(err, "delete credential")
}

func (r *credentialRepository) PurgeSession(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).Delete(&domain.CredentialRecord{}, "session_id = ?", sessionID).Error
	return errors.Wrap(err, "purge session credentials")
}

func (r *credentialRepository) CountSession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.CredentialRecord{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, errors.Wrap(err, "count session credentials")
}
