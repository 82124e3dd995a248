package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zapticket/zapticket/internal/domain"
)

type queueRepository struct {
	db *gorm.DB
}

func (r *queueRepository) FindByID(ctx context.Context, id string) (*domain.Queue, error) {
	var queue domain.Queue
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&queue).Error
	if err != nil {
		return nil, errors.Wrap(notFoundAsNil(err), "find queue")
	}
	return &queue, nil
}

func (r *queueRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Queue, error) {
	var queues []domain.Queue
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at").Find(&queues).Error
	return queues, errors.Wrap(err, "list queues")
}

func (r *queueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(queue).Error, "create queue")
}

func (r *queueRepository) Save(ctx context.Context, queue *domain.Queue) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(queue).Error, "save queue")
}

func (r *queueRepository) Delete(ctx context.Context, id string) error {
	return errors.Wrap(r.db.WithContext(ctx).Delete(&domain.Queue{}, "id = ?", id).Error, "delete queue")
}
