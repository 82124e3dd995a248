package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zapticket/zapticket/internal/domain"
)

type contactRepository struct {
	db *gorm.DB
}

func (r *contactRepository) FindByID(ctx context.Context, id string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&contact).Error
	if err != nil {
		return nil, errors.Wrap(notFoundAsNil(err), "find contact")
	}
	return &contact, nil
}

func (r *contactRepository) FindByNumber(ctx context.Context, tenantID, number string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND number = ?", tenantID, number).First(&contact).Error
	if err != nil {
		return nil, errors.Wrap(notFoundAsNil(err), "find contact by number")
	}
	return &contact, nil
}

func (r *contactRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name").Find(&contacts).Error
	return contacts, errors.Wrap(err, "list contacts")
}

func (r *contactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(contact).Error, "create contact")
}

func (r *contactRepository) Save(ctx context.Context, contact *domain.Contact) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(contact).Error, "save contact")
}
