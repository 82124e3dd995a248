package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zapticket/zapticket/internal/domain"
)

type tenantRepository struct {
	db *gorm.DB
}

func (r *tenantRepository) FindByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if err != nil {
		return nil, errors.Wrap(notFoundAsNil(err), "find tenant")
	}
	return &tenant, nil
}

func (r *tenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(tenant).Error, "create tenant")
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, errors.Wrap(notFoundAsNil(err), "find user")
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, errors.Wrap(notFoundAsNil(err), "find user by email")
	}
	return &user, nil
}

func (r *userRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at").Find(&users).Error
	return users, errors.Wrap(err, "list users")
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(user).Error, "create user")
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(user).Error, "save user")
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return errors.Wrap(r.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id).Error, "delete user")
}
