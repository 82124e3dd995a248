package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repositories bundles every gorm-backed repository over one database handle.
type Repositories struct {
	db *gorm.DB

	Tenants     TenantRepository
	Users       UserRepository
	Instances   InstanceRepository
	Credentials CredentialRepository
	Contacts    ContactRepository
	Tickets     TicketRepository
	Messages    MessageRepository
	Queues      QueueRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		db:          db,
		Tenants:     &tenantRepository{db: db},
		Users:       &userRepository{db: db},
		Instances:   &instanceRepository{db: db},
		Credentials: &credentialRepository{db: db},
		Contacts:    &contactRepository{db: db},
		Tickets:     &ticketRepository{db: db},
		Messages:    &messageRepository{db: db},
		Queues:      &queueRepository{db: db},
	}
}

// Transaction runs fn inside one database transaction with transactional
// repositories. Used only by account creation.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// notFoundAsNil maps gorm's record-not-found to the (nil, nil) contract.
func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
