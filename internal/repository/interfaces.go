// Package repository provides the narrow persistence contracts consumed by
// the routing pipeline and the connection lifecycle manager. Find methods
// return (nil, nil) when no row matches; every error is a storage failure.
package repository

import (
	"context"

	"github.com/zapticket/zapticket/internal/domain"
)

type TenantRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Tenant, error)
	Create(ctx context.Context, tenant *domain.Tenant) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Save(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}

type InstanceRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Instance, error)
	List(ctx context.Context) ([]domain.Instance, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Instance, error)
	Create(ctx context.Context, inst *domain.Instance) error
	// UpdateConnection persists status and qr payload in one write.
	UpdateConnection(ctx context.Context, id, status, qrcode string) error
	Delete(ctx context.Context, id string) error
}

type CredentialRepository interface {
	Get(ctx context.Context, sessionID, category string, itemIDs []string) (map[string][]byte, error)
	Upsert(ctx context.Context, sessionID, category, itemID string, value []byte) error
	Delete(ctx context.Context, sessionID, category, itemID string) error
	PurgeSession(ctx context.Context, sessionID string) error
	CountSession(ctx context.Context, sessionID string) (int64, error)
}

type ContactRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Contact, error)
	FindByNumber(ctx context.Context, tenantID, number string) (*domain.Contact, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Contact, error)
	Create(ctx context.Context, contact *domain.Contact) error
	Save(ctx context.Context, contact *domain.Contact) error
}

type TicketRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Ticket, error)
	// FindActiveByContact returns the most recent ticket for the contact whose
	// status is pending, open or in_progress.
	FindActiveByContact(ctx context.Context, tenantID, contactID string) (*domain.Ticket, error)
	List(ctx context.Context, tenantID string, filter TicketFilter) ([]domain.Ticket, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	Save(ctx context.Context, ticket *domain.Ticket) error
	CountActiveByContact(ctx context.Context, tenantID, contactID string) (int64, error)
}

// TicketFilter narrows ticket listings. Zero values mean "no filter".
type TicketFilter struct {
	Status  string
	QueueID string
	UserID  string
	Limit   int
	Offset  int
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
	CountByTicket(ctx context.Context, ticketID string) (int64, error)
}

type QueueRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Queue, error)
	// ListByTenant returns the tenant's queues in creation order; the slice
	// index + 1 is the queue's menu digit.
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Queue, error)
	Create(ctx context.Context, queue *domain.Queue) error
	Save(ctx context.Context, queue *domain.Queue) error
	Delete(ctx context.Context, id string) error
}
