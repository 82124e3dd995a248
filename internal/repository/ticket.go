package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zapticket/zapticket/internal/domain"
)

type ticketRepository struct {
	db *gorm.DB
}

func (r *ticketRepository) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		return nil, errors.Wrap(notFoundAsNil(err), "find ticket")
	}
	return &ticket, nil
}

func (r *ticketRepository) FindActiveByContact(ctx context.Context, tenantID, contactID string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND contact_id = ? AND status IN ?", tenantID, contactID, domain.ActiveTicketStatuses).
		Order("created_at DESC").
		First(&ticket).Error
	if err != nil {
		return nil, errors.Wrap(notFoundAsNil(err), "find active ticket")
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, tenantID string, filter TicketFilter) ([]domain.Ticket, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.QueueID != "" {
		query = query.Where("queue_id = ?", filter.QueueID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var tickets []domain.Ticket
	err := query.Order("updated_at DESC").Find(&tickets).Error
	return tickets, errors.Wrap(err, "list tickets")
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(ticket).Error, "create ticket")
}

func (r *ticketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(ticket).Error, "save ticket")
}

func (r *ticketRepository) CountActiveByContact(ctx context.Context, tenantID, contactID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Ticket{}).
		Where("tenant_id = ? AND contact_id = ? AND status IN ?", tenantID, contactID, domain.ActiveTicketStatuses).
		Count(&count).Error
	return count, errors.Wrap(err, "count active tickets")
}

type messageRepository struct {
	db *gorm.DB
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(msg).Error, "create message")
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("created_at").Find(&messages).Error
	return messages, errors.Wrap(err, "list messages")
}

func (r *messageRepository) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("ticket_id = ?", ticketID).Count(&count).Error
	return count, errors.Wrap(err, "count messages")
}
