package whatsapp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zapticket/zapticket/internal/domain"
	"github.com/zapticket/zapticket/internal/repository"
)

// Text used for inbound messages whose body could not be extracted.
const mediaPlaceholder = "Mídia/Outros"

// Fallback contact name when the sender pushes no profile name.
const unknownContactName = "Desconhecido"

// Reprompt line sent before the menu when a selection is out of range.
const invalidOptionPrompt = "Opção inválida."

// InboundEvent is one live message entering the routing pipeline, already
// scoped to its tenant and instance.
type InboundEvent struct {
	TenantID   string
	InstanceID string
	Message    InboundMessage
}

// Pipeline routes inbound messages: it resolves the contact, resolves or
// opens the conversation's ticket, advances the queue-selection menu and
// persists the message. Callers must serialize invocations per conversation.
type Pipeline struct {
	contacts repository.ContactRepository
	tickets  repository.TicketRepository
	messages repository.MessageRepository
	queues   repository.QueueRepository
	log      *zap.Logger
}

func NewPipeline(repos *repository.Repositories, log *zap.Logger) *Pipeline {
	return &Pipeline{
		contacts: repos.Contacts,
		tickets:  repos.Tickets,
		messages: repos.Messages,
		queues:   repos.Queues,
		log:      log,
	}
}

// Handle runs the full routing sequence for one message. Failures before a
// ticket is resolved abort; once a ticket exists, menu and send failures are
// logged and the message is still persisted.
func (p *Pipeline) Handle(ctx context.Context, ev InboundEvent, sender TextSender) error {
	contact, err := p.resolveContact(ctx, ev)
	if err != nil {
		return errors.Wrap(err, "resolve contact")
	}

	ticket, created, err := p.resolveTicket(ctx, ev, contact)
	if err != nil {
		return errors.Wrap(err, "resolve ticket")
	}

	// A freshly created ticket is pending and unassigned, so the same menu
	// step covers both: a digit on the very first message routes immediately.
	if ticket.Status == domain.TicketPending && ticket.QueueID == nil {
		if err := p.advanceMenu(ctx, ev, ticket, created, sender); err != nil {
			p.log.Error("queue selection failed",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", ev.InstanceID),
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
	}

	return errors.Wrap(p.persistMessage(ctx, ev, ticket), "persist message")
}

func (p *Pipeline) resolveContact(ctx context.Context, ev InboundEvent) (*domain.Contact, error) {
	contact, err := p.contacts.FindByNumber(ctx, ev.TenantID, ev.Message.Chat)
	if err != nil {
		return nil, err
	}
	if contact != nil {
		return contact, nil
	}
	name := ev.Message.PushName
	if name == "" {
		name = unknownContactName
	}
	contact = &domain.Contact{
		ID:       uuid.NewString(),
		TenantID: ev.TenantID,
		Number:   ev.Message.Chat,
		Name:     name,
	}
	if err := p.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}
	p.log.Info("contact created",
		zap.String("namespace", "whatsapp"),
		zap.String("tenant_id", ev.TenantID),
		zap.String("number", contact.Number))
	return contact, nil
}

func (p *Pipeline) resolveTicket(ctx context.Context, ev InboundEvent, contact *domain.Contact) (*domain.Ticket, bool, error) {
	ticket, err := p.tickets.FindActiveByContact(ctx, ev.TenantID, contact.ID)
	if err != nil {
		return nil, false, err
	}
	if ticket != nil {
		return ticket, false, nil
	}
	ticket = &domain.Ticket{
		ID:         uuid.NewString(),
		TenantID:   ev.TenantID,
		ContactID:  contact.ID,
		InstanceID: ev.InstanceID,
		Status:     domain.TicketPending,
	}
	if err := p.tickets.Create(ctx, ticket); err != nil {
		return nil, false, err
	}
	p.log.Info("ticket opened",
		zap.String("namespace", "whatsapp"),
		zap.String("ticket_id", ticket.ID),
		zap.String("contact_id", contact.ID))
	return ticket, true, nil
}

// advanceMenu interprets the message as a queue selection on a pending,
// unassigned ticket. A valid digit assigns the queue and opens the ticket.
// Anything else sends the plain welcome menu on the conversation's first
// message, or an invalid-option reprompt after that.
func (p *Pipeline) advanceMenu(ctx context.Context, ev InboundEvent, ticket *domain.Ticket, firstMessage bool, sender TextSender) error {
	queues, err := p.queues.ListByTenant(ctx, ev.TenantID)
	if err != nil {
		return err
	}
	if len(queues) == 0 {
		return nil
	}

	choice, err := strconv.Atoi(strings.TrimSpace(ev.Message.Body))
	if err != nil || choice < 1 || choice > len(queues) {
		if firstMessage {
			return p.sendMenuText(ctx, ev.Message.Chat, "", queues, sender)
		}
		return p.sendMenuText(ctx, ev.Message.Chat, invalidOptionPrompt, queues, sender)
	}

	queue := queues[choice-1]
	ticket.QueueID = &queue.ID
	ticket.Status = domain.TicketOpen
	if err := p.tickets.Save(ctx, ticket); err != nil {
		return err
	}
	p.log.Info("ticket routed",
		zap.String("namespace", "whatsapp"),
		zap.String("ticket_id", ticket.ID),
		zap.String("queue", queue.Name))

	greeting := queue.GreetingMessage
	if greeting == "" {
		greeting = fmt.Sprintf("Você foi direcionado para %s.", queue.Name)
	}
	return sender.SendText(ctx, ev.Message.Chat, fmt.Sprintf("Entendido! %s\nAguarde um momento.", greeting))
}

func (p *Pipeline) sendMenuText(ctx context.Context, chat, prefix string, queues []domain.Queue, sender TextSender) error {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString("\n")
	}
	b.WriteString("Olá! Bem-vindo ao nosso atendimento.\nEscolha uma das opções abaixo:\n")
	for i, q := range queues {
		fmt.Fprintf(&b, "\n%d - %s", i+1, q.Name)
	}
	return sender.SendText(ctx, chat, b.String())
}

func (p *Pipeline) persistMessage(ctx context.Context, ev InboundEvent, ticket *domain.Ticket) error {
	body := ev.Message.Body
	msgType := "chat"
	if body == "" {
		body = mediaPlaceholder
		msgType = "media"
	}
	msg := &domain.Message{
		ID:       uuid.NewString(),
		TicketID: ticket.ID,
		Body:     body,
		Type:     msgType,
		FromMe:   ev.Message.FromMe,
	}
	return p.messages.Create(ctx, msg)
}
