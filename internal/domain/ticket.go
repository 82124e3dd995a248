package domain

import "time"

// Ticket status values. Transitions move forward only; reopening a closed
// conversation creates a new ticket instead of reverting status.
const (
	TicketPending    = "pending"
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketClosed     = "closed"
)

// ActiveTicketStatuses are the states that count against the
// at-most-one-active-ticket-per-contact invariant.
var ActiveTicketStatuses = []string{TicketPending, TicketOpen, TicketInProgress}

// Contact is a remote chat participant, created lazily on first inbound
// message. Number holds the normalized conversation identifier (JID).
type Contact struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID      string    `gorm:"index:idx_contact_tenant_number,unique;size:36" json:"tenant_id"`
	Number        string    `gorm:"index:idx_contact_tenant_number,unique;size:100" json:"number" form:"number"`
	Name          string    `json:"name" form:"name"`
	ProfilePicURL string    `json:"profile_pic_url" form:"profile_pic_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Contact) TableName() string {
	return "contacts"
}

type Ticket struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID   string    `gorm:"index;size:36" json:"tenant_id"`
	ContactID  string    `gorm:"index;size:36" json:"contact_id"`
	InstanceID string    `gorm:"index;size:36" json:"instance_id"`
	QueueID    *string   `gorm:"size:36" json:"queue_id"`
	UserID     *string   `gorm:"size:36" json:"user_id"`
	Status     string    `gorm:"index;size:20" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Ticket) TableName() string {
	return "tickets"
}

// Message is an append-only chat history row attached to a ticket.
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	TicketID  string    `gorm:"index;size:36" json:"ticket_id"`
	Body      string    `gorm:"type:text" json:"body"`
	Type      string    `gorm:"size:20" json:"type"`
	FromMe    bool      `json:"from_me"`
	Read      bool      `json:"read"`
	MediaURL  string    `json:"media_url"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (Message) TableName() string {
	return "messages"
}

// Queue is a routing destination selectable by menu digit. The digit is the
// queue's 1-based position in the tenant's queue list ordered by creation.
type Queue struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID        string    `gorm:"index;size:36" json:"tenant_id"`
	Name            string    `json:"name" form:"name"`
	Color           string    `json:"color" form:"color"`
	GreetingMessage string    `gorm:"type:text" json:"greeting_message" form:"greeting_message"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Queue) TableName() string {
	return "queues"
}
