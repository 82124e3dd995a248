// Package whatsapp implements the gateway session layer: the per-instance
// connection lifecycle, credential persistence and the inbound message
// routing pipeline. The concrete transport is hidden behind the Client and
// Dialer contracts so the lifecycle manager and its tests never touch the
// wire protocol directly.
package whatsapp

import (
	"context"
	"time"

	"github.com/zapticket/zapticket/internal/domain"
)

// Connection states reported by a Client over its event channel.
const (
	StateConnecting = "connecting"
	StateOpen       = "open"
	StateClosed     = "closed"
)

// Close reasons. ReasonLoggedOut is terminal: credentials are invalid and the
// session must not be redialed until re-paired.
const (
	ReasonTransient = "transient"
	ReasonLoggedOut = "logged_out"
)

// Batch delivery types. Only live batches enter the routing pipeline;
// history batches are backfill from device sync and are skipped.
const (
	BatchLive    = "notify"
	BatchHistory = "append"
)

// Event is a lifecycle or message event emitted by a Client. The concrete
// types are ConnectionEvent, CredsEvent and MessageBatchEvent.
type Event interface {
	isGatewayEvent()
}

// ConnectionEvent signals a connection state change. QRCode is set while the
// session is pairing; Reason is set when State is StateClosed.
type ConnectionEvent struct {
	State  string
	QRCode string
	Reason string
}

// CredsEvent carries an updated primary credential document that must be
// persisted before the session can survive a restart.
type CredsEvent struct {
	Doc []byte
}

// InboundMessage is one received chat message, normalized for routing.
type InboundMessage struct {
	ID        string
	Chat      string
	Sender    string
	PushName  string
	Body      string
	HasMedia  bool
	FromMe    bool
	Timestamp time.Time
}

// MessageBatchEvent delivers received messages. Type distinguishes live
// traffic from history backfill.
type MessageBatchEvent struct {
	Type     string
	Messages []InboundMessage
}

func (ConnectionEvent) isGatewayEvent()   {}
func (CredsEvent) isGatewayEvent()        {}
func (MessageBatchEvent) isGatewayEvent() {}

// Client is one live gateway connection. Events returns the channel the
// lifecycle manager consumes; it is closed when the connection is torn down.
type Client interface {
	Events() <-chan Event
	SendText(ctx context.Context, chatJID, text string) error
	// Logout invalidates the credentials server-side and closes the client.
	Logout(ctx context.Context) error
	Close()
}

// Dialer establishes a connection for an instance using the credentials in
// store. Dial returns once the client is started; connection progress arrives
// over the client's event channel.
type Dialer interface {
	Dial(ctx context.Context, inst *domain.Instance, store *CredStore) (Client, error)
}

// TextSender is the outbound surface handed to the routing pipeline.
type TextSender interface {
	SendText(ctx context.Context, chatJID, text string) error
}
