package whatsapp

import (
	"context"
	"database/sql"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mdp/qrterminal/v3"
	"github.com/pkg/errors"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/zapticket/zapticket/internal/domain"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// deviceDoc is the primary credential document: it pins the session to its
// paired device identity so a restart resumes without a new QR scan.
type deviceDoc struct {
	JID string `json:"jid"`
}

// MeowDialer dials real WhatsApp connections through whatsmeow, with device
// key material in the shared application database.
type MeowDialer struct {
	container *sqlstore.Container
	printQR   bool
	log       *zap.Logger
}

// NewMeowDialer prepares the device store over db and runs its schema
// upgrade. dialect is the database/sql driver name ("postgres" or "sqlite3").
func NewMeowDialer(ctx context.Context, db *sql.DB, dialect string, printQR bool, log *zap.Logger) (*MeowDialer, error) {
	container := sqlstore.NewWithDB(db, dialect, waLog.Stdout("Database", "WARN", true))
	if err := container.Upgrade(ctx); err != nil {
		return nil, errors.Wrap(err, "device store upgrade")
	}
	return &MeowDialer{container: container, printQR: printQR, log: log}, nil
}

// Dial resolves the instance's paired device (or allocates a fresh one when
// it was never paired), starts the connection and returns the running client.
func (d *MeowDialer) Dial(ctx context.Context, inst *domain.Instance, creds *CredStore) (Client, error) {
	device, err := d.resolveDevice(ctx, creds)
	if err != nil {
		return nil, err
	}

	cli := whatsmeow.NewClient(device, waLog.Stdout("Client", "WARN", true))
	cli.EnableAutoReconnect = false

	mc := &meowClient{
		cli:        cli,
		instanceID: inst.ID,
		events:     make(chan Event, 64),
		log:        d.log,
	}
	mc.handlerID = cli.AddEventHandler(mc.translate)

	if cli.Store.ID == nil {
		qrChan, err := cli.GetQRChannel(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "qr channel")
		}
		go mc.pumpQR(qrChan, d.printQR)
	}

	if err := cli.Connect(); err != nil {
		cli.RemoveEventHandler(mc.handlerID)
		return nil, errors.Wrap(err, "gateway connect")
	}
	return mc, nil
}

func (d *MeowDialer) resolveDevice(ctx context.Context, creds *CredStore) (*store.Device, error) {
	doc, ok, err := creds.LoadCreds(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load credentials")
	}
	if ok {
		var dd deviceDoc
		if err := json.Unmarshal(doc, &dd); err == nil && dd.JID != "" {
			jid, err := types.ParseJID(dd.JID)
			if err == nil {
				device, err := d.container.GetDevice(ctx, jid)
				if err != nil {
					return nil, errors.Wrap(err, "get device")
				}
				if device != nil {
					return device, nil
				}
			}
		}
		d.log.Warn("stored credential document unusable, pairing fresh",
			zap.String("namespace", "whatsapp"),
			zap.String("session_id", creds.SessionID()))
	}
	return d.container.NewDevice(), nil
}

type meowClient struct {
	cli        *whatsmeow.Client
	instanceID string
	handlerID  uint32
	log        *zap.Logger

	mu     sync.Mutex
	closed bool
	events chan Event
}

func (c *meowClient) Events() <-chan Event {
	return c.events
}

func (c *meowClient) SendText(ctx context.Context, chatJID, text string) error {
	jid, err := types.ParseJID(chatJID)
	if err != nil {
		return errors.Wrap(err, "parse chat jid")
	}
	_, err = c.cli.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	return errors.Wrap(err, "send message")
}

// Logout unpairs the device server-side, then reports the terminal close so
// the session owner runs its logged-out teardown.
func (c *meowClient) Logout(ctx context.Context) error {
	if err := c.cli.Logout(ctx); err != nil {
		return errors.Wrap(err, "gateway logout")
	}
	c.emit(ConnectionEvent{State: StateClosed, Reason: ReasonLoggedOut})
	return nil
}

func (c *meowClient) Close() {
	c.cli.RemoveEventHandler(c.handlerID)
	c.cli.Disconnect()
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	c.mu.Unlock()
}

// emit delivers an event without ever blocking the wire reader. Dropping on
// a full channel is acceptable for lifecycle events; message batches are
// small and the buffer absorbs normal bursts.
func (c *meowClient) emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.log.Warn("gateway event dropped",
			zap.String("namespace", "whatsapp"),
			zap.String("instance_id", c.instanceID))
	}
}

func (c *meowClient) pumpQR(qrChan <-chan whatsmeow.QRChannelItem, printQR bool) {
	for item := range qrChan {
		if item.Event != "code" {
			continue
		}
		if printQR {
			qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, os.Stdout)
		}
		c.emit(ConnectionEvent{State: StateConnecting, QRCode: item.Code})
	}
}

// translate maps raw wire events onto the gateway event contract.
func (c *meowClient) translate(evt interface{}) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		c.emitCredsDoc(e.ID)

	case *events.Connected:
		if c.cli.Store.ID != nil {
			c.emitCredsDoc(*c.cli.Store.ID)
		}
		c.emit(ConnectionEvent{State: StateOpen})

	case *events.Disconnected:
		c.emit(ConnectionEvent{State: StateClosed, Reason: ReasonTransient})

	case *events.ConnectFailure:
		c.emit(ConnectionEvent{State: StateClosed, Reason: ReasonTransient})

	case *events.StreamReplaced:
		c.emit(ConnectionEvent{State: StateClosed, Reason: ReasonLoggedOut})

	case *events.LoggedOut:
		if err := c.cli.Store.Delete(context.Background()); err != nil {
			c.log.Warn("device store delete failed",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", c.instanceID),
				zap.Error(err))
		}
		c.emit(ConnectionEvent{State: StateClosed, Reason: ReasonLoggedOut})

	case *events.Message:
		c.emit(MessageBatchEvent{
			Type:     BatchLive,
			Messages: []InboundMessage{translateMessage(e)},
		})

	case *events.HistorySync:
		// Backfill from device sync; never routed.
	}
}

func (c *meowClient) emitCredsDoc(jid types.JID) {
	doc, err := json.Marshal(deviceDoc{JID: jid.ToNonAD().String()})
	if err != nil {
		return
	}
	c.emit(CredsEvent{Doc: doc})
}

func translateMessage(e *events.Message) InboundMessage {
	msg := e.Message
	body := msg.GetConversation()
	if body == "" {
		body = msg.GetExtendedTextMessage().GetText()
	}
	if body == "" {
		body = msg.GetImageMessage().GetCaption()
	}
	hasMedia := msg.GetImageMessage() != nil ||
		msg.GetVideoMessage() != nil ||
		msg.GetAudioMessage() != nil ||
		msg.GetDocumentMessage() != nil ||
		msg.GetStickerMessage() != nil

	return InboundMessage{
		ID:        e.Info.ID,
		Chat:      e.Info.Chat.ToNonAD().String(),
		Sender:    e.Info.Sender.ToNonAD().String(),
		PushName:  e.Info.PushName,
		Body:      body,
		HasMedia:  hasMedia,
		FromMe:    e.Info.IsFromMe,
		Timestamp: e.Info.Timestamp,
	}
}
