package whatsapp

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zapticket/zapticket/internal/domain"
	"github.com/zapticket/zapticket/internal/repository"
)

// Reconnect backoff bounds for transient connection drops.
const (
	reconnectBase = 2 * time.Second
	reconnectMax  = 60 * time.Second
)

// Timeout applied to each routed message once it has been dequeued. Routing
// runs detached from the session context so a stop does not abort work
// already in flight.
const routeTimeout = 30 * time.Second

// Notifier receives instance lifecycle notifications for fan-out to
// connected operators.
type Notifier interface {
	PublishStatus(instanceID, status string)
	PublishQR(instanceID, qr string)
}

type session struct {
	instance *domain.Instance
	cancel   context.CancelFunc
	done     chan struct{}

	mu     sync.Mutex
	client Client
}

func (s *session) setClient(c Client) {
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
}

func (s *session) currentClient() Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Service is the session registry. It owns every live gateway connection,
// keyed by instance id, and drives the connect / pair / reconnect / logout
// lifecycle for each one.
type Service struct {
	dialer   Dialer
	repos    *repository.Repositories
	pipeline *Pipeline
	gate     *Gate
	notifier Notifier
	pool     *ants.Pool
	log      *zap.Logger

	backoffBase time.Duration
	backoffMax  time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func NewService(dialer Dialer, repos *repository.Repositories, pipeline *Pipeline,
	gate *Gate, notifier Notifier, pool *ants.Pool, log *zap.Logger) *Service {
	return &Service{
		dialer:   dialer,
		repos:    repos,
		pipeline: pipeline,
		gate:     gate,
		notifier: notifier,
		pool:     pool,
		log:      log,

		backoffBase: reconnectBase,
		backoffMax:  reconnectMax,

		sessions: make(map[string]*session),
	}
}

// Gate exposes the conversation gate for scheduled sweeps.
func (s *Service) Gate() *Gate {
	return s.gate
}

// Start brings the instance's session up. Starting an already running
// instance is a no-op.
func (s *Service) Start(ctx context.Context, instanceID string) error {
	inst, err := s.repos.Instances.FindByID(ctx, instanceID)
	if err != nil {
		return err
	}
	if inst == nil {
		return errors.Errorf("instance %s not found", instanceID)
	}

	s.mu.Lock()
	if _, running := s.sessions[instanceID]; running {
		s.mu.Unlock()
		s.log.Warn("instance already started",
			zap.String("namespace", "whatsapp"),
			zap.String("instance_id", instanceID))
		return nil
	}
	sctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		instance: inst,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.sessions[instanceID] = sess
	s.mu.Unlock()

	go s.runSession(sctx, sess)
	return nil
}

// Stop tears the instance's session down and marks it disconnected. Stopping
// an instance that is not running is a no-op.
func (s *Service) Stop(ctx context.Context, instanceID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[instanceID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	sess.cancel()
	<-sess.done

	if err := s.repos.Instances.UpdateConnection(ctx, instanceID, domain.InstanceDisconnected, ""); err != nil {
		return err
	}
	s.notifier.PublishStatus(instanceID, domain.InstanceDisconnected)
	return nil
}

// Restart stops and starts the instance's session.
func (s *Service) Restart(ctx context.Context, instanceID string) error {
	if err := s.Stop(ctx, instanceID); err != nil {
		return err
	}
	return s.Start(ctx, instanceID)
}

// Logout invalidates the instance's pairing. A running session is logged out
// through its client, which triggers the terminal teardown; otherwise the
// stored credentials are purged directly.
func (s *Service) Logout(ctx context.Context, instanceID string) error {
	s.mu.Lock()
	sess, running := s.sessions[instanceID]
	s.mu.Unlock()

	if running {
		if client := sess.currentClient(); client != nil {
			if err := client.Logout(ctx); err != nil {
				return errors.Wrap(err, "gateway logout")
			}
			<-sess.done
			return nil
		}
		// Still dialing; tear down and fall through to the purge.
		sess.cancel()
		<-sess.done
	}

	if err := NewCredStore(s.repos.Credentials, instanceID).Purge(ctx); err != nil {
		return err
	}
	if err := s.repos.Instances.UpdateConnection(ctx, instanceID, domain.InstanceDisconnected, ""); err != nil {
		return err
	}
	s.notifier.PublishStatus(instanceID, domain.InstanceDisconnected)
	return nil
}

// StartAll restores every persisted instance. One instance failing to start
// never blocks the others.
func (s *Service) StartAll(ctx context.Context) {
	instances, err := s.repos.Instances.List(ctx)
	if err != nil {
		s.log.Error("list instances for restore failed",
			zap.String("namespace", "whatsapp"), zap.Error(err))
		return
	}
	for _, inst := range instances {
		if err := s.Start(ctx, inst.ID); err != nil {
			s.log.Error("instance restore failed",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", inst.ID),
				zap.Error(err))
		}
	}
	s.log.Info("instance restore finished",
		zap.String("namespace", "whatsapp"),
		zap.Int("count", len(instances)))
}

// Shutdown stops every running session.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		if err := s.Stop(ctx, id); err != nil {
			s.log.Error("session stop failed",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", id),
				zap.Error(err))
		}
	}
}

// IsRunning reports whether the instance has a live session.
func (s *Service) IsRunning(instanceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[instanceID]
	return ok
}

// SendText sends an outbound text through the instance's live connection.
func (s *Service) SendText(ctx context.Context, instanceID, chatJID, text string) error {
	s.mu.Lock()
	sess, ok := s.sessions[instanceID]
	s.mu.Unlock()
	if !ok {
		return errors.Errorf("instance %s is not running", instanceID)
	}
	client := sess.currentClient()
	if client == nil {
		return errors.Errorf("instance %s is not connected", instanceID)
	}
	return client.SendText(ctx, chatJID, text)
}

// runSession is the per-instance connection loop: dial, consume events until
// the connection drops, then either back off and redial or exit on a
// terminal condition. The session deregisters itself on exit.
func (s *Service) runSession(ctx context.Context, sess *session) {
	instanceID := sess.instance.ID
	defer func() {
		s.mu.Lock()
		delete(s.sessions, instanceID)
		s.mu.Unlock()
		close(sess.done)
	}()

	store := NewCredStore(s.repos.Credentials, instanceID)
	backoff := s.backoffBase

	for {
		client, err := s.dialer.Dial(ctx, sess.instance, store)
		if err != nil {
			s.log.Error("gateway dial failed",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", instanceID),
				zap.Error(err))
		} else {
			sess.setClient(client)
			terminal := s.consume(ctx, sess, store, client)
			sess.setClient(nil)
			client.Close()
			if terminal {
				return
			}
			backoff = s.backoffBase
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		s.log.Info("reconnecting instance",
			zap.String("namespace", "whatsapp"),
			zap.String("instance_id", instanceID),
			zap.Duration("backoff", backoff))
		backoff *= 2
		if backoff > s.backoffMax {
			backoff = s.backoffMax
		}
	}
}

// consume drains one connection's event channel. It returns true when the
// session must not be redialed: the context was cancelled or the gateway
// logged the device out.
func (s *Service) consume(ctx context.Context, sess *session, store *CredStore, client Client) bool {
	instanceID := sess.instance.ID
	for {
		select {
		case <-ctx.Done():
			return true
		case ev, open := <-client.Events():
			if !open {
				return false
			}
			switch e := ev.(type) {
			case ConnectionEvent:
				if terminal, done := s.handleConnection(ctx, instanceID, store, e); done {
					return terminal
				}
			case CredsEvent:
				if err := store.SaveCreds(ctx, e.Doc); err != nil {
					s.log.Error("credential save failed",
						zap.String("namespace", "whatsapp"),
						zap.String("instance_id", instanceID),
						zap.Error(err))
				}
			case MessageBatchEvent:
				s.dispatchBatch(sess, client, e)
			}
		}
	}
}

// handleConnection applies one connection state change. done reports that the
// connection is finished; terminal that the whole session is.
func (s *Service) handleConnection(ctx context.Context, instanceID string, store *CredStore, e ConnectionEvent) (terminal, done bool) {
	switch e.State {
	case StateOpen:
		if err := s.repos.Instances.UpdateConnection(ctx, instanceID, domain.InstanceConnected, ""); err != nil {
			s.log.Error("status update failed",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", instanceID),
				zap.Error(err))
		}
		s.notifier.PublishStatus(instanceID, domain.InstanceConnected)
		s.log.Info("instance connected",
			zap.String("namespace", "whatsapp"),
			zap.String("instance_id", instanceID))
		return false, false

	case StateConnecting:
		if e.QRCode == "" {
			return false, false
		}
		if err := s.repos.Instances.UpdateConnection(ctx, instanceID, domain.InstanceQRCode, e.QRCode); err != nil {
			s.log.Error("qr update failed",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", instanceID),
				zap.Error(err))
		}
		s.notifier.PublishQR(instanceID, e.QRCode)
		s.notifier.PublishStatus(instanceID, domain.InstanceQRCode)
		return false, false

	case StateClosed:
		if e.Reason != ReasonLoggedOut {
			s.log.Warn("connection dropped",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", instanceID))
			return false, true
		}
		// Device unpaired: wipe credentials so the next start pairs fresh.
		if err := store.Purge(ctx); err != nil {
			s.log.Error("credential purge failed",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", instanceID),
				zap.Error(err))
		}
		if err := s.repos.Instances.UpdateConnection(ctx, instanceID, domain.InstanceDisconnected, ""); err != nil {
			s.log.Error("status update failed",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", instanceID),
				zap.Error(err))
		}
		s.notifier.PublishStatus(instanceID, domain.InstanceDisconnected)
		s.log.Warn("instance logged out",
			zap.String("namespace", "whatsapp"),
			zap.String("instance_id", instanceID))
		return true, true
	}
	return false, false
}

// dispatchBatch hands live inbound messages to the routing pipeline through
// the worker pool. Work for the same conversation is serialized by the gate;
// own echoes and history backfill are skipped.
func (s *Service) dispatchBatch(sess *session, client Client, batch MessageBatchEvent) {
	if batch.Type != BatchLive {
		return
	}
	for _, msg := range batch.Messages {
		if msg.FromMe {
			continue
		}
		ev := InboundEvent{
			TenantID:   sess.instance.TenantID,
			InstanceID: sess.instance.ID,
			Message:    msg,
		}
		// Keyed by tenant and chat: the single-active-ticket rule is per
		// (tenant, contact), so the same contact reaching the tenant through
		// two instances must still be serialized.
		key := ev.TenantID + "|" + msg.Chat
		if err := s.pool.Submit(func() {
			s.gate.RunExclusive(key, func() {
				rctx, cancel := context.WithTimeout(context.Background(), routeTimeout)
				defer cancel()
				if err := s.pipeline.Handle(rctx, ev, client); err != nil {
					s.log.Error("message routing failed",
						zap.String("namespace", "whatsapp"),
						zap.String("instance_id", ev.InstanceID),
						zap.String("chat", ev.Message.Chat),
						zap.Error(err))
				}
			})
		}); err != nil {
			s.log.Error("routing dispatch rejected",
				zap.String("namespace", "whatsapp"),
				zap.String("instance_id", ev.InstanceID),
				zap.Error(err))
		}
	}
}
