package whatsapp

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zapticket/zapticket/internal/domain"
	"github.com/zapticket/zapticket/internal/repository"
)

func newTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and avoids
	// sqlite write contention in concurrent tests.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return repository.New(db)
}

func seedTenant(t *testing.T, repos *repository.Repositories, queues ...string) *domain.Tenant {
	t.Helper()
	ctx := context.Background()
	tenant := &domain.Tenant{
		ID:             uuid.NewString(),
		Name:           "Empresa Teste",
		DocumentNumber: uuid.NewString(),
		Status:         domain.TenantActive,
	}
	require.NoError(t, repos.Tenants.Create(ctx, tenant))
	for _, name := range queues {
		require.NoError(t, repos.Queues.Create(ctx, &domain.Queue{
			ID:              uuid.NewString(),
			TenantID:        tenant.ID,
			Name:            name,
			GreetingMessage: "Atendimento " + name + ".",
		}))
	}
	return tenant
}

func seedInstance(t *testing.T, repos *repository.Repositories, tenantID string) *domain.Instance {
	t.Helper()
	inst := &domain.Instance{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Name:     "Principal",
		Status:   domain.InstanceDisconnected,
	}
	require.NoError(t, repos.Instances.Create(context.Background(), inst))
	return inst
}

type sentText struct {
	chat string
	text string
}

// recordingSender captures outbound sends for assertions.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentText
}

func (r *recordingSender) SendText(_ context.Context, chatJID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentText{chat: chatJID, text: text})
	return nil
}

func (r *recordingSender) all() []sentText {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentText, len(r.sent))
	copy(out, r.sent)
	return out
}

// recordingNotifier captures lifecycle fan-out.
type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
	qrs      []string
}

func (r *recordingNotifier) PublishStatus(_, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recordingNotifier) PublishQR(_, qr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.qrs = append(r.qrs, qr)
}

func (r *recordingNotifier) lastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *recordingNotifier) qrCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.qrs)
}

// scriptedClient is a Client fed by the test through push.
type scriptedClient struct {
	recordingSender
	events    chan Event
	closeOnce sync.Once
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{events: make(chan Event, 16)}
}

func (c *scriptedClient) Events() <-chan Event {
	return c.events
}

func (c *scriptedClient) push(ev Event) {
	c.events <- ev
}

func (c *scriptedClient) Logout(context.Context) error {
	c.push(ConnectionEvent{State: StateClosed, Reason: ReasonLoggedOut})
	return nil
}

func (c *scriptedClient) Close() {
	c.closeOnce.Do(func() { close(c.events) })
}

// scriptedDialer hands out clients in order and fails once the script runs
// out.
type scriptedDialer struct {
	mu      sync.Mutex
	clients []*scriptedClient
	calls   int
	failFor map[string]bool
}

func (d *scriptedDialer) Dial(_ context.Context, inst *domain.Instance, _ *CredStore) (Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.failFor[inst.ID] {
		return nil, fmt.Errorf("dial refused for %s", inst.ID)
	}
	if len(d.clients) == 0 {
		return nil, fmt.Errorf("no client scripted")
	}
	c := d.clients[0]
	d.clients = d.clients[1:]
	return c, nil
}

func (d *scriptedDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
