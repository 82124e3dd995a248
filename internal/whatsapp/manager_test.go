package whatsapp

import (
	"context"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapticket/zapticket/internal/domain"
	"github.com/zapticket/zapticket/internal/repository"
)

func newTestService(t *testing.T, repos *repository.Repositories, dialer Dialer) (*Service, *recordingNotifier) {
	t.Helper()
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	notifier := &recordingNotifier{}
	svc := NewService(dialer, repos, NewPipeline(repos, testLogger()), NewGate(time.Hour), notifier, pool, testLogger())
	svc.backoffBase = 2 * time.Millisecond
	svc.backoffMax = 10 * time.Millisecond
	t.Cleanup(func() {
		svc.Shutdown(context.Background())
	})
	return svc, notifier
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestStartConnectsAndPublishesStatus(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos)
	inst := seedInstance(t, repos, tenant.ID)

	client := newScriptedClient()
	dialer := &scriptedDialer{clients: []*scriptedClient{client}}
	svc, notifier := newTestService(t, repos, dialer)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, inst.ID))
	client.push(ConnectionEvent{State: StateOpen})

	waitFor(t, func() bool {
		row, err := repos.Instances.FindByID(ctx, inst.ID)
		return err == nil && row != nil && row.Status == domain.InstanceConnected
	}, "instance never reached connected")
	assert.Equal(t, domain.InstanceConnected, notifier.lastStatus())

	require.NoError(t, svc.Stop(ctx, inst.ID))
	assert.False(t, svc.IsRunning(inst.ID))

	row, err := repos.Instances.FindByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceDisconnected, row.Status)
}

func TestPairingCodePersistedAndPublished(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos)
	inst := seedInstance(t, repos, tenant.ID)

	client := newScriptedClient()
	dialer := &scriptedDialer{clients: []*scriptedClient{client}}
	svc, notifier := newTestService(t, repos, dialer)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, inst.ID))
	client.push(ConnectionEvent{State: StateConnecting, QRCode: "qr-payload-1"})

	waitFor(t, func() bool {
		row, err := repos.Instances.FindByID(ctx, inst.ID)
		return err == nil && row != nil && row.Status == domain.InstanceQRCode && row.QRCode == "qr-payload-1"
	}, "pairing code never persisted")
	assert.GreaterOrEqual(t, notifier.qrCount(), 1)

	// Scan completes: code cleared, status connected.
	client.push(ConnectionEvent{State: StateOpen})
	waitFor(t, func() bool {
		row, err := repos.Instances.FindByID(ctx, inst.ID)
		return err == nil && row != nil && row.Status == domain.InstanceConnected && row.QRCode == ""
	}, "pairing code never cleared after connect")
}

func TestTransientDropRedials(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos)
	inst := seedInstance(t, repos, tenant.ID)

	first := newScriptedClient()
	second := newScriptedClient()
	dialer := &scriptedDialer{clients: []*scriptedClient{first, second}}
	svc, _ := newTestService(t, repos, dialer)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, inst.ID))
	first.push(ConnectionEvent{State: StateOpen})
	first.push(ConnectionEvent{State: StateClosed, Reason: ReasonTransient})

	waitFor(t, func() bool { return dialer.dialCount() == 2 }, "session never redialed")
	second.push(ConnectionEvent{State: StateOpen})

	waitFor(t, func() bool {
		row, err := repos.Instances.FindByID(ctx, inst.ID)
		return err == nil && row != nil && row.Status == domain.InstanceConnected
	}, "session never recovered")
	assert.True(t, svc.IsRunning(inst.ID))
}

func TestLoggedOutIsTerminal(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos)
	inst := seedInstance(t, repos, tenant.ID)
	ctx := context.Background()

	store := NewCredStore(repos.Credentials, inst.ID)
	require.NoError(t, store.SaveCreds(ctx, []byte("doc")))
	require.NoError(t, store.Set(ctx, map[string]map[string][]byte{
		"pre-key": {"1": []byte("k1")},
	}))

	client := newScriptedClient()
	dialer := &scriptedDialer{clients: []*scriptedClient{client}}
	svc, notifier := newTestService(t, repos, dialer)

	require.NoError(t, svc.Start(ctx, inst.ID))
	client.push(ConnectionEvent{State: StateOpen})
	client.push(ConnectionEvent{State: StateClosed, Reason: ReasonLoggedOut})

	waitFor(t, func() bool { return !svc.IsRunning(inst.ID) }, "session never terminated")

	count, err := repos.Credentials.CountSession(ctx, inst.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "credentials must be wiped on logout")

	row, err := repos.Instances.FindByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceDisconnected, row.Status)
	assert.Empty(t, row.QRCode)
	assert.Equal(t, domain.InstanceDisconnected, notifier.lastStatus())

	// No reconnect after a terminal close.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, dialer.dialCount())
}

func TestLogoutWhileRunning(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos)
	inst := seedInstance(t, repos, tenant.ID)
	ctx := context.Background()

	require.NoError(t, NewCredStore(repos.Credentials, inst.ID).SaveCreds(ctx, []byte("doc")))

	client := newScriptedClient()
	dialer := &scriptedDialer{clients: []*scriptedClient{client}}
	svc, _ := newTestService(t, repos, dialer)

	require.NoError(t, svc.Start(ctx, inst.ID))
	client.push(ConnectionEvent{State: StateOpen})
	waitFor(t, func() bool {
		row, err := repos.Instances.FindByID(ctx, inst.ID)
		return err == nil && row != nil && row.Status == domain.InstanceConnected
	}, "instance never connected")

	require.NoError(t, svc.Logout(ctx, inst.ID))
	assert.False(t, svc.IsRunning(inst.ID))

	count, err := repos.Credentials.CountSession(ctx, inst.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLogoutWhileStopped(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos)
	inst := seedInstance(t, repos, tenant.ID)
	ctx := context.Background()

	require.NoError(t, NewCredStore(repos.Credentials, inst.ID).SaveCreds(ctx, []byte("doc")))

	svc, notifier := newTestService(t, repos, &scriptedDialer{})
	require.NoError(t, svc.Logout(ctx, inst.ID))

	count, err := repos.Credentials.CountSession(ctx, inst.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, domain.InstanceDisconnected, notifier.lastStatus())
}

func TestStartIsIdempotent(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos)
	inst := seedInstance(t, repos, tenant.ID)

	client := newScriptedClient()
	dialer := &scriptedDialer{clients: []*scriptedClient{client}}
	svc, _ := newTestService(t, repos, dialer)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, inst.ID))
	require.NoError(t, svc.Start(ctx, inst.ID))
	client.push(ConnectionEvent{State: StateOpen})

	waitFor(t, func() bool { return dialer.dialCount() >= 1 }, "never dialed")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, dialer.dialCount(), "duplicate start must not dial twice")
}

func TestStartUnknownInstance(t *testing.T) {
	repos := newTestRepos(t)
	svc, _ := newTestService(t, repos, &scriptedDialer{})
	assert.Error(t, svc.Start(context.Background(), "missing"))
}

func TestStopUnknownInstanceIsNoop(t *testing.T) {
	repos := newTestRepos(t)
	svc, _ := newTestService(t, repos, &scriptedDialer{})
	assert.NoError(t, svc.Stop(context.Background(), "missing"))
}

func TestCredsEventPersisted(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos)
	inst := seedInstance(t, repos, tenant.ID)

	client := newScriptedClient()
	dialer := &scriptedDialer{clients: []*scriptedClient{client}}
	svc, _ := newTestService(t, repos, dialer)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, inst.ID))
	client.push(CredsEvent{Doc: []byte(`{"jid":"5511999999999@s.whatsapp.net"}`)})

	store := NewCredStore(repos.Credentials, inst.ID)
	waitFor(t, func() bool {
		_, ok, err := store.LoadCreds(ctx)
		return err == nil && ok
	}, "credential document never saved")
}

func TestInboundMessageRouted(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "Comercial", "Suporte")
	inst := seedInstance(t, repos, tenant.ID)

	client := newScriptedClient()
	dialer := &scriptedDialer{clients: []*scriptedClient{client}}
	svc, _ := newTestService(t, repos, dialer)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, inst.ID))
	client.push(ConnectionEvent{State: StateOpen})

	chat := "5511988887777@s.whatsapp.net"
	client.push(MessageBatchEvent{Type: BatchLive, Messages: []InboundMessage{
		{ID: "m1", Chat: chat, Sender: chat, PushName: "João", Body: "oi", Timestamp: time.Now()},
	}})

	waitFor(t, func() bool {
		contact, err := repos.Contacts.FindByNumber(ctx, tenant.ID, chat)
		if err != nil || contact == nil {
			return false
		}
		ticket, err := repos.Tickets.FindActiveByContact(ctx, tenant.ID, contact.ID)
		return err == nil && ticket != nil
	}, "inbound message never routed")

	// The menu goes out through the live client.
	waitFor(t, func() bool { return len(client.all()) == 1 }, "menu never sent")
	assert.Contains(t, client.all()[0].text, "1 - Comercial")
}

func TestEchoAndHistoryBatchesSkipped(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "Comercial")
	inst := seedInstance(t, repos, tenant.ID)

	client := newScriptedClient()
	dialer := &scriptedDialer{clients: []*scriptedClient{client}}
	svc, _ := newTestService(t, repos, dialer)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, inst.ID))
	client.push(ConnectionEvent{State: StateOpen})

	chat := "5511988887777@s.whatsapp.net"
	client.push(MessageBatchEvent{Type: BatchHistory, Messages: []InboundMessage{
		{ID: "h1", Chat: chat, Body: "histórico"},
	}})
	client.push(MessageBatchEvent{Type: BatchLive, Messages: []InboundMessage{
		{ID: "e1", Chat: chat, Body: "eco", FromMe: true},
	}})

	time.Sleep(50 * time.Millisecond)
	contact, err := repos.Contacts.FindByNumber(ctx, tenant.ID, chat)
	require.NoError(t, err)
	assert.Nil(t, contact, "skipped batches must not create contacts")
}

func TestSameContactAcrossInstancesSingleTicket(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "Comercial", "Suporte")
	instA := seedInstance(t, repos, tenant.ID)
	instB := seedInstance(t, repos, tenant.ID)

	clientA := newScriptedClient()
	clientB := newScriptedClient()
	dialer := &scriptedDialer{clients: []*scriptedClient{clientA, clientB}}
	svc, _ := newTestService(t, repos, dialer)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx, instA.ID))
	waitFor(t, func() bool { return dialer.dialCount() == 1 }, "first instance never dialed")
	require.NoError(t, svc.Start(ctx, instB.ID))
	clientA.push(ConnectionEvent{State: StateOpen})
	clientB.push(ConnectionEvent{State: StateOpen})

	// The same contact reaches the tenant through both instances at once.
	chat := "5511988887777@s.whatsapp.net"
	clientA.push(MessageBatchEvent{Type: BatchLive, Messages: []InboundMessage{
		{ID: "a1", Chat: chat, Sender: chat, PushName: "João", Body: "oi", Timestamp: time.Now()},
	}})
	clientB.push(MessageBatchEvent{Type: BatchLive, Messages: []InboundMessage{
		{ID: "b1", Chat: chat, Sender: chat, PushName: "João", Body: "olá", Timestamp: time.Now()},
	}})

	waitFor(t, func() bool {
		contact, err := repos.Contacts.FindByNumber(ctx, tenant.ID, chat)
		if err != nil || contact == nil {
			return false
		}
		ticket, err := repos.Tickets.FindActiveByContact(ctx, tenant.ID, contact.ID)
		if err != nil || ticket == nil {
			return false
		}
		n, err := repos.Messages.CountByTicket(ctx, ticket.ID)
		return err == nil && n == 2
	}, "both messages never landed on one ticket")

	contact, err := repos.Contacts.FindByNumber(ctx, tenant.ID, chat)
	require.NoError(t, err)
	count, err := repos.Tickets.CountActiveByContact(ctx, tenant.ID, contact.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "one contact must never hold two active tickets")
}

func TestStartAllIsolatesFailures(t *testing.T) {
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos)
	broken := seedInstance(t, repos, tenant.ID)
	healthy := seedInstance(t, repos, tenant.ID)

	client := newScriptedClient()
	dialer := &scriptedDialer{
		clients: []*scriptedClient{client},
		failFor: map[string]bool{broken.ID: true},
	}
	svc, _ := newTestService(t, repos, dialer)
	ctx := context.Background()

	svc.StartAll(ctx)
	client.push(ConnectionEvent{State: StateOpen})

	waitFor(t, func() bool {
		row, err := repos.Instances.FindByID(ctx, healthy.ID)
		return err == nil && row != nil && row.Status == domain.InstanceConnected
	}, "healthy instance never connected despite sibling failure")
}
