package app

import (
	"github.com/asaskevich/EventBus"

	"github.com/zapticket/zapticket/internal/whatsapp"
)

// Event bus topics for instance lifecycle fan-out.
const (
	TopicInstanceStatus = "instance.status"
	TopicInstanceQR     = "instance.qrcode"
)

// busNotifier publishes instance lifecycle changes on the application bus,
// where the websocket hub picks them up.
type busNotifier struct {
	bus EventBus.Bus
}

var _ whatsapp.Notifier = (*busNotifier)(nil)

// Notifier returns the lifecycle notifier bound to the application bus.
func (a *Application) Notifier() whatsapp.Notifier {
	return &busNotifier{bus: a.bus}
}

func (n *busNotifier) PublishStatus(instanceID, status string) {
	n.bus.Publish(TopicInstanceStatus, instanceID, status)
}

func (n *busNotifier) PublishQR(instanceID, qr string) {
	n.bus.Publish(TopicInstanceQR, instanceID, qr)
}
