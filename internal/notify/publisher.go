// README: Fire-and-forget notification events published to a fanout exchange.
// No delivery guarantee; publish failures are logged and swallowed, never
// surfaced to the booking flow.
package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/logger"

	"raahi/internal/types"
)

const (
	KindBookingCancelled = "booking_cancelled"
	KindBookingExpired   = "booking_expired"
	KindRideCompleted    = "ride_completed"
	KindPaymentStatus    = "payment_status"
	KindDriverArrived    = "driver_arrived"
	KindDriverAssigned   = "driver_assigned"
)

type Event struct {
	Kind       string         `json:"kind"`
	IdentityID types.ID       `json:"identity_id"`
	BookingID  types.ID       `json:"booking_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	At         time.Time      `json:"at"`
}

type Publisher struct {
	ch       *amqp.Channel
	exchange string
	log      logger.Logger
}

func NewPublisher(ch *amqp.Channel, exchange string, log logger.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, log: log}
}

func (p *Publisher) Publish(ctx context.Context, e Event) {
	if p == nil || p.ch == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		p.log.Error("marshal notification", logger.String("error", err.Error()))
		return
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		p.log.Error("publish notification",
			logger.String("kind", e.Kind),
			logger.String("error", err.Error()),
		)
	}
}
