package runtime

import (
	"context"
	"log/slog"
	"time"

	"relay-lab/contract"
	"relay-lab/domain/event"
	"relay-lab/observability"

	"github.com/go-playground/validator/v10"
)

// Relay routes one outbound message from a sender connection to the
// recipient's connection, or reports failure back to the sender. Every call
// is a single attempt: the real-time path never queues, retries, or waits on
// persistence. Durable delivery belongs to the REST write path.
type Relay struct {
	log      *slog.Logger
	registry contract.IRegistry
	metrics  *observability.Metrics
	validate *validator.Validate
	now      func() time.Time
}

func NewRelay(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics) *Relay {
	return &Relay{
		log:      log,
		registry: registry,
		metrics:  metrics,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Relay delivers msg point-to-point. Exactly one event leaves this call:
// receive-message to the recipient when registered, message-error to the
// sender otherwise. The timestamp is generated here, never trusted from the
// client.
func (r *Relay) Relay(ctx context.Context, sender contract.EventSink, msg event.SendMessage) {
	if err := r.validate.Struct(msg); err != nil {
		r.metrics.IncrRejected()
		r.reply(ctx, sender, event.EventRejected{
			Event:  event.NameSendMessage,
			Reason: "from, to and text are required",
		})
		return
	}

	recipient, ok := r.registry.Lookup(msg.To)
	if !ok {
		r.metrics.IncrFailed()
		r.log.Debug("recipient offline, notifying sender", "to", msg.To)
		r.reply(ctx, sender, event.MessageError{
			Error: "Recipient not available",
			To:    msg.To,
		})
		return
	}

	r.metrics.IncrRelayed()
	r.reply(ctx, recipient, event.ReceiveMessage{
		From:      msg.From,
		Text:      msg.Text,
		Timestamp: r.now().UTC(),
	})
}

func (r *Relay) reply(ctx context.Context, sink contract.EventSink, evt event.ServerEvent) {
	if err := sink.Consume(ctx, evt); err != nil {
		// Best effort only. A dead connection is reconciled by its own
		// disconnect path, never by the relay.
		r.log.Debug("relay delivery dropped", "event", evt.EventName(), "error", err)
	}
}
