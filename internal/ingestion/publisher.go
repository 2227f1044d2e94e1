package ingestion

import (
	"context"
	"fmt"

	"crossmargin/internal/engine"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// OutboundPublisher publishes committed envelopes for downstream
// consumers (liquidation monitors, risk dashboards). Subjects follow
// risk.engine.events.{kind}. Publish failures are non-fatal: consumers
// can always read the event log directly.
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan engine.Output
	logger    zerolog.Logger
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan engine.Output, logger zerolog.Logger) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
		logger:    logger,
	}
}

// Run drains the input channel until it closes or ctx is cancelled.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case out, ok := <-op.inputChan:
			if !ok {
				return nil
			}
			subject := fmt.Sprintf("risk.engine.events.%s", out.Envelope.Payload.Kind())
			if _, err := op.js.Publish(ctx, subject, out.Line); err != nil {
				op.logger.Warn().
					Uint64("sequence", out.Envelope.Sequence).
					Err(err).
					Msg("outbound publish failed")
			}
		}
	}
}
