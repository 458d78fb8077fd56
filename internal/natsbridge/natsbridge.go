package natsbridge

import (
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/eventbus"
)

// Bridge republishes every broadcast frame onto NATS subjects named after the
// bus topics, for consumers outside the process. Delivery is fire-and-forget,
// matching the observer fan-out semantics.
type Bridge struct {
	nc     *nats.Conn
	logger zerolog.Logger
}

func New(url string) (*Bridge, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	b := &Bridge{nc: nc}
	b.logger = zlog.With().Str("module", "natsbridge").Logger()
	return b, nil
}

func (b *Bridge) Attach(eb *eventbus.Bus) {
	eb.Subscribe("natsbridge", func(topic string, payload []byte) {
		if err := b.nc.Publish(topic, payload); err != nil {
			b.logger.Err(err).Str("subject", topic).Msg("failed to publish")
		}
	})
}

func (b *Bridge) Close() {
	b.nc.Close()
}
