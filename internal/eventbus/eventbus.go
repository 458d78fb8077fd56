package eventbus

import (
	"context"

	"github.com/mustafaturan/bus/v3"
	"github.com/mustafaturan/monoton/v2"
	"github.com/mustafaturan/monoton/v2/sequencer"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/event"
)

// Bus wraps the in-process event bus carrying broadcast payloads from the
// relay to whatever is registered to deliver them (observer hub, NATS bridge).
// Payload data is the already-encoded wire envelope ([]byte).
type Bus struct {
	b *bus.Bus
}

func New() (*Bus, error) {
	node := uint64(1)
	m, err := monoton.New(sequencer.NewMillisecond(), node, 0)
	if err != nil {
		return nil, err
	}
	var next bus.Next = m.Next
	b, err := bus.NewBus(next)
	if err != nil {
		return nil, err
	}
	b.RegisterTopics(event.TopicLocation, event.TopicStatus)
	return &Bus{b: b}, nil
}

func (eb *Bus) Emit(ctx context.Context, topic string, payload []byte) error {
	return eb.b.Emit(ctx, topic, payload)
}

// Subscribe registers fn for every rider.* topic under the given key.
func (eb *Bus) Subscribe(key string, fn func(topic string, payload []byte)) {
	eb.b.RegisterHandler(key, bus.Handler{
		Matcher: "rider\\..*",
		Handle: func(_ context.Context, e bus.Event) {
			if d, ok := e.Data.([]byte); ok {
				fn(e.Topic, d)
			}
		},
	})
}

func (eb *Bus) Unsubscribe(key string) {
	eb.b.DeregisterHandler(key)
}
