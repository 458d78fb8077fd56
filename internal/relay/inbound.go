package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/event"
)

type connectMessage struct {
	RiderID   int64  `json:"riderId"`
	RiderName string `json:"riderName"`
}

type disconnectMessage struct {
	RiderID int64 `json:"riderId"`
}

type locationMessage struct {
	RiderID   *int64   `json:"riderId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
}

// HandleFrame decodes one inbound envelope from a persistent rider channel
// (websocket or TCP) and applies it. A returned error means the frame was
// dropped; the channel stays open and the client is not notified.
func (r *Relay) HandleFrame(ctx context.Context, connID string, frame []byte) error {
	var env event.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return fmt.Errorf("unparseable frame: %w", err)
	}
	switch env.Event {
	case event.RiderConnect:
		var m connectMessage
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return fmt.Errorf("bad %s frame: %w", event.RiderConnect, err)
		}
		if m.RiderID == 0 {
			return fmt.Errorf("%s frame without riderId", event.RiderConnect)
		}
		r.RiderConnect(ctx, m.RiderID, m.RiderName, connID)
	case event.LocationUpdate:
		var m locationMessage
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return fmt.Errorf("bad %s frame: %w", event.LocationUpdate, err)
		}
		if m.RiderID == nil || m.Latitude == nil || m.Longitude == nil {
			return fmt.Errorf("%s frame missing required fields", event.LocationUpdate)
		}
		// persistence errors are already logged; streaming clients are
		// never told about them
		_, _ = r.LocationUpdate(ctx, Update{
			RiderID:   *m.RiderID,
			Latitude:  *m.Latitude,
			Longitude: *m.Longitude,
			Accuracy:  m.Accuracy,
			Speed:     m.Speed,
			Heading:   m.Heading,
		})
	case event.RiderDisconnect:
		var m disconnectMessage
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return fmt.Errorf("bad %s frame: %w", event.RiderDisconnect, err)
		}
		if m.RiderID == 0 {
			return fmt.Errorf("%s frame without riderId", event.RiderDisconnect)
		}
		r.RiderDisconnect(ctx, m.RiderID)
	default:
		return fmt.Errorf("unknown frame event %q", env.Event)
	}
	return nil
}
