package relay

import (
	"context"
	"time"

	"github.com/phuslu/log"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/event"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/eventbus"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/registry"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/store"
)

const (
	RIDER_CONNECTED    string = "rider_connected"
	RIDER_DISCONNECTED string = "rider_disconnected"
	CONN_LOST          string = "conn_lost"
	STORE_ERROR        string = "store_error"
	BROADCAST_ERROR    string = "broadcast_error"
)

// Update is one inbound location fix before the relay stamps it.
type Update struct {
	RiderID   int64
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Speed     *float64
	Heading   *float64
}

// Relay accepts presence and location events from rider channels, applies
// them to the store and registry, and emits broadcast frames on the bus.
// Store, registry and broadcast are sequential uncoupled steps: a failure in
// one does not roll back the others.
type Relay struct {
	reg   *registry.Registry
	store store.Store
	bus   *eventbus.Bus
	log   log.Logger
}

func New(st store.Store, reg *registry.Registry, bus *eventbus.Bus) *Relay {
	r := &Relay{store: st, reg: reg, bus: bus}
	r.log = log.DefaultLogger
	r.log.Context = log.NewContext(nil).Str("module", "relay").Value()
	return r
}

// RiderConnect registers presence, marks the rider active and broadcasts the
// presence change.
func (r *Relay) RiderConnect(ctx context.Context, riderID int64, name string, connID string) {
	r.reg.Connect(riderID, name, connID)
	if err := r.store.SetRiderStatus(ctx, riderID, store.StatusActive); err != nil {
		r.log.Error().Err(err).Str("event", STORE_ERROR).Int64("rider_id", riderID).Msg("failed to set rider active")
	}
	r.log.Info().Str("event", RIDER_CONNECTED).Int64("rider_id", riderID).Str("rider_name", name).Msg("")
	r.emitStatus(ctx, riderID, name, store.StatusActive)
}

// RiderDisconnect handles the explicit disconnect event. Unknown riders are
// ignored.
func (r *Relay) RiderDisconnect(ctx context.Context, riderID int64) {
	e, ok := r.reg.Disconnect(riderID)
	if !ok {
		return
	}
	if err := r.store.SetRiderStatus(ctx, riderID, store.StatusInactive); err != nil {
		r.log.Error().Err(err).Str("event", STORE_ERROR).Int64("rider_id", riderID).Msg("failed to set rider inactive")
	}
	r.log.Info().Str("event", RIDER_DISCONNECTED).Int64("rider_id", riderID).Msg("")
	r.emitStatus(ctx, riderID, e.Name, store.StatusInactive)
}

// ConnClosed handles abrupt connection loss: the first registry entry holding
// connID is treated exactly like an explicit disconnect, then scanning stops.
func (r *Relay) ConnClosed(ctx context.Context, connID string) {
	e, ok := r.reg.FindByConn(connID)
	if !ok {
		return
	}
	r.log.Info().Str("event", CONN_LOST).Int64("rider_id", e.RiderID).Str("conn_id", connID).Msg("")
	r.RiderDisconnect(ctx, e.RiderID)
}

// LocationUpdate stamps the fix with the server time, persists it and
// broadcasts the enriched event. The returned error is meant for the one-shot
// HTTP path; streaming callers log and drop.
func (r *Relay) LocationUpdate(ctx context.Context, u Update) (int64, error) {
	now := time.Now().UTC()
	id, err := r.store.InsertLocation(ctx, store.LocationSample{
		RiderID:   u.RiderID,
		Latitude:  u.Latitude,
		Longitude: u.Longitude,
		Accuracy:  u.Accuracy,
		Speed:     u.Speed,
		Heading:   u.Heading,
		Timestamp: now,
	})
	if err != nil {
		r.log.Error().Err(err).Str("event", STORE_ERROR).Int64("rider_id", u.RiderID).Msg("failed to persist location")
		return 0, err
	}
	r.emitLocation(ctx, event.Location{
		RiderID:   u.RiderID,
		RiderName: r.riderName(ctx, u.RiderID),
		Latitude:  u.Latitude,
		Longitude: u.Longitude,
		Accuracy:  u.Accuracy,
		Speed:     u.Speed,
		Heading:   u.Heading,
		Timestamp: now,
	})
	return id, nil
}

func (r *Relay) riderName(ctx context.Context, riderID int64) string {
	if e, ok := r.reg.Get(riderID); ok {
		return e.Name
	}
	rd, err := r.store.GetRider(ctx, riderID)
	if err != nil {
		return ""
	}
	return rd.Name
}

func (r *Relay) emitStatus(ctx context.Context, riderID int64, name string, status string) {
	payload, err := event.Marshal(event.RiderStatus, event.Status{
		RiderID:   riderID,
		RiderName: name,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		r.log.Error().Err(err).Str("event", BROADCAST_ERROR).Msg("encode status broadcast")
		return
	}
	if err := r.bus.Emit(ctx, event.TopicStatus, payload); err != nil {
		r.log.Error().Err(err).Str("event", BROADCAST_ERROR).Msg("emit status broadcast")
	}
}

func (r *Relay) emitLocation(ctx context.Context, loc event.Location) {
	payload, err := event.Marshal(event.LocationUpdate, loc)
	if err != nil {
		r.log.Error().Err(err).Str("event", BROADCAST_ERROR).Msg("encode location broadcast")
		return
	}
	if err := r.bus.Emit(ctx, event.TopicLocation, payload); err != nil {
		r.log.Error().Err(err).Str("event", BROADCAST_ERROR).Msg("emit location broadcast")
	}
}
