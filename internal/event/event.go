package event

import (
	"encoding/json"
	"time"
)

// Bus topics. Handlers subscribe with a "rider\..*" matcher to get both.
const (
	TopicLocation = "rider.location"
	TopicStatus   = "rider.status"
)

// Wire event names, shared by the websocket stream and the TCP ingress.
const (
	RiderConnect    = "rider-connect"
	RiderDisconnect = "rider-disconnect"
	LocationUpdate  = "location-update"
	RiderStatus     = "rider-status"
)

// Envelope frames every message on the persistent channels, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Location is the enriched broadcast sent to observers after a fix is stored.
type Location struct {
	RiderID   int64     `json:"riderId"`
	RiderName string    `json:"riderName"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy"`
	Speed     *float64  `json:"speed"`
	Heading   *float64  `json:"heading"`
	Timestamp time.Time `json:"timestamp"`
}

// Status is the presence-change broadcast.
type Status struct {
	RiderID   int64     `json:"riderId"`
	RiderName string    `json:"riderName"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func Marshal(name string, data interface{}) ([]byte, error) {
	d, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: name, Data: d})
}
