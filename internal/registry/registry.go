package registry

import (
	"sync"
	"time"
)

// Entry is the ephemeral presence record for one connected rider. ConnID is
// the transport connection handle; it is what abrupt-disconnect handling
// scans for. Entries live in memory only and do not survive a restart.
type Entry struct {
	RiderID     int64
	Name        string
	ConnID      string
	ConnectedAt time.Time
}

// Registry maps rider id to its presence entry. At most one entry per rider;
// a second connect for the same rider overwrites the first.
type Registry struct {
	mu   sync.Mutex
	list map[int64]Entry
}

func New() *Registry {
	return &Registry{list: make(map[int64]Entry)}
}

func (r *Registry) Connect(riderID int64, name string, connID string) {
	r.mu.Lock()
	r.list[riderID] = Entry{RiderID: riderID, Name: name, ConnID: connID, ConnectedAt: time.Now().UTC()}
	r.mu.Unlock()
}

// Disconnect removes and returns the entry for riderID.
func (r *Registry) Disconnect(riderID int64) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.list[riderID]
	if ok {
		delete(r.list, riderID)
	}
	return e, ok
}

// FindByConn scans for the entry holding connID, first match wins.
func (r *Registry) FindByConn(connID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.list {
		if e.ConnID == connID {
			return e, true
		}
	}
	return Entry{}, false
}

func (r *Registry) Get(riderID int64) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.list[riderID]
	return e, ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}

func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.list))
	for _, e := range r.list {
		out = append(out, e)
	}
	return out
}
