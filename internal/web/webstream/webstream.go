package webstream

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"nhooyr.io/websocket"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/hub"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/relay"
)

type WebstreamConfig struct {
	ListenAddr string
	// ObserverBuffer is the per-observer frame buffer; frames are dropped,
	// not queued, once it is full.
	ObserverBuffer int
}

// WebstreamServer carries both sides of the persistent channel: riders push
// presence and location events on /ws/rider, observers receive broadcast
// frames on /ws/observer.
type WebstreamServer struct {
	server *http.Server
	log    log.Logger
	relay  *relay.Relay
	hub    *hub.Hub
	config WebstreamConfig
}

func NewWebstream(rl *relay.Relay, h *hub.Hub, config WebstreamConfig) *WebstreamServer {
	if config.ObserverBuffer == 0 {
		config.ObserverBuffer = 64
	}
	o := &WebstreamServer{config: config, relay: rl, hub: h}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/rider", o.serveRider)
	mux.HandleFunc("/ws/observer", o.serveObserver)
	o.server = &http.Server{
		Addr:           config.ListenAddr,
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	o.log = log.DefaultLogger
	o.log.Context = log.NewContext(nil).Str("module", "webstream").Value()
	return o
}

func (ws *WebstreamServer) Run() {
	ws.log.Info().Msgf("starting ws-server on %s", ws.server.Addr)
	err := ws.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		ws.log.Error().Err(err).Msg("ws-server stopped")
		panic(err)
	}
}

func (ws *WebstreamServer) Shutdown(ctx context.Context) error {
	return ws.server.Shutdown(ctx)
}

func (ws *WebstreamServer) serveRider(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		ws.log.Error().Err(err).Msg("error while upgrading websocket")
		return
	}
	connID := uuid.NewString()
	ws.log.Info().Str("conn_id", connID).Msg("rider channel open")
	defer c.Close(websocket.StatusInternalError, "closing")

	for {
		_, msg, err := c.Read(context.Background())
		if err != nil {
			// abrupt close: at most one registry entry matches this handle
			ws.log.Info().Err(err).Str("conn_id", connID).Msg("rider channel closed")
			ws.relay.ConnClosed(context.Background(), connID)
			return
		}
		if err := ws.relay.HandleFrame(r.Context(), connID, msg); err != nil {
			ws.log.Warn().Err(err).Str("conn_id", connID).Msg("frame dropped")
		}
	}
}

// wsObserver buffers broadcast frames per connection; a full buffer drops the
// frame rather than blocking the broadcaster.
type wsObserver struct {
	ch      chan []byte
	closed  uint32
	pushed  uint64
	skipped uint64
}

func (o *wsObserver) Push(data []byte) bool {
	if atomic.LoadUint32(&o.closed) == 1 {
		return true
	}
	select {
	case o.ch <- data:
		atomic.AddUint64(&o.pushed, 1)
	default:
		atomic.AddUint64(&o.skipped, 1)
	}
	return false
}

func (o *wsObserver) close() {
	atomic.StoreUint32(&o.closed, 1)
}

func (ws *WebstreamServer) serveObserver(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		ws.log.Error().Err(err).Msg("error while upgrading websocket")
		return
	}
	obs := &wsObserver{ch: make(chan []byte, ws.config.ObserverBuffer)}
	ws.hub.Subscribe(obs)
	ws.log.Info().Int("observers", ws.hub.Count()).Msg("observer connected")
	defer func() {
		obs.close()
		ws.hub.Unsubscribe(obs)
		c.Close(websocket.StatusNormalClosure, "")
		ws.log.Info().Int("observers", ws.hub.Count()).Msg("observer disconnected")
	}()

	// read side only signals closure; observers never send events
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := c.Read(context.Background()); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case data := <-obs.ch:
			if err := c.Write(context.Background(), websocket.MessageText, data); err != nil {
				ws.log.Error().Err(err).Msg("error while writing to observer")
				return
			}
		}
	}
}
