package ingress

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	proxyproto "github.com/pires/go-proxyproto"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/relay"
)

const (
	NEW_CONNECTION    string = "new_connection"
	CONNECTION_CLOSED string = "connection_closed"
	FRAME_DROPPED     string = "frame_dropped"
)

type ServerConfig struct {
	ListenerAddr string
}

// Server accepts headless GPS units over raw TCP behind a proxy-protocol
// listener. Frames are newline-delimited JSON envelopes carrying the same
// events as the websocket rider channel.
type Server struct {
	mu       sync.Mutex
	log      log.Logger
	relay    *relay.Relay
	config   *ServerConfig
	listener *proxyproto.Listener
}

func NewServer(rl *relay.Relay, config *ServerConfig) *Server {
	s := &Server{relay: rl, config: config}
	s.log = log.DefaultLogger
	s.log.Context = log.NewContext(nil).Str("module", "tcp-ingress").Value()
	return s
}

func (s *Server) Run() {
	s.log.Info().Msgf("starting tcp-ingress on %s", s.config.ListenerAddr)
	ln, err := net.Listen("tcp", s.config.ListenerAddr)
	if err != nil {
		s.log.Error().Err(err).Msg("unable to listen")
		return
	}
	pln := &proxyproto.Listener{Listener: ln}
	s.mu.Lock()
	s.listener = pln
	s.mu.Unlock()

	for {
		_c, err := pln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error().Err(err).Msg("failed to accept new connection")
			pln.Close()
			return
		}
		c := NewConn(_c, uuid.NewString())
		s.log.Info().Str("event", NEW_CONNECTION).EmbedObject(c).Msg("")
		go s.handle(c)
	}
}

// Close stops the listener; per-connection goroutines drain on their own.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *Server) handle(c *Conn) {
	defer c.Close()
	for {
		frame, err := c.ReadFrame()
		if err != nil {
			s.log.Info().Err(err).Str("event", CONNECTION_CLOSED).EmbedObject(c).Msg("")
			s.relay.ConnClosed(context.Background(), c.ID())
			return
		}
		if len(frame) == 0 {
			continue
		}
		if err := s.relay.HandleFrame(context.Background(), c.ID(), frame); err != nil {
			s.log.Warn().Err(err).Str("event", FRAME_DROPPED).EmbedObject(c).Msg("")
		}
	}
}
