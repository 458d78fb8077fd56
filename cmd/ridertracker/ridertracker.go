package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/phuslu/log"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/config"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/eventbus"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/hub"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/ingress"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/natsbridge"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/registry"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/relay"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/store"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/store/impl/memstore"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/store/impl/pgstore"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/sweeper"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/web"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/web/webstream"
)

func main() {
	cfg := config.Load()
	log.DefaultLogger.Level = log.ParseLevel(cfg.LogLevel)

	var st store.Store
	switch cfg.StoreDriver {
	case "memory":
		st = memstore.NewStore()
		log.Info().Msg("using in-memory store")
	default:
		pool, err := pgxpool.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			panic(err.Error())
		}
		pg := pgstore.NewStore(pool)
		if err := pg.Init(context.Background()); err != nil {
			// keep running; reads/writes will surface errors per call
			log.Error().Err(err).Msg("store init failed")
		}
		st = pg
	}

	eb, err := eventbus.New()
	if err != nil {
		panic(err.Error())
	}
	h := hub.New()
	eb.Subscribe("hub", func(_ string, payload []byte) {
		h.Broadcast(payload)
	})

	reg := registry.New()
	rl := relay.New(st, reg, eb)

	if cfg.NatsURL != "" {
		bridge, err := natsbridge.New(cfg.NatsURL)
		if err != nil {
			log.Error().Err(err).Msg("nats bridge disabled")
		} else {
			bridge.Attach(eb)
			defer bridge.Close()
		}
	}

	api := web.NewApi(st, rl, &web.ApiConfig{ListenAddr: cfg.ApiAddr})
	ws := webstream.NewWebstream(rl, h, webstream.WebstreamConfig{
		ListenAddr:     cfg.WsAddr,
		ObserverBuffer: cfg.ObserverBuffer,
	})
	tcp := ingress.NewServer(rl, &ingress.ServerConfig{ListenerAddr: cfg.TcpAddr})
	swp := sweeper.New(st, cfg.SweepPeriod, time.Duration(cfg.RetentionDays)*24*time.Hour)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go api.Run()
	go ws.Run()
	go tcp.Run()
	go swp.Run(ctx)

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tcp.Close()
	if err := ws.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ws shutdown")
	}
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api shutdown")
	}
}
