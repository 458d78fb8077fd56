package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/relay"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/store"
)

type ApiConfig struct {
	ListenAddr string
}

type Api struct {
	r      chi.Router
	s      *http.Server
	config *ApiConfig
	log    zerolog.Logger
	store  store.Store
	relay  *relay.Relay
	vld    *validator.Validate
}

// envelope is the JSON shape of every API response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewApi(st store.Store, rl *relay.Relay, config *ApiConfig) *Api {
	api := &Api{config: config, store: st, relay: rl}
	api.log = zlog.With().Str("module", "api").Logger()
	api.vld = validator.New()
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(api.recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/riders", api.getRiders)
		r.Get("/riders/{id}", api.getRider)
		r.Post("/riders/auth", api.authRider)
		r.Get("/riders/{id}/locations", api.getRiderLocations)
		r.Get("/locations/latest", api.getLatestLocations)
		r.Post("/locations", api.postLocation)
	})

	api.r = r
	api.s = &http.Server{
		Addr:           config.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return api
}

// Handler exposes the router for tests.
func (api *Api) Handler() http.Handler {
	return api.r
}

func (api *Api) Run() {
	api.log.Info().Msgf("starting api-server on %s", api.s.Addr)
	err := api.s.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		api.log.Error().Err(err).Msg("api-server stopped")
		panic(err)
	}
}

func (api *Api) Shutdown(ctx context.Context) error {
	return api.s.Shutdown(ctx)
}

// recoverer turns handler panics into the generic 500 envelope, message
// included.
func (api *Api) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				api.log.Error().Interface("panic", rvr).Str("path", r.URL.Path).Msg("handler panic")
				writeError(w, http.StatusInternalServerError, fmt.Sprint(rvr))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeData(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: msg})
}

func (api *Api) getRiders(w http.ResponseWriter, r *http.Request) {
	riders, err := api.store.ListRiders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, riders)
}

func riderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (api *Api) getRider(w http.ResponseWriter, r *http.Request) {
	id, err := riderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rider id")
		return
	}
	rd, err := api.store.GetRider(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rider not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeData(w, http.StatusOK, rd)
}

type authRequest struct {
	Phone string `json:"phone" validate:"required"`
}

func (api *Api) authRider(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := api.vld.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}
	rd, err := api.store.GetRiderByPhone(r.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rider not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeData(w, http.StatusOK, rd)
}

// getRiderLocations returns the samples inside [startTime, endTime], given in
// epoch seconds. The default window is the last 24 hours.
func (api *Api) getRiderLocations(w http.ResponseWriter, r *http.Request) {
	id, err := riderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rider id")
		return
	}
	now := time.Now().UTC()
	from := now.Add(-24 * time.Hour)
	to := now
	if v := r.URL.Query().Get("startTime"); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startTime")
			return
		}
		from = time.Unix(sec, 0).UTC()
	}
	if v := r.URL.Query().Get("endTime"); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endTime")
			return
		}
		to = time.Unix(sec, 0).UTC()
	}
	samples, err := api.store.LocationHistory(r.Context(), id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, samples)
}

func (api *Api) getLatestLocations(w http.ResponseWriter, r *http.Request) {
	latest, err := api.store.LatestActiveLocations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, latest)
}

// locationRequest uses pointer fields so a missing required value fails
// validation instead of defaulting to zero.
type locationRequest struct {
	RiderID   *int64   `json:"riderId" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Accuracy  *float64 `json:"accuracy"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
}

func (api *Api) postLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := api.vld.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "riderId, latitude and longitude are required")
		return
	}
	id, err := api.relay.LocationUpdate(r.Context(), relay.Update{
		RiderID:   *req.RiderID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Heading:   req.Heading,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusCreated, map[string]int64{"id": id})
}
