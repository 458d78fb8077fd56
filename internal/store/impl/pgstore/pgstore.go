package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/phuslu/log"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/store"
)

// Store is the PostgreSQL-backed profile and history store.
type Store struct {
	db  *pgxpool.Pool
	log log.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS rider (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	phone      TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'inactive',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS location (
	id        BIGSERIAL PRIMARY KEY,
	rider_id  BIGINT NOT NULL,
	latitude  DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	accuracy  DOUBLE PRECISION,
	speed     DOUBLE PRECISION,
	heading   DOUBLE PRECISION,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS location_rider_time_idx ON location (rider_id, recorded_at);
CREATE INDEX IF NOT EXISTS location_time_idx ON location (recorded_at);
`

func NewStore(db *pgxpool.Pool) *Store {
	o := &Store{db: db}
	o.log = log.DefaultLogger
	o.log.Context = log.NewContext(nil).Str("module", "pgstore").Value()
	return o
}

// Init creates the schema if missing and seeds the default rider roster when
// the rider table is empty. Errors are returned for the caller to report;
// the process is expected to keep running on a seed failure.
func (st *Store) Init(ctx context.Context) error {
	if _, err := st.db.Exec(ctx, schema); err != nil {
		return err
	}
	var n int64
	if err := st.db.QueryRow(ctx, `SELECT count(*) FROM rider`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	st.log.Info().Msg("rider table empty, seeding default riders")
	for _, r := range store.DefaultSeed() {
		_, err := st.db.Exec(ctx,
			`INSERT INTO rider (name, phone, email, status) VALUES ($1,$2,$3,'inactive')`,
			r.Name, r.Phone, r.Email)
		if err != nil {
			return err
		}
	}
	return nil
}

const riderCols = `id, name, phone, email, status, created_at, updated_at`

func scanRider(row pgx.Row) (store.Rider, error) {
	var r store.Rider
	err := row.Scan(&r.ID, &r.Name, &r.Phone, &r.Email, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Rider{}, store.ErrNotFound
		}
		return store.Rider{}, err
	}
	return r, nil
}

func (st *Store) ListRiders(ctx context.Context) ([]store.Rider, error) {
	rows, err := st.db.Query(ctx, `SELECT `+riderCols+` FROM rider ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	riders := make([]store.Rider, 0)
	for rows.Next() {
		r, err := scanRider(rows)
		if err != nil {
			return nil, err
		}
		riders = append(riders, r)
	}
	return riders, rows.Err()
}

func (st *Store) GetRider(ctx context.Context, id int64) (store.Rider, error) {
	return scanRider(st.db.QueryRow(ctx, `SELECT `+riderCols+` FROM rider WHERE id = $1`, id))
}

func (st *Store) GetRiderByPhone(ctx context.Context, phone string) (store.Rider, error) {
	return scanRider(st.db.QueryRow(ctx,
		`SELECT `+riderCols+` FROM rider WHERE phone = $1 ORDER BY id LIMIT 1`, phone))
}

func (st *Store) SetRiderStatus(ctx context.Context, id int64, status string) error {
	// unknown id: zero rows affected, deliberately not an error
	_, err := st.db.Exec(ctx,
		`UPDATE rider SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return err
}

func (st *Store) InsertLocation(ctx context.Context, s store.LocationSample) (int64, error) {
	var id int64
	err := st.db.QueryRow(ctx,
		`INSERT INTO location (rider_id, latitude, longitude, accuracy, speed, heading, recorded_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		s.RiderID, s.Latitude, s.Longitude, s.Accuracy, s.Speed, s.Heading, s.Timestamp).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

const locationCols = `id, rider_id, latitude, longitude, accuracy, speed, heading, recorded_at`

func (st *Store) LocationHistory(ctx context.Context, riderID int64, from, to time.Time) ([]store.LocationSample, error) {
	rows, err := st.db.Query(ctx,
		`SELECT `+locationCols+` FROM location
		 WHERE rider_id = $1 AND recorded_at BETWEEN $2 AND $3
		 ORDER BY recorded_at ASC`, riderID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	samples := make([]store.LocationSample, 0)
	for rows.Next() {
		var s store.LocationSample
		err := rows.Scan(&s.ID, &s.RiderID, &s.Latitude, &s.Longitude, &s.Accuracy, &s.Speed, &s.Heading, &s.Timestamp)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (st *Store) LatestActiveLocations(ctx context.Context) ([]store.LatestLocation, error) {
	rows, err := st.db.Query(ctx,
		`SELECT DISTINCT ON (l.rider_id)
			l.id, l.rider_id, l.latitude, l.longitude, l.accuracy, l.speed, l.heading, l.recorded_at,
			r.name, r.phone, r.status
		 FROM location l JOIN rider r ON r.id = l.rider_id
		 WHERE r.status = 'active'
		 ORDER BY l.rider_id, l.recorded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]store.LatestLocation, 0)
	for rows.Next() {
		var l store.LatestLocation
		err := rows.Scan(&l.ID, &l.RiderID, &l.Latitude, &l.Longitude, &l.Accuracy, &l.Speed, &l.Heading, &l.Timestamp,
			&l.RiderName, &l.RiderPhone, &l.RiderStatus)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (st *Store) PruneOlderThan(ctx context.Context, horizon time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-horizon)
	ct, err := st.db.Exec(ctx, `DELETE FROM location WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
