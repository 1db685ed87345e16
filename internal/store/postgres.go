package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-sms/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const pgMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                       TEXT PRIMARY KEY,
	phone                    TEXT NOT NULL UNIQUE,
	move_in_date             TEXT NOT NULL DEFAULT '',
	price                    TEXT NOT NULL DEFAULT '',
	beds                     TEXT NOT NULL DEFAULT '',
	baths                    TEXT NOT NULL DEFAULT '',
	location                 TEXT NOT NULL DEFAULT '',
	amenities                TEXT NOT NULL DEFAULT '',
	boston_rental_experience TEXT NOT NULL DEFAULT '',
	name                     TEXT NOT NULL DEFAULT '',
	email                    TEXT NOT NULL DEFAULT '',
	tour_availability        TEXT NOT NULL DEFAULT '',
	tour_ready               BOOLEAN NOT NULL DEFAULT FALSE,
	chat_history             JSONB NOT NULL DEFAULT '[]',
	follow_up_count          INTEGER NOT NULL DEFAULT 0,
	follow_up_stage          TEXT NOT NULL DEFAULT 'scheduled',
	next_follow_up_time      TIMESTAMPTZ,
	follow_up_paused_until   TIMESTAMPTZ,
	optional_asked           INTEGER NOT NULL DEFAULT 0,
	date_connected           TIMESTAMPTZ NOT NULL,
	last_contacted           TIMESTAMPTZ,
	version                  BIGINT NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_leads_next_follow_up ON leads(next_follow_up_time);
CREATE INDEX IF NOT EXISTS idx_leads_tour_ready ON leads(tour_ready);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, pgMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const pgLeadColumns = `id, phone, move_in_date, price, beds, baths, location, amenities,
	boston_rental_experience, name, email, tour_availability, tour_ready, chat_history,
	follow_up_count, follow_up_stage, next_follow_up_time, follow_up_paused_until,
	optional_asked, date_connected, last_contacted, version`

func (s *PostgresStore) GetByPhone(ctx context.Context, phone string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgLeadColumns+` FROM leads WHERE phone = $1`, phone)

	lead, err := scanPgLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", phone)
	}
	return lead, nil
}

func (s *PostgresStore) Create(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.DateConnected.IsZero() {
		lead.DateConnected = time.Now().UTC()
	}
	if lead.FollowUpStage == "" {
		lead.FollowUpStage = model.StageScheduled
	}
	lead.Version = 1

	historyJSON, err := marshalHistory(lead.ChatHistory)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal history")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (`+pgLeadColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		lead.ID, lead.Phone, lead.MoveInDate, lead.Price, lead.Beds, lead.Baths,
		lead.Location, lead.Amenities, lead.BostonRentalExperience, lead.Name, lead.Email,
		lead.TourAvailability, lead.TourReady, historyJSON,
		lead.FollowUpCount, string(lead.FollowUpStage), lead.NextFollowUpTime,
		lead.FollowUpPausedUntil, lead.OptionalAsked, lead.DateConnected,
		pgNullableTime(lead.LastContacted), lead.Version,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert lead %s", lead.Phone)
	}
	return lead, nil
}

func (s *PostgresStore) Save(ctx context.Context, lead *model.Lead) error {
	historyJSON, err := marshalHistory(lead.ChatHistory)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal history")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET
			move_in_date = $1, price = $2, beds = $3, baths = $4, location = $5, amenities = $6,
			boston_rental_experience = $7, name = $8, email = $9, tour_availability = $10,
			tour_ready = $11, chat_history = $12, follow_up_count = $13, follow_up_stage = $14,
			next_follow_up_time = $15, follow_up_paused_until = $16, optional_asked = $17,
			last_contacted = $18, version = version + 1
		 WHERE phone = $19 AND version = $20`,
		lead.MoveInDate, lead.Price, lead.Beds, lead.Baths, lead.Location, lead.Amenities,
		lead.BostonRentalExperience, lead.Name, lead.Email, lead.TourAvailability,
		lead.TourReady, historyJSON, lead.FollowUpCount, string(lead.FollowUpStage),
		lead.NextFollowUpTime, lead.FollowUpPausedUntil, lead.OptionalAsked,
		pgNullableTime(lead.LastContacted), lead.Phone, lead.Version,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save lead %s", lead.Phone)
	}

	if tag.RowsAffected() == 0 {
		var exists int
		err := s.pool.QueryRow(ctx, `SELECT 1 FROM leads WHERE phone = $1`, lead.Phone).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "phone %s", lead.Phone)
		}
		if err != nil {
			return eris.Wrapf(err, "postgres: check lead %s", lead.Phone)
		}
		return eris.Wrapf(ErrConflict, "phone %s", lead.Phone)
	}
	lead.Version++
	return nil
}

func (s *PostgresStore) ListDueForFollowUp(ctx context.Context, now time.Time, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgLeadColumns+` FROM leads
		 WHERE next_follow_up_time IS NOT NULL
		   AND next_follow_up_time <= $1
		   AND follow_up_stage != $2
		   AND tour_ready = FALSE
		   AND (follow_up_paused_until IS NULL OR follow_up_paused_until <= $1)
		 ORDER BY next_follow_up_time ASC
		 LIMIT $3`,
		now, string(model.StageExhausted), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list due leads")
	}
	defer rows.Close()

	return collectPgLeads(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgLeadColumns+` FROM leads ORDER BY date_connected DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	return collectPgLeads(rows)
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var stage string
	var historyJSON []byte
	var nextFollowUp, pausedUntil, lastContacted *time.Time

	err := row.Scan(
		&l.ID, &l.Phone, &l.MoveInDate, &l.Price, &l.Beds, &l.Baths,
		&l.Location, &l.Amenities, &l.BostonRentalExperience, &l.Name, &l.Email,
		&l.TourAvailability, &l.TourReady, &historyJSON,
		&l.FollowUpCount, &stage, &nextFollowUp, &pausedUntil,
		&l.OptionalAsked, &l.DateConnected, &lastContacted, &l.Version,
	)
	if err != nil {
		return nil, err
	}

	l.FollowUpStage = model.FollowUpStage(stage)
	l.NextFollowUpTime = nextFollowUp
	l.FollowUpPausedUntil = pausedUntil
	if lastContacted != nil {
		l.LastContacted = *lastContacted
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &l.ChatHistory); err != nil {
			return nil, eris.Wrap(err, "unmarshal chat history")
		}
	}
	return &l, nil
}

func collectPgLeads(rows pgx.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func pgNullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
