package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-sms/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	tour_ready               INTEGER NOT NULL DEFAULT 0,
	chat_history             TEXT NOT NULL DEFAULT '[]',
	follow_up_count          INTEGER NOT NULL DEFAULT 0,
	follow_up_stage          TEXT NOT NULL DEFAULT 'scheduled',
	next_follow_up_time      DATETIME,
	follow_up_paused_until   DATETIME,
	optional_asked           INTEGER NOT NULL DEFAULT 0,
	date_connected           DATETIME NOT NULL,
	last_contacted           DATETIME,
	version                  INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_leads_next_follow_up ON leads(next_follow_up_time);
CREATE INDEX IF NOT EXISTS idx_leads_tour_ready ON leads(tour_ready);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const leadColumns = `id, phone, move_in_date, price, beds, baths, location, amenities,
	boston_rental_experience, name, email, tour_availability, tour_ready, chat_history,
	follow_up_count, follow_up_stage, next_follow_up_time, follow_up_paused_until,
	optional_asked, date_connected, last_contacted, version`

func (s *SQLiteStore) GetByPhone(ctx context.Context, phone string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE phone = ?`, phone)

	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", phone)
	}
	return lead, nil
}

func (s *SQLiteStore) Create(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal history")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Phone, lead.MoveInDate, lead.Price, lead.Beds, lead.Baths,
		lead.Location, lead.Amenities, lead.BostonRentalExperience, lead.Name, lead.Email,
		lead.TourAvailability, lead.TourReady, historyJSON,
		lead.FollowUpCount, string(lead.FollowUpStage), lead.NextFollowUpTime,
		lead.FollowUpPausedUntil, lead.OptionalAsked, lead.DateConnected,
		nullableTime(lead.LastContacted), lead.Version,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert lead %s", lead.Phone)
	}
	return lead, nil
}

func (s *SQLiteStore) Save(ctx context.Context, lead *model.Lead) error {
	historyJSON, err := marshalHistory(lead.ChatHistory)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal history")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET
			move_in_date = ?, price = ?, beds = ?, baths = ?, location = ?, amenities = ?,
			boston_rental_experience = ?, name = ?, email = ?, tour_availability = ?,
			tour_ready = ?, chat_history = ?, follow_up_count = ?, follow_up_stage = ?,
			next_follow_up_time = ?, follow_up_paused_until = ?, optional_asked = ?,
			last_contacted = ?, version = version + 1
		 WHERE phone = ? AND version = ?`,
		lead.MoveInDate, lead.Price, lead.Beds, lead.Baths, lead.Location, lead.Amenities,
		lead.BostonRentalExperience, lead.Name, lead.Email, lead.TourAvailability,
		lead.TourReady, historyJSON, lead.FollowUpCount, string(lead.FollowUpStage),
		lead.NextFollowUpTime, lead.FollowUpPausedUntil, lead.OptionalAsked,
		nullableTime(lead.LastContacted), lead.Phone, lead.Version,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save lead %s", lead.Phone)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return s.saveMiss(ctx, lead.Phone)
	}
	lead.Version++
	return nil
}

// saveMiss distinguishes a stale version from a missing row.
func (s *SQLiteStore) saveMiss(ctx context.Context, phone string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM leads WHERE phone = ?`, phone).Scan(&exists)
	if err == sql.ErrNoRows {
		return eris.Wrapf(ErrNotFound, "phone %s", phone)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: check lead %s", phone)
	}
	return eris.Wrapf(ErrConflict, "phone %s", phone)
}

func (s *SQLiteStore) ListDueForFollowUp(ctx context.Context, now time.Time, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE next_follow_up_time IS NOT NULL
		   AND next_follow_up_time <= ?
		   AND follow_up_stage != ?
		   AND tour_ready = 0
		   AND (follow_up_paused_until IS NULL OR follow_up_paused_until <= ?)
		 ORDER BY next_follow_up_time ASC
		 LIMIT ?`,
		now, string(model.StageExhausted), now, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list due leads")
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads ORDER BY date_connected DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	return collectLeads(rows)
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var stage string
	var historyJSON string
	var nextFollowUp, pausedUntil, lastContacted sql.NullTime

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
	if nextFollowUp.Valid {
		t := nextFollowUp.Time
		l.NextFollowUpTime = &t
	}
	if pausedUntil.Valid {
		t := pausedUntil.Time
		l.FollowUpPausedUntil = &t
	}
	if lastContacted.Valid {
		l.LastContacted = lastContacted.Time
	}
	if err := json.Unmarshal([]byte(historyJSON), &l.ChatHistory); err != nil {
		return nil, eris.Wrap(err, "unmarshal chat history")
	}
	return &l, nil
}

func collectLeads(rows *sql.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func marshalHistory(history []model.ChatMessage) (string, error) {
	if history == nil {
		history = []model.ChatMessage{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
