// Package persistence provides SQLite-based storage for simulation reports.
// Only outputs are written; simulation state is never reloaded from here.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/compliance-sim/internal/behavior"
	"github.com/talgya/compliance-sim/internal/engine"
)

// ErrNotFound is returned when a metadata key has no value.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for report storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS period_stats (
		period INTEGER NOT NULL,
		date TEXT NOT NULL,
		statute_id TEXT NOT NULL,
		total_agents INTEGER NOT NULL,
		complied INTEGER NOT NULL,
		evaded INTEGER NOT NULL,
		unaware INTEGER NOT NULL,
		sought_guidance INTEGER NOT NULL,
		avg_compliance_prob REAL NOT NULL,
		detections INTEGER NOT NULL,
		penalties_paid REAL NOT NULL,
		PRIMARY KEY (period, statute_id)
	);

	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period INTEGER NOT NULL,
		date TEXT NOT NULL,
		agent_id INTEGER NOT NULL,
		statute_id TEXT NOT NULL,
		region_q INTEGER NOT NULL,
		region_r INTEGER NOT NULL,
		decision TEXT NOT NULL,
		probability REAL NOT NULL,
		detected INTEGER NOT NULL,
		outcome REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period INTEGER NOT NULL,
		date TEXT NOT NULL,
		agent_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_period ON events(period);
	CREATE INDEX IF NOT EXISTS idx_interactions_agent ON interactions(agent_id);
	CREATE INDEX IF NOT EXISTS idx_interactions_statute ON interactions(statute_id, period);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// PeriodStat is one stored row of per-statute period statistics.
type PeriodStat struct {
	Period            int     `db:"period" json:"period"`
	Date              string  `db:"date" json:"date"`
	StatuteID         string  `db:"statute_id" json:"statute_id"`
	TotalAgents       int     `db:"total_agents" json:"total_agents"`
	Complied          int     `db:"complied" json:"complied"`
	Evaded            int     `db:"evaded" json:"evaded"`
	Unaware           int     `db:"unaware" json:"unaware"`
	SoughtGuidance    int     `db:"sought_guidance" json:"sought_guidance"`
	AvgComplianceProb float64 `db:"avg_compliance_prob" json:"avg_compliance_prob"`
	Detections        int     `db:"detections" json:"detections"`
	PenaltiesPaid     float64 `db:"penalties_paid" json:"penalties_paid"`
}

// ComplianceRate returns complied/total, or 0 for an empty row.
func (p PeriodStat) ComplianceRate() float64 {
	if p.TotalAgents == 0 {
		return 0
	}
	return float64(p.Complied) / float64(p.TotalAgents)
}

// SavePeriod writes one row per statute for the report (replacing any earlier
// write for the same period).
func (db *DB) SavePeriod(report engine.PeriodReport) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	date := report.Date.Format(time.DateOnly)
	for _, cs := range report.Stats {
		_, err := tx.Exec(`INSERT OR REPLACE INTO period_stats
			(period, date, statute_id, total_agents, complied, evaded, unaware,
			 sought_guidance, avg_compliance_prob, detections, penalties_paid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.Period, date, cs.StatuteID, cs.TotalAgents, cs.Complied, cs.Evaded,
			cs.Unaware, cs.SoughtGuidance, cs.AvgComplianceProb,
			report.Detections, report.PenaltiesPaid,
		)
		if err != nil {
			return fmt.Errorf("insert period %d statute %s: %w", report.Period, cs.StatuteID, err)
		}
	}

	return tx.Commit()
}

// SaveInteractions appends interaction records.
func (db *DB) SaveInteractions(records []engine.InteractionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO interactions
		(period, date, agent_id, statute_id, region_q, region_r,
		 decision, probability, detected, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		detected := 0
		if r.Detected {
			detected = 1
		}
		_, err := stmt.Exec(
			r.Period, r.Date.Format(time.DateOnly), uint64(r.AgentID), r.StatuteID,
			r.Region.Q, r.Region.R, r.Decision.String(), r.Probability, detected, r.Outcome,
		)
		if err != nil {
			return fmt.Errorf("insert interaction agent %d: %w", r.AgentID, err)
		}
	}

	return tx.Commit()
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (period, date, agent_id, description, category) VALUES (?, ?, ?, ?, ?)",
			e.Period, e.Date.Format(time.DateOnly), uint64(e.AgentID), e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in run metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value, or ErrNotFound.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %q: %w", key, ErrNotFound)
	}
	return value, err
}

// PeriodStats returns stored rows for a statute in period order.
// An empty statuteID returns every statute.
func (db *DB) PeriodStats(statuteID string) ([]PeriodStat, error) {
	var rows []PeriodStat
	var err error
	if statuteID == "" {
		err = db.conn.Select(&rows, "SELECT * FROM period_stats ORDER BY period, statute_id")
	} else {
		err = db.conn.Select(&rows, "SELECT * FROM period_stats WHERE statute_id = ? ORDER BY period", statuteID)
	}
	if err != nil {
		return nil, fmt.Errorf("select period stats: %w", err)
	}
	return rows, nil
}

// Statutes returns the distinct statute ids with stored statistics.
func (db *DB) Statutes() ([]string, error) {
	var ids []string
	err := db.conn.Select(&ids, "SELECT DISTINCT statute_id FROM period_stats ORDER BY statute_id")
	return ids, err
}

// InteractionCount returns the number of stored interactions.
func (db *DB) InteractionCount() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM interactions")
	return n, err
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	type row struct {
		Period      int    `db:"period"`
		Date        string `db:"date"`
		AgentID     uint64 `db:"agent_id"`
		Description string `db:"description"`
		Category    string `db:"category"`
	}
	var rows []row
	err := db.conn.Select(&rows,
		"SELECT period, date, agent_id, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}

	events := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		date, _ := time.Parse(time.DateOnly, r.Date)
		events = append(events, engine.Event{
			Period:      r.Period,
			Date:        date,
			AgentID:     behavior.AgentID(r.AgentID),
			Description: r.Description,
			Category:    r.Category,
		})
	}
	return events, nil
}

// SaveReport performs a full save of one period's outputs.
func (db *DB) SaveReport(report engine.PeriodReport, events []engine.Event) error {
	slog.Debug("saving period report", "period", report.Period, "interactions", len(report.Interactions), "events", len(events))

	if err := db.SavePeriod(report); err != nil {
		return fmt.Errorf("save period: %w", err)
	}
	if err := db.SaveInteractions(report.Interactions); err != nil {
		return fmt.Errorf("save interactions: %w", err)
	}
	if err := db.SaveEvents(events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_period", fmt.Sprintf("%d", report.Period)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}
