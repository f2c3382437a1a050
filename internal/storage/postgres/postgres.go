package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// EventRow is a persisted viewer event.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Viewer    string                 `json:"viewer"`
	SessionID *string                `json:"session_id,omitempty"`
}

// Discovery is one successful discovery of a net from an uploaded log.
type Discovery struct {
	LogID     string    `json:"log_id"`
	FileName  string    `json:"file_name"`
	SessionID string    `json:"session_id"`
	Places    int       `json:"places"`
	Trans     int       `json:"transitions"`
	Links     int       `json:"links"`
	CreatedAt time.Time `json:"created_at"`
}

// Client stores viewer events and discovery history.
type Client struct {
	db     *sql.DB
	viewer string
}

// ConnString builds a lib/pq connection string from the PG* environment.
func ConnString() string {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "semzoom")
	dbname := getEnv("PGDATABASE", "semzoom")
	sslmode := getEnv("PGSSLMODE", "disable")

	conn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s", host, port, user, dbname, sslmode)
	if password := os.Getenv("PGPASSWORD"); password != "" {
		conn += " password=" + password
	}
	return conn
}

// New connects using the PG* environment and creates the schema.
func New(viewer string) (*Client, error) {
	db, err := sql.Open("postgres", ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	c := &Client{db: db, viewer: viewer}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return c, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS viewer_events (
			event_id   BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     JSONB,
			viewer     TEXT NOT NULL,
			session_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_viewer_events_ts ON viewer_events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_viewer_events_viewer ON viewer_events(viewer);

		CREATE TABLE IF NOT EXISTS discoveries (
			id          BIGSERIAL PRIMARY KEY,
			log_id      TEXT NOT NULL,
			file_name   TEXT NOT NULL,
			session_id  TEXT,
			places      INTEGER NOT NULL,
			transitions INTEGER NOT NULL,
			links       INTEGER NOT NULL,
			viewer      TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_discoveries_created ON discoveries(created_at DESC);
	`)
	return err
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Append inserts an event.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	var fieldsJSON []byte
	if fields != nil {
		var err error
		if fieldsJSON, err = json.Marshal(fields); err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	_, err := c.db.Exec(`
		INSERT INTO viewer_events (ts, level, event, msg, fields, viewer, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ts, level, event, nullable(msg), fieldsJSON, c.viewer, nullable(sessionID))
	return err
}

// Query returns the last limit events, newest first.
func (c *Client) Query(limit int) ([]EventRow, error) {
	limit = clampLimit(limit)

	rows, err := c.db.Query(`
		SELECT event_id, ts, level, event, msg, fields, viewer, session_id
		FROM viewer_events
		WHERE viewer = $1
		ORDER BY ts DESC
		LIMIT $2
	`, c.viewer, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var (
			e          EventRow
			fieldsJSON []byte
			msg, sess  sql.NullString
		)
		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.Viewer, &sess); err != nil {
			return nil, err
		}
		if msg.Valid {
			e.Message = &msg.String
		}
		if sess.Valid {
			e.SessionID = &sess.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecordDiscovery appends a discovery to the history.
func (c *Client) RecordDiscovery(ctx context.Context, d Discovery) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO discoveries (log_id, file_name, session_id, places, transitions, links, viewer)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.LogID, d.FileName, nullable(d.SessionID), d.Places, d.Trans, d.Links, c.viewer)
	return err
}

// Discoveries returns the most recent discoveries, newest first.
func (c *Client) Discoveries(ctx context.Context, limit int) ([]Discovery, error) {
	limit = clampLimit(limit)

	rows, err := c.db.QueryContext(ctx, `
		SELECT log_id, file_name, session_id, places, transitions, links, created_at
		FROM discoveries
		WHERE viewer = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, c.viewer, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Discovery
	for rows.Next() {
		var (
			d    Discovery
			sess sql.NullString
		)
		if err := rows.Scan(&d.LogID, &d.FileName, &sess, &d.Places, &d.Trans, &d.Links, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.SessionID = sess.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 10000 {
		return 10000
	}
	return limit
}
