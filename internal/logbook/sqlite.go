package logbook

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Contact is one logged QSO as stored in the Cloudlog contacts table.
type Contact struct {
	Call   string
	TimeOn time.Time
	Band   int
	Mode   string
	DXCC   *int
	Grid   string
}

// SQLiteSource counts contacts in a local SQLite copy of a Cloudlog
// logbook.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite initializes the database connection, creating directories as
// needed.
func OpenSQLite(path string) (*SQLiteSource, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLiteSource{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InitSchema ensures the contacts table exists. Existing Cloudlog exports
// already carry it and are left alone.
func (s *SQLiteSource) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS TABLE_HRD_CONTACTS_V01 (
			COL_PRIMARY_KEY INTEGER PRIMARY KEY AUTOINCREMENT,
			COL_CALL TEXT NOT NULL,
			COL_TIME_ON TEXT NOT NULL,
			COL_BAND TEXT,
			COL_MODE TEXT,
			COL_DXCC INTEGER,
			COL_GRIDSQUARE TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_dxcc_band ON TABLE_HRD_CONTACTS_V01(COL_DXCC, COL_BAND);`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_grid ON TABLE_HRD_CONTACTS_V01(COL_GRIDSQUARE);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// InsertContact logs a QSO. Bands are stored Cloudlog style, "20M".
func (s *SQLiteSource) InsertContact(ctx context.Context, c Contact) error {
	if s.db == nil {
		return fmt.Errorf("logbook not initialized")
	}

	timeOn := c.TimeOn
	if timeOn.IsZero() {
		timeOn = time.Now().UTC()
	}

	var dxcc sql.NullInt64
	if c.DXCC != nil {
		dxcc = sql.NullInt64{Int64: int64(*c.DXCC), Valid: true}
	}

	var band sql.NullString
	if c.Band > 0 {
		band = sql.NullString{String: strings.ToUpper(BandName(c.Band)), Valid: true}
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO TABLE_HRD_CONTACTS_V01 (COL_CALL, COL_TIME_ON, COL_BAND, COL_MODE, COL_DXCC, COL_GRIDSQUARE) VALUES (?, ?, ?, ?, ?, ?);`,
		strings.ToUpper(c.Call),
		timeOn.UTC().Format(time.RFC3339),
		band,
		c.Mode,
		dxcc,
		strings.ToUpper(c.Grid),
	)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}

	return nil
}

// CountContacts implements CountSource.
func (s *SQLiteSource) CountContacts(ctx context.Context, scope Scope) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("logbook not initialized")
	}

	query := `SELECT COUNT(1) FROM TABLE_HRD_CONTACTS_V01 WHERE `
	var args []interface{}
	switch scope.Kind {
	case KindCountry:
		query += `COL_DXCC = ?`
		args = append(args, scope.DXCC)
	case KindGrid:
		query += `UPPER(SUBSTR(COL_GRIDSQUARE, 1, 4)) = ?`
		args = append(args, strings.ToUpper(scope.Grid))
	default:
		return 0, fmt.Errorf("unknown scope kind %q", scope.Kind)
	}

	if scope.Band > 0 {
		query += ` AND UPPER(COL_BAND) = ?`
		args = append(args, strings.ToUpper(BandName(scope.Band)))
		if scope.Mode != "" {
			query += ` AND UPPER(COL_MODE) = ?`
			args = append(args, strings.ToUpper(scope.Mode))
		}
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query+";", args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts (%s): %w", scope, err)
	}
	return n, nil
}
