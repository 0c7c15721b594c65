package certstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	_ "modernc.org/sqlite"
)

// sqliteRecordRow maps a row in the SQLite scan_results table.
type sqliteRecordRow struct {
	Fingerprint string         `db:"fingerprint"`
	Source      string         `db:"source"`
	Format      string         `db:"format"`
	Verdict     string         `db:"verdict"`
	ErrorsJSON  types.JSONText `db:"errors"`
	Subject     string         `db:"subject"`
	Issuer      string         `db:"issuer"`
	Serial      string         `db:"serial_number"`
	Version     int            `db:"version"`
	SigAlg      string         `db:"signature_algorithm"`
	ScannedAt   time.Time      `db:"scanned_at"`
}

// openMemDB creates an in-memory SQLite database with the scan schema.
func openMemDB() (*sqlx.DB, error) {
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// initSQLiteSchema creates the scan_results table.
func initSQLiteSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scan_results (
			fingerprint          text PRIMARY KEY,
			source               text NOT NULL,
			format               text NOT NULL,
			verdict              text NOT NULL,
			errors               text,
			subject              text,
			issuer               text,
			serial_number        text,
			version              integer,
			signature_algorithm  text,
			scanned_at           timestamp
		);
	`)
	if err != nil {
		return fmt.Errorf("creating scan_results table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_scan_results_verdict ON scan_results (verdict);
	`)
	if err != nil {
		return fmt.Errorf("creating verdict index: %w", err)
	}
	return nil
}

// LoadFromSQLite opens a SQLite database file and copies its scan records
// into the given MemStore.
func LoadFromSQLite(store *MemStore, dbPath string) error {
	db, err := openMemDB()
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	// ATTACH the on-disk database and copy data into memory
	_, err = db.Exec("ATTACH DATABASE ? AS diskdb", dbPath)
	if err != nil {
		return fmt.Errorf("attaching database %s: %w", dbPath, err)
	}
	defer func() {
		if _, detachErr := db.Exec("DETACH DATABASE diskdb"); detachErr != nil {
			slog.Warn("detaching database", "path", dbPath, "error", detachErr)
		}
	}()

	if _, err = db.Exec("INSERT OR IGNORE INTO scan_results SELECT * FROM diskdb.scan_results"); err != nil {
		return fmt.Errorf("loading scan results from %s: %w", dbPath, err)
	}

	var rows []sqliteRecordRow
	if err := db.Select(&rows, "SELECT * FROM scan_results"); err != nil {
		return fmt.Errorf("reading scan results: %w", err)
	}
	for _, row := range rows {
		rec := &Record{
			Fingerprint: row.Fingerprint,
			Source:      row.Source,
			Format:      row.Format,
			Verdict:     row.Verdict,
			Subject:     row.Subject,
			Issuer:      row.Issuer,
			Serial:      row.Serial,
			Version:     row.Version,
			SigAlg:      row.SigAlg,
			ScannedAt:   row.ScannedAt,
		}
		if len(row.ErrorsJSON) > 0 {
			if err := json.Unmarshal(row.ErrorsJSON, &rec.Errors); err != nil {
				slog.Debug("skipping malformed errors column", "fingerprint", row.Fingerprint, "error", err)
			}
		}
		if err := store.Add(rec); err != nil {
			slog.Warn("loading record from DB", "fingerprint", row.Fingerprint, "error", err)
		}
	}

	slog.Info("loaded database into store", "path", dbPath)
	return nil
}

// SaveToSQLite writes the contents of a MemStore to a SQLite database file.
func SaveToSQLite(store *MemStore, dbPath string) error {
	db, err := openMemDB()
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	for _, rec := range store.All() {
		errorsJSON, _ := json.Marshal(rec.Errors)
		row := sqliteRecordRow{
			Fingerprint: rec.Fingerprint,
			Source:      rec.Source,
			Format:      rec.Format,
			Verdict:     rec.Verdict,
			ErrorsJSON:  types.JSONText(errorsJSON),
			Subject:     rec.Subject,
			Issuer:      rec.Issuer,
			Serial:      rec.Serial,
			Version:     rec.Version,
			SigAlg:      rec.SigAlg,
			ScannedAt:   rec.ScannedAt,
		}
		_, err := db.NamedExec(`
			INSERT OR IGNORE INTO scan_results (fingerprint, source, format, verdict, errors, subject, issuer, serial_number, version, signature_algorithm, scanned_at)
			VALUES (:fingerprint, :source, :format, :verdict, :errors, :subject, :issuer, :serial_number, :version, :signature_algorithm, :scanned_at)
		`, row)
		if err != nil {
			slog.Warn("saving record to DB", "fingerprint", rec.Fingerprint, "error", err)
		}
	}

	// VACUUM INTO produces a clean, compact copy but refuses to overwrite,
	// so write to a sibling temp file and rename it into place. The rename
	// keeps repeated scans against the same --db path working.
	tmpPath := dbPath + ".tmp"
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing temp database %s: %w", tmpPath, err)
	}
	if _, err := db.Exec("VACUUM INTO ?", tmpPath); err != nil {
		return fmt.Errorf("saving database to %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dbPath); err != nil {
		return fmt.Errorf("replacing database %s: %w", dbPath, err)
	}

	slog.Info("database saved", "path", dbPath)
	return nil
}
