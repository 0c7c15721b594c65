package internal

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sensiblebit/certparse"
	"github.com/sensiblebit/certparse/internal/certstore"
)

// ScanPath walks a file or directory, runs the decoder over every certificate
// found, and records the outcomes in the store. Files that yield no
// certificates are logged and skipped; only walk errors abort the scan.
func ScanPath(path string, passwords []string, opts certparse.Options, store *certstore.MemStore) error {
	if path == "-" {
		return ScanFile("-", passwords, opts, store)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("input path %s: %w", path, err)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ScanFile(p, passwords, opts, store); err != nil {
			slog.Warn("skipping file", "path", p, "error", err)
		}
		return nil
	})
}

// ScanFile extracts certificates from one container file and records each
// decode outcome.
func ScanFile(path string, passwords []string, opts certparse.Options, store *certstore.MemStore) error {
	results, err := InspectFile(path, passwords, opts)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := store.Add(recordFromResult(r)); err != nil {
			slog.Warn("recording scan result", "path", path, "error", err)
		}
	}
	slog.Debug("scanned file", "path", path, "certificates", len(results))
	return nil
}

func recordFromResult(r InspectResult) *certstore.Record {
	return &certstore.Record{
		Fingerprint: r.SHA256,
		Source:      r.Source,
		Format:      r.Format,
		Verdict:     r.Verdict,
		Errors:      r.Errors,
		Subject:     r.Subject,
		Issuer:      r.Issuer,
		Serial:      r.Serial,
		Version:     r.Version,
		SigAlg:      r.SigAlg,
	}
}
