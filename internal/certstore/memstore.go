// Package certstore catalogs the outcomes of certificate scans, in memory
// and optionally persisted to SQLite. It records what the decoder concluded;
// it performs no validation of its own.
package certstore

import (
	"errors"
	"log/slog"
	"sort"
	"time"
)

// Record holds the scan outcome for one certificate.
type Record struct {
	Fingerprint string   // SHA-256 of the DER, lowercase hex
	Source      string   // file that contributed the certificate
	Format      string   // container format it was extracted from
	Verdict     string   // "ok" or the terminal failure identifier
	Errors      []string // failure trail, empty on success
	Subject     string   // display form, may be empty for rejects
	Issuer      string
	Serial      string // colon-separated hex
	Version     int
	SigAlg      string
	ScannedAt   time.Time
}

// Valid reports whether the decoder accepted the certificate.
func (r *Record) Valid() bool { return r.Verdict == "ok" }

// MemStore is an in-memory scan catalog. Records are deduplicated by
// fingerprint, matching the SQLite primary key.
type MemStore struct {
	byFingerprint map[string]*Record
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{byFingerprint: make(map[string]*Record)}
}

// Add stores a record. The first record for a fingerprint wins; later
// duplicates are skipped (INSERT OR IGNORE semantics). The record is copied
// before any timestamp stamping, so the caller's value is never mutated and
// may be reused against other stores.
func (s *MemStore) Add(rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if rec.Fingerprint == "" {
		return errors.New("record has no fingerprint")
	}
	if _, exists := s.byFingerprint[rec.Fingerprint]; exists {
		return nil
	}
	stored := *rec
	if stored.ScannedAt.IsZero() {
		stored.ScannedAt = time.Now().UTC()
	}
	s.byFingerprint[stored.Fingerprint] = &stored
	return nil
}

// Get returns the record for a fingerprint, or nil.
func (s *MemStore) Get(fingerprint string) *Record {
	return s.byFingerprint[fingerprint]
}

// Len returns the number of stored records.
func (s *MemStore) Len() int { return len(s.byFingerprint) }

// All returns the records sorted by source then fingerprint, so output is
// stable across runs.
func (s *MemStore) All() []*Record {
	result := make([]*Record, 0, len(s.byFingerprint))
	for _, rec := range s.byFingerprint {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Source != result[j].Source {
			return result[i].Source < result[j].Source
		}
		return result[i].Fingerprint < result[j].Fingerprint
	})
	return result
}

// Invalid returns the records the decoder rejected, in All order.
func (s *MemStore) Invalid() []*Record {
	var result []*Record
	for _, rec := range s.All() {
		if !rec.Valid() {
			result = append(result, rec)
		}
	}
	return result
}

// Summary holds aggregate counts for a scan.
type Summary struct {
	Total     int
	Valid     int
	Invalid   int
	ByVerdict map[string]int // failure identifier → count, excludes "ok"
}

// Summarize returns aggregate counts of the stored records.
func (s *MemStore) Summarize() Summary {
	summary := Summary{ByVerdict: make(map[string]int)}
	for _, rec := range s.byFingerprint {
		summary.Total++
		if rec.Valid() {
			summary.Valid++
			continue
		}
		summary.Invalid++
		summary.ByVerdict[rec.Verdict]++
	}
	return summary
}

// DumpDebug logs all records at debug level.
func (s *MemStore) DumpDebug() {
	slog.Debug("dumping scan records")
	for fp, rec := range s.byFingerprint {
		slog.Debug("scan record",
			"fingerprint", fp,
			"source", rec.Source,
			"format", rec.Format,
			"verdict", rec.Verdict,
			"subject", rec.Subject,
			"serial", rec.Serial)
	}
	slog.Debug("total records", "count", len(s.byFingerprint))
}

// Reset clears all stored records.
func (s *MemStore) Reset() {
	s.byFingerprint = make(map[string]*Record)
}
