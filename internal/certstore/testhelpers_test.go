package certstore

import (
	"fmt"
	"testing"
)

// newRecord builds a valid scan record with a unique fingerprint derived
// from the sequence number.
func newRecord(t *testing.T, n int) *Record {
	t.Helper()
	return &Record{
		Fingerprint: fmt.Sprintf("%064x", n),
		Source:      fmt.Sprintf("certs/cert-%d.pem", n),
		Format:      "pem",
		Verdict:     "ok",
		Subject:     fmt.Sprintf("CN=cert-%d.example.com", n),
		Issuer:      "CN=Test Root CA",
		Serial:      "01:02:03",
		Version:     3,
		SigAlg:      "ECDSA-SHA256",
	}
}

// newRejectRecord builds a record for a certificate the decoder rejected.
func newRejectRecord(t *testing.T, n int, verdict string, trail ...string) *Record {
	t.Helper()
	rec := newRecord(t, n)
	rec.Verdict = verdict
	rec.Errors = trail
	rec.Subject = ""
	rec.Serial = ""
	rec.Version = 0
	rec.SigAlg = ""
	return rec
}
