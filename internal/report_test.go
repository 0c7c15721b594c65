package internal

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleResults() []InspectResult {
	return []InspectResult{
		{
			Verdict: "ok",
			SHA256:  strings.Repeat("ab", 32),
			Source:  "certs/good.pem",
			Format:  "pem",
			Subject: "CN=good.example.com",
			Serial:  "10:b9",
			Version: 3,
			SANs:    []string{"good.example.com"},
		},
		{
			Verdict: "failed parsing extensions",
			Errors:  []string{"failed parsing extensions"},
			SHA256:  strings.Repeat("cd", 32),
			Source:  "certs/bad.der",
			Format:  "der",
		},
	}
}

func TestFormatInspectResultsText(t *testing.T) {
	// WHY: The plain text rendering must carry the verdict, the failure
	// trail, and no ANSI escapes when color is off.
	t.Parallel()

	out, err := FormatInspectResults(sampleResults(), "text", false)
	if err != nil {
		t.Fatalf("FormatInspectResults: %v", err)
	}
	for _, want := range []string{
		"Verdict:     ok",
		"Verdict:     failed parsing extensions",
		"Subject:     CN=good.example.com",
		"certs/bad.der (der)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q", want)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("ANSI escapes present with color off")
	}
}

func TestFormatInspectResultsColor(t *testing.T) {
	t.Parallel()

	out, err := FormatInspectResults(sampleResults(), "text", true)
	if err != nil {
		t.Fatalf("FormatInspectResults: %v", err)
	}
	if !strings.Contains(out, ansiGreen+"ok"+ansiReset) {
		t.Error("ok verdict not painted green")
	}
	if !strings.Contains(out, ansiRed+"failed parsing extensions"+ansiReset) {
		t.Error("failure verdict not painted red")
	}
}

func TestFormatInspectResultsJSON(t *testing.T) {
	// WHY: JSON output must be machine-parseable and round-trip the
	// verdict fields exactly.
	t.Parallel()

	out, err := FormatInspectResults(sampleResults(), "json", false)
	if err != nil {
		t.Fatalf("FormatInspectResults: %v", err)
	}
	var decoded []InspectResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[1].Verdict != "failed parsing extensions" {
		t.Errorf("round-trip mismatch: %+v", decoded)
	}
}

func TestFormatInspectResultsUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := FormatInspectResults(nil, "xml", false); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestScanAnnotation(t *testing.T) {
	t.Parallel()

	if got := ScanAnnotation(0); got != "" {
		t.Errorf("ScanAnnotation(0) = %q", got)
	}
	if got := ScanAnnotation(3); got != " (3 invalid)" {
		t.Errorf("ScanAnnotation(3) = %q", got)
	}
}
