package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiDim   = "\x1b[2m"
)

// ColorEnabled reports whether ANSI color should be used when writing to f.
// Respects the NO_COLOR convention.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func paint(s, code string, color bool) string {
	if !color {
		return s
	}
	return code + s + ansiReset
}

// FormatInspectResults formats inspection results as text or JSON. Color is
// applied to text output only.
func FormatInspectResults(results []InspectResult, format string, color bool) (string, error) {
	switch format {
	case "text":
		return formatInspectText(results, color), nil
	case "json":
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
}

func formatInspectText(results []InspectResult, color bool) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Certificate:\n")
		verdict := paint(r.Verdict, ansiGreen, color)
		if r.Verdict != "ok" {
			verdict = paint(r.Verdict, ansiRed, color)
		}
		fmt.Fprintf(&sb, "  Verdict:     %s\n", verdict)
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "    %s\n", paint(e, ansiDim, color))
		}
		if r.Source != "" {
			fmt.Fprintf(&sb, "  Source:      %s (%s)\n", r.Source, r.Format)
		}
		if r.Subject != "" {
			fmt.Fprintf(&sb, "  Subject:     %s\n", r.Subject)
		}
		if len(r.SANs) > 0 {
			fmt.Fprintf(&sb, "  SANs:        %s\n", strings.Join(r.SANs, ", "))
		}
		if r.Issuer != "" {
			fmt.Fprintf(&sb, "  Issuer:      %s\n", r.Issuer)
		}
		if r.Serial != "" {
			fmt.Fprintf(&sb, "  Serial:      %s\n", r.Serial)
		}
		if r.Version != 0 {
			fmt.Fprintf(&sb, "  Version:     %d\n", r.Version)
		}
		if r.NotBefore != "" {
			fmt.Fprintf(&sb, "  Not Before:  %s\n", r.NotBefore)
		}
		if r.NotAfter != "" {
			fmt.Fprintf(&sb, "  Not After:   %s\n", r.NotAfter)
		}
		if r.KeyAlgo != "" {
			fmt.Fprintf(&sb, "  Key:         %s\n", r.KeyAlgo)
		}
		if r.SigAlg != "" {
			fmt.Fprintf(&sb, "  Signature:   %s\n", r.SigAlg)
		}
		if r.IsCA != "" {
			fmt.Fprintf(&sb, "  CA:          %s\n", r.IsCA)
		}
		if len(r.KeyUsage) > 0 {
			fmt.Fprintf(&sb, "  Key Usage:   %s\n", strings.Join(r.KeyUsage, ", "))
		}
		if len(r.EKUs) > 0 {
			fmt.Fprintf(&sb, "  EKU:         %s\n", strings.Join(r.EKUs, ", "))
		}
		if len(r.Policies) > 0 {
			fmt.Fprintf(&sb, "  Policies:    %s\n", strings.Join(r.Policies, ", "))
		}
		if len(r.OCSPURLs) > 0 {
			fmt.Fprintf(&sb, "  OCSP:        %s\n", strings.Join(r.OCSPURLs, ", "))
		}
		if len(r.CAIssuerURLs) > 0 {
			fmt.Fprintf(&sb, "  CA Issuers:  %s\n", strings.Join(r.CAIssuerURLs, ", "))
		}
		if r.SKI != "" {
			fmt.Fprintf(&sb, "  SKI:         %s\n", r.SKI)
		}
		if r.AKI != "" {
			fmt.Fprintf(&sb, "  AKI:         %s\n", r.AKI)
		}
		fmt.Fprintf(&sb, "  SHA-256:     %s\n", r.SHA256)
		if len(r.Extensions) > 0 {
			fmt.Fprintf(&sb, "  Extensions:\n")
			for _, ext := range r.Extensions {
				marker := ""
				if ext.Critical {
					marker = " critical"
				}
				fmt.Fprintf(&sb, "    %s%s (%d bytes)\n", ext.OID, marker, ext.Length)
			}
		}
	}
	return sb.String()
}

// ScanAnnotation returns a parenthetical annotation like " (2 invalid)" for a
// non-zero invalid count, or an empty string.
func ScanAnnotation(invalid int) string {
	if invalid == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d invalid)", invalid)
}
