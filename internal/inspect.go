package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	ctx509 "github.com/google/certificate-transparency-go/x509"
	"github.com/sensiblebit/certparse"
)

// ExtensionInfo summarizes one entry of a certificate's extension table.
type ExtensionInfo struct {
	OID      string `json:"oid"`
	Critical bool   `json:"critical,omitempty"`
	Length   int    `json:"length"`
}

// InspectResult holds the inspection outcome for one certificate.
//
// Verdict and Errors come from the strict decoder and are authoritative.
// Subject, Issuer, NotBefore, NotAfter, and KeyAlgo are display-only values
// recovered by a lenient secondary parse; they may be present even when the
// strict verdict is a failure, and absent when even the lenient parse gives up.
type InspectResult struct {
	Source  string   `json:"source,omitempty"`
	Format  string   `json:"format,omitempty"`
	Verdict string   `json:"verdict"`
	Errors  []string `json:"errors,omitempty"`

	SHA256 string `json:"sha256_fingerprint"`

	Version int    `json:"version,omitempty"`
	Serial  string `json:"serial,omitempty"`
	SigAlg  string `json:"signature_algorithm,omitempty"`

	Subject   string `json:"subject,omitempty"`
	Issuer    string `json:"issuer,omitempty"`
	NotBefore string `json:"not_before,omitempty"`
	NotAfter  string `json:"not_after,omitempty"`
	KeyAlgo   string `json:"key_algorithm,omitempty"`

	SANs         []string        `json:"sans,omitempty"`
	IsCA         string          `json:"is_ca,omitempty"`
	KeyUsage     []string        `json:"key_usage,omitempty"`
	EKUs         []string        `json:"extended_key_usage,omitempty"`
	Policies     []string        `json:"policies,omitempty"`
	OCSPURLs     []string        `json:"ocsp_urls,omitempty"`
	CAIssuerURLs []string        `json:"ca_issuer_urls,omitempty"`
	SKI          string          `json:"subject_key_id,omitempty"`
	AKI          string          `json:"authority_key_id,omitempty"`
	Extensions   []ExtensionInfo `json:"extensions,omitempty"`
}

// InspectFile loads every certificate in a container file and inspects each
// with the given parser options.
func InspectFile(path string, passwords []string, opts certparse.Options) ([]InspectResult, error) {
	raws, err := LoadCertificateFile(path, passwords)
	if err != nil {
		return nil, err
	}
	results := make([]InspectResult, 0, len(raws))
	for _, raw := range raws {
		results = append(results, InspectCertificate(raw, opts))
	}
	return results, nil
}

// InspectCertificate runs the strict decoder over one certificate and fills
// in display details, falling back to the lenient parse for the fields the
// strict decoder leaves opaque.
func InspectCertificate(raw RawCertificate, opts certparse.Options) InspectResult {
	sum := sha256.Sum256(raw.DER)
	r := InspectResult{
		Source: raw.Source,
		Format: raw.Format,
		SHA256: hex.EncodeToString(sum[:]),
	}

	var errs certparse.Errors
	cert, err := certparse.Parse(raw.DER, opts, &errs)
	if err != nil {
		r.Verdict = err.Error()
		for _, entry := range errs.Entries() {
			line := string(entry.ID)
			if entry.Context != "" {
				line += ": " + entry.Context
			}
			r.Errors = append(r.Errors, line)
		}
	} else {
		r.Verdict = "ok"
		fillStrictFields(&r, cert)
	}

	fillDisplayFields(&r, raw.DER)
	return r
}

func fillStrictFields(r *InspectResult, cert *certparse.Certificate) {
	r.Version = cert.Version()
	r.Serial = ColonHex(cert.SerialNumber())
	r.SigAlg = cert.SignatureAlgorithm().String()

	if san := cert.SubjectAltNames(); san != nil {
		r.SANs = append(r.SANs, san.DNSNames...)
		r.SANs = append(r.SANs, san.RFC822Names...)
		r.SANs = append(r.SANs, san.UniformResourceIdentifiers...)
		for _, ip := range san.IPAddresses {
			r.SANs = append(r.SANs, ip.String())
		}
	}

	if bc := cert.BasicConstraints(); bc != nil {
		r.IsCA = fmt.Sprintf("%t", bc.IsCA)
		if bc.HasMaxPathLen {
			r.IsCA += fmt.Sprintf(" (pathlen %d)", bc.MaxPathLen)
		}
	}

	if ku := cert.KeyUsage(); ku != nil {
		r.KeyUsage = keyUsageNames(ku)
	}

	for _, oid := range cert.ExtendedKeyUsage() {
		r.EKUs = append(r.EKUs, oid.String())
	}
	for _, oid := range cert.PolicyOIDs() {
		r.Policies = append(r.Policies, oid.String())
	}
	r.OCSPURLs = cert.OCSPURIs()
	r.CAIssuerURLs = cert.CAIssuersURIs()

	if ski := cert.SubjectKeyIdentifier(); ski != nil {
		r.SKI = ColonHex(ski)
	}
	if aki := cert.AuthorityKeyIdentifier(); aki != nil && aki.KeyIdentifier != nil {
		r.AKI = ColonHex(aki.KeyIdentifier)
	}

	for oid, ext := range cert.Extensions() {
		r.Extensions = append(r.Extensions, ExtensionInfo{
			OID:      oid,
			Critical: ext.Critical,
			Length:   len(ext.Value),
		})
	}
	sort.Slice(r.Extensions, func(i, j int) bool {
		return r.Extensions[i].OID < r.Extensions[j].OID
	})
}

// fillDisplayFields recovers human-oriented fields via a lenient parse that
// tolerates structural faults the strict decoder rejects. It never changes
// the verdict.
func fillDisplayFields(r *InspectResult, der []byte) {
	cert, err := ctx509.ParseCertificate(der)
	if err != nil && ctx509.IsFatal(err) {
		return
	}
	if cert == nil {
		return
	}
	r.Subject = cert.Subject.String()
	r.Issuer = cert.Issuer.String()
	if !cert.NotBefore.IsZero() {
		r.NotBefore = cert.NotBefore.UTC().Format("2006-01-02T15:04:05Z")
	}
	if !cert.NotAfter.IsZero() {
		r.NotAfter = cert.NotAfter.UTC().Format("2006-01-02T15:04:05Z")
	}
	r.KeyAlgo = cert.PublicKeyAlgorithm.String()
}

func keyUsageNames(ku *certparse.KeyUsage) []string {
	named := []struct {
		bit  certparse.KeyUsageBit
		name string
	}{
		{certparse.KeyUsageDigitalSignature, "digitalSignature"},
		{certparse.KeyUsageContentCommitment, "contentCommitment"},
		{certparse.KeyUsageKeyEncipherment, "keyEncipherment"},
		{certparse.KeyUsageDataEncipherment, "dataEncipherment"},
		{certparse.KeyUsageKeyAgreement, "keyAgreement"},
		{certparse.KeyUsageCertSign, "keyCertSign"},
		{certparse.KeyUsageCRLSign, "cRLSign"},
		{certparse.KeyUsageEncipherOnly, "encipherOnly"},
		{certparse.KeyUsageDecipherOnly, "decipherOnly"},
	}
	var names []string
	for _, n := range named {
		if ku.Has(n.bit) {
			names = append(names, n.name)
		}
	}
	return names
}

// ColonHex formats a byte slice as colon-separated lowercase hex.
func ColonHex(b []byte) string {
	h := hex.EncodeToString(b)
	parts := make([]string, 0, len(h)/2)
	for i := 0; i < len(h); i += 2 {
		end := min(i+2, len(h))
		parts = append(parts, h[i:end])
	}
	return strings.Join(parts, ":")
}
