package internal

import (
	"bytes"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"github.com/smallstep/pkcs7"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// RawCertificate is one DER-encoded certificate extracted from an input
// container, before any structural validation has been applied to it.
type RawCertificate struct {
	DER    []byte
	Format string // "pem", "der", "pkcs7", "pkcs12", "jks"
	Source string // file path, or "-" for stdin
}

// LoadCertificateFile reads a file and extracts every certificate it can find,
// trying PEM, JKS, PKCS#7, PKCS#12, and raw DER in that order. A path of "-"
// reads stdin.
func LoadCertificateFile(path string, passwords []string) ([]RawCertificate, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	certs, err := ExtractCertificates(data, passwords)
	if err != nil {
		return nil, fmt.Errorf("extracting certificates from %s: %w", path, err)
	}
	for i := range certs {
		certs[i].Source = path
	}
	return certs, nil
}

// ExtractCertificates pulls raw certificate DER out of container data. The
// container formats are decoded with their own libraries, but the certificates
// themselves are returned undecoded so the caller's parser is the sole judge
// of their structure.
func ExtractCertificates(data []byte, passwords []string) ([]RawCertificate, error) {
	if isPEM(data) {
		return extractPEM(data)
	}

	// JKS magic bytes 0xFEEDFEED
	if len(data) >= 4 && data[0] == 0xFE && data[1] == 0xED && data[2] == 0xFE && data[3] == 0xED {
		if certs, err := extractJKS(data, passwords); err == nil {
			return certs, nil
		}
	}

	if certs, err := extractPKCS7(data); err == nil {
		return certs, nil
	}

	for _, pw := range passwords {
		if certs, err := extractPKCS12(data, pw); err == nil {
			return certs, nil
		}
	}

	if looksLikeCertificate(data) {
		return []RawCertificate{{DER: data, Format: "der"}}, nil
	}

	return nil, errors.New("could not extract certificates as PEM, DER, PKCS#12, JKS, or PKCS#7")
}

func extractPEM(data []byte) ([]RawCertificate, error) {
	var certs []RawCertificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		certs = append(certs, RawCertificate{DER: block.Bytes, Format: "pem"})
	}
	if len(certs) == 0 {
		return nil, errors.New("no CERTIFICATE blocks found in PEM data")
	}
	return certs, nil
}

// extractJKS walks a Java KeyStore collecting certificate entry bytes.
// TrustedCertificateEntry entries and PrivateKeyEntry chains both contribute;
// private key material is ignored. The same password list is tried for the
// store and its entries (standard Java convention).
func extractJKS(data []byte, passwords []string) ([]RawCertificate, error) {
	for _, pw := range passwords {
		ks := keystore.New()
		if err := ks.Load(bytes.NewReader(data), []byte(pw)); err != nil {
			continue
		}

		var certs []RawCertificate
		for _, alias := range ks.Aliases() {
			if ks.IsTrustedCertificateEntry(alias) {
				entry, err := ks.GetTrustedCertificateEntry(alias)
				if err != nil {
					continue
				}
				certs = append(certs, RawCertificate{DER: entry.Certificate.Content, Format: "jks"})
			}
			if ks.IsPrivateKeyEntry(alias) {
				entry, err := ks.GetPrivateKeyEntry(alias, []byte(pw))
				if err != nil {
					continue
				}
				for _, chainCert := range entry.CertificateChain {
					certs = append(certs, RawCertificate{DER: chainCert.Content, Format: "jks"})
				}
			}
		}
		if len(certs) == 0 {
			return nil, errors.New("JKS contains no certificate entries")
		}
		return certs, nil
	}
	return nil, errors.New("loading JKS with any provided password")
}

func extractPKCS7(data []byte) ([]RawCertificate, error) {
	p7, err := pkcs7.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#7: %w", err)
	}
	if len(p7.Certificates) == 0 {
		return nil, errors.New("PKCS#7 bundle contains no certificates")
	}
	certs := make([]RawCertificate, 0, len(p7.Certificates))
	for _, cert := range p7.Certificates {
		certs = append(certs, RawCertificate{DER: cert.Raw, Format: "pkcs7"})
	}
	return certs, nil
}

func extractPKCS12(data []byte, password string) ([]RawCertificate, error) {
	var certs []RawCertificate
	if _, leaf, caCerts, err := gopkcs12.DecodeChain(data, password); err == nil {
		certs = append(certs, RawCertificate{DER: leaf.Raw, Format: "pkcs12"})
		for _, ca := range caCerts {
			certs = append(certs, RawCertificate{DER: ca.Raw, Format: "pkcs12"})
		}
		return certs, nil
	}
	// Cert-only trust stores have no private key and fail DecodeChain.
	trusted, err := gopkcs12.DecodeTrustStore(data, password)
	if err != nil {
		return nil, fmt.Errorf("decoding PKCS#12: %w", err)
	}
	for _, cert := range trusted {
		certs = append(certs, RawCertificate{DER: cert.Raw, Format: "pkcs12"})
	}
	if len(certs) == 0 {
		return nil, errors.New("PKCS#12 contains no certificates")
	}
	return certs, nil
}

// looksLikeCertificate reports whether data plausibly holds a raw DER
// Certificate: an outer SEQUENCE whose first element is itself a SEQUENCE
// (the TBSCertificate). PKCS#7 and PKCS#12 containers are outer SEQUENCEs
// too, but they lead with an OID or an INTEGER.
func looksLikeCertificate(data []byte) bool {
	if len(data) < 2 || data[0] != 0x30 {
		return false
	}
	i := 2
	if b := data[1]; b&0x80 != 0 {
		n := int(b & 0x7F)
		if n == 0 || n > 4 || len(data) < 2+n {
			return false
		}
		i = 2 + n
	}
	return i < len(data) && data[i] == 0x30
}

// isPEM returns true if the data appears to contain PEM-encoded content.
func isPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN"))
}
