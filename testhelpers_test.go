package certparse

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"net"
	"testing"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// testExtension is one extension entry for buildCert.
type testExtension struct {
	oid      asn1.ObjectIdentifier
	critical bool
	value    []byte
}

// certSpec describes a test certificate for buildCert. The zero value
// produces a minimal well-formed v1 certificate; every field has a raw
// override so individual structures can be corrupted.
type certSpec struct {
	// version 0 omits the field (v1); extensions force v3 unless
	// rawVersion overrides the whole field.
	version    int
	rawVersion []byte // full [0] EXPLICIT TLV

	serial    []byte // INTEGER contents; default {0x01}
	subject   []byte // full Name TLV; default CN=Test
	issuer    []byte // full Name TLV; default CN=Test CA
	sigAlgOID asn1.ObjectIdentifier
	rawSigAlg []byte // full AlgorithmIdentifier TLV

	extensions    []testExtension
	rawExtensions []byte // contents of the [3] wrapper, overrides extensions

	trailing []byte // appended after the outer Certificate
}

var (
	oidCommonName  = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidTestUnknown = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 99999, 1}
	oidServerAuth  = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
)

// nameWithCN encodes Name ::= SEQUENCE { SET { SEQUENCE { CN, value } } }
// with the given string tag.
func nameWithCN(t *testing.T, cn string, tag cbasn1.Tag) []byte {
	t.Helper()
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SET, func(b *cryptobyte.Builder) {
			b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(oidCommonName)
				b.AddASN1(tag, func(b *cryptobyte.Builder) {
					b.AddBytes([]byte(cn))
				})
			})
		})
	})
	return mustBytes(t, b)
}

// emptyName encodes the empty SEQUENCE.
func emptyName(t *testing.T) []byte {
	t.Helper()
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {})
	return mustBytes(t, b)
}

func sequenceOf(t *testing.T, add func(b *cryptobyte.Builder)) []byte {
	t.Helper()
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cbasn1.SEQUENCE, add)
	return mustBytes(t, b)
}

// basicConstraintsValue encodes a BasicConstraints value; pathLen < 0
// omits the field.
func basicConstraintsValue(t *testing.T, isCA bool, pathLen int) []byte {
	t.Helper()
	return sequenceOf(t, func(b *cryptobyte.Builder) {
		if isCA {
			b.AddASN1Boolean(true)
		}
		if pathLen >= 0 {
			b.AddASN1Int64(int64(pathLen))
		}
	})
}

// keyUsageValue encodes a KeyUsage BIT STRING from raw unused-bit count
// and bit bytes.
func keyUsageValue(t *testing.T, unused byte, bits ...byte) []byte {
	t.Helper()
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cbasn1.BIT_STRING, func(b *cryptobyte.Builder) {
		b.AddUint8(unused)
		b.AddBytes(bits)
	})
	return mustBytes(t, b)
}

// sanValue encodes a subjectAltName holding DNS names.
func sanValue(t *testing.T, dnsNames ...string) []byte {
	t.Helper()
	return sequenceOf(t, func(b *cryptobyte.Builder) {
		for _, name := range dnsNames {
			b.AddASN1(cbasn1.Tag(2).ContextSpecific(), func(b *cryptobyte.Builder) {
				b.AddBytes([]byte(name))
			})
		}
	})
}

// ekuValue encodes an ExtendedKeyUsage holding purpose OIDs.
func ekuValue(t *testing.T, oids ...asn1.ObjectIdentifier) []byte {
	t.Helper()
	return sequenceOf(t, func(b *cryptobyte.Builder) {
		for _, oid := range oids {
			b.AddASN1ObjectIdentifier(oid)
		}
	})
}

// buildCert assembles a DER certificate from spec.
func buildCert(t *testing.T, spec certSpec) []byte {
	t.Helper()

	serial := spec.serial
	if serial == nil {
		serial = []byte{0x01}
	}
	subject := spec.subject
	if subject == nil {
		subject = nameWithCN(t, "Test", cbasn1.PrintableString)
	}
	issuer := spec.issuer
	if issuer == nil {
		issuer = nameWithCN(t, "Test CA", cbasn1.PrintableString)
	}
	sigAlgOID := spec.sigAlgOID
	if sigAlgOID == nil {
		sigAlgOID = oidSigECDSASHA256
	}

	sigAlg := spec.rawSigAlg
	if sigAlg == nil {
		b := cryptobyte.NewBuilder(nil)
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(sigAlgOID)
		})
		sigAlg = mustBytes(t, b)
	}

	version := spec.version
	if version == 0 && spec.rawVersion == nil &&
		(spec.extensions != nil || spec.rawExtensions != nil) {
		version = 3
	}

	tbsBuilder := cryptobyte.NewBuilder(nil)
	tbsBuilder.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		switch {
		case spec.rawVersion != nil:
			b.AddBytes(spec.rawVersion)
		case version > 1:
			b.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
				b.AddASN1Int64(int64(version - 1))
			})
		}
		b.AddASN1(cbasn1.INTEGER, func(b *cryptobyte.Builder) {
			b.AddBytes(serial)
		})
		b.AddBytes(sigAlg)
		b.AddBytes(issuer)
		// Validity; opaque to the parser under test.
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1(cbasn1.UTCTime, func(b *cryptobyte.Builder) {
				b.AddBytes([]byte("250101000000Z"))
			})
			b.AddASN1(cbasn1.UTCTime, func(b *cryptobyte.Builder) {
				b.AddBytes([]byte("260101000000Z"))
			})
		})
		b.AddBytes(subject)
		// SubjectPublicKeyInfo; structurally a SEQUENCE is all this layer
		// requires.
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(oidSigEd25519)
			})
			b.AddASN1BitString([]byte{0x04, 0x08, 0x15, 0x16})
		})
		if spec.rawExtensions != nil {
			b.AddASN1(cbasn1.Tag(3).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
				b.AddBytes(spec.rawExtensions)
			})
		} else if spec.extensions != nil {
			b.AddASN1(cbasn1.Tag(3).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
				b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
					for _, ext := range spec.extensions {
						b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
							b.AddASN1ObjectIdentifier(ext.oid)
							if ext.critical {
								b.AddASN1Boolean(true)
							}
							b.AddASN1OctetString(ext.value)
						})
					}
				})
			})
		}
	})
	tbs := mustBytes(t, tbsBuilder)

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(tbs)
		b.AddBytes(sigAlg)
		b.AddASN1BitString([]byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x02})
	})
	der := mustBytes(t, b)
	return append(der, spec.trailing...)
}

func mustBytes(t *testing.T, b *cryptobyte.Builder) []byte {
	t.Helper()
	out, err := b.Bytes()
	if err != nil {
		t.Fatalf("building test DER: %v", err)
	}
	return out
}

// mustParse parses DER and fails the test on error.
func mustParse(t *testing.T, der []byte, opts Options) *Certificate {
	t.Helper()
	cert, err := Parse(der, opts, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cert
}

// generateRealCertDER signs a certificate with the standard library so the
// parser also sees DER produced by a real issuer, not only hand-built
// encodings.
func generateRealCertDER(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(4281),
		Subject:               pkix.Name{CommonName: "parse.example.com", Organization: []string{"Parse Test"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"parse.example.com", "alt.example.com"},
		IPAddresses:           []net.IP{net.IPv4(192, 0, 2, 7)},
		OCSPServer:            []string{"http://ocsp.example.com"},
		IssuingCertificateURL: []string{"http://ca.example.com/ca.cer"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return der
}
