package internal

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"github.com/smallstep/pkcs7"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// testCert holds a freshly generated self-signed certificate and its key.
type testCert struct {
	der []byte
	key *ecdsa.PrivateKey
}

// newTestCert generates a self-signed certificate with the given common name.
func newTestCert(t *testing.T, cn string) testCert {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(7001),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		DNSNames:              []string{cn},
		IPAddresses:           []net.IP{net.IPv4(192, 0, 2, 10)},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	return testCert{der: der, key: key}
}

func pemEncodeCert(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func pkcs7Encode(t *testing.T, der []byte) []byte {
	t.Helper()
	data, err := pkcs7.DegenerateCertificate(der)
	if err != nil {
		t.Fatalf("encoding PKCS#7: %v", err)
	}
	return data
}

func pkcs12Encode(t *testing.T, tc testCert, password string) []byte {
	t.Helper()
	cert, err := x509.ParseCertificate(tc.der)
	if err != nil {
		t.Fatalf("reparsing certificate: %v", err)
	}
	data, err := gopkcs12.Modern.Encode(tc.key, cert, nil, password)
	if err != nil {
		t.Fatalf("encoding PKCS#12: %v", err)
	}
	return data
}

func jksEncode(t *testing.T, der []byte, password string) []byte {
	t.Helper()
	ks := keystore.New()
	err := ks.SetTrustedCertificateEntry("test", keystore.TrustedCertificateEntry{
		CreationTime: time.Now(),
		Certificate:  keystore.Certificate{Type: "X.509", Content: der},
	})
	if err != nil {
		t.Fatalf("setting JKS entry: %v", err)
	}
	var buf bytes.Buffer
	if err := ks.Store(&buf, []byte(password)); err != nil {
		t.Fatalf("storing JKS: %v", err)
	}
	return buf.Bytes()
}

// writeTempFile writes data to a file in a per-test temp dir and returns the path.
func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}
