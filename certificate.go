// Package certparse decodes DER-encoded X.509 certificates into immutable,
// structurally-validated values, extracting the RFC 5280 extensions a chain
// builder needs. It is decode-only: no trust decisions, no signature or
// validity checking, no re-encoding.
//
// Parsing is a pure function of the input bytes and options. A successful
// parse yields a *Certificate that is immutable and safe to share across
// goroutines without synchronization; a failed parse yields no certificate
// and records the first structural fault in the caller's Errors
// accumulator.
package certparse

import (
	"encoding/asn1"
	"sort"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Options controls decoder strictness. The zero value is the strict
// profile. Options are passed by value and never mutated during a parse.
type Options struct {
	// AllowInvalidSerialNumbers tolerates serial numbers longer than the
	// 20 octets RFC 5280 permits, or with non-minimal INTEGER encodings.
	// Such serials exist in the wild on old CA certificates.
	AllowInvalidSerialNumbers bool

	// RejectUnknownCriticalExtensions fails the parse when a critical
	// extension outside the decoded set is present. Off by default:
	// rejecting unconsumed critical extensions is ordinarily the chain
	// validator's call, made with knowledge of which extensions the whole
	// stack consumes.
	RejectUnknownCriticalExtensions bool
}

// Certificate is a parsed X.509 certificate. It is immutable after Parse
// returns it; accessor results alias internal buffers and must be treated
// as read-only.
type Certificate struct {
	raw []byte

	tbs                   tbsCertificate
	signatureAlgorithm    SignatureAlgorithm
	signatureAlgorithmTLV []byte
	signatureValue        asn1.BitString

	normalizedSubject []byte
	normalizedIssuer  []byte

	extensions map[string]Extension

	basicConstraints  *BasicConstraints
	keyUsage          *KeyUsage
	extendedKeyUsage  []asn1.ObjectIdentifier
	subjectAltNameExt *Extension
	subjectAltNames   *GeneralNames
	nameConstraints   *NameConstraints
	hasAIA            bool
	caIssuersURIs     []string
	ocspURIs          []string
	policyOIDs        []asn1.ObjectIdentifier
	hasPolicies       bool
	policyConstraints *PolicyConstraints
	policyMappings    []PolicyMapping
	inhibitAnyPolicy  *uint8
	subjectKeyID      []byte
	authorityKeyID    *AuthorityKeyIdentifier
}

// Parse decodes one DER certificate. errs is optional; pass nil when the
// failure trail is not of interest. On failure the returned error is the
// terminal ErrorID (matchable with errors.Is) and no Certificate is
// returned; the input buffer is copied, so the caller may reuse it.
func Parse(der []byte, opts Options, errs *Errors) (*Certificate, error) {
	// Use a throwaway accumulator when the caller supplied none, keeping
	// the control flow below uniform.
	if errs == nil {
		errs = &Errors{}
	}

	c := &Certificate{raw: append([]byte(nil), der...)}

	tbsTLV, sigAlgTLV, sigValue, ok := parseCertificateEnvelope(c.raw)
	if !ok {
		errs.Add(ErrFailedParsingCertificate)
		return nil, ErrFailedParsingCertificate
	}
	c.signatureAlgorithmTLV = sigAlgTLV
	c.signatureValue = sigValue

	tbs, ok := parseTBSCertificate(tbsTLV, opts)
	if !ok {
		errs.Add(ErrFailedParsingTBSCertificate)
		return nil, ErrFailedParsingTBSCertificate
	}
	c.tbs = tbs

	sigAlg, ok := parseSignatureAlgorithm(sigAlgTLV)
	if !ok {
		errs.Add(ErrFailedParsingSignatureAlgorithm)
		return nil, ErrFailedParsingSignatureAlgorithm
	}
	c.signatureAlgorithm = sigAlg

	subjectValue, ok := sequenceValue(c.tbs.subjectTLV)
	if !ok {
		errs.Add(ErrFailedReadingIssuerOrSubject)
		return nil, ErrFailedReadingIssuerOrSubject
	}
	normalizedSubject, err := NormalizeName(subjectValue)
	if err != nil {
		errs.AddWithContext(ErrFailedNormalizingSubject, err.Error())
		return nil, ErrFailedNormalizingSubject
	}
	c.normalizedSubject = normalizedSubject

	issuerValue, ok := sequenceValue(c.tbs.issuerTLV)
	if !ok {
		errs.Add(ErrFailedReadingIssuerOrSubject)
		return nil, ErrFailedReadingIssuerOrSubject
	}
	normalizedIssuer, err := NormalizeName(issuerValue)
	if err != nil {
		errs.AddWithContext(ErrFailedNormalizingIssuer, err.Error())
		return nil, ErrFailedNormalizingIssuer
	}
	c.normalizedIssuer = normalizedIssuer

	if c.tbs.extensionsTLV != nil {
		if err := c.parseKnownExtensions(subjectValue, opts, errs); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// parseKnownExtensions builds the extension table and dispatches each known
// OID to its decoder, then applies the cross-field rules. Any failure is
// fatal to the whole certificate; no partial result survives.
func (c *Certificate) parseKnownExtensions(subjectValue []byte, opts Options, errs *Errors) error {
	extensions, ok := parseExtensions(c.tbs.extensionsTLV)
	if !ok {
		errs.Add(ErrFailedParsingExtensions)
		return ErrFailedParsingExtensions
	}
	c.extensions = extensions

	if ext, found := c.GetExtension(OIDBasicConstraints); found {
		bc, ok := parseBasicConstraints(ext.Value)
		if !ok {
			errs.Add(ErrFailedParsingBasicConstraints)
			return ErrFailedParsingBasicConstraints
		}
		c.basicConstraints = &bc
	}

	if ext, found := c.GetExtension(OIDKeyUsage); found {
		ku, ok := parseKeyUsage(ext.Value)
		if !ok {
			errs.Add(ErrFailedParsingKeyUsage)
			return ErrFailedParsingKeyUsage
		}
		c.keyUsage = &ku
	}

	if ext, found := c.GetExtension(OIDExtendedKeyUsage); found {
		eku, ok := parseExtendedKeyUsage(ext.Value)
		if !ok {
			errs.Add(ErrFailedParsingExtendedKeyUsage)
			return ErrFailedParsingExtendedKeyUsage
		}
		c.extendedKeyUsage = eku
	}

	if ext, found := c.GetExtension(OIDSubjectAltName); found {
		c.subjectAltNameExt = &ext
		san, ok := parseGeneralNames(ext.Value, ipAddressSingle)
		if !ok {
			errs.Add(ErrFailedParsingSubjectAltName)
			return ErrFailedParsingSubjectAltName
		}
		c.subjectAltNames = san
		// RFC 5280 section 4.1.2.6: when the subject is an empty sequence
		// the subjectAltName extension carries the only naming information
		// and MUST be critical.
		if len(subjectValue) == 0 && !ext.Critical {
			errs.Add(ErrSubjectAltNameNotCritical)
			return ErrSubjectAltNameNotCritical
		}
	}

	if ext, found := c.GetExtension(OIDNameConstraints); found {
		nc, ok := parseNameConstraints(ext.Value, ext.Critical)
		if !ok {
			errs.Add(ErrFailedParsingNameConstraints)
			return ErrFailedParsingNameConstraints
		}
		c.nameConstraints = nc
	}

	if ext, found := c.GetExtension(OIDAuthorityInfoAccess); found {
		caIssuers, ocsp, ok := parseAuthorityInfoAccess(ext.Value)
		if !ok {
			errs.Add(ErrFailedParsingAuthorityInfoAccess)
			return ErrFailedParsingAuthorityInfoAccess
		}
		c.hasAIA = true
		c.caIssuersURIs = caIssuers
		c.ocspURIs = ocsp
	}

	if ext, found := c.GetExtension(OIDCertificatePolicies); found {
		oids, ok := parseCertificatePolicyOIDs(ext.Value)
		if !ok {
			errs.Add(ErrFailedParsingPolicies)
			return ErrFailedParsingPolicies
		}
		c.hasPolicies = true
		c.policyOIDs = oids
	}

	if ext, found := c.GetExtension(OIDPolicyConstraints); found {
		pc, ok := parsePolicyConstraints(ext.Value)
		if !ok {
			errs.Add(ErrFailedParsingPolicyConstraints)
			return ErrFailedParsingPolicyConstraints
		}
		c.policyConstraints = &pc
	}

	if ext, found := c.GetExtension(OIDPolicyMappings); found {
		pm, ok := parsePolicyMappings(ext.Value)
		if !ok {
			errs.Add(ErrFailedParsingPolicyMappings)
			return ErrFailedParsingPolicyMappings
		}
		c.policyMappings = pm
	}

	if ext, found := c.GetExtension(OIDInhibitAnyPolicy); found {
		v, ok := parseInhibitAnyPolicy(ext.Value)
		if !ok {
			errs.Add(ErrFailedParsingInhibitAnyPolicy)
			return ErrFailedParsingInhibitAnyPolicy
		}
		c.inhibitAnyPolicy = &v
	}

	if ext, found := c.GetExtension(OIDSubjectKeyIdentifier); found {
		ski, ok := parseSubjectKeyIdentifier(ext.Value)
		if !ok {
			errs.Add(ErrFailedParsingSubjectKeyIdentifier)
			return ErrFailedParsingSubjectKeyIdentifier
		}
		c.subjectKeyID = emptyNotNil(ski)
	}

	if ext, found := c.GetExtension(OIDAuthorityKeyIdentifier); found {
		akid, ok := parseAuthorityKeyIdentifier(ext.Value)
		if !ok {
			errs.Add(ErrFailedParsingAuthorityKeyIdentifier)
			return ErrFailedParsingAuthorityKeyIdentifier
		}
		c.authorityKeyID = &akid
	}

	if opts.RejectUnknownCriticalExtensions {
		// Sort the offending OIDs so the recorded context is deterministic
		// regardless of map order.
		var unknown []string
		for key, ext := range c.extensions {
			if ext.Critical && !knownExtensionOIDs[key] {
				unknown = append(unknown, key)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			errs.AddWithContext(ErrUnknownCriticalExtension, unknown[0])
			return ErrUnknownCriticalExtension
		}
	}

	return nil
}

// ParseAndAppend parses one certificate and, only on success, appends it to
// chain. On failure chain is left untouched and false is returned. A thin
// convenience for chain-construction callers; it adds no parsing behavior.
func ParseAndAppend(der []byte, opts Options, chain *[]*Certificate, errs *Errors) bool {
	cert, err := Parse(der, opts, errs)
	if err != nil {
		return false
	}
	*chain = append(*chain, cert)
	return true
}

// sequenceValue extracts the contents of a TLV that must consist of exactly
// one SEQUENCE with nothing following it.
func sequenceValue(tlv []byte) ([]byte, bool) {
	input := cryptobyte.String(tlv)
	var value cryptobyte.String
	if !input.ReadASN1(&value, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, false
	}
	return value, true
}

// GetExtension looks up an extension by OID. found is false both for an
// OID with no corresponding extension and for certificates with no
// extensions envelope at all; neither case is an error.
func (c *Certificate) GetExtension(oid asn1.ObjectIdentifier) (ext Extension, found bool) {
	if c.tbs.extensionsTLV == nil {
		return Extension{}, false
	}
	ext, found = c.extensions[oid.String()]
	return ext, found
}

// Raw returns the DER bytes the certificate was parsed from.
func (c *Certificate) Raw() []byte { return c.raw }

// Version returns the certificate version: 1, 2, or 3.
func (c *Certificate) Version() int { return c.tbs.version + 1 }

// SerialNumber returns the raw INTEGER contents of the serial number.
func (c *Certificate) SerialNumber() []byte { return c.tbs.serialNumber }

// SignatureAlgorithm returns the decoded outer signature algorithm.
func (c *Certificate) SignatureAlgorithm() SignatureAlgorithm { return c.signatureAlgorithm }

// SignatureAlgorithmTLV returns the outer signatureAlgorithm TLV.
func (c *Certificate) SignatureAlgorithmTLV() []byte { return c.signatureAlgorithmTLV }

// TBSSignatureAlgorithmTLV returns the AlgorithmIdentifier TLV embedded in
// the TBSCertificate. This layer reads both but does not compare them.
func (c *Certificate) TBSSignatureAlgorithmTLV() []byte { return c.tbs.signatureAlgorithmTLV }

// SignatureValue returns the unverified signature BIT STRING.
func (c *Certificate) SignatureValue() asn1.BitString { return c.signatureValue }

// IssuerTLV returns the raw issuer Name TLV.
func (c *Certificate) IssuerTLV() []byte { return c.tbs.issuerTLV }

// SubjectTLV returns the raw subject Name TLV.
func (c *Certificate) SubjectTLV() []byte { return c.tbs.subjectTLV }

// ValidityTLV returns the raw Validity TLV. Interpreting it is the chain
// validator's job.
func (c *Certificate) ValidityTLV() []byte { return c.tbs.validityTLV }

// SPKITLV returns the raw SubjectPublicKeyInfo TLV.
func (c *Certificate) SPKITLV() []byte { return c.tbs.spkiTLV }

// IssuerUniqueID returns the issuer unique ID, or nil when absent.
func (c *Certificate) IssuerUniqueID() *asn1.BitString { return c.tbs.issuerUniqueID }

// SubjectUniqueID returns the subject unique ID, or nil when absent.
func (c *Certificate) SubjectUniqueID() *asn1.BitString { return c.tbs.subjectUniqueID }

// NormalizedSubject returns the canonical form of the subject name.
// Compare with bytes.Equal against other normalized names.
func (c *Certificate) NormalizedSubject() []byte { return c.normalizedSubject }

// NormalizedIssuer returns the canonical form of the issuer name.
func (c *Certificate) NormalizedIssuer() []byte { return c.normalizedIssuer }

// HasExtensions reports whether the extensions envelope was present.
func (c *Certificate) HasExtensions() bool { return c.tbs.extensionsTLV != nil }

// Extensions returns the extension table keyed by dotted OID. The map is
// shared, not copied; treat it as read-only.
func (c *Certificate) Extensions() map[string]Extension { return c.extensions }

// BasicConstraints returns the decoded basic constraints, or nil when the
// extension is absent. Absence is never synthesized into a default value.
func (c *Certificate) BasicConstraints() *BasicConstraints { return c.basicConstraints }

// KeyUsage returns the decoded key usage, or nil when absent.
func (c *Certificate) KeyUsage() *KeyUsage { return c.keyUsage }

// ExtendedKeyUsage returns the key purpose OIDs, or nil when absent.
func (c *Certificate) ExtendedKeyUsage() []asn1.ObjectIdentifier { return c.extendedKeyUsage }

// SubjectAltNameExtension returns the raw subjectAltName envelope, or nil
// when absent.
func (c *Certificate) SubjectAltNameExtension() *Extension { return c.subjectAltNameExt }

// SubjectAltNames returns the decoded subjectAltName general names, or nil
// when absent.
func (c *Certificate) SubjectAltNames() *GeneralNames { return c.subjectAltNames }

// NameConstraints returns the decoded name constraints, or nil when absent.
func (c *Certificate) NameConstraints() *NameConstraints { return c.nameConstraints }

// HasAuthorityInfoAccess reports whether the AIA extension was present.
func (c *Certificate) HasAuthorityInfoAccess() bool { return c.hasAIA }

// CAIssuersURIs returns the caIssuers access URIs from the AIA extension.
func (c *Certificate) CAIssuersURIs() []string { return c.caIssuersURIs }

// OCSPURIs returns the OCSP access URIs from the AIA extension.
func (c *Certificate) OCSPURIs() []string { return c.ocspURIs }

// HasPolicies reports whether the certificate policies extension was present.
func (c *Certificate) HasPolicies() bool { return c.hasPolicies }

// PolicyOIDs returns the certificate policy OIDs.
func (c *Certificate) PolicyOIDs() []asn1.ObjectIdentifier { return c.policyOIDs }

// PolicyConstraints returns the decoded policy constraints, or nil when absent.
func (c *Certificate) PolicyConstraints() *PolicyConstraints { return c.policyConstraints }

// PolicyMappings returns the decoded policy mappings, or nil when absent.
func (c *Certificate) PolicyMappings() []PolicyMapping { return c.policyMappings }

// InhibitAnyPolicy returns the decoded skip count, or nil when absent.
func (c *Certificate) InhibitAnyPolicy() *uint8 { return c.inhibitAnyPolicy }

// SubjectKeyIdentifier returns the subject key identifier bytes, or nil
// when absent.
func (c *Certificate) SubjectKeyIdentifier() []byte { return c.subjectKeyID }

// AuthorityKeyIdentifier returns the decoded authority key identifier, or
// nil when absent.
func (c *Certificate) AuthorityKeyIdentifier() *AuthorityKeyIdentifier { return c.authorityKeyID }
