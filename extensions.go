package certparse

import (
	"encoding/asn1"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Extension is one entry of the extension table: the envelope fields of a
// single X.509 extension with its value left opaque.
type Extension struct {
	OID      asn1.ObjectIdentifier
	Critical bool
	Value    []byte
}

// parseExtensions decodes the Extensions TLV into a table keyed by the
// dotted form of each OID. RFC 5280 allows at most one instance of a given
// extension; a duplicate OID fails the whole table rather than keeping
// either occurrence, since silently picking one would mask a malformed or
// adversarial certificate.
func parseExtensions(extensionsTLV []byte) (map[string]Extension, bool) {
	input := cryptobyte.String(extensionsTLV)
	var extensions cryptobyte.String
	if !input.ReadASN1(&extensions, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, false
	}
	// Extensions ::= SEQUENCE SIZE (1..MAX) OF Extension
	if extensions.Empty() {
		return nil, false
	}

	table := make(map[string]Extension)
	for !extensions.Empty() {
		var ext cryptobyte.String
		if !extensions.ReadASN1(&ext, cbasn1.SEQUENCE) {
			return nil, false
		}
		var oid asn1.ObjectIdentifier
		if !ext.ReadASN1ObjectIdentifier(&oid) {
			return nil, false
		}
		critical := false
		if ext.PeekASN1Tag(cbasn1.BOOLEAN) {
			if !ext.ReadASN1Boolean(&critical) {
				return nil, false
			}
			// critical DEFAULT FALSE: DER forbids encoding the default
			// value, so an explicit FALSE is malformed.
			if !critical {
				return nil, false
			}
		}
		var value cryptobyte.String
		if !ext.ReadASN1(&value, cbasn1.OCTET_STRING) || !ext.Empty() {
			return nil, false
		}

		key := oid.String()
		if _, dup := table[key]; dup {
			return nil, false
		}
		table[key] = Extension{OID: oid, Critical: critical, Value: value}
	}
	return table, true
}

// BasicConstraints is the decoded basic constraints extension.
// MaxPathLen is meaningful only when HasMaxPathLen is true.
type BasicConstraints struct {
	IsCA          bool
	MaxPathLen    int
	HasMaxPathLen bool
}

// parseBasicConstraints decodes RFC 5280 section 4.2.1.9:
//
//	BasicConstraints ::= SEQUENCE {
//	     cA                      BOOLEAN DEFAULT FALSE,
//	     pathLenConstraint       INTEGER (0..MAX) OPTIONAL }
func parseBasicConstraints(value []byte) (BasicConstraints, bool) {
	var out BasicConstraints
	input := cryptobyte.String(value)
	var bc cryptobyte.String
	if !input.ReadASN1(&bc, cbasn1.SEQUENCE) || !input.Empty() {
		return out, false
	}
	if bc.PeekASN1Tag(cbasn1.BOOLEAN) {
		if !bc.ReadASN1Boolean(&out.IsCA) {
			return out, false
		}
	}
	if bc.PeekASN1Tag(cbasn1.INTEGER) {
		if !bc.ReadASN1Integer(&out.MaxPathLen) {
			return out, false
		}
		if out.MaxPathLen < 0 {
			return out, false
		}
		out.HasMaxPathLen = true
	}
	if !bc.Empty() {
		return out, false
	}
	return out, true
}

// KeyUsageBit names a bit position in the key usage BIT STRING.
type KeyUsageBit int

const (
	KeyUsageDigitalSignature  KeyUsageBit = 0
	KeyUsageContentCommitment KeyUsageBit = 1
	KeyUsageKeyEncipherment   KeyUsageBit = 2
	KeyUsageDataEncipherment  KeyUsageBit = 3
	KeyUsageKeyAgreement      KeyUsageBit = 4
	KeyUsageCertSign          KeyUsageBit = 5
	KeyUsageCRLSign           KeyUsageBit = 6
	KeyUsageEncipherOnly      KeyUsageBit = 7
	KeyUsageDecipherOnly      KeyUsageBit = 8
)

// KeyUsage is the decoded key usage BIT STRING.
type KeyUsage struct {
	bits asn1.BitString
}

// Has reports whether the given bit is asserted. Bits beyond the encoded
// length are unasserted, matching the BIT STRING semantics.
func (k KeyUsage) Has(bit KeyUsageBit) bool {
	return k.bits.At(int(bit)) == 1
}

// BitLength returns the number of encoded bits.
func (k KeyUsage) BitLength() int { return k.bits.BitLength }

// parseKeyUsage decodes RFC 5280 section 4.2.1.3. The named-bit DER rules
// apply: trailing zero bits must not be encoded, so a key usage asserting
// nothing at all is malformed.
func parseKeyUsage(value []byte) (KeyUsage, bool) {
	input := cryptobyte.String(value)
	var bits asn1.BitString
	if !input.ReadASN1BitString(&bits) || !input.Empty() {
		return KeyUsage{}, false
	}
	if bits.BitLength == 0 {
		return KeyUsage{}, false
	}
	// DER named-bit form: the final encoded bit must be set.
	if bits.At(bits.BitLength-1) != 1 {
		return KeyUsage{}, false
	}
	return KeyUsage{bits: bits}, true
}

// parseExtendedKeyUsage decodes RFC 5280 section 4.2.1.12: a non-empty
// SEQUENCE of key purpose OIDs.
func parseExtendedKeyUsage(value []byte) ([]asn1.ObjectIdentifier, bool) {
	input := cryptobyte.String(value)
	var eku cryptobyte.String
	if !input.ReadASN1(&eku, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, false
	}
	if eku.Empty() {
		return nil, false
	}
	var oids []asn1.ObjectIdentifier
	for !eku.Empty() {
		var oid asn1.ObjectIdentifier
		if !eku.ReadASN1ObjectIdentifier(&oid) {
			return nil, false
		}
		oids = append(oids, oid)
	}
	return oids, true
}

// parseAuthorityInfoAccess decodes RFC 5280 section 4.2.2.1, collecting the
// URI-form access locations for the caIssuers and OCSP access methods.
// Other access methods and non-URI locations are valid and skipped.
func parseAuthorityInfoAccess(value []byte) (caIssuers, ocsp []string, ok bool) {
	input := cryptobyte.String(value)
	var aia cryptobyte.String
	if !input.ReadASN1(&aia, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, nil, false
	}
	if aia.Empty() {
		return nil, nil, false
	}
	for !aia.Empty() {
		var desc cryptobyte.String
		if !aia.ReadASN1(&desc, cbasn1.SEQUENCE) {
			return nil, nil, false
		}
		var method asn1.ObjectIdentifier
		if !desc.ReadASN1ObjectIdentifier(&method) {
			return nil, nil, false
		}
		var location cryptobyte.String
		var locationTag cbasn1.Tag
		if !desc.ReadAnyASN1(&location, &locationTag) || !desc.Empty() {
			return nil, nil, false
		}
		// uniformResourceIdentifier [6] IMPLICIT IA5String
		if locationTag != cbasn1.Tag(6).ContextSpecific() {
			continue
		}
		if !isIA5String(location) {
			return nil, nil, false
		}
		switch {
		case method.Equal(oidAccessMethodCAIssuers):
			caIssuers = append(caIssuers, string(location))
		case method.Equal(oidAccessMethodOCSP):
			ocsp = append(ocsp, string(location))
		}
	}
	return caIssuers, ocsp, true
}

// parseCertificatePolicyOIDs decodes the policy OIDs of RFC 5280 section
// 4.2.1.4, ignoring qualifier contents. A policy OID listed twice is
// malformed per the RFC and fails the decode.
func parseCertificatePolicyOIDs(value []byte) ([]asn1.ObjectIdentifier, bool) {
	input := cryptobyte.String(value)
	var policies cryptobyte.String
	if !input.ReadASN1(&policies, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, false
	}
	if policies.Empty() {
		return nil, false
	}
	var oids []asn1.ObjectIdentifier
	seen := make(map[string]bool)
	for !policies.Empty() {
		var info cryptobyte.String
		if !policies.ReadASN1(&info, cbasn1.SEQUENCE) {
			return nil, false
		}
		var oid asn1.ObjectIdentifier
		if !info.ReadASN1ObjectIdentifier(&oid) {
			return nil, false
		}
		if seen[oid.String()] {
			return nil, false
		}
		seen[oid.String()] = true
		oids = append(oids, oid)

		// policyQualifiers SEQUENCE SIZE (1..MAX) OPTIONAL
		if !info.Empty() {
			var qualifiers cryptobyte.String
			if !info.ReadASN1(&qualifiers, cbasn1.SEQUENCE) || !info.Empty() {
				return nil, false
			}
			if qualifiers.Empty() {
				return nil, false
			}
		}
	}
	return oids, true
}

// PolicyConstraints is the decoded policy constraints extension. At least
// one of the two fields is present.
type PolicyConstraints struct {
	RequireExplicitPolicy *uint8
	InhibitPolicyMapping  *uint8
}

// parsePolicyConstraints decodes RFC 5280 section 4.2.1.11. The RFC forbids
// an empty SEQUENCE. Values are constrained to a single octet; path
// building has no use for larger skip counts.
func parsePolicyConstraints(value []byte) (PolicyConstraints, bool) {
	var out PolicyConstraints
	input := cryptobyte.String(value)
	var pc cryptobyte.String
	if !input.ReadASN1(&pc, cbasn1.SEQUENCE) || !input.Empty() {
		return out, false
	}
	if pc.Empty() {
		return out, false
	}

	var rawRequire cryptobyte.String
	var requirePresent bool
	if !pc.ReadOptionalASN1(&rawRequire, &requirePresent, cbasn1.Tag(0).ContextSpecific()) {
		return out, false
	}
	if requirePresent {
		v, ok := parseUint8Contents(rawRequire)
		if !ok {
			return out, false
		}
		out.RequireExplicitPolicy = &v
	}

	var rawInhibit cryptobyte.String
	var inhibitPresent bool
	if !pc.ReadOptionalASN1(&rawInhibit, &inhibitPresent, cbasn1.Tag(1).ContextSpecific()) {
		return out, false
	}
	if inhibitPresent {
		v, ok := parseUint8Contents(rawInhibit)
		if !ok {
			return out, false
		}
		out.InhibitPolicyMapping = &v
	}

	if !pc.Empty() {
		return out, false
	}
	return out, true
}

// PolicyMapping is one issuer-domain to subject-domain policy pair.
type PolicyMapping struct {
	IssuerDomainPolicy  asn1.ObjectIdentifier
	SubjectDomainPolicy asn1.ObjectIdentifier
}

// parsePolicyMappings decodes RFC 5280 section 4.2.1.5: a non-empty
// SEQUENCE of OID pairs.
func parsePolicyMappings(value []byte) ([]PolicyMapping, bool) {
	input := cryptobyte.String(value)
	var mappings cryptobyte.String
	if !input.ReadASN1(&mappings, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, false
	}
	if mappings.Empty() {
		return nil, false
	}
	var out []PolicyMapping
	for !mappings.Empty() {
		var pair cryptobyte.String
		if !mappings.ReadASN1(&pair, cbasn1.SEQUENCE) {
			return nil, false
		}
		var m PolicyMapping
		if !pair.ReadASN1ObjectIdentifier(&m.IssuerDomainPolicy) {
			return nil, false
		}
		if !pair.ReadASN1ObjectIdentifier(&m.SubjectDomainPolicy) || !pair.Empty() {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

// parseInhibitAnyPolicy decodes RFC 5280 section 4.2.1.14: a single
// INTEGER skip count, constrained to one octet as for policy constraints.
func parseInhibitAnyPolicy(value []byte) (uint8, bool) {
	input := cryptobyte.String(value)
	var raw cryptobyte.String
	if !input.ReadASN1(&raw, cbasn1.INTEGER) || !input.Empty() {
		return 0, false
	}
	return parseUint8Contents(raw)
}

// parseSubjectKeyIdentifier decodes RFC 5280 section 4.2.1.2: the key
// identifier OCTET STRING, returned as raw bytes.
func parseSubjectKeyIdentifier(value []byte) ([]byte, bool) {
	input := cryptobyte.String(value)
	var ski cryptobyte.String
	if !input.ReadASN1(&ski, cbasn1.OCTET_STRING) || !input.Empty() {
		return nil, false
	}
	return ski, true
}

// AuthorityKeyIdentifier is the decoded authority key identifier
// extension. A nil slice means the field was absent; a present-but-empty
// keyIdentifier decodes to an empty non-nil slice.
type AuthorityKeyIdentifier struct {
	KeyIdentifier             []byte
	AuthorityCertIssuer       []byte // raw GeneralNames contents
	AuthorityCertSerialNumber []byte // raw INTEGER contents
}

// parseAuthorityKeyIdentifier decodes RFC 5280 section 4.2.1.1. All three
// fields are IMPLICIT and optional; the issuer/serial pairing rule is left
// to path building.
func parseAuthorityKeyIdentifier(value []byte) (AuthorityKeyIdentifier, bool) {
	var out AuthorityKeyIdentifier
	input := cryptobyte.String(value)
	var akid cryptobyte.String
	if !input.ReadASN1(&akid, cbasn1.SEQUENCE) || !input.Empty() {
		return out, false
	}

	var keyID cryptobyte.String
	var keyIDPresent bool
	if !akid.ReadOptionalASN1(&keyID, &keyIDPresent, cbasn1.Tag(0).ContextSpecific()) {
		return out, false
	}
	if keyIDPresent {
		out.KeyIdentifier = emptyNotNil(keyID)
	}

	var certIssuer cryptobyte.String
	var certIssuerPresent bool
	if !akid.ReadOptionalASN1(&certIssuer, &certIssuerPresent,
		cbasn1.Tag(1).Constructed().ContextSpecific()) {
		return out, false
	}
	if certIssuerPresent {
		out.AuthorityCertIssuer = emptyNotNil(certIssuer)
	}

	var certSerial cryptobyte.String
	var certSerialPresent bool
	if !akid.ReadOptionalASN1(&certSerial, &certSerialPresent, cbasn1.Tag(2).ContextSpecific()) {
		return out, false
	}
	if certSerialPresent {
		if !isValidInteger(certSerial) {
			return out, false
		}
		out.AuthorityCertSerialNumber = certSerial
	}

	if !akid.Empty() {
		return out, false
	}
	return out, true
}

// parseUint8Contents interprets raw INTEGER contents as a non-negative
// value fitting one octet.
func parseUint8Contents(contents []byte) (uint8, bool) {
	if !isValidInteger(contents) {
		return 0, false
	}
	switch len(contents) {
	case 1:
		if contents[0]&0x80 != 0 {
			return 0, false
		}
		return contents[0], true
	case 2:
		// 0x00 prefix carrying a value with the high bit set.
		if contents[0] != 0x00 {
			return 0, false
		}
		return contents[1], true
	default:
		return 0, false
	}
}

// emptyNotNil pins a possibly-empty span to a non-nil slice so "present but
// empty" stays distinguishable from "absent".
func emptyNotNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// isIA5String reports whether b contains only ASCII, the character set of
// an IA5String.
func isIA5String(b []byte) bool {
	for _, c := range b {
		if c > 127 {
			return false
		}
	}
	return true
}
