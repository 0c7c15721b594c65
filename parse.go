package certparse

import (
	"encoding/asn1"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// tbsCertificate holds the fields of the TBSCertificate envelope. Issuer,
// validity, subject, and SPKI are kept as raw TLV spans into the
// certificate's backing buffer; this layer does not interpret them beyond
// the structural checks below.
type tbsCertificate struct {
	version               int
	serialNumber          []byte // INTEGER contents
	signatureAlgorithmTLV []byte
	issuerTLV             []byte
	validityTLV           []byte
	subjectTLV            []byte
	spkiTLV               []byte
	issuerUniqueID        *asn1.BitString
	subjectUniqueID       *asn1.BitString
	extensionsTLV         []byte // nil when the envelope is absent
}

// Certificate versions, as encoded (v1 = 0).
const (
	versionV1 = 0
	versionV2 = 1
	versionV3 = 2
)

// parseCertificateEnvelope splits a DER Certificate into its exactly three
// parts: the TBSCertificate TLV, the signatureAlgorithm TLV, and the
// signatureValue BIT STRING. Trailing bytes after the outer SEQUENCE, or
// inside it, are rejected.
func parseCertificateEnvelope(der []byte) (tbsTLV, sigAlgTLV []byte, sigValue asn1.BitString, ok bool) {
	input := cryptobyte.String(der)
	var cert cryptobyte.String
	if !input.ReadASN1(&cert, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, nil, asn1.BitString{}, false
	}
	var tbs, sigAlg cryptobyte.String
	if !cert.ReadASN1Element(&tbs, cbasn1.SEQUENCE) {
		return nil, nil, asn1.BitString{}, false
	}
	if !cert.ReadASN1Element(&sigAlg, cbasn1.SEQUENCE) {
		return nil, nil, asn1.BitString{}, false
	}
	var sig asn1.BitString
	if !cert.ReadASN1BitString(&sig) {
		return nil, nil, asn1.BitString{}, false
	}
	if !cert.Empty() {
		return nil, nil, asn1.BitString{}, false
	}
	return tbs, sigAlg, sig, true
}

// parseTBSCertificate decodes the TBSCertificate envelope from its full TLV.
//
// RFC 5280 section 4.1: the version is an EXPLICIT [0] INTEGER defaulting
// to v1; DER forbids encoding the default, so an explicit v1 is rejected.
// Unique IDs require v2 or later, the extensions envelope requires v3.
func parseTBSCertificate(tbsTLV []byte, opts Options) (tbsCertificate, bool) {
	var out tbsCertificate

	input := cryptobyte.String(tbsTLV)
	var tbs cryptobyte.String
	if !input.ReadASN1(&tbs, cbasn1.SEQUENCE) || !input.Empty() {
		return out, false
	}

	// Version.
	var versionWrapper cryptobyte.String
	var versionPresent bool
	if !tbs.ReadOptionalASN1(&versionWrapper, &versionPresent,
		cbasn1.Tag(0).Constructed().ContextSpecific()) {
		return out, false
	}
	if versionPresent {
		var version int
		if !versionWrapper.ReadASN1Integer(&version) || !versionWrapper.Empty() {
			return out, false
		}
		if version <= versionV1 || version > versionV3 {
			return out, false
		}
		out.version = version
	} else {
		out.version = versionV1
	}

	// Serial number.
	var serial cryptobyte.String
	if !tbs.ReadASN1(&serial, cbasn1.INTEGER) {
		return out, false
	}
	if !checkSerialNumber(serial, opts) {
		return out, false
	}
	out.serialNumber = serial

	// Inner signature AlgorithmIdentifier, kept as an opaque TLV here. The
	// outer algorithm is what gets decoded; comparing the two belongs to
	// signature verification, not structural parsing.
	var sigAlg cryptobyte.String
	if !tbs.ReadASN1Element(&sigAlg, cbasn1.SEQUENCE) {
		return out, false
	}
	out.signatureAlgorithmTLV = sigAlg

	// Issuer and subject are captured as raw TLVs without a tag check; the
	// orchestrator reads them back as sequences and reports a dedicated
	// error when they are not.
	var issuer cryptobyte.String
	var issuerTag cbasn1.Tag
	if !tbs.ReadAnyASN1Element(&issuer, &issuerTag) {
		return out, false
	}
	out.issuerTLV = issuer

	var validity cryptobyte.String
	if !tbs.ReadASN1Element(&validity, cbasn1.SEQUENCE) {
		return out, false
	}
	out.validityTLV = validity

	var subject cryptobyte.String
	var subjectTag cbasn1.Tag
	if !tbs.ReadAnyASN1Element(&subject, &subjectTag) {
		return out, false
	}
	out.subjectTLV = subject

	var spki cryptobyte.String
	if !tbs.ReadASN1Element(&spki, cbasn1.SEQUENCE) {
		return out, false
	}
	out.spkiTLV = spki

	// issuerUniqueID [1] IMPLICIT BIT STRING OPTIONAL
	var issuerUID cryptobyte.String
	var issuerUIDPresent bool
	if !tbs.ReadOptionalASN1(&issuerUID, &issuerUIDPresent, cbasn1.Tag(1).ContextSpecific()) {
		return out, false
	}
	if issuerUIDPresent {
		if out.version < versionV2 {
			return out, false
		}
		bits, ok := parseBitStringContents(issuerUID)
		if !ok {
			return out, false
		}
		out.issuerUniqueID = &bits
	}

	// subjectUniqueID [2] IMPLICIT BIT STRING OPTIONAL
	var subjectUID cryptobyte.String
	var subjectUIDPresent bool
	if !tbs.ReadOptionalASN1(&subjectUID, &subjectUIDPresent, cbasn1.Tag(2).ContextSpecific()) {
		return out, false
	}
	if subjectUIDPresent {
		if out.version < versionV2 {
			return out, false
		}
		bits, ok := parseBitStringContents(subjectUID)
		if !ok {
			return out, false
		}
		out.subjectUniqueID = &bits
	}

	// extensions [3] EXPLICIT Extensions OPTIONAL
	var extWrapper cryptobyte.String
	var extPresent bool
	if !tbs.ReadOptionalASN1(&extWrapper, &extPresent,
		cbasn1.Tag(3).Constructed().ContextSpecific()) {
		return out, false
	}
	if extPresent {
		if out.version != versionV3 {
			return out, false
		}
		var extensions cryptobyte.String
		if !extWrapper.ReadASN1Element(&extensions, cbasn1.SEQUENCE) || !extWrapper.Empty() {
			return out, false
		}
		out.extensionsTLV = extensions
	}

	if !tbs.Empty() {
		return out, false
	}
	return out, true
}

// checkSerialNumber applies RFC 5280 section 4.1.2.2: a serial is a valid
// DER INTEGER of at most 20 octets. Negative serials appear in the wild and
// are accepted; oversized or non-minimal encodings are rejected unless
// AllowInvalidSerialNumbers is set.
func checkSerialNumber(contents []byte, opts Options) bool {
	if opts.AllowInvalidSerialNumbers {
		return len(contents) > 0
	}
	if !isValidInteger(contents) {
		return false
	}
	return len(contents) <= 20
}

// isValidInteger reports whether contents is a minimally-encoded DER
// INTEGER body: non-empty with no redundant leading 0x00 or 0xFF octet.
func isValidInteger(contents []byte) bool {
	if len(contents) == 0 {
		return false
	}
	if len(contents) == 1 {
		return true
	}
	if contents[0] == 0x00 && contents[1]&0x80 == 0 {
		return false
	}
	if contents[0] == 0xFF && contents[1]&0x80 == 0x80 {
		return false
	}
	return true
}

// parseBitStringContents decodes the contents octets of a BIT STRING (the
// leading unused-bit count plus the bit bytes). Unused bits must be < 8,
// zero for an empty string, and the padding bits must themselves be zero.
func parseBitStringContents(contents []byte) (asn1.BitString, bool) {
	if len(contents) == 0 {
		return asn1.BitString{}, false
	}
	unused := int(contents[0])
	bits := contents[1:]
	if unused > 7 {
		return asn1.BitString{}, false
	}
	if len(bits) == 0 {
		if unused != 0 {
			return asn1.BitString{}, false
		}
		return asn1.BitString{}, true
	}
	if bits[len(bits)-1]&(0xFF>>(8-unused)) != 0 {
		return asn1.BitString{}, false
	}
	return asn1.BitString{Bytes: bits, BitLength: len(bits)*8 - unused}, true
}
