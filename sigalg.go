package certparse

import (
	"encoding/asn1"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// SignatureAlgorithm is the closed set of signature algorithms this package
// recognizes in the outer Certificate.signatureAlgorithm field. Anything
// outside this set fails the parse; recognition here says nothing about
// whether the signature verifies.
type SignatureAlgorithm int

const (
	UnknownSignatureAlgorithm SignatureAlgorithm = iota
	RSAPKCS1SHA1
	RSAPKCS1SHA256
	RSAPKCS1SHA384
	RSAPKCS1SHA512
	RSAPSSSHA256
	RSAPSSSHA384
	RSAPSSSHA512
	ECDSASHA1
	ECDSASHA256
	ECDSASHA384
	ECDSASHA512
	Ed25519
)

// String returns the conventional name of the algorithm.
func (a SignatureAlgorithm) String() string {
	switch a {
	case RSAPKCS1SHA1:
		return "SHA1-RSA"
	case RSAPKCS1SHA256:
		return "SHA256-RSA"
	case RSAPKCS1SHA384:
		return "SHA384-RSA"
	case RSAPKCS1SHA512:
		return "SHA512-RSA"
	case RSAPSSSHA256:
		return "SHA256-RSAPSS"
	case RSAPSSSHA384:
		return "SHA384-RSAPSS"
	case RSAPSSSHA512:
		return "SHA512-RSAPSS"
	case ECDSASHA1:
		return "ECDSA-SHA1"
	case ECDSASHA256:
		return "ECDSA-SHA256"
	case ECDSASHA384:
		return "ECDSA-SHA384"
	case ECDSASHA512:
		return "ECDSA-SHA512"
	case Ed25519:
		return "Ed25519"
	default:
		return "unknown"
	}
}

var (
	oidSigRSASHA1     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	oidSigRSASHA256   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	oidSigRSASHA384   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	oidSigRSASHA512   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}
	oidSigRSAPSS      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}
	oidSigECDSASHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	oidSigECDSASHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidSigECDSASHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	oidSigECDSASHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
	oidSigEd25519     = asn1.ObjectIdentifier{1, 3, 101, 112}

	oidHashSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidHashSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	oidHashSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
	oidMGF1       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 8}
)

// parseSignatureAlgorithm decodes an AlgorithmIdentifier TLV into a
// recognized algorithm. Parameter rules follow RFC 4055/5758: RSA PKCS#1
// takes NULL (or, leniently, absent) parameters, ECDSA and Ed25519 take
// absent (or NULL for legacy ECDSA-SHA1) parameters, and RSA-PSS accepts
// only the three parameter combinations where the MGF-1 hash matches the
// message hash and the salt length equals the hash length.
func parseSignatureAlgorithm(tlv []byte) (SignatureAlgorithm, bool) {
	input := cryptobyte.String(tlv)
	var ai cryptobyte.String
	if !input.ReadASN1(&ai, cbasn1.SEQUENCE) || !input.Empty() {
		return UnknownSignatureAlgorithm, false
	}
	var oid asn1.ObjectIdentifier
	if !ai.ReadASN1ObjectIdentifier(&oid) {
		return UnknownSignatureAlgorithm, false
	}
	params := []byte(ai)

	switch {
	case oid.Equal(oidSigRSASHA1):
		return RSAPKCS1SHA1, paramsNullOrEmpty(params)
	case oid.Equal(oidSigRSASHA256):
		return RSAPKCS1SHA256, paramsNullOrEmpty(params)
	case oid.Equal(oidSigRSASHA384):
		return RSAPKCS1SHA384, paramsNullOrEmpty(params)
	case oid.Equal(oidSigRSASHA512):
		return RSAPKCS1SHA512, paramsNullOrEmpty(params)
	case oid.Equal(oidSigECDSASHA1):
		return ECDSASHA1, paramsNullOrEmpty(params)
	case oid.Equal(oidSigECDSASHA256):
		return ECDSASHA256, len(params) == 0
	case oid.Equal(oidSigECDSASHA384):
		return ECDSASHA384, len(params) == 0
	case oid.Equal(oidSigECDSASHA512):
		return ECDSASHA512, len(params) == 0
	case oid.Equal(oidSigEd25519):
		return Ed25519, len(params) == 0
	case oid.Equal(oidSigRSAPSS):
		return parsePSSParameters(params)
	default:
		return UnknownSignatureAlgorithm, false
	}
}

// paramsNullOrEmpty accepts an absent parameters field or an explicit NULL.
func paramsNullOrEmpty(params []byte) bool {
	if len(params) == 0 {
		return true
	}
	input := cryptobyte.String(params)
	var null cryptobyte.String
	return input.ReadASN1(&null, cbasn1.NULL) && len(null) == 0 && input.Empty()
}

// parsePSSParameters decodes RSASSA-PSS-params, accepting only the SHA-256,
// SHA-384, and SHA-512 profiles with MGF-1 over the same hash, a salt
// length equal to the hash length, and the default trailer field.
func parsePSSParameters(params []byte) (SignatureAlgorithm, bool) {
	input := cryptobyte.String(params)
	var pss cryptobyte.String
	if !input.ReadASN1(&pss, cbasn1.SEQUENCE) || !input.Empty() {
		return UnknownSignatureAlgorithm, false
	}

	hash, ok := readPSSHash(&pss)
	if !ok {
		return UnknownSignatureAlgorithm, false
	}

	// maskGenAlgorithm [1]: MGF-1 parameterized by a hash that must match
	// the message hash.
	var mgfWrapper cryptobyte.String
	var mgfPresent bool
	if !pss.ReadOptionalASN1(&mgfWrapper, &mgfPresent,
		cbasn1.Tag(1).Constructed().ContextSpecific()) || !mgfPresent {
		return UnknownSignatureAlgorithm, false
	}
	var mgf cryptobyte.String
	if !mgfWrapper.ReadASN1(&mgf, cbasn1.SEQUENCE) || !mgfWrapper.Empty() {
		return UnknownSignatureAlgorithm, false
	}
	var mgfOID asn1.ObjectIdentifier
	if !mgf.ReadASN1ObjectIdentifier(&mgfOID) || !mgfOID.Equal(oidMGF1) {
		return UnknownSignatureAlgorithm, false
	}
	mgfHash, ok := readHashAlgorithm(&mgf)
	if !ok || !mgfHash.Equal(hash) || !mgf.Empty() {
		return UnknownSignatureAlgorithm, false
	}

	// saltLength [2]
	var saltWrapper cryptobyte.String
	var saltPresent bool
	if !pss.ReadOptionalASN1(&saltWrapper, &saltPresent,
		cbasn1.Tag(2).Constructed().ContextSpecific()) || !saltPresent {
		return UnknownSignatureAlgorithm, false
	}
	var saltLength int
	if !saltWrapper.ReadASN1Integer(&saltLength) || !saltWrapper.Empty() {
		return UnknownSignatureAlgorithm, false
	}

	// trailerField [3] must be absent (DEFAULT 1).
	if !pss.Empty() {
		return UnknownSignatureAlgorithm, false
	}

	switch {
	case hash.Equal(oidHashSHA256) && saltLength == 32:
		return RSAPSSSHA256, true
	case hash.Equal(oidHashSHA384) && saltLength == 48:
		return RSAPSSSHA384, true
	case hash.Equal(oidHashSHA512) && saltLength == 64:
		return RSAPSSSHA512, true
	default:
		return UnknownSignatureAlgorithm, false
	}
}

// readPSSHash reads the [0] EXPLICIT hashAlgorithm. It has no default worth
// accepting here: the SHA-1 default is outside the recognized PSS set, so
// an absent field is a failure.
func readPSSHash(pss *cryptobyte.String) (asn1.ObjectIdentifier, bool) {
	var wrapper cryptobyte.String
	var present bool
	if !pss.ReadOptionalASN1(&wrapper, &present,
		cbasn1.Tag(0).Constructed().ContextSpecific()) || !present {
		return nil, false
	}
	oid, ok := readHashAlgorithm(&wrapper)
	if !ok || !wrapper.Empty() {
		return nil, false
	}
	return oid, true
}

// readHashAlgorithm reads an AlgorithmIdentifier naming a hash, with NULL
// or absent parameters, and returns its OID.
func readHashAlgorithm(s *cryptobyte.String) (asn1.ObjectIdentifier, bool) {
	var ai cryptobyte.String
	if !s.ReadASN1(&ai, cbasn1.SEQUENCE) {
		return nil, false
	}
	var oid asn1.ObjectIdentifier
	if !ai.ReadASN1ObjectIdentifier(&oid) {
		return nil, false
	}
	if !paramsNullOrEmpty(ai) {
		return nil, false
	}
	return oid, true
}
