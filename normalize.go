package certparse

import (
	"bytes"
	"encoding/asn1"
	"errors"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	tagBMPString       = cbasn1.Tag(30)
	tagUniversalString = cbasn1.Tag(28)
)

// NormalizeName converts an RDNSequence value (the contents octets of a
// Name SEQUENCE) into a canonical comparable form. Two names that match
// under the RFC 5280 comparison rules normalize to equal byte strings, so
// callers compare names with bytes.Equal.
//
// String attribute values are Unicode-normalized, case-folded, and
// whitespace-collapsed, then re-encoded as UTF8String; attribute values in
// other forms are carried through verbatim. SET members are re-sorted into
// DER order so encoding-order differences disappear. The empty name
// normalizes to the empty byte string.
func NormalizeName(rdnSequenceValue []byte) ([]byte, error) {
	input := cryptobyte.String(rdnSequenceValue)
	var sets [][]byte
	for !input.Empty() {
		var rdn cryptobyte.String
		if !input.ReadASN1(&rdn, cbasn1.SET) {
			return nil, errors.New("normalizing name: invalid RDNSequence")
		}
		if rdn.Empty() {
			return nil, errors.New("normalizing name: empty RelativeDistinguishedName")
		}
		var atavs [][]byte
		for !rdn.Empty() {
			encoded, ok := normalizeATAV(&rdn)
			if !ok {
				return nil, errors.New("normalizing name: invalid AttributeTypeAndValue")
			}
			atavs = append(atavs, encoded)
		}
		sort.Slice(atavs, func(i, j int) bool { return bytes.Compare(atavs[i], atavs[j]) < 0 })

		b := cryptobyte.NewBuilder(nil)
		b.AddASN1(cbasn1.SET, func(b *cryptobyte.Builder) {
			for _, atav := range atavs {
				b.AddBytes(atav)
			}
		})
		set, err := b.Bytes()
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	if sets == nil {
		return []byte{}, nil
	}
	return bytes.Join(sets, nil), nil
}

// normalizeATAV reads one AttributeTypeAndValue and returns its canonical
// re-encoding.
func normalizeATAV(rdn *cryptobyte.String) ([]byte, bool) {
	var atav cryptobyte.String
	if !rdn.ReadASN1(&atav, cbasn1.SEQUENCE) {
		return nil, false
	}
	var oid asn1.ObjectIdentifier
	if !atav.ReadASN1ObjectIdentifier(&oid) {
		return nil, false
	}
	var value cryptobyte.String
	var valueTag cbasn1.Tag
	if !atav.ReadAnyASN1(&value, &valueTag) || !atav.Empty() {
		return nil, false
	}

	outTag := valueTag
	outValue := []byte(value)
	if decoded, isString, ok := decodeDirectoryString(valueTag, value); ok {
		if isString {
			outTag = cbasn1.UTF8String
			outValue = []byte(canonicalString(decoded))
		}
	} else {
		return nil, false
	}

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oid)
		b.AddASN1(outTag, func(b *cryptobyte.Builder) {
			b.AddBytes(outValue)
		})
	})
	out, err := b.Bytes()
	if err != nil {
		return nil, false
	}
	return out, true
}

// decodeDirectoryString decodes the string forms that take part in name
// comparison. isString is false for value forms that are carried through
// untouched (including TeletexString, whose charset is too ambiguous to
// normalize safely). ok is false when a recognized string form is
// malformed.
func decodeDirectoryString(tag cbasn1.Tag, value []byte) (s string, isString, ok bool) {
	switch tag {
	case cbasn1.PrintableString:
		for _, c := range value {
			if !isPrintableChar(c) {
				return "", false, false
			}
		}
		return string(value), true, true
	case cbasn1.UTF8String:
		if !utf8.Valid(value) {
			return "", false, false
		}
		return string(value), true, true
	case cbasn1.IA5String:
		if !isIA5String(value) {
			return "", false, false
		}
		return string(value), true, true
	case tagBMPString:
		return decodeBMPString(value)
	case tagUniversalString:
		return decodeUniversalString(value)
	default:
		return "", false, true
	}
}

// canonicalString applies the comparison mapping: Unicode NFC, full case
// folding, and collapsing every whitespace run to a single space with
// leading and trailing whitespace removed.
func canonicalString(s string) string {
	folded := cases.Fold().String(norm.NFC.String(s))
	return strings.Join(strings.Fields(folded), " ")
}

// decodeBMPString decodes a UCS-2 (UTF-16BE, no surrogate pairs) string.
func decodeBMPString(value []byte) (string, bool, bool) {
	if len(value)%2 != 0 {
		return "", false, false
	}
	units := make([]uint16, 0, len(value)/2)
	for i := 0; i < len(value); i += 2 {
		units = append(units, uint16(value[i])<<8|uint16(value[i+1]))
	}
	for _, u := range units {
		if u >= 0xD800 && u < 0xE000 {
			return "", false, false
		}
	}
	return string(utf16.Decode(units)), true, true
}

// decodeUniversalString decodes a UCS-4 (UTF-32BE) string.
func decodeUniversalString(value []byte) (string, bool, bool) {
	if len(value)%4 != 0 {
		return "", false, false
	}
	var b strings.Builder
	for i := 0; i < len(value); i += 4 {
		r := rune(uint32(value[i])<<24 | uint32(value[i+1])<<16 |
			uint32(value[i+2])<<8 | uint32(value[i+3]))
		if !utf8.ValidRune(r) {
			return "", false, false
		}
		b.WriteRune(r)
	}
	return b.String(), true, true
}

// isPrintableChar reports membership in the ASN.1 PrintableString set,
// with the common deviations (* and &) accepted as crypto/x509 does.
func isPrintableChar(c byte) bool {
	return 'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9' ||
		c == ' ' || c == '\'' || c == '(' || c == ')' ||
		c == '+' || c == ',' || c == '-' || c == '.' ||
		c == '/' || c == ':' || c == '=' || c == '?' ||
		c == '*' || c == '&'
}
