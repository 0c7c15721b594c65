package certparse

import (
	"encoding/asn1"
	"net"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// GeneralNameType is a bitmask of the GeneralName CHOICE alternatives.
type GeneralNameType int

const (
	GeneralNameOtherName GeneralNameType = 1 << iota
	GeneralNameRFC822Name
	GeneralNameDNSName
	GeneralNameX400Address
	GeneralNameDirectoryName
	GeneralNameEDIPartyName
	GeneralNameUniformResourceIdentifier
	GeneralNameIPAddress
	GeneralNameRegisteredID
)

// GeneralNames is a decoded GeneralNames sequence. Only the name forms that
// path validation consumes are broken out; the remaining forms are recorded
// in PresentTypes and otherwise skipped. Duplicate entries of the same name
// are not rejected here; that responsibility stays with this decoder's
// callers should they ever need it.
type GeneralNames struct {
	RFC822Names                []string
	DNSNames                   []string
	DirectoryNames             [][]byte // raw RDNSequence values
	UniformResourceIdentifiers []string

	// Populated when decoding a subjectAltName.
	IPAddresses []net.IP

	// Populated when decoding a name constraints subtree, where each
	// iPAddress is an address/mask pair.
	IPRanges []*net.IPNet

	// PresentTypes records every CHOICE alternative seen, including the
	// ones not broken out above.
	PresentTypes GeneralNameType
}

// ipAddressKind selects how iPAddress entries are interpreted.
type ipAddressKind int

const (
	ipAddressSingle ipAddressKind = iota // 4 or 16 octets
	ipAddressRange                       // 8 or 32 octets, address then mask
)

// parseGeneralNames decodes a GeneralNames TLV (SEQUENCE SIZE (1..MAX) OF
// GeneralName).
func parseGeneralNames(value []byte, ipKind ipAddressKind) (*GeneralNames, bool) {
	input := cryptobyte.String(value)
	var names cryptobyte.String
	if !input.ReadASN1(&names, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, false
	}
	if names.Empty() {
		return nil, false
	}
	out := &GeneralNames{}
	for !names.Empty() {
		if !parseGeneralName(&names, ipKind, out) {
			return nil, false
		}
	}
	return out, true
}

// parseGeneralName decodes a single GeneralName CHOICE into out.
func parseGeneralName(s *cryptobyte.String, ipKind ipAddressKind, out *GeneralNames) bool {
	var name cryptobyte.String
	var tag cbasn1.Tag
	if !s.ReadAnyASN1(&name, &tag) {
		return false
	}
	switch tag {
	case cbasn1.Tag(0).Constructed().ContextSpecific():
		// otherName: OID plus [0] EXPLICIT value; structure checked, content kept opaque.
		var inner cryptobyte.String
		var oid asn1.ObjectIdentifier
		if !name.ReadASN1ObjectIdentifier(&oid) {
			return false
		}
		if !name.ReadASN1(&inner, cbasn1.Tag(0).Constructed().ContextSpecific()) || !name.Empty() {
			return false
		}
		out.PresentTypes |= GeneralNameOtherName
	case cbasn1.Tag(1).ContextSpecific():
		if !isIA5String(name) {
			return false
		}
		out.RFC822Names = append(out.RFC822Names, string(name))
		out.PresentTypes |= GeneralNameRFC822Name
	case cbasn1.Tag(2).ContextSpecific():
		if !isIA5String(name) {
			return false
		}
		out.DNSNames = append(out.DNSNames, string(name))
		out.PresentTypes |= GeneralNameDNSName
	case cbasn1.Tag(3).Constructed().ContextSpecific():
		out.PresentTypes |= GeneralNameX400Address
	case cbasn1.Tag(4).Constructed().ContextSpecific():
		// directoryName: [4] EXPLICIT Name. Keep the RDNSequence value so
		// callers can normalize it with NormalizeName.
		var dn cryptobyte.String
		if !name.ReadASN1(&dn, cbasn1.SEQUENCE) || !name.Empty() {
			return false
		}
		out.DirectoryNames = append(out.DirectoryNames, dn)
		out.PresentTypes |= GeneralNameDirectoryName
	case cbasn1.Tag(5).Constructed().ContextSpecific():
		out.PresentTypes |= GeneralNameEDIPartyName
	case cbasn1.Tag(6).ContextSpecific():
		if !isIA5String(name) {
			return false
		}
		out.UniformResourceIdentifiers = append(out.UniformResourceIdentifiers, string(name))
		out.PresentTypes |= GeneralNameUniformResourceIdentifier
	case cbasn1.Tag(7).ContextSpecific():
		switch ipKind {
		case ipAddressSingle:
			if len(name) != net.IPv4len && len(name) != net.IPv6len {
				return false
			}
			out.IPAddresses = append(out.IPAddresses, net.IP(name))
		case ipAddressRange:
			half := len(name) / 2
			if len(name) != 2*net.IPv4len && len(name) != 2*net.IPv6len {
				return false
			}
			out.IPRanges = append(out.IPRanges, &net.IPNet{
				IP:   net.IP(name[:half]),
				Mask: net.IPMask(name[half:]),
			})
		}
		out.PresentTypes |= GeneralNameIPAddress
	case cbasn1.Tag(8).ContextSpecific():
		// registeredID: OID contents in implicit form.
		if len(name) == 0 {
			return false
		}
		out.PresentTypes |= GeneralNameRegisteredID
	default:
		return false
	}
	return true
}

// NameConstraints is the decoded name constraints extension. At least one
// of the two subtree lists is present. Criticality is retained because RFC
// 5280 section 4.2.1.10 lets path validation treat non-critical name
// constraints specially.
type NameConstraints struct {
	Critical          bool
	PermittedSubtrees *GeneralNames
	ExcludedSubtrees  *GeneralNames
}

// parseNameConstraints decodes RFC 5280 section 4.2.1.10. Within each
// GeneralSubtree the minimum must be the default zero and the maximum must
// be absent, as the RFC requires; iPAddress entries are address/mask pairs.
func parseNameConstraints(value []byte, critical bool) (*NameConstraints, bool) {
	input := cryptobyte.String(value)
	var nc cryptobyte.String
	if !input.ReadASN1(&nc, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, false
	}
	if nc.Empty() {
		return nil, false
	}

	out := &NameConstraints{Critical: critical}

	var permitted cryptobyte.String
	var permittedPresent bool
	if !nc.ReadOptionalASN1(&permitted, &permittedPresent,
		cbasn1.Tag(0).Constructed().ContextSpecific()) {
		return nil, false
	}
	if permittedPresent {
		names, ok := parseGeneralSubtrees(permitted)
		if !ok {
			return nil, false
		}
		out.PermittedSubtrees = names
	}

	var excluded cryptobyte.String
	var excludedPresent bool
	if !nc.ReadOptionalASN1(&excluded, &excludedPresent,
		cbasn1.Tag(1).Constructed().ContextSpecific()) {
		return nil, false
	}
	if excludedPresent {
		names, ok := parseGeneralSubtrees(excluded)
		if !ok {
			return nil, false
		}
		out.ExcludedSubtrees = names
	}

	if !nc.Empty() {
		return nil, false
	}
	return out, true
}

// parseGeneralSubtrees decodes GeneralSubtrees ::= SEQUENCE SIZE (1..MAX)
// OF GeneralSubtree, collecting the base names.
func parseGeneralSubtrees(subtrees cryptobyte.String) (*GeneralNames, bool) {
	if subtrees.Empty() {
		return nil, false
	}
	out := &GeneralNames{}
	for !subtrees.Empty() {
		var subtree cryptobyte.String
		if !subtrees.ReadASN1(&subtree, cbasn1.SEQUENCE) {
			return nil, false
		}
		if !parseGeneralName(&subtree, ipAddressRange, out) {
			return nil, false
		}
		// minimum [0] DEFAULT 0, maximum [1] OPTIONAL: RFC 5280 requires
		// these to be absent.
		if !subtree.Empty() {
			return nil, false
		}
	}
	return out, true
}
