package certparse

import "encoding/asn1"

// Extension OIDs from RFC 5280 section 4.2. The extension table is keyed by
// the dotted-decimal form so lookups work for any caller-supplied
// asn1.ObjectIdentifier.
var (
	OIDBasicConstraints       = asn1.ObjectIdentifier{2, 5, 29, 19}
	OIDKeyUsage               = asn1.ObjectIdentifier{2, 5, 29, 15}
	OIDExtendedKeyUsage       = asn1.ObjectIdentifier{2, 5, 29, 37}
	OIDSubjectAltName         = asn1.ObjectIdentifier{2, 5, 29, 17}
	OIDNameConstraints        = asn1.ObjectIdentifier{2, 5, 29, 30}
	OIDAuthorityInfoAccess    = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 1}
	OIDCertificatePolicies    = asn1.ObjectIdentifier{2, 5, 29, 32}
	OIDPolicyConstraints      = asn1.ObjectIdentifier{2, 5, 29, 36}
	OIDPolicyMappings         = asn1.ObjectIdentifier{2, 5, 29, 33}
	OIDInhibitAnyPolicy       = asn1.ObjectIdentifier{2, 5, 29, 54}
	OIDSubjectKeyIdentifier   = asn1.ObjectIdentifier{2, 5, 29, 14}
	OIDAuthorityKeyIdentifier = asn1.ObjectIdentifier{2, 5, 29, 35}
)

// Access method OIDs within the authority info access extension.
var (
	oidAccessMethodOCSP      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1}
	oidAccessMethodCAIssuers = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 2}
)

// knownExtensionOIDs is the closed set of extensions this package decodes.
// Criticality of OIDs outside this set is only examined when
// Options.RejectUnknownCriticalExtensions is set.
var knownExtensionOIDs = map[string]bool{
	OIDBasicConstraints.String():       true,
	OIDKeyUsage.String():               true,
	OIDExtendedKeyUsage.String():       true,
	OIDSubjectAltName.String():         true,
	OIDNameConstraints.String():        true,
	OIDAuthorityInfoAccess.String():    true,
	OIDCertificatePolicies.String():    true,
	OIDPolicyConstraints.String():      true,
	OIDPolicyMappings.String():         true,
	OIDInhibitAnyPolicy.String():       true,
	OIDSubjectKeyIdentifier.String():   true,
	OIDAuthorityKeyIdentifier.String(): true,
}
