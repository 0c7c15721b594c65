package certparse

import "strings"

// ErrorID identifies a structural parse failure. The value of each constant
// is the stable human-readable description; callers match failures with
// errors.Is against these sentinels rather than inspecting message text.
type ErrorID string

// Error implements the error interface so ErrorID constants double as
// sentinel errors.
func (id ErrorID) Error() string { return string(id) }

// Parse failure identifiers. Each fatal condition in Parse appends exactly
// one of these to the accumulator before returning.
const (
	ErrFailedParsingCertificate        ErrorID = "failed parsing Certificate"
	ErrFailedParsingTBSCertificate     ErrorID = "failed parsing TBSCertificate"
	ErrFailedParsingSignatureAlgorithm ErrorID = "failed parsing SignatureAlgorithm"
	ErrFailedReadingIssuerOrSubject    ErrorID = "failed reading issuer or subject"
	ErrFailedNormalizingSubject        ErrorID = "failed normalizing subject"
	ErrFailedNormalizingIssuer         ErrorID = "failed normalizing issuer"
	ErrFailedParsingExtensions         ErrorID = "failed parsing extensions"

	ErrFailedParsingBasicConstraints       ErrorID = "failed parsing basic constraints"
	ErrFailedParsingKeyUsage               ErrorID = "failed parsing key usage"
	ErrFailedParsingExtendedKeyUsage       ErrorID = "failed parsing extended key usage"
	ErrFailedParsingSubjectAltName         ErrorID = "failed parsing subjectAltName"
	ErrFailedParsingNameConstraints        ErrorID = "failed parsing name constraints"
	ErrFailedParsingAuthorityInfoAccess    ErrorID = "failed parsing authority info access"
	ErrFailedParsingPolicies               ErrorID = "failed parsing certificate policies"
	ErrFailedParsingPolicyConstraints      ErrorID = "failed parsing policy constraints"
	ErrFailedParsingPolicyMappings         ErrorID = "failed parsing policy mappings"
	ErrFailedParsingInhibitAnyPolicy       ErrorID = "failed parsing inhibit any policy"
	ErrFailedParsingSubjectKeyIdentifier   ErrorID = "failed parsing subject key identifier"
	ErrFailedParsingAuthorityKeyIdentifier ErrorID = "failed parsing authority key identifier"

	ErrSubjectAltNameNotCritical ErrorID = "empty subject and subjectAltName is not critical"
	ErrUnknownCriticalExtension  ErrorID = "unknown critical extension"
)

// Entry is one recorded failure: the stable identifier plus optional
// free-text context (an OID, an offset). Context is for diagnostics only,
// never for control flow.
type Entry struct {
	ID      ErrorID
	Context string
}

// Errors is an ordered, append-only accumulator of parse failures. It is a
// pure diagnostics side-channel: supplying one to Parse never changes the
// parse result, only whether the failure trail is observable.
//
// An Errors value must not be shared between concurrent Parse calls; it is
// not internally synchronized.
type Errors struct {
	entries []Entry
}

// Add appends an entry with no context.
func (e *Errors) Add(id ErrorID) {
	e.entries = append(e.entries, Entry{ID: id})
}

// AddWithContext appends an entry carrying extra diagnostic context.
func (e *Errors) AddWithContext(id ErrorID, context string) {
	e.entries = append(e.entries, Entry{ID: id, Context: context})
}

// Contains reports whether any recorded entry has the given identifier.
func (e *Errors) Contains(id ErrorID) bool {
	for _, entry := range e.entries {
		if entry.ID == id {
			return true
		}
	}
	return false
}

// Entries returns a copy of the recorded entries in append order.
func (e *Errors) Entries() []Entry {
	out := make([]Entry, len(e.entries))
	copy(out, e.entries)
	return out
}

// Len returns the number of recorded entries.
func (e *Errors) Len() int { return len(e.entries) }

// String renders the trail one entry per line, oldest first.
func (e *Errors) String() string {
	var b strings.Builder
	for _, entry := range e.entries {
		b.WriteString(string(entry.ID))
		if entry.Context != "" {
			b.WriteString(": ")
			b.WriteString(entry.Context)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
