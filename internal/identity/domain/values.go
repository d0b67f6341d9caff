package domain

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Value objects validate fully at construction; an instance can only exist in
// a valid, normalized state. Equality is equality of the normalized value.

const maxEmailLength = 254

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// EmailAddress is a normalized (lowercase, trimmed) email address.
type EmailAddress string

// NewEmailAddress validates and normalizes raw into an EmailAddress.
func NewEmailAddress(raw string) (EmailAddress, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	if len(s) > maxEmailLength {
		return "", &ValidationError{Field: "email", Reason: "must be at most 254 characters"}
	}
	if !emailPattern.MatchString(s) {
		return "", &ValidationError{Field: "email", Reason: "invalid email format"}
	}
	return EmailAddress(s), nil
}

func (e EmailAddress) String() string { return string(e) }

const (
	minDisplayNameLength = 2
	maxDisplayNameLength = 100
	displayNameForbidden = `<>"'&`
)

// DisplayName is a normalized human name: internal whitespace runs collapsed
// to a single space and the first letter of each word capitalized.
type DisplayName string

// NewDisplayName validates and normalizes raw into a DisplayName.
func NewDisplayName(raw string) (DisplayName, error) {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return "", &ValidationError{Field: "display_name", Reason: "must not be empty"}
	}
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	s := strings.Join(words, " ")
	if n := utf8.RuneCountInString(s); n < minDisplayNameLength || n > maxDisplayNameLength {
		return "", &ValidationError{Field: "display_name", Reason: "must be between 2 and 100 characters"}
	}
	if strings.ContainsAny(s, displayNameForbidden) {
		return "", &ValidationError{Field: "display_name", Reason: `must not contain < > " ' &`}
	}
	return DisplayName(s), nil
}

func (n DisplayName) String() string { return string(n) }

var affiliationCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{2,20}$`)

// AffiliationCode is an opaque institution/affiliation code, normalized to
// uppercase. Role classification is derived from it, never the reverse.
type AffiliationCode string

// NewAffiliationCode validates and normalizes raw into an AffiliationCode.
func NewAffiliationCode(raw string) (AffiliationCode, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", &ValidationError{Field: "affiliation_code", Reason: "must not be empty"}
	}
	if !affiliationCodePattern.MatchString(s) {
		return "", &ValidationError{Field: "affiliation_code", Reason: "must be 2-20 characters of A-Z, 0-9, hyphen or underscore"}
	}
	return AffiliationCode(s), nil
}

func (c AffiliationCode) String() string { return string(c) }

const maxExternalIDLength = 255

// ExternalID is the identifier asserted by the federated identity provider.
// It is the provider-guaranteed identity anchor; email is only a merge key.
type ExternalID string

// NewExternalID validates raw into an ExternalID.
func NewExternalID(raw string) (ExternalID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ValidationError{Field: "external_id", Reason: "must not be empty"}
	}
	if len(s) > maxExternalIDLength {
		return "", &ValidationError{Field: "external_id", Reason: "must be at most 255 characters"}
	}
	return ExternalID(s), nil
}

func (id ExternalID) String() string { return string(id) }
