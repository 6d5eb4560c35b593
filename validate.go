package sendkit

import "regexp"

// Scope names the role an address is validated for. Each scope can carry
// its own validator, so callers with unusual requirements (e.g. internal
// relay addresses on the BCC list) can loosen or tighten one role without
// touching the others.
type Scope string

const (
	ScopeAuthor     Scope = "author"
	ScopeRecipients Scope = "recipients"
	ScopeCC         Scope = "cc"
	ScopeBCC        Scope = "bcc"
)

// ValidatorFunc reports whether an email address is acceptable.
type ValidatorFunc func(address string) bool

// Local part: dot-separated runs of letters, digits, and _ % + -, so
// consecutive dots and leading/trailing dots never match. Domain: at least
// one label plus a TLD of two or more letters.
var addressPattern = regexp.MustCompile(
	`^[A-Za-z0-9_%+\-]+(\.[A-Za-z0-9_%+\-]+)*@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`,
)

// IsValidEmail is the default address validator. It accepts ordinary
// local-part@domain addresses and rejects the usual malformed shapes:
// missing @, missing domain, bare hostnames without a TLD, and dots in the
// wrong places.
func IsValidEmail(address string) bool {
	return addressPattern.MatchString(address)
}
