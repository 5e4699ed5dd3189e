package aggregate

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	domainSuffix    = regexp.MustCompile(`\.com\b.*$`)
	pathSuffix      = regexp.MustCompile(`/.*$`)
	referenceSuffix = regexp.MustCompile(`\s*[-#*]\s*\d+$`)
	businessSuffix  = regexp.MustCompile(`\b(inc|llc|ltd|corp|co|lp|sa|limited|corporation|company)\.?$`)
	nonWord         = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	spaces          = regexp.MustCompile(`\s+`)

	titler = cases.Title(language.English)
)

// UnknownMerchant is the key for transactions with no usable merchant name.
const UnknownMerchant = "unknown"

// MerchantKey normalizes a raw merchant string so statement variants of the
// same merchant group together. It lowercases, drops domains, paths,
// reference numbers and business suffixes, then collapses punctuation and
// whitespace. Distinct names that only share a prefix keep distinct keys.
func MerchantKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = domainSuffix.ReplaceAllString(s, "")
	s = pathSuffix.ReplaceAllString(s, "")
	s = referenceSuffix.ReplaceAllString(s, "")
	s = nonWord.ReplaceAllString(s, " ")
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	for {
		trimmed := strings.TrimSpace(businessSuffix.ReplaceAllString(s, ""))
		if trimmed == s || trimmed == "" {
			break
		}
		s = trimmed
	}
	if s == "" {
		return UnknownMerchant
	}
	return s
}

// DisplayName title-cases a merchant key for narratives.
func DisplayName(key string) string {
	if key == "" {
		key = UnknownMerchant
	}
	return titler.String(key)
}
