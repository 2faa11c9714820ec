package cors

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

// JoinTokens comma-joins tokens into a single header value, with no
// separator before the first or after the last element. An empty slice
// yields an empty string.
func JoinTokens(tokens []string) string {
	return strings.Join(tokens, ",")
}

// ParseSingleToken parses value as exactly one HTTP token per the
// RFC 7230 token grammar. It reports failure if the value is empty,
// contains whitespace or delimiters, or carries any trailing content
// (including a second token).
func ParseSingleToken(value string) (string, bool) {
	if len(value) == 0 {
		return "", false
	}

	for _, b := range []byte(value) {
		if !httpguts.IsTokenRune(rune(b)) {
			return "", false
		}
	}

	return value, true
}
