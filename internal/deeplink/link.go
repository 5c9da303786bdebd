package deeplink

import (
	"fmt"
	"net/url"
	"strings"
)

// parseHost stands in for a real host so url.Parse accepts scheme-less paths.
const parseHost = "http://link.invalid/"

// NormalizedLink is a deep link with the scheme removed and the query split off.
// Path is the dedup key: two links with the same Path are the same logical link.
type NormalizedLink struct {
	Path  string
	Query map[string]string
}

// Param returns the first value of a query parameter, or "".
func (l NormalizedLink) Param(name string) string {
	return l.Query[name]
}

// NormalizePath strips "<scheme>://" and truncates at the first '?'.
// It never fails, so it is safe to compute before claiming a link.
func NormalizePath(raw, scheme string) string {
	plain := stripScheme(raw, scheme)
	if i := strings.IndexByte(plain, '?'); i >= 0 {
		plain = plain[:i]
	}
	return plain
}

// Parse normalizes raw and decodes its query parameters. Only the first value of
// a repeated parameter is kept.
func Parse(raw, scheme string) (NormalizedLink, error) {
	plain := stripScheme(raw, scheme)
	u, err := url.Parse(parseHost + plain)
	if err != nil {
		return NormalizedLink{}, fmt.Errorf("parse deep link %q: %w", raw, err)
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return NormalizedLink{}, fmt.Errorf("parse deep link query %q: %w", raw, err)
	}

	query := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			query[key] = vals[0]
		}
	}
	return NormalizedLink{Path: NormalizePath(raw, scheme), Query: query}, nil
}

func stripScheme(raw, scheme string) string {
	return strings.Replace(raw, scheme+"://", "", 1)
}

// firstSegment returns the part of path after prefix up to the next '/',
// percent-decoded. A segment with a malformed escape is returned as is.
func firstSegment(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if decoded, err := url.PathUnescape(rest); err == nil {
		return decoded
	}
	return rest
}
