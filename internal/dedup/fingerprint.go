package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"path"
	"sort"
	"strings"
)

var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"utm_id":       {},
	"gclid":        {},
	"fbclid":       {},
	"msclkid":      {},
	"igshid":       {},
}

// Canonicalize normalises a source URL so that cosmetic differences (scheme
// and host case, default ports, fragments, tracking parameters, query order)
// map to the same string. A missing scheme defaults to https.
func Canonicalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" && u.Host == "" {
		if u, err = url.Parse("https://" + strings.TrimPrefix(raw, "//")); err != nil {
			return "", err
		}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		return "", errors.New("url missing host")
	}
	if h, port, ok := strings.Cut(host, ":"); ok {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			host = h
		}
	}
	u.Host = host

	// Clean the escaped form so an encoded slash stays distinct from a separator.
	escaped := u.EscapedPath()
	cleaned := path.Clean("/" + escaped)
	if cleaned != "/" && strings.HasSuffix(escaped, "/") {
		cleaned += "/"
	}
	if u.Path, err = url.PathUnescape(cleaned); err != nil {
		return "", err
	}
	u.RawPath = cleaned
	u.Fragment = ""
	u.RawFragment = ""

	query := u.Query()
	keys := make([]string, 0, len(query))
	for key := range query {
		if _, drop := trackingParams[strings.ToLower(key)]; drop {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		values := append([]string(nil), query[key]...)
		sort.Strings(values)
		for _, v := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			if v != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	u.RawQuery = b.String()
	u.ForceQuery = false

	return u.String(), nil
}

// Fingerprint returns the sha256 hex digest of the canonical URL. URLs that
// cannot be canonicalised are hashed verbatim (trimmed) so every item still
// receives a stable identity.
func Fingerprint(rawURL string) string {
	canonical, err := Canonicalize(rawURL)
	if err != nil {
		canonical = strings.TrimSpace(rawURL)
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
