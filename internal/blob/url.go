package blob

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// URLOptions names the host a generated URL should point at. It is passed
// explicitly to every URL-generating call; there is no ambient request
// context to fall back on.
type URLOptions struct {
	Protocol string // "https" by default; a trailing "://" is tolerated
	Host     string // may itself carry a scheme, e.g. "http://example.com"
	Port     int    // 0 means no explicit port
}

// BaseURL renders the scheme://host[:port] prefix, or ErrMissingURLOptions
// when no host is configured.
func (o URLOptions) BaseURL() (string, error) {
	if o.Host == "" {
		return "", ErrMissingURLOptions
	}
	host := strings.TrimSuffix(o.Host, "/")
	if !strings.Contains(host, "://") {
		proto := strings.TrimSuffix(o.Protocol, "://")
		proto = strings.TrimSuffix(proto, ":")
		if proto == "" {
			proto = "https"
		}
		host = proto + "://" + host
	}
	if o.Port != 0 {
		host = fmt.Sprintf("%s:%d", host, o.Port)
	}
	return host, nil
}

// ParseURLOptions builds URLOptions from a base URL string such as
// "https://files.example.com:8443". An empty string yields zero options,
// which fail URL generation with ErrMissingURLOptions.
func ParseURLOptions(s string) URLOptions {
	if s == "" {
		return URLOptions{}
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return URLOptions{Host: s}
	}
	opts := URLOptions{Protocol: u.Scheme, Host: u.Hostname()}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			opts.Port = n
		}
	}
	return opts
}

// ContentDisposition renders an RFC 6266 header value with both the quoted
// ASCII fallback and the RFC 5987 encoded variant, e.g.
//
//	inline; filename="hello.jpg"; filename*=UTF-8''hello.jpg
func ContentDisposition(disposition, filename string) string {
	if disposition == "" {
		disposition = "attachment"
	}
	return fmt.Sprintf("%s; filename=%q; filename*=UTF-8''%s",
		disposition, asciiFilename(filename), rfc5987Escape(filename))
}

func asciiFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			b.WriteByte('?')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rfc5987Escape(name string) string {
	// attr-char per RFC 5987: ALPHA / DIGIT / a short list of specials.
	isAttrChar := func(c byte) bool {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return true
		}
		return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if isAttrChar(name[i]) {
			b.WriteByte(name[i])
		} else {
			fmt.Fprintf(&b, "%%%02X", name[i])
		}
	}
	return b.String()
}

func escapePathSegment(s string) string {
	return url.PathEscape(s)
}
