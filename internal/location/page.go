// Package location implements the quad_url plugin: read and non-reloading
// write access to the page address, plus link opening.
package location

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

var (
	// ErrIndexOutOfRange is returned for a parameter index outside the snapshot.
	ErrIndexOutOfRange = errors.New("location: index out of range")

	// ErrInvalidURL is returned for URLs that cannot be parsed or are not
	// absolute http(s) URLs after resolution.
	ErrInvalidURL = errors.New("location: invalid url")

	// ErrCrossOrigin is returned when a history push targets another origin.
	ErrCrossOrigin = errors.New("location: history push to a different origin")
)

// Page is the navigation state of one guest: the current address and the
// session history built by pushes. It is safe for concurrent use.
type Page struct {
	mu      sync.RWMutex
	current address
	history []string
}

// address is an absolute page URL. The fragment is held as written after
// '#' because net/url rejects fragments with a bare '%', which browsers keep.
type address struct {
	url  *url.URL
	hash string
}

func (a address) String() string {
	if a.hash == "" {
		return a.url.String()
	}
	return a.url.String() + "#" + a.hash
}

// NewPage creates a page at rawURL, which must be absolute http(s).
func NewPage(rawURL string) (*Page, error) {
	ref, hash := splitFragment(rawURL)
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}
	u, err = checkAbsolute(u, rawURL)
	if err != nil {
		return nil, err
	}
	a := address{url: u, hash: hash}
	return &Page{current: a, history: []string{a.String()}}, nil
}

// Href returns the full address.
func (p *Page) Href() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.String()
}

// Origin returns scheme://host[:port] with the host lowercased and a
// default port dropped.
func (p *Page) Origin() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return origin(p.current.url)
}

// Pathname returns the escaped path, "/" at minimum.
func (p *Page) Pathname() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.url.EscapedPath()
}

// Search returns the query string with its leading '?', or "" when empty.
func (p *Page) Search() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current.url.RawQuery == "" {
		return ""
	}
	return "?" + p.current.url.RawQuery
}

// Hash returns the fragment with its leading '#', or "" when empty.
func (p *Page) Hash() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current.hash == "" {
		return ""
	}
	return "#" + p.current.hash
}

// PushState moves the page to rawURL without reloading and appends a history
// entry. rawURL is resolved against the current address and must stay on
// the same origin.
func (p *Page) PushState(rawURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.resolveLocked(rawURL)
	if err != nil {
		return err
	}
	if origin(a.url) != origin(p.current.url) {
		return fmt.Errorf("%s: %w", a, ErrCrossOrigin)
	}
	p.current = a
	p.history = append(p.history, a.String())
	return nil
}

// Navigate replaces the current document with rawURL, resolved against the
// current address. The session history restarts at the new document.
func (p *Page) Navigate(rawURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.resolveLocked(rawURL)
	if err != nil {
		return err
	}
	p.current = a
	p.history = []string{a.String()}
	return nil
}

// Resolve resolves rawURL against the current address.
func (p *Page) Resolve(rawURL string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	a, err := p.resolveLocked(rawURL)
	if err != nil {
		return "", err
	}
	return a.String(), nil
}

// History returns the session history, oldest first.
func (p *Page) History() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, len(p.history))
	copy(out, p.history)
	return out
}

func (p *Page) resolveLocked(rawURL string) (address, error) {
	ref, hash := splitFragment(rawURL)
	u, err := url.Parse(ref)
	if err != nil {
		return address{}, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}
	u, err = checkAbsolute(p.current.url.ResolveReference(u), rawURL)
	if err != nil {
		return address{}, err
	}
	return address{url: u, hash: hash}, nil
}

// splitFragment separates rawURL at its first '#'. The fragment is
// percent-encoded the way browsers store it; '%' itself is left alone.
func splitFragment(rawURL string) (string, string) {
	ref, frag, _ := strings.Cut(strings.TrimSpace(rawURL), "#")

	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(frag); i++ {
		c := frag[i]
		switch {
		case c <= ' ', c >= 0x7f, c == '"', c == '<', c == '>', c == '`':
			sb.WriteByte('%')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0x0f])
		default:
			sb.WriteByte(c)
		}
	}
	return ref, sb.String()
}

func checkAbsolute(u *url.URL, rawURL string) (*url.URL, error) {
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}
	u.Host = canonicalHost(u)
	if u.Host == "" {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	u.Fragment, u.RawFragment = "", ""
	return u, nil
}

// canonicalHost lowercases the host and drops the scheme's default port.
func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Host)
	switch port := u.Port(); {
	case port == "",
		u.Scheme == "http" && port == "80",
		u.Scheme == "https" && port == "443":
		host = strings.TrimSuffix(host, ":"+port)
	}
	return host
}

func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
