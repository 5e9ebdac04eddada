package location

import "strings"

// Param is one name/value pair of a query string.
type Param struct {
	Name  string
	Value string
}

// Params is an ordered snapshot of a query string, parsed left to right with
// repeated names kept. Methods that change it return a new value.
type Params struct {
	pairs []Param
}

// ParseParams parses a query string with or without its leading '?'.
// Decoding follows application/x-www-form-urlencoded: '+' is a space and
// malformed percent escapes are kept as written.
func ParseParams(query string) Params {
	query = strings.TrimPrefix(query, "?")

	var pairs []Param
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		pairs = append(pairs, Param{Name: formDecode(name), Value: formDecode(value)})
	}
	return Params{pairs: pairs}
}

// Len returns the number of pairs.
func (p Params) Len() int {
	return len(p.pairs)
}

// At returns the pair at index.
func (p Params) At(index int) (Param, error) {
	if index < 0 || index >= len(p.pairs) {
		return Param{}, ErrIndexOutOfRange
	}
	return p.pairs[index], nil
}

// Key returns the name at index.
func (p Params) Key(index int) (string, error) {
	pair, err := p.At(index)
	return pair.Name, err
}

// Value returns the value at index.
func (p Params) Value(index int) (string, error) {
	pair, err := p.At(index)
	return pair.Value, err
}

// Get returns the first value for name.
func (p Params) Get(name string) (string, bool) {
	for _, pair := range p.pairs {
		if pair.Name == name {
			return pair.Value, true
		}
	}
	return "", false
}

// Pairs returns a copy of the pairs.
func (p Params) Pairs() []Param {
	out := make([]Param, len(p.pairs))
	copy(out, p.pairs)
	return out
}

// Set replaces the first pair named name and drops later ones, or appends
// the pair when name is absent.
func (p Params) Set(name, value string) Params {
	out := make([]Param, 0, len(p.pairs)+1)
	found := false
	for _, pair := range p.pairs {
		if pair.Name != name {
			out = append(out, pair)
			continue
		}
		if !found {
			out = append(out, Param{Name: name, Value: value})
			found = true
		}
	}
	if !found {
		out = append(out, Param{Name: name, Value: value})
	}
	return Params{pairs: out}
}

// Delete drops every pair named name.
func (p Params) Delete(name string) Params {
	out := make([]Param, 0, len(p.pairs))
	for _, pair := range p.pairs {
		if pair.Name != name {
			out = append(out, pair)
		}
	}
	return Params{pairs: out}
}

// Encode serializes the pairs without a leading '?'.
func (p Params) Encode() string {
	var sb strings.Builder
	for i, pair := range p.pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(formEncode(pair.Name))
		sb.WriteByte('=')
		sb.WriteString(formEncode(pair.Value))
	}
	return sb.String()
}

// formDecode turns '+' into a space and decodes every %XX with two hex
// digits. Malformed escapes stay as written and invalid UTF-8 becomes U+FFFD.
func formDecode(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			c = ' '
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			c = unhex(s[i+1])<<4 | unhex(s[i+2])
			i += 2
		}
		b = append(b, c)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	}
	return c - 'A' + 10
}

// formEncode is the urlencoded byte serializer: alphanumerics and *-._ pass
// through, space becomes '+', every other byte is percent-encoded.
func formEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '*', c == '-', c == '.', c == '_':
			sb.WriteByte(c)
		case c == ' ':
			sb.WriteByte('+')
		default:
			sb.WriteByte('%')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0x0f])
		}
	}
	return sb.String()
}
