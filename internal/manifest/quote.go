package manifest

import "strings"

const upperHex = "0123456789ABCDEF"

// quoteSafe are the bytes pack editors leave unescaped in archive entry names,
// on top of the RFC 3986 unreserved set.
const quoteSafe = "!@#$&()[]{}+-=_;'.,"

// Quote percent-encodes name the way pack editors encode archive entry names:
// unreserved ASCII and quoteSafe pass through, every other byte of the UTF-8
// encoding becomes %XX.
func Quote(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if shouldKeep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-' || c == '~':
		return true
	default:
		return strings.IndexByte(quoteSafe, c) >= 0
	}
}
