package csvconv

import (
	"fmt"
	"strings"

	"github.com/midicsv/midicsv"
)

// EscapeText makes the payload of a text event printable: bytes outside
// 32..126 become a backslash and three octal digits, and a backslash is
// doubled. Double quotes are left alone; quoteText doubles them when the
// text is put in a CSV field.
func EscapeText(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		switch {
		case c < 32 || c > 126:
			fmt.Fprintf(&sb, "\\%03o", c)
		case c == '\\':
			sb.WriteString(`\\`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// UnescapeText reverses EscapeText. A backslash that is followed by neither
// a backslash nor three octal digits is kept as is and reported as an
// Invalid error, together with the best-effort result.
func UnescapeText(s string) ([]byte, error) {
	ret := make([]byte, 0, len(s))
	var err error
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			ret = append(ret, c)
			continue
		}
		if i+1 < len(s) && s[i+1] == '\\' {
			ret = append(ret, '\\')
			i++
			continue
		}
		if v, ok := octal(s, i+1); ok {
			ret = append(ret, v)
			i += 3
			continue
		}
		if err == nil {
			err = midicsv.InvalidStateError(midicsv.ErrMalformed, fmt.Sprintf("bad escape sequence at column %d of %q", i+1, s))
		}
		ret = append(ret, c)
	}
	return ret, err
}

func octal(s string, start int) (byte, bool) {
	if start+3 > len(s) {
		return 0, false
	}
	v := 0
	for _, c := range []byte(s[start : start+3]) {
		if c < '0' || c > '7' {
			return 0, false
		}
		v = v*8 + int(c-'0')
	}
	if v > 0xFF {
		return 0, false
	}
	return byte(v), true
}

func quoteText(b []byte) string {
	return `"` + strings.ReplaceAll(EscapeText(b), `"`, `""`) + `"`
}
