package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxFileBase = 60

// lineText makes s safe for a single line of a line-oriented format:
// control characters are dropped, whitespace runs become one space and the
// result is cut to maxLen runes.
func lineText(s string, maxLen int) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); maxLen > 0 && len(r) > maxLen {
		s = strings.TrimSpace(string(r[:maxLen]))
	}
	return s
}

// FileBase turns a playlist title into a lowercase ASCII slug for download
// file names. Accents are folded ("Été" → "ete"); other symbols separate
// words. Titles with nothing usable yield "playlist".
func FileBase(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			if b.Len() >= maxFileBase {
				break
			}
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "playlist"
	}
	return b.String()
}
