package advisor

import "strings"

// maxFieldLen bounds free-text fields interpolated into the prompt.
const maxFieldLen = 64

var delimiterStripper = strings.NewReplacer(
	"{", "", "}", "",
	"[", "", "]", "",
	"<", "", ">", "",
	`"`, "", "'", "", "`", "",
)

// SanitizeField strips characters that could break the prompt's structural
// delimiters from user-supplied text and collapses whitespace. This is
// injection mitigation, not escaping.
func SanitizeField(s string) string {
	s = delimiterStripper.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxFieldLen {
		s = string(r[:maxFieldLen])
	}
	return s
}
