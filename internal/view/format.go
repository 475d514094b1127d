package view

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FormatDuration renders milliseconds as m:ss. Zero or negative yields "--:--".
// There is no hours component; a 75-minute track renders as 75:00.
func FormatDuration(ms int64) string {
	if ms <= 0 {
		return "--:--"
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// initial is the uppercase first letter of name, used as an avatar.
func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}
