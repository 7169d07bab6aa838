package prompt

import (
	"regexp"
	"strings"
)

// Filler replaces any placeholder left unresolved in a template.
const Filler = "N/A"

// placeholderPattern matches bracketed and braced placeholder tokens on a single line.
var placeholderPattern = regexp.MustCompile(`\[[^\[\]\n]*\]|\{[^{}\n]*\}`)

// Template is a prompt template with named slots. Slots are written with their
// delimiters, e.g. "[Specify Subject Here]" or "{Course_Name}".
//
// Render substitutes the known slots, then sweeps the substituted body until no
// placeholder token is left, replacing each with Filler. Slot values are swept
// too. Appended text is added after the sweep.
type Template struct {
	text     string
	slots    map[string]string
	suffixes []string
}

// NewTemplate wraps raw template text.
func NewTemplate(text string) *Template {
	return &Template{text: text, slots: make(map[string]string)}
}

// Set assigns a value to every occurrence of slot.
func (t *Template) Set(slot, value string) {
	t.slots[slot] = value
}

// Append adds text after the rendered template body.
func (t *Template) Append(text string) {
	t.suffixes = append(t.suffixes, text)
}

// Render returns the final text.
func (t *Template) Render() string {
	body := placeholderPattern.ReplaceAllStringFunc(t.text, func(token string) string {
		if value, ok := t.slots[token]; ok {
			return value
		}
		return token
	})
	return sweep(body) + strings.Join(t.suffixes, "")
}

// sweep replaces placeholder tokens with Filler until none remain. Each pass
// removes the innermost tokens, so nested delimiters take several passes.
func sweep(s string) string {
	for placeholderPattern.MatchString(s) {
		s = placeholderPattern.ReplaceAllLiteralString(s, Filler)
	}
	return s
}

// Placeholders lists the placeholder tokens present in text, in order of appearance.
func Placeholders(text string) []string {
	return placeholderPattern.FindAllString(text, -1)
}
