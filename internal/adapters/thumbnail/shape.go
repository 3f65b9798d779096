package thumbnail

import (
	"strings"

	"golang.org/x/text/unicode/bidi"
)

type joinKind uint8

const (
	joinNone joinKind = iota
	joinRight
	joinDual
	joinCausing
)

// arabicLetter describes one letter's joining behaviour. Its contextual forms
// sit consecutively in Arabic Presentation Forms-B starting at isolated:
// isolated, final, then initial and medial for dual-joining letters.
type arabicLetter struct {
	kind     joinKind
	isolated rune
}

const (
	formIsolated = 0
	formFinal    = 1
	formInitial  = 2
	formMedial   = 3
)

var arabicLetters = map[rune]arabicLetter{
	'ء': {joinNone, '\uFE80'},
	'آ': {joinRight, '\uFE81'},
	'أ': {joinRight, '\uFE83'},
	'ؤ': {joinRight, '\uFE85'},
	'إ': {joinRight, '\uFE87'},
	'ئ': {joinDual, '\uFE89'},
	'ا': {joinRight, '\uFE8D'},
	'ب': {joinDual, '\uFE8F'},
	'ة': {joinRight, '\uFE93'},
	'ت': {joinDual, '\uFE95'},
	'ث': {joinDual, '\uFE99'},
	'ج': {joinDual, '\uFE9D'},
	'ح': {joinDual, '\uFEA1'},
	'خ': {joinDual, '\uFEA5'},
	'د': {joinRight, '\uFEA9'},
	'ذ': {joinRight, '\uFEAB'},
	'ر': {joinRight, '\uFEAD'},
	'ز': {joinRight, '\uFEAF'},
	'س': {joinDual, '\uFEB1'},
	'ش': {joinDual, '\uFEB5'},
	'ص': {joinDual, '\uFEB9'},
	'ض': {joinDual, '\uFEBD'},
	'ط': {joinDual, '\uFEC1'},
	'ظ': {joinDual, '\uFEC5'},
	'ع': {joinDual, '\uFEC9'},
	'غ': {joinDual, '\uFECD'},
	'ـ': {joinCausing, 'ـ'},
	'ف': {joinDual, '\uFED1'},
	'ق': {joinDual, '\uFED5'},
	'ك': {joinDual, '\uFED9'},
	'ل': {joinDual, '\uFEDD'},
	'م': {joinDual, '\uFEE1'},
	'ن': {joinDual, '\uFEE5'},
	'ه': {joinDual, '\uFEE9'},
	'و': {joinRight, '\uFEED'},
	'ى': {joinRight, '\uFEEF'},
	'ي': {joinDual, '\uFEF1'},
}

const lam = 'ل'

// lamAlef maps the alef variants that fuse with a preceding lam to the
// isolated form of the ligature; the final form follows it.
var lamAlef = map[rune]rune{
	'آ': '\uFEF5',
	'أ': '\uFEF7',
	'إ': '\uFEF9',
	'ا': '\uFEFB',
}

// isTashkeel reports whether r is a vowel mark. Marks are dropped before
// shaping since the glyph drawer has no mark positioning.
func isTashkeel(r rune) bool {
	return (r >= '\u064B' && r <= '\u065F') || r == '\u0670'
}

func joinsForward(r rune) bool {
	l, ok := arabicLetters[r]
	return ok && (l.kind == joinDual || l.kind == joinCausing)
}

func joinsBackward(r rune) bool {
	l, ok := arabicLetters[r]
	return ok && l.kind != joinNone
}

// ShapeArabic replaces Arabic letters with their contextual presentation
// forms and fuses lam-alef pairs. The result stays in logical order; other
// scripts pass through unchanged.
func ShapeArabic(s string) string {
	runes := make([]rune, 0, len(s))
	for _, r := range s {
		if !isTashkeel(r) {
			runes = append(runes, r)
		}
	}

	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		l, ok := arabicLetters[r]
		if !ok || l.kind == joinCausing {
			b.WriteRune(r)
			continue
		}
		prev := i > 0 && joinsForward(runes[i-1])

		if r == lam && i+1 < len(runes) {
			if lig, ok := lamAlef[runes[i+1]]; ok {
				if prev {
					lig++
				}
				b.WriteRune(lig)
				i++
				continue
			}
		}

		next := i+1 < len(runes) && joinsBackward(runes[i+1])
		form := formIsolated
		switch l.kind {
		case joinRight:
			if prev {
				form = formFinal
			}
		case joinDual:
			switch {
			case prev && next:
				form = formMedial
			case prev:
				form = formFinal
			case next:
				form = formInitial
			}
		}
		b.WriteRune(l.isolated + rune(form))
	}
	return b.String()
}

// VisualOrder reorders one line of a right-to-left paragraph for a drawer that
// lays glyphs out left to right: runs are emitted last to first and
// right-to-left runs are reversed.
func VisualOrder(line string) string {
	var p bidi.Paragraph
	if _, err := p.SetString(line, bidi.DefaultDirection(bidi.RightToLeft)); err != nil {
		return line
	}
	o, err := p.Order()
	if err != nil {
		return line
	}
	var b strings.Builder
	for i := o.NumRuns() - 1; i >= 0; i-- {
		run := o.Run(i)
		if run.Direction() == bidi.RightToLeft {
			b.WriteString(bidi.ReverseString(run.String()))
			continue
		}
		b.WriteString(run.String())
	}
	return b.String()
}
