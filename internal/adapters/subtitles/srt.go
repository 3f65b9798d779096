// Package subtitles writes SRT subtitle files with timing proportional to
// text length.
package subtitles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

// Chunking limits.
const (
	MaxCharsPerLine = 50
	MaxLines        = 2
)

// Cue is one subtitle.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Writer implements automation.SubtitleWriter.
type Writer struct{}

// New returns a Writer.
func New() *Writer { return &Writer{} }

// WriteSubtitles splits text into cues spread over d and writes them as SRT.
func (w *Writer) WriteSubtitles(ctx context.Context, text string, d time.Duration, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cues := Cues(text, d)
	if len(cues) == 0 {
		return errors.New("no subtitle text")
	}
	if err := os.WriteFile(outPath, []byte(Format(cues)), 0o644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}
	return nil
}

// Split breaks text into sentences on . ! ? and ؟ and packs whole sentences
// into chunks. A chunk is closed once it fills MaxLines lines of
// MaxCharsPerLine characters or when the next sentence would push it past
// MaxLines*MaxCharsPerLine characters. A single sentence longer than that
// becomes a chunk of its own. Line wrapping within a cue is left to the player.
func Split(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '؟'
	})
	limit := MaxCharsPerLine * MaxLines

	var chunks []string
	var cur string
	lines := 0
	for _, s := range sentences {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			continue
		}
		if cur != "" && (lines >= MaxLines || utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(s) > limit) {
			chunks = append(chunks, cur)
			cur = s
			lines = 1
			continue
		}
		if cur == "" {
			cur = s
		} else {
			cur += " " + s
		}
		n := utf8.RuneCountInString(cur)
		lines = (n + MaxCharsPerLine - 1) / MaxCharsPerLine
	}
	if cur != "" {
		chunks = append(chunks, cur)
	}
	return chunks
}

// Cues times the chunks of text proportionally to their length so they span
// exactly d.
func Cues(text string, d time.Duration) []Cue {
	chunks := Split(text)
	total := 0
	for _, c := range chunks {
		total += utf8.RuneCountInString(c)
	}
	if total == 0 {
		return nil
	}

	cues := make([]Cue, 0, len(chunks))
	seen := 0
	for i, c := range chunks {
		start := time.Duration(int64(d) * int64(seen) / int64(total))
		seen += utf8.RuneCountInString(c)
		end := time.Duration(int64(d) * int64(seen) / int64(total))
		cues = append(cues, Cue{Index: i + 1, Start: start, End: end, Text: c})
	}
	return cues
}

// Format renders cues as an SRT document.
func Format(cues []Cue) string {
	var b strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", c.Index, Timestamp(c.Start), Timestamp(c.End), c.Text)
	}
	return b.String()
}

// Timestamp formats d as HH:MM:SS,mmm.
func Timestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
