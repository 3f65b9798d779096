package automation

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeTitle(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "The Lost Key", "The Lost Key"},
		{"quotes", `"The "Lost" Key"`, "The Lost Key"},
		{"smart_quotes", "“المفتاح” الضائع", "المفتاح الضائع"},
		{"brackets_pipes", `<b>Title</b> | part\2`, "bTitle/b part2"},
		{"whitespace", "  a \t\n  long   title  ", "a long title"},
		{"empty", "", FallbackTitle},
		{"too_short", " ab ", FallbackTitle},
		{"only_stripped", `"<>|\"`, FallbackTitle},
		{"exactly_three", "abc", "abc"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := SanitizeTitle(c.in); got != c.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestSanitizeTitle_truncates_long_titles(t *testing.T) {
	in := strings.Repeat("قصة ", 60)
	got := SanitizeTitle(in)
	if n := utf8.RuneCountInString(got); n != 100 {
		t.Fatalf("expected 100 runes, got %d", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix: %q", got)
	}

	exact := strings.Repeat("x", 100)
	if got := SanitizeTitle(exact); got != exact {
		t.Errorf("100-rune title should be kept as is, got %d runes", utf8.RuneCountInString(got))
	}
}

func TestSanitizeTitle_properties(t *testing.T) {
	inputs := []string{
		"",
		"\x00\xff\xfe",
		strings.Repeat(" ", 500),
		strings.Repeat(`"|<>\`, 40),
		strings.Repeat("word  ", 80),
		"a  b c",
		"العنوان: \"حكاية\"   الجدة",
		strings.Repeat("ل", 99) + "  x",
		"“”‘’",
	}
	for _, in := range inputs {
		got := SanitizeTitle(in)
		n := utf8.RuneCountInString(got)
		if got != FallbackTitle && (n < 3 || n > 100) {
			t.Errorf("SanitizeTitle(%q): length %d out of range", in, n)
		}
		if got == "" {
			t.Errorf("SanitizeTitle(%q) returned empty", in)
		}
		if strings.ContainsAny(got, `"<>|\`) {
			t.Errorf("SanitizeTitle(%q) = %q contains forbidden characters", in, got)
		}
		if strings.Contains(got, "  ") {
			t.Errorf("SanitizeTitle(%q) = %q contains a double space", in, got)
		}
		if !utf8.ValidString(got) {
			t.Errorf("SanitizeTitle(%q) returned invalid UTF-8", in)
		}
	}
}

func TestBuildDescription(t *testing.T) {
	story := strings.Repeat("ب", 250)
	got := BuildDescription("العنوان", story)

	if !strings.HasPrefix(got, "قصة عربية جميلة: العنوان\n\n") {
		t.Errorf("unexpected prefix: %q", got)
	}
	if !strings.Contains(got, strings.Repeat("ب", 200)+"...") || strings.Contains(got, strings.Repeat("ب", 201)) {
		t.Errorf("expected a 200-rune excerpt: %q", got)
	}
	if !strings.HasSuffix(got, "#حكايات") {
		t.Errorf("expected hashtags suffix: %q", got)
	}
}
