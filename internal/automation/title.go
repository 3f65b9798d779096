package automation

import (
	"fmt"
	"strings"
)

// FallbackTitle replaces titles that sanitize to almost nothing.
const FallbackTitle = "قصة عربية جميلة - Story Time"

const (
	minTitleRunes = 3
	maxTitleRunes = 100
	ellipsis      = "..."

	descriptionPrefix  = "قصة عربية جميلة"
	descriptionExcerpt = 200
	descriptionTags    = "#قصة #عربية #مغربية #حكمة #قصص #حكايات"
)

// UploadTags are attached to every uploaded video.
var UploadTags = []string{"story", "moroccan", "arabic", "darija"}

var titleStripper = strings.NewReplacer(
	`"`, "", "'", "",
	"“", "", "”", "", "‘", "", "’", "",
	"«", "", "»", "",
	"<", "", ">", "",
	"|", "", `\`, "",
)

// SanitizeTitle makes a generated title safe for the video host: quotes, angle
// brackets, pipes and backslashes are removed, whitespace runs collapse to a
// single space, and the result is trimmed. Results shorter than 3 runes become
// FallbackTitle; results longer than 100 runes are cut to 97 plus "...".
// The result is never empty.
func SanitizeTitle(title string) string {
	s := strings.ToValidUTF8(title, "")
	s = titleStripper.Replace(s)
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) < minTitleRunes {
		return FallbackTitle
	}
	if len(runes) > maxTitleRunes {
		s = string(runes[:maxTitleRunes-len(ellipsis)]) + ellipsis
	}
	return s
}

// BuildDescription renders the upload description for a sanitized title.
func BuildDescription(title, story string) string {
	excerpt := strings.TrimSpace(story)
	if r := []rune(excerpt); len(r) > descriptionExcerpt {
		excerpt = string(r[:descriptionExcerpt])
	}
	return fmt.Sprintf("%s: %s\n\n%s...\n\n%s", descriptionPrefix, title, excerpt, descriptionTags)
}
