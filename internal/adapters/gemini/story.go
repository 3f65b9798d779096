// Package gemini generates story text with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"story-automation/internal/automation"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const (
	titleMarker = "العنوان:"
	storyMarker = "القصة:"

	minStoryRunes    = 50
	maxTitleRunes    = 100
	maxGenerations   = 3
	storyTemperature = 0.7
)

// ErrMalformedStory is returned when the model output lacks a usable story.
var ErrMalformedStory = errors.New("malformed story response")

// ErrDuplicateStory is returned when every generation repeated an existing title.
var ErrDuplicateStory = errors.New("generated story duplicates an earlier one")

const systemPrompt = `أنت كاتب قصص محترف متخصص في الأدب العربي والثقافة المغربية.
تعليمات مهمة:
1. اكتب عنوان جذاب للقصة لا يتجاوز 3 كلمات.
2. اكتب قصة طويلة ومثيرة باللغة العربية الفصحى تستغرق قراءتها 7-8 دقائق.
3. استخدم علامات الترقيم بشكل صحيح: النقطة والفاصلة وعلامة الاستفهام (؟) وعلامة التعجب.
4. اجعل القصة بسيطة ومشوقة وفيها عنصر مفاجأة وتنتهي بعبرة قصيرة.

تنسيق الإجابة:
العنوان: [عنوان القصة]

القصة:
[محتوى القصة]`

const userPrompt = "اكتب قصة طويلة ومثيرة باللغة العربية الفصحى، مع حبكة متطورة وعنصر مفاجأة في النهاية."

// contentGenerator is the subset of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Writer produces one story per call.
type Writer struct {
	models     contentGenerator
	model      string
	storiesDir string
	log        *slog.Logger
}

// NewWriter returns a Writer backed by the Gemini API. When storiesDir is set,
// stories whose title already appears there are regenerated.
func NewWriter(ctx context.Context, apiKey, model, storiesDir string, log *slog.Logger) (*Writer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newWriter(client.Models, model, storiesDir, log), nil
}

func newWriter(models contentGenerator, model, storiesDir string, log *slog.Logger) *Writer {
	if model == "" {
		model = DefaultModel
	}
	return &Writer{models: models, model: model, storiesDir: storiesDir, log: log}
}

// WriteStory implements automation.StoryWriter.
func (w *Writer) WriteStory(ctx context.Context) (automation.Story, error) {
	seen := w.knownTitles()
	temperature := float32(storyTemperature)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		Temperature: &temperature,
	}

	var lastErr error
	for i := 1; i <= maxGenerations; i++ {
		resp, err := w.models.GenerateContent(ctx, w.model, genai.Text(userPrompt), config)
		if err != nil {
			return automation.Story{}, fmt.Errorf("generate story: %w", err)
		}
		story, err := ParseStory(resp.Text())
		if err != nil {
			lastErr = err
			w.log.Warn("unusable story response", slog.Int("generation", i), slog.String("error", err.Error()))
			continue
		}
		if seen[story.Title] && story.Title != automation.FallbackTitle {
			lastErr = fmt.Errorf("%w: %q", ErrDuplicateStory, story.Title)
			w.log.Warn("duplicate story title, regenerating", slog.Int("generation", i), slog.String("title", story.Title))
			continue
		}
		w.log.Info("story generated",
			slog.String("title", story.Title),
			slog.Int("story_runes", utf8.RuneCountInString(story.Body)))
		return story, nil
	}
	return automation.Story{}, lastErr
}

// knownTitles reads the titles of stories saved by earlier sessions.
func (w *Writer) knownTitles() map[string]bool {
	seen := make(map[string]bool)
	if w.storiesDir == "" {
		return seen
	}
	files, err := filepath.Glob(filepath.Join(w.storiesDir, "*.txt"))
	if err != nil {
		return seen
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		if title, ok := extractTitle(string(data)); ok {
			seen[title] = true
		}
	}
	return seen
}

// ParseStory extracts title and story from model output of the form
// "العنوان: <title>\n\nالقصة:\n<story>". A missing, empty or overlong title is
// replaced by automation.FallbackTitle; a missing or short story is an error.
func ParseStory(raw string) (automation.Story, error) {
	text := strings.ReplaceAll(raw, "**", "")

	idx := strings.Index(text, storyMarker)
	if idx < 0 {
		return automation.Story{}, fmt.Errorf("%w: no %q marker", ErrMalformedStory, storyMarker)
	}
	body := strings.TrimSpace(text[idx+len(storyMarker):])
	if n := utf8.RuneCountInString(body); n < minStoryRunes {
		return automation.Story{}, fmt.Errorf("%w: story has %d characters, want at least %d", ErrMalformedStory, n, minStoryRunes)
	}

	title, ok := extractTitle(text)
	if !ok {
		title = automation.FallbackTitle
	}
	return automation.Story{Title: title, Body: body, Raw: strings.TrimSpace(text)}, nil
}

func extractTitle(text string) (string, bool) {
	idx := strings.Index(text, titleMarker)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(text[idx+len(titleMarker):], " \t\r\n")
	if end := strings.Index(rest, storyMarker); end >= 0 {
		rest = rest[:end]
	}
	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		rest = rest[:end]
	}
	title := strings.Trim(strings.TrimSpace(rest), `"“”«» `)
	if title == "" || utf8.RuneCountInString(title) >= maxTitleRunes {
		return "", false
	}
	return title, true
}
