// Package azuretts synthesizes speech with the Azure Speech REST API.
package azuretts

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// DefaultVoice is the Moroccan Arabic neural voice.
	DefaultVoice = "ar-MA-JamalNeural"

	outputFormat   = "audio-24khz-96kbitrate-mono-mp3"
	requestTimeout = 5 * time.Minute
	maxErrorBody   = 512
)

// Narrator converts story text into an MP3 file.
type Narrator struct {
	endpoint string
	key      string
	voice    string
	client   *http.Client
	log      *slog.Logger
}

// Option configures a Narrator.
type Option func(*Narrator)

// WithEndpoint overrides the region-derived synthesis URL.
func WithEndpoint(url string) Option {
	return func(n *Narrator) { n.endpoint = url }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Narrator) { n.client = c }
}

// New returns a Narrator for the given subscription key and region.
func New(key, region, voice string, log *slog.Logger, opts ...Option) (*Narrator, error) {
	if key == "" || region == "" {
		return nil, errors.New("azure speech key and region are required")
	}
	if voice == "" {
		voice = DefaultVoice
	}
	n := &Narrator{
		endpoint: fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		key:      key,
		voice:    voice,
		client:   &http.Client{Timeout: requestTimeout},
		log:      log,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Narrate implements automation.Narrator.
func (n *Narrator) Narrate(ctx context.Context, text, outPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("nothing to narrate")
	}
	body, err := n.ssml(text)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build speech request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", n.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)
	req.Header.Set("User-Agent", "story-automation")

	started := time.Now()
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("speech synthesis failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outPath)
		return fmt.Errorf("write audio file: %w", err)
	}
	if written == 0 {
		os.Remove(outPath)
		return errors.New("speech synthesis returned no audio")
	}

	n.log.Info("speech synthesized",
		slog.String("voice", n.voice),
		slog.Int64("bytes", written),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return nil
}

func (n *Narrator) ssml(text string) ([]byte, error) {
	lang := n.voice
	if parts := strings.SplitN(n.voice, "-", 3); len(parts) == 3 {
		lang = parts[0] + "-" + parts[1]
	}
	var b bytes.Buffer
	b.WriteString("<speak version='1.0' xml:lang='")
	if err := xml.EscapeText(&b, []byte(lang)); err != nil {
		return nil, fmt.Errorf("escape voice language: %w", err)
	}
	b.WriteString("'><voice name='")
	if err := xml.EscapeText(&b, []byte(n.voice)); err != nil {
		return nil, fmt.Errorf("escape voice name: %w", err)
	}
	b.WriteString("'>")
	if err := xml.EscapeText(&b, []byte(text)); err != nil {
		return nil, fmt.Errorf("escape speech text: %w", err)
	}
	b.WriteString("</voice></speak>")
	return b.Bytes(), nil
}
