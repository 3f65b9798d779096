package azuretts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"story-automation/internal/platform/logger"
)

func TestNarrator_Narrate(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("X-Microsoft-OutputFormat") != outputFormat {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte("ID3-fake-mp3"))
	}))
	defer srv.Close()

	n, err := New("secret", "westeurope", "", logger.Discard(), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "a.mp3")
	if err := n.Narrate(context.Background(), "قال: <مرحبا> & وداعا", out); err != nil {
		t.Fatalf("Narrate: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil || string(data) != "ID3-fake-mp3" {
		t.Errorf("unexpected audio file %q (%v)", data, err)
	}
	for _, want := range []string{"xml:lang='ar-MA'", "name='ar-MA-JamalNeural'", "&lt;مرحبا&gt; &amp;"} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("ssml missing %q: %s", want, gotBody)
		}
	}
}

func TestNarrator_error_status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n, _ := New("k", "r", "", logger.Discard(), WithEndpoint(srv.URL))
	out := filepath.Join(t.TempDir(), "a.mp3")
	err := n.Narrate(context.Background(), "نص", out)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected status error, got %v", err)
	}
	if _, statErr := os.Stat(out); statErr == nil {
		t.Error("no audio file should be left on failure")
	}
}

func TestNarrator_validation(t *testing.T) {
	if _, err := New("", "r", "", logger.Discard()); err == nil {
		t.Error("expected error without key")
	}
	n, _ := New("k", "r", "", logger.Discard())
	if err := n.Narrate(context.Background(), "   ", "x.mp3"); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestNarrator_ssml_escapes_voice(t *testing.T) {
	n, err := New("secret", "westeurope", "ar-EG-Salma'Neural&x", logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	b, err := n.ssml("نص")
	if err != nil {
		t.Fatal(err)
	}
	body := string(b)
	if !strings.Contains(body, "name='ar-EG-Salma&#39;Neural&amp;x'") {
		t.Errorf("voice name should be escaped inside the attribute: %s", body)
	}
	if strings.Count(body, "'") != 6 {
		t.Errorf("only the attribute quotes should remain unescaped: %s", body)
	}
}
