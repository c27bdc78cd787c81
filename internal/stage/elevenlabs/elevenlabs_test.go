package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSynthesize(t *testing.T) {
	var got synthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != outputFormat {
			t.Errorf("output_format = %q", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake-mp3"))
	}))
	defer srv.Close()

	c := New("secret", WithBaseURL(srv.URL+"/"), WithVoice("voice-1"))
	audio, err := c.Synthesize(context.Background(), "  Once upon\n\n a   time ")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio.Data) != "ID3fake-mp3" || audio.ContentType != "audio/mpeg" {
		t.Fatalf("unexpected audio: %q %s", audio.Data, audio.ContentType)
	}
	if got.Text != "Once upon a time" {
		t.Fatalf("sent text %q", got.Text)
	}
	if got.ModelID != defaultModel {
		t.Fatalf("model = %q", got.ModelID)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
		}))
		defer srv.Close()

		_, err := New("bad", WithBaseURL(srv.URL)).Synthesize(context.Background(), "hello")
		if err == nil || !strings.Contains(err.Error(), "Invalid API key") {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("blank text", func(t *testing.T) {
		if _, err := New("k").Synthesize(context.Background(), " \n\t "); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestPrepareText(t *testing.T) {
	long := strings.Repeat("a ", MaxChars)
	out := PrepareText(long)
	if !strings.HasSuffix(out, "...") {
		t.Fatal("expected truncation marker")
	}
	if n := len([]rune(strings.TrimSuffix(out, "..."))); n != MaxChars {
		t.Fatalf("kept %d runes, want %d", n, MaxChars)
	}

	if got := PrepareText("short\ttext"); got != "short text" {
		t.Fatalf("PrepareText() = %q", got)
	}
}
