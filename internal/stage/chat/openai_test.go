package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body any) *http.Response {
	buf, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(buf)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestOpenAIComplete(t *testing.T) {
	var captured map[string]any
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		return jsonResponse(http.StatusOK, map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": "  Hello  "}}},
		}), nil
	})

	client := NewOpenAIClient("test",
		WithOpenAIBaseURL("https://api.example.com/v1/"),
		WithOpenAIHTTPClient(&http.Client{Transport: transport}),
	)

	out, err := client.Complete(context.Background(), Request{System: "sys", User: "Hi", Temperature: 0.3, JSON: true})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "Hello" {
		t.Fatalf("unexpected text: %q", out)
	}
	if captured["model"] != defaultOpenAIModel {
		t.Fatalf("model = %v", captured["model"])
	}
	msgs := captured["messages"].([]any)
	if len(msgs) != 2 || msgs[0].(map[string]any)["role"] != "system" {
		t.Fatalf("unexpected messages: %v", msgs)
	}
	rf, ok := captured["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Fatalf("response_format = %v", captured["response_format"])
	}
}

func TestOpenAICompleteErrors(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
		want string
	}{
		{
			name: "api error message",
			resp: jsonResponse(http.StatusTooManyRequests, map[string]any{"error": map[string]any{"message": "rate limited"}}),
			want: "rate limited",
		},
		{
			name: "opaque status",
			resp: &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader("bad gateway"))},
			want: "unexpected status 502",
		},
		{
			name: "no choices",
			resp: jsonResponse(http.StatusOK, map[string]any{"choices": []any{}}),
			want: "empty choices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := roundTripFunc(func(*http.Request) (*http.Response, error) { return tt.resp, nil })
			client := NewOpenAIClient("k", WithOpenAIHTTPClient(&http.Client{Transport: transport}))
			_, err := client.Complete(context.Background(), Request{User: "x"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	telugu := "నమస్కారం"
	got := truncate(telugu, 3)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate() produced invalid UTF-8: %q", got)
	}
	if want := string([]rune(telugu)[:3]) + "..."; got != want {
		t.Fatalf("truncate() = %q, want %q", got, want)
	}
	if truncate("short", 10) != "short" {
		t.Fatal("short input must be returned unchanged")
	}
}
