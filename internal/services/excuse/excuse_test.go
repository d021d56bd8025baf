package excuse

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func isLocalExcuse(text string) bool {
	if !strings.HasSuffix(text, ".") {
		return false
	}
	for _, starter := range defaultStarters {
		if !strings.HasPrefix(text, starter+" ") {
			continue
		}
		rest := strings.TrimSuffix(strings.TrimPrefix(text, starter+" "), ".")
		for _, situation := range defaultSituations {
			if rest == situation {
				return true
			}
		}
	}
	return false
}

func TestLocalGeneratorFormat(t *testing.T) {
	t.Parallel()

	g := NewLocalGeneratorWithPhrases(Phrases{}, rand.New(rand.NewPCG(1, 2)))
	for i := 0; i < 50; i++ {
		if text := g.Excuse(); !isLocalExcuse(text) {
			t.Fatalf("Excuse() = %q is not starter + situation + '.'", text)
		}
	}
}

func TestServiceFallsBackLocally(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		remote Generator
	}{
		{name: "no remote"},
		{
			name: "remote error",
			remote: GeneratorFunc(func(ctx context.Context, eventContext string) (string, error) {
				return "", &APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}
			}),
		},
		{
			name: "empty text",
			remote: GeneratorFunc(func(ctx context.Context, eventContext string) (string, error) {
				return "   ", nil
			}),
		},
		{
			name: "timeout",
			remote: GeneratorFunc(func(ctx context.Context, eventContext string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(tt.remote, nil, 20*time.Millisecond, zap.NewNop())
			if text := svc.Excuse(context.Background(), "Team Standup", "Work"); !isLocalExcuse(text) {
				t.Errorf("Excuse() = %q, want a local excuse", text)
			}
		})
	}
}

func TestServiceUsesRemoteOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var gotContext string
	remote := GeneratorFunc(func(ctx context.Context, eventContext string) (string, error) {
		calls.Add(1)
		gotContext = eventContext
		return "My calendar filed for divorce.", nil
	})

	svc := NewService(remote, nil, time.Second, zap.NewNop())
	text := svc.Excuse(context.Background(), "Team Standup", "Work")

	if text != "My calendar filed for divorce." {
		t.Errorf("Excuse() = %q", text)
	}
	if gotContext != `missing "Team Standup" (a Work event)` {
		t.Errorf("context = %q", gotContext)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 remote call, got %d", calls.Load())
	}

	failing := NewService(GeneratorFunc(func(ctx context.Context, eventContext string) (string, error) {
		calls.Add(1)
		return "", errors.New("down")
	}), nil, time.Second, zap.NewNop())
	calls.Store(0)
	_ = failing.Excuse(context.Background(), "x", "y")
	if calls.Load() != 1 {
		t.Errorf("Expected no retries, got %d calls", calls.Load())
	}
}

func TestRemoteWithoutGenerator(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, nil, 0, nil)
	if _, err := svc.Remote(context.Background(), "anything"); !errors.Is(err, ErrNoRemote) {
		t.Errorf("Expected ErrNoRemote, got %v", err)
	}
	if svc.HasRemote() {
		t.Error("HasRemote() should be false")
	}
}

func TestEndpointGenerator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{name: "plain body", status: http.StatusOK, body: `{"excuse":"My cat locked me out."}`, want: "My cat locked me out."},
		{name: "envelope body", status: http.StatusOK, body: `{"success":true,"data":{"excuse":"Fog."}}`, want: "Fog."},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"no key"}`, wantErr: true},
		{name: "malformed", status: http.StatusOK, body: `not json`, wantErr: true},
		{name: "missing excuse", status: http.StatusOK, body: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req endpointRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Context == "" {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewEndpointGenerator(srv.URL, srv.Client()).Generate(context.Background(), "missing a thing")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenAIGenerator(t *testing.T) {
	t.Parallel()

	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  A goose stole my keys.  "}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("sk-test", srv.URL, "", zap.NewNop(), true)
	got, err := g.Generate(context.Background(), `missing "Lunch" (a Social event)`)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "A goose stole my keys." {
		t.Errorf("Generate() = %q", got)
	}
	if gotModel != DefaultOpenAIModel {
		t.Errorf("model = %q, want %q", gotModel, DefaultOpenAIModel)
	}
}

func TestOpenAIGeneratorRateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIGenerator("sk-test", srv.URL, "m", nil, false).Generate(context.Background(), "x")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
	if Reason(err) != "rate_limited" {
		t.Errorf("Reason() = %q", Reason(err))
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(`missing "Yoga Class" (a Personal event)`)
	if !strings.Contains(prompt, `excuse for missing "Yoga Class" (a Personal event).`) {
		t.Errorf("prompt missing context: %s", prompt)
	}
	if !strings.Contains(BuildPrompt(""), DefaultContext) {
		t.Error("Expected default context for empty input")
	}
}

func TestParsePhrases(t *testing.T) {
	t.Parallel()

	p, err := ParsePhrases([]byte("starters:\n  - \"Alas,\"\n  - \"\"\nsituations:\n  - \"the moon is too bright.\"\n"))
	if err != nil {
		t.Fatalf("ParsePhrases() error = %v", err)
	}
	if len(p.Starters) != 1 || p.Situations[0] != "the moon is too bright" {
		t.Errorf("Unexpected phrases: %+v", p)
	}

	g := NewLocalGeneratorWithPhrases(p, rand.New(rand.NewPCG(3, 4)))
	if got := g.Excuse(); got != "Alas, the moon is too bright." {
		t.Errorf("Excuse() = %q", got)
	}

	if _, err := ParsePhrases([]byte("other: 1\n")); err == nil {
		t.Error("Expected error for empty phrase file")
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("local", func(map[string]string) (Generator, error) { return NewLocalGenerator(), nil })

	if _, err := r.Build("local", nil); err != nil {
		t.Errorf("Build(local) error = %v", err)
	}
	var notFound *ErrProviderNotFound
	if _, err := r.Build("nope", nil); !errors.As(err, &notFound) {
		t.Errorf("Expected ErrProviderNotFound, got %v", err)
	}
}

func TestRegisterDefaults(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	RegisterDefaults(r, zap.NewNop(), false)

	tests := []struct {
		name     string
		provider string
		settings map[string]string
		wantErr  bool
	}{
		{name: "openai", provider: "openai", settings: map[string]string{"api_key": "sk-test"}},
		{name: "openai without key", provider: "openai", settings: map[string]string{}, wantErr: true},
		{name: "endpoint", provider: "endpoint", settings: map[string]string{"url": "http://localhost:9/excuse"}},
		{name: "endpoint without url", provider: "endpoint", wantErr: true},
	}
	for _, tt := range tests {
		g, err := r.Build(tt.provider, tt.settings)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Build() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err == nil && g == nil {
			t.Errorf("%s: expected a generator", tt.name)
		}
	}
}
