package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"slidecast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrMux, "muxing", "concat", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrMux) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"muxing", "concat", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindOfMapping(t *testing.T) {
	cases := []struct {
		err  error
		want services.Kind
	}{
		{services.Wrap(services.ErrAuth, "narrating", "synthesize", "401", nil), services.KindAuth},
		{services.Wrap(services.ErrRateLimited, "narrating", "synthesize", "429", nil), services.KindRateLimited},
		{services.Wrap(services.ErrSourceInvalid, "rendering", "render", "corrupt deck", nil), services.KindSourceInvalid},
		{context.DeadlineExceeded, services.KindTimeout},
		{errors.New("mystery"), services.KindInternal},
	}
	for _, tc := range cases {
		if got := services.KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
	if got := services.KindOf(nil); got != "" {
		t.Fatalf("KindOf(nil) = %s, want empty", got)
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrTransient, "narrating", "synthesize", "network", nil)) {
		t.Fatal("transient should be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrRateLimited, "narrating", "synthesize", "429", nil)) {
		t.Fatal("rate limited should be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrAuth, "narrating", "synthesize", "401", nil)) {
		t.Fatal("auth should not be retryable")
	}
	if services.Retryable(nil) {
		t.Fatal("nil should not be retryable")
	}
}

func TestMessageStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrInvalidVoice, "narrating", "synthesize", "unknown voice", nil)
	msg := services.Message(err)
	if strings.HasPrefix(msg, "invalid voice:") {
		t.Fatalf("marker prefix not stripped: %q", msg)
	}
	if !strings.Contains(msg, "unknown voice") {
		t.Fatalf("detail missing: %q", msg)
	}
}
