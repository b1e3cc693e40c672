package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewRedis_ConnectsAndPings(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rs, err := NewRedis(ctx, "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rs.Close()

	if err := rs.Ping(ctx); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedis(context.Background(), "redis://"+addr); err == nil {
		t.Error("expected error for unreachable redis")
	}
}

func TestNewRedis_BadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not-a-url"); err == nil {
		t.Error("expected error for invalid redis URL")
	}
}

func TestLikePattern_EscapesWildcards(t *testing.T) {
	tests := map[string]string{
		"Acme":      "%Acme%",
		"100%":      `%100\%%`,
		"a_b":       `%a\_b%`,
		`back\path`: `%back\\path%`,
	}
	for in, want := range tests {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
