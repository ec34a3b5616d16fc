package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/telefetch/telefetch/internal/entitlement"
	"github.com/telefetch/telefetch/internal/tgerr"
)

func TestDecide(t *testing.T) {
	const limit = 100

	cases := []struct {
		name     string
		size     int64
		entitled bool
		want     bool
	}{
		{"under limit unentitled", 99, false, true},
		{"at limit unentitled", 100, false, true},
		{"over limit unentitled", 101, false, false},
		{"far over limit unentitled", 1 << 40, false, false},
		{"over limit entitled", 101, true, true},
		{"far over limit entitled", 1 << 40, true, true},
		{"zero size unentitled", 0, false, true},
	}

	for _, tc := range cases {
		if got := Decide(tc.size, limit, tc.entitled); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestGateCheck(t *testing.T) {
	ents := entitlement.NewMemoryRepository()
	gate := NewGate(ents, 100)
	ctx := context.Background()

	if err := gate.Check(ctx, 1, 50); err != nil {
		t.Fatalf("expected small transfer allowed: %v", err)
	}

	err := gate.Check(ctx, 1, 500)
	var sl *tgerr.SizeLimitError
	if !errors.As(err, &sl) {
		t.Fatalf("expected SizeLimitError, got %v", err)
	}
	if sl.Size != 500 || sl.Limit != 100 {
		t.Fatalf("unexpected payload: %+v", sl)
	}

	if err := ents.Grant(ctx, 1); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := gate.Check(ctx, 1, 500); err != nil {
		t.Fatalf("expected entitled transfer allowed: %v", err)
	}
}
