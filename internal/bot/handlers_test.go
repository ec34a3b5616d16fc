package bot

import (
	"errors"
	"strings"
	"testing"

	"github.com/telefetch/telefetch/internal/session"
	"github.com/telefetch/telefetch/internal/tgerr"
)

func TestSessionLoadErrText(t *testing.T) {
	if got := sessionLoadErrText(session.ErrNotFound); !strings.Contains(got, "/start") {
		t.Fatalf("expected login prompt for missing session, got %q", got)
	}

	// A store outage must not read as "not logged in".
	got := sessionLoadErrText(errors.New("connect postgres: connection refused"))
	if strings.Contains(got, "log in") {
		t.Fatalf("store failure misreported as unauthenticated: %q", got)
	}
	if !strings.Contains(got, "Try again later") {
		t.Fatalf("expected transient failure text, got %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{512, "512 bytes"},
		{1<<20 - 1, "1048575 bytes"},
		{1 << 20, "1 MB"},
		{150 << 20, "150 MB"},
		{150<<20 + 1, "151 MB"},
	}
	for _, tc := range cases {
		if got := formatSize(tc.n); got != tc.want {
			t.Fatalf("formatSize(%d): expected %q, got %q", tc.n, tc.want, got)
		}
	}
}

func TestRetrievalErrTextSizeLimit(t *testing.T) {
	got := retrievalErrText(&tgerr.SizeLimitError{Size: 512, Limit: 50 << 20})
	if !strings.Contains(got, "512 bytes") || !strings.Contains(got, "50 MB") {
		t.Fatalf("unexpected size limit text: %q", got)
	}

	got = retrievalErrText(&tgerr.SizeLimitError{Size: 50<<20 + 1, Limit: 50 << 20})
	if !strings.Contains(got, "51 MB") {
		t.Fatalf("expected size rounded up above the limit, got %q", got)
	}
}
