package linkparse

import (
	"errors"
	"testing"
)

func TestParsePublicLink(t *testing.T) {
	ref, err := Parse("https://t.me/somechannel/123")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ref.Handle != "@somechannel" {
		t.Fatalf("expected handle @somechannel, got %q", ref.Handle)
	}
	if ref.ChatID != 0 {
		t.Fatalf("expected no numeric chat id, got %d", ref.ChatID)
	}
	if ref.MessageID != 123 {
		t.Fatalf("expected message id 123, got %d", ref.MessageID)
	}
}

func TestParsePrivateLinkAddsOffset(t *testing.T) {
	ref, err := Parse("https://t.me/c/1234567890/55")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ref.ChatID != -1001234567890 {
		t.Fatalf("expected chat id -1001234567890, got %d", ref.ChatID)
	}
	if ref.MessageID != 55 {
		t.Fatalf("expected message id 55, got %d", ref.MessageID)
	}
}

func TestParsePreviewLink(t *testing.T) {
	ref, err := Parse("https://t.me/s/newsfeed/42")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ref.Handle != "@newsfeed" {
		t.Fatalf("expected handle @newsfeed, got %q", ref.Handle)
	}
	if ref.MessageID != 42 {
		t.Fatalf("expected message id 42, got %d", ref.MessageID)
	}
}

func TestParseStripsQueryParameters(t *testing.T) {
	ref, err := Parse("https://t.me/somechannel/123?single&comment=9")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ref.MessageID != 123 {
		t.Fatalf("expected message id 123, got %d", ref.MessageID)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"missing domain":          "https://example.com/somechannel/123",
		"too few segments":        "https://t.me/somechannel",
		"non-numeric message id":  "https://t.me/somechannel/abc",
		"zero message id":         "https://t.me/somechannel/0",
		"negative message id":     "https://t.me/somechannel/-3",
		"private non-numeric id":  "https://t.me/c/notanumber/55",
		"private missing message": "https://t.me/c/1234567890",
		"preview missing message": "https://t.me/s/newsfeed",
	}

	for name, input := range cases {
		if _, err := Parse(input); !errors.Is(err, ErrInvalidLink) {
			t.Fatalf("%s: expected ErrInvalidLink, got %v", name, err)
		}
	}
}
