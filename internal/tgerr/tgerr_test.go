package tgerr

import (
	"errors"
	"testing"
	"time"
)

func TestClassifyFloodWait(t *testing.T) {
	err := Classify(errors.New("FLOOD_WAIT_42"))

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.Wait != 42*time.Second {
		t.Fatalf("expected 42s wait, got %s", rl.Wait)
	}
}

func TestClassifyChallenges(t *testing.T) {
	cases := map[string]ChallengeKind{
		"SESSION_PASSWORD_NEEDED": ChallengeTwoFactor,
		"PHONE_CODE_INVALID":      ChallengeCodeInvalid,
		"PASSWORD_HASH_INVALID":   ChallengePasswordInvalid,
		"PHONE_CODE_EXPIRED":      ChallengeCodeExpired,
	}

	for msg, want := range cases {
		err := Classify(errors.New(msg))
		var ch *ChallengeError
		if !errors.As(err, &ch) {
			t.Fatalf("%s: expected ChallengeError, got %v", msg, err)
		}
		if ch.Kind != want {
			t.Fatalf("%s: expected kind %d, got %d", msg, want, ch.Kind)
		}
	}
}

func TestClassifySentinels(t *testing.T) {
	cases := map[string]error{
		"AUTH_KEY_UNREGISTERED":  ErrSessionExpired,
		"peer id invalid":        ErrSessionExpired,
		"403 Forbidden":          ErrAccessDenied,
		"CHANNEL_PRIVATE":        ErrAccessDenied,
		"message not found":      ErrNotFound,
		"MESSAGE_ID_INVALID":     ErrNotFound,
		"connection reset":       ErrTransientNetwork,
		"dial tcp: i/o timeout":  ErrTransientNetwork,
		"PHONE_NUMBER_INVALID":   ErrPhoneInvalid,
	}

	for msg, want := range cases {
		if got := Classify(errors.New(msg)); !errors.Is(got, want) {
			t.Fatalf("%s: expected %v, got %v", msg, want, got)
		}
	}
}

func TestClassifyUnknownKeepsMessage(t *testing.T) {
	err := Classify(errors.New("SOMETHING_NOBODY_EXPECTED"))

	var un *UnclassifiedError
	if !errors.As(err, &un) {
		t.Fatalf("expected UnclassifiedError, got %v", err)
	}
	if un.Msg != "SOMETHING_NOBODY_EXPECTED" {
		t.Fatalf("expected original message preserved, got %q", un.Msg)
	}
}

func TestClassifyPassesTaxonomyThrough(t *testing.T) {
	already := &SizeLimitError{Size: 10, Limit: 5}
	if got := Classify(already); got != error(already) {
		t.Fatalf("expected passthrough, got %v", got)
	}
	if got := Classify(ErrAuthRequired); !errors.Is(got, ErrAuthRequired) {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
