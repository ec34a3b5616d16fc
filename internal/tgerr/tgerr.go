package tgerr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrAuthRequired occurs when an operation needs a stored session credential
	// and none exists for the user.
	ErrAuthRequired = errors.New("authentication required")

	// ErrSessionExpired indicates the stored credential or peer reference is no
	// longer valid and the user must re-authenticate.
	ErrSessionExpired = errors.New("session expired")

	// ErrAccessDenied indicates the account lacks permission for the chat or message.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound indicates the referenced message or chat does not exist.
	ErrNotFound = errors.New("message not found")

	// ErrTransientNetwork indicates a connectivity failure that may clear on retry.
	ErrTransientNetwork = errors.New("transient network failure")

	// ErrPhoneInvalid indicates the remote platform rejected the phone number.
	ErrPhoneInvalid = errors.New("invalid phone number")
)

// RateLimitError reports a flood-wait imposed by the remote platform.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.Wait)
}

// ChallengeKind enumerates the recoverable sign-in challenges.
type ChallengeKind int

const (
	// ChallengeTwoFactor means the account requires a second-factor password.
	ChallengeTwoFactor ChallengeKind = iota
	// ChallengeCodeInvalid means the submitted one-time code was wrong.
	ChallengeCodeInvalid
	// ChallengePasswordInvalid means the submitted second-factor password was wrong.
	ChallengePasswordInvalid
	// ChallengeCodeExpired means the one-time code is no longer accepted.
	ChallengeCodeExpired
)

// ChallengeError reports an authentication challenge raised during sign-in.
type ChallengeError struct {
	Kind ChallengeKind
}

func (e *ChallengeError) Error() string {
	switch e.Kind {
	case ChallengeTwoFactor:
		return "second factor required"
	case ChallengeCodeInvalid:
		return "one-time code invalid"
	case ChallengePasswordInvalid:
		return "second-factor password invalid"
	case ChallengeCodeExpired:
		return "one-time code expired"
	default:
		return "authentication challenge"
	}
}

// SizeLimitError reports a policy denial: content too large for the caller's tier.
type SizeLimitError struct {
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("content size %d exceeds limit %d", e.Size, e.Limit)
}

// ExhaustedError reports that every retrieval strategy failed. Last holds the
// classified error from the final attempt.
type ExhaustedError struct {
	Last error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all retrieval strategies failed: %v", e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// UnclassifiedError carries the raw remote error text for diagnostics.
type UnclassifiedError struct {
	Msg string
}

func (e *UnclassifiedError) Error() string {
	return fmt.Sprintf("unclassified remote error: %s", e.Msg)
}

// Classify maps a remote-call failure onto the closed error taxonomy. Errors
// that already belong to the taxonomy pass through unchanged; anything
// unrecognized becomes an UnclassifiedError carrying the original message.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if classified(err) {
		return err
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "flood"):
		return &RateLimitError{Wait: floodWait(msg)}
	case strings.Contains(msg, "session_password_needed"), strings.Contains(msg, "password needed"):
		return &ChallengeError{Kind: ChallengeTwoFactor}
	case strings.Contains(msg, "phone_code_invalid"), strings.Contains(msg, "code invalid"):
		return &ChallengeError{Kind: ChallengeCodeInvalid}
	case strings.Contains(msg, "password_hash_invalid"), strings.Contains(msg, "password invalid"):
		return &ChallengeError{Kind: ChallengePasswordInvalid}
	case strings.Contains(msg, "phone_code_expired"), strings.Contains(msg, "code expired"):
		return &ChallengeError{Kind: ChallengeCodeExpired}
	case strings.Contains(msg, "phone_number_invalid"):
		return ErrPhoneInvalid
	case strings.Contains(msg, "auth_key_unregistered"),
		strings.Contains(msg, "session_revoked"),
		strings.Contains(msg, "session expired"),
		strings.Contains(msg, "peer id invalid"),
		strings.Contains(msg, "peer_id_invalid"):
		return ErrSessionExpired
	case strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "chat_admin_required"),
		strings.Contains(msg, "access denied"),
		strings.Contains(msg, "channel_private"):
		return ErrAccessDenied
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "message_id_invalid"),
		strings.Contains(msg, "msg_id_invalid"),
		strings.Contains(msg, "message_empty"):
		return ErrNotFound
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "eof"):
		return ErrTransientNetwork
	default:
		return &UnclassifiedError{Msg: err.Error()}
	}
}

func classified(err error) bool {
	if errors.Is(err, ErrAuthRequired) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTransientNetwork) ||
		errors.Is(err, ErrPhoneInvalid) {
		return true
	}
	var (
		rl *RateLimitError
		ch *ChallengeError
		sl *SizeLimitError
		ex *ExhaustedError
		un *UnclassifiedError
	)
	return errors.As(err, &rl) || errors.As(err, &ch) || errors.As(err, &sl) ||
		errors.As(err, &ex) || errors.As(err, &un)
}

// floodWait pulls the advisory wait seconds out of messages such as
// "FLOOD_WAIT_42" or "flood wait of 42 seconds". Zero when absent.
func floodWait(msg string) time.Duration {
	fields := strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if seconds, err := strconv.Atoi(f); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
