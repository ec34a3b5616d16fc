// Package linkparse canonicalizes Telegram message links into chat/message
// references. Parsing is pure: no network, no state.
package linkparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidLink indicates the input is not a usable Telegram message link.
var ErrInvalidLink = errors.New("invalid message link")

const domainMarker = "t.me"

// Reference identifies one message in one chat. Exactly one of ChatID and
// Handle is set: ChatID for private channels (carries the -100 internal
// prefix), Handle for public chats (includes the leading @).
type Reference struct {
	ChatID    int64
	Handle    string
	MessageID int
}

// Chat returns the chat reference as a string usable in logs.
func (r Reference) Chat() string {
	if r.Handle != "" {
		return r.Handle
	}
	return strconv.FormatInt(r.ChatID, 10)
}

// Parse recognizes the three canonical link forms:
//
//	https://t.me/channelname/123        public chat
//	https://t.me/c/1234567890/123       private channel (numeric id)
//	https://t.me/s/channelname/123      channel preview/story
//
// Query parameters are stripped before tokenizing.
func Parse(raw string) (Reference, error) {
	text := strings.TrimSpace(raw)
	if !strings.Contains(text, domainMarker) {
		return Reference{}, fmt.Errorf("%w: missing %s domain", ErrInvalidLink, domainMarker)
	}

	clean := text
	if i := strings.IndexByte(clean, '?'); i >= 0 {
		clean = clean[:i]
	}

	parts := strings.Split(clean, "/")

	if idx := index(parts, "c"); idx >= 0 {
		return parsePrivate(parts, idx)
	}
	if idx := index(parts, "s"); idx >= 0 {
		return parsePublic(parts, idx)
	}

	var relevant []string
	for _, p := range parts {
		if p == "" || p == "https:" || p == "http:" || p == domainMarker {
			continue
		}
		relevant = append(relevant, p)
	}
	if len(relevant) < 2 {
		return Reference{}, fmt.Errorf("%w: expected channel and message segments", ErrInvalidLink)
	}

	msgID, err := messageID(relevant[1])
	if err != nil {
		return Reference{}, err
	}
	return Reference{Handle: "@" + relevant[0], MessageID: msgID}, nil
}

// parsePrivate handles /c/<numeric id>/<message id>. The numeric channel id
// must be prefixed with -100 to form the internal chat id.
func parsePrivate(parts []string, idx int) (Reference, error) {
	if idx+2 >= len(parts) {
		return Reference{}, fmt.Errorf("%w: private link needs channel and message ids", ErrInvalidLink)
	}
	channel := parts[idx+1]
	if _, err := strconv.ParseUint(channel, 10, 64); err != nil {
		return Reference{}, fmt.Errorf("%w: channel id %q is not numeric", ErrInvalidLink, channel)
	}
	chatID, err := strconv.ParseInt("-100"+channel, 10, 64)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: channel id %q out of range", ErrInvalidLink, channel)
	}
	msgID, err := messageID(parts[idx+2])
	if err != nil {
		return Reference{}, err
	}
	return Reference{ChatID: chatID, MessageID: msgID}, nil
}

// parsePublic handles /s/<handle>/<message id>, treated as a public reference.
func parsePublic(parts []string, idx int) (Reference, error) {
	if idx+2 >= len(parts) {
		return Reference{}, fmt.Errorf("%w: preview link needs channel and message ids", ErrInvalidLink)
	}
	handle := parts[idx+1]
	if handle == "" {
		return Reference{}, fmt.Errorf("%w: empty channel handle", ErrInvalidLink)
	}
	msgID, err := messageID(parts[idx+2])
	if err != nil {
		return Reference{}, err
	}
	return Reference{Handle: "@" + handle, MessageID: msgID}, nil
}

func messageID(segment string) (int, error) {
	id, err := strconv.Atoi(segment)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: message id %q is not a positive integer", ErrInvalidLink, segment)
	}
	return id, nil
}

func index(parts []string, want string) int {
	for i, p := range parts {
		if p == want {
			return i
		}
	}
	return -1
}
