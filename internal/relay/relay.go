// Package relay delivers retrieved content back to the requesting
// conversation through the bot surface.
package relay

import (
	"context"
	"log/slog"

	"github.com/telefetch/telefetch/internal/telegram"
)

// Sender delivers text and local files to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	// SendFile transmits a local file using the send operation matching the
	// media kind, with an optional caption.
	SendFile(ctx context.Context, chatID int64, kind telegram.MediaKind, path, caption string) error
}

// LoggerSender is a stub implementation that writes deliveries to the logger.
type LoggerSender struct {
	logger *slog.Logger
}

// NewLoggerSender constructs a logging sender stub.
func NewLoggerSender(logger *slog.Logger) *LoggerSender {
	return &LoggerSender{logger: logger}
}

// SendText writes the message to the structured logger.
func (s *LoggerSender) SendText(_ context.Context, chatID int64, text string) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("send text", "chat_id", chatID, "text", text)
	return nil
}

// SendFile writes the delivery to the structured logger.
func (s *LoggerSender) SendFile(_ context.Context, chatID int64, kind telegram.MediaKind, path, caption string) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("send file", "chat_id", chatID, "kind", int(kind), "path", path, "caption", caption)
	return nil
}
