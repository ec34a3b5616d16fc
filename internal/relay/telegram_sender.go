package relay

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/telefetch/telefetch/internal/telegram"
)

// TelegramSender delivers content through the Bot API.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

// NewTelegramSender wraps an authorized Bot API client.
func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

// SendText sends a plain text message.
func (s *TelegramSender) SendText(_ context.Context, chatID int64, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendFile uploads a local file with the send operation matching the media kind.
func (s *TelegramSender) SendFile(_ context.Context, chatID int64, kind telegram.MediaKind, path, caption string) error {
	file := tgbotapi.FilePath(path)

	var msg tgbotapi.Chattable
	switch kind {
	case telegram.KindPhoto:
		cfg := tgbotapi.NewPhoto(chatID, file)
		cfg.Caption = caption
		msg = cfg
	case telegram.KindVideo:
		cfg := tgbotapi.NewVideo(chatID, file)
		cfg.Caption = caption
		msg = cfg
	case telegram.KindAudio:
		cfg := tgbotapi.NewAudio(chatID, file)
		cfg.Caption = caption
		msg = cfg
	case telegram.KindVoice:
		cfg := tgbotapi.NewVoice(chatID, file)
		cfg.Caption = caption
		msg = cfg
	case telegram.KindAnimation:
		cfg := tgbotapi.NewAnimation(chatID, file)
		cfg.Caption = caption
		msg = cfg
	case telegram.KindDocument:
		cfg := tgbotapi.NewDocument(chatID, file)
		cfg.Caption = caption
		msg = cfg
	default:
		return fmt.Errorf("unknown media kind %d", kind)
	}

	_, err := s.api.Send(msg)
	return err
}
