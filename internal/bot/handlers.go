package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/telefetch/telefetch/internal/linkparse"
	"github.com/telefetch/telefetch/internal/login"
	"github.com/telefetch/telefetch/internal/session"
	"github.com/telefetch/telefetch/internal/tgerr"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		reply, err := b.login.Begin(ctx, userID)
		if err != nil {
			b.send(chatID, loginErrText(err))
			return
		}
		b.send(chatID, reply.Text)

	case "cancel":
		reply, err := b.login.Cancel(ctx, userID)
		if err != nil {
			if errors.Is(err, login.ErrNoPending) {
				b.send(chatID, "There is no login in progress.")
				return
			}
			b.send(chatID, loginErrText(err))
			return
		}
		b.send(chatID, reply.Text)

	case "logout":
		b.handleLogout(ctx, userID, chatID)

	case "status":
		exists, err := b.sessions.Exists(ctx, userID)
		if err != nil {
			b.send(chatID, "Could not check your status right now. Try again later.")
			return
		}
		if exists {
			b.send(chatID, "You are logged in. Send a message link to fetch it, or /logout to leave.")
		} else {
			b.send(chatID, "You are not logged in. Use /start to log in.")
		}

	case "refresh":
		if err := b.sessions.Delete(ctx, userID); err != nil {
			b.send(chatID, "Could not refresh your session right now. Try again later.")
			return
		}
		b.send(chatID, "Stored session dropped. Use /start to log in again.")

	case "channels":
		b.handleChannels(ctx, userID, chatID)

	case "grant", "revoke", "entitled":
		b.handleAdmin(ctx, msg)

	default:
		b.send(chatID, "Unknown command. Available: /start /cancel /logout /status /refresh /channels")
	}
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if b.login.Active(ctx, userID) {
		reply, err := b.login.Submit(ctx, userID, text)
		if err != nil {
			b.send(chatID, loginErrText(err))
			return
		}
		b.send(chatID, reply.Text)
		if reply.LoggedIn {
			b.audit(ctx, fmt.Sprintf("#NewLogin user_id=%d phone=%s time=%s",
				userID, reply.Phone, time.Now().UTC().Format(time.RFC3339)))
		}
		return
	}

	if strings.Contains(text, "t.me") {
		b.handleLink(ctx, userID, chatID, text)
		return
	}

	b.send(chatID, "Send a message link to fetch it, or /start to log in.")
}

func (b *Bot) handleLink(ctx context.Context, userID, chatID int64, text string) {
	ref, err := linkparse.Parse(text)
	if err != nil {
		b.send(chatID, "That link does not look right. Supported forms: t.me/channel/123, t.me/c/1234567890/123, t.me/s/channel/123.")
		return
	}

	b.send(chatID, "Fetching message...")

	result, err := b.pipeline.Retrieve(ctx, userID, chatID, ref)
	if err != nil {
		b.send(chatID, retrievalErrText(err))
		return
	}

	b.send(chatID, "Done.")
	b.audit(ctx, fmt.Sprintf("#Download user_id=%d chat=%s message_id=%d strategy=%s",
		userID, ref.Chat(), ref.MessageID, result.Strategy))
}

func (b *Bot) handleLogout(ctx context.Context, userID, chatID int64) {
	exists, err := b.sessions.Exists(ctx, userID)
	if err != nil {
		b.send(chatID, "Could not log you out right now. Try again later.")
		return
	}
	if !exists {
		b.send(chatID, "You are not logged in. Use /start to log in.")
		return
	}
	if err := b.sessions.Delete(ctx, userID); err != nil {
		b.send(chatID, "Could not log you out right now. Try again later.")
		return
	}
	b.send(chatID, "Logged out. Your session has been deleted.")
	b.audit(ctx, fmt.Sprintf("#Logout user_id=%d time=%s", userID, time.Now().UTC().Format(time.RFC3339)))
}

// handleChannels lists the user's joined chats over a request-scoped connection.
func (b *Bot) handleChannels(ctx context.Context, userID, chatID int64) {
	credential, err := b.sessions.Load(ctx, userID)
	if err != nil {
		b.send(chatID, sessionLoadErrText(err))
		return
	}

	lease, err := b.dialer.DialStored(ctx, credential)
	if err != nil {
		b.send(chatID, retrievalErrText(tgerr.Classify(err)))
		return
	}
	defer lease.Release(ctx)

	chats, err := lease.Client().ListChats(ctx)
	if err != nil {
		b.send(chatID, retrievalErrText(tgerr.Classify(err)))
		return
	}
	if len(chats) == 0 {
		b.send(chatID, "No joined chats found.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your chats:\n")
	for _, c := range chats {
		if c.Handle != "" {
			fmt.Fprintf(&sb, "- %s (%s)\n", c.Title, c.Handle)
		} else {
			fmt.Fprintf(&sb, "- %s (%d)\n", c.Title, c.ID)
		}
	}
	b.send(chatID, sb.String())
}

func (b *Bot) handleAdmin(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !b.cfg.IsAdmin(userID) {
		b.send(chatID, "This command is for administrators.")
		return
	}

	switch msg.Command() {
	case "grant", "revoke":
		target, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
		if err != nil || target <= 0 {
			b.send(chatID, fmt.Sprintf("Usage: /%s <user_id>", msg.Command()))
			return
		}
		if msg.Command() == "grant" {
			err = b.ents.Grant(ctx, target)
		} else {
			err = b.ents.Revoke(ctx, target)
		}
		if err != nil {
			b.send(chatID, "Entitlement update failed. Try again later.")
			return
		}
		b.send(chatID, fmt.Sprintf("User %d %sed.", target, msg.Command()))

	case "entitled":
		grants, err := b.ents.List(ctx)
		if err != nil {
			b.send(chatID, "Could not list entitlements right now.")
			return
		}
		if len(grants) == 0 {
			b.send(chatID, "No entitled users.")
			return
		}
		var sb strings.Builder
		sb.WriteString("Entitled users:\n")
		for _, g := range grants {
			fmt.Fprintf(&sb, "- %d (since %s)\n", g.UserID, g.GrantedAt.Format("2006-01-02"))
		}
		b.send(chatID, sb.String())
	}
}

// sessionLoadErrText distinguishes a missing session from a store outage so
// an infrastructure failure never reads as "not logged in".
func sessionLoadErrText(err error) string {
	if errors.Is(err, session.ErrNotFound) {
		return "You need to log in first. Use /start."
	}
	return "Could not load your session right now. Try again later."
}

// formatSize renders byte counts for user-facing replies. Sub-MiB values are
// printed in bytes; everything else rounds up to whole MB so a file just over
// the limit never displays as equal to it.
func formatSize(n int64) string {
	if n < 1<<20 {
		return fmt.Sprintf("%d bytes", n)
	}
	return fmt.Sprintf("%d MB", (n+1<<20-1)>>20)
}

func loginErrText(err error) string {
	if errors.Is(err, login.ErrStepInFlight) {
		return "Hold on, your previous step is still being processed."
	}
	return "Something went wrong. Use /start to try again."
}

func retrievalErrText(err error) string {
	switch {
	case errors.Is(err, tgerr.ErrAuthRequired):
		return "You need to log in first. Use /start."
	case errors.Is(err, tgerr.ErrSessionExpired):
		return "Your session is no longer valid. Use /refresh, then /start to log in again."
	case errors.Is(err, tgerr.ErrAccessDenied):
		return "Access denied. Join the channel with your account and try again."
	case errors.Is(err, tgerr.ErrNotFound):
		return "Message not found. It may have been deleted, or the link is wrong."
	case errors.Is(err, tgerr.ErrTransientNetwork):
		return "Network trouble reaching the platform. Try again in a moment."
	}

	var rl *tgerr.RateLimitError
	if errors.As(err, &rl) {
		return fmt.Sprintf("Rate limited by the platform. Wait %s and try again.", rl.Wait.Round(time.Second))
	}

	var sl *tgerr.SizeLimitError
	if errors.As(err, &sl) {
		return fmt.Sprintf("This file is %s, above the free limit of %s. Ask an administrator for an entitlement.",
			formatSize(sl.Size), formatSize(sl.Limit))
	}

	var ex *tgerr.ExhaustedError
	if errors.As(err, &ex) {
		return fmt.Sprintf("Could not deliver the message after trying every method. Last error: %v", ex.Last)
	}

	return fmt.Sprintf("Failed to fetch the message: %v", err)
}
