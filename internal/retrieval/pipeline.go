// Package retrieval fetches a referenced message with a stored credential and
// relays it to the requester, escalating through delivery strategies until
// one succeeds.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/telefetch/telefetch/internal/linkparse"
	"github.com/telefetch/telefetch/internal/policy"
	"github.com/telefetch/telefetch/internal/relay"
	"github.com/telefetch/telefetch/internal/session"
	"github.com/telefetch/telefetch/internal/telegram"
	"github.com/telefetch/telefetch/internal/tgerr"
)

// Dialer opens credential-bound connections for retrievals.
type Dialer interface {
	DialStored(ctx context.Context, credential string) (*telegram.Lease, error)
}

// Result reports which strategy delivered the content.
type Result struct {
	Strategy string
}

// Pipeline runs the tiered retrieval: direct copy, forward,
// download-and-resend, then text fallback. Each request owns its own
// short-lived connection, released on every exit path.
type Pipeline struct {
	sessions    *session.Service
	dialer      Dialer
	gate        *policy.Gate
	sender      relay.Sender
	downloadDir string
	logger      *slog.Logger
}

// NewPipeline builds a retrieval pipeline.
func NewPipeline(sessions *session.Service, dialer Dialer, gate *policy.Gate, sender relay.Sender, downloadDir string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		sessions:    sessions,
		dialer:      dialer,
		gate:        gate,
		sender:      sender,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// Retrieve fetches the referenced message on behalf of userID and delivers it
// into targetChatID. Errors come back already classified.
func (p *Pipeline) Retrieve(ctx context.Context, userID, targetChatID int64, ref linkparse.Reference) (Result, error) {
	credential, err := p.sessions.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Result{}, tgerr.ErrAuthRequired
		}
		return Result{}, err
	}

	lease, err := p.dialer.DialStored(ctx, credential)
	if err != nil {
		return Result{}, tgerr.Classify(err)
	}
	defer lease.Release(ctx)

	client := lease.Client()

	msg, err := client.FetchMessage(ctx, ref)
	if err != nil {
		return Result{}, tgerr.Classify(err)
	}

	// Policy gate runs before any transfer strategy.
	if msg.Media != nil {
		if err := p.gate.Check(ctx, userID, msg.Media.Size); err != nil {
			return Result{}, err
		}
	}

	type strategy struct {
		name string
		run  func(context.Context) error
	}

	strategies := []strategy{
		{"copy", func(ctx context.Context) error {
			return client.CopyMessage(ctx, targetChatID, ref)
		}},
		{"forward", func(ctx context.Context) error {
			return client.ForwardMessage(ctx, targetChatID, ref)
		}},
	}
	if msg.Media != nil {
		strategies = append(strategies, strategy{"reupload", func(ctx context.Context) error {
			return p.downloadAndResend(ctx, client, targetChatID, ref, msg)
		}})
	} else if msg.Text != "" {
		strategies = append(strategies, strategy{"text", func(ctx context.Context) error {
			return p.sender.SendText(ctx, targetChatID, msg.Text)
		}})
	}

	var last error
	for _, s := range strategies {
		err := s.run(ctx)
		if err == nil {
			p.logger.Info("retrieval delivered",
				"user_id", userID, "chat", ref.Chat(), "message_id", ref.MessageID, "strategy", s.name)
			return Result{Strategy: s.name}, nil
		}

		classified := tgerr.Classify(err)
		if final(classified) {
			return Result{}, classified
		}

		p.logger.Warn("retrieval strategy failed, escalating",
			"user_id", userID, "strategy", s.name, "error", classified)
		last = classified
	}

	return Result{}, &tgerr.ExhaustedError{Last: last}
}

// downloadAndResend pulls the media locally, transmits it by kind with the
// original caption, and removes the local copy even when transmission fails.
func (p *Pipeline) downloadAndResend(ctx context.Context, client telegram.Client, targetChatID int64, ref linkparse.Reference, msg telegram.Message) error {
	if err := os.MkdirAll(p.downloadDir, 0o755); err != nil {
		return fmt.Errorf("prepare download dir: %w", err)
	}

	path, err := client.DownloadMedia(ctx, ref, p.downloadDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("remove downloaded file failed", "path", path, "error", err)
		}
	}()

	return p.sender.SendFile(ctx, targetChatID, msg.Media.Kind, path, msg.Text)
}

// final reports classifications that must not escalate: permission and
// not-found outcomes will fail the same way for every strategy, expired
// sessions need re-authentication, and rate limits need waiting out.
func final(err error) bool {
	if errors.Is(err, tgerr.ErrAccessDenied) ||
		errors.Is(err, tgerr.ErrNotFound) ||
		errors.Is(err, tgerr.ErrSessionExpired) {
		return true
	}
	var rl *tgerr.RateLimitError
	return errors.As(err, &rl)
}
