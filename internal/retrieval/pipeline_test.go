package retrieval

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/telefetch/telefetch/internal/entitlement"
	"github.com/telefetch/telefetch/internal/linkparse"
	"github.com/telefetch/telefetch/internal/logging"
	"github.com/telefetch/telefetch/internal/policy"
	"github.com/telefetch/telefetch/internal/session"
	"github.com/telefetch/telefetch/internal/telegram"
	"github.com/telefetch/telefetch/internal/tgerr"
)

type stubDialer struct {
	client *telegram.ScriptedClient
	err    error
	lease  *telegram.Lease
}

func (d *stubDialer) DialStored(ctx context.Context, _ string) (*telegram.Lease, error) {
	if d.err != nil {
		return nil, d.err
	}
	if err := d.client.Connect(ctx); err != nil {
		return nil, err
	}
	d.lease = telegram.NewLease(d.client, logging.Discard())
	return d.lease, nil
}

type recordingSender struct {
	texts   []string
	files   []string
	fileErr error
}

func (s *recordingSender) SendText(_ context.Context, _ int64, text string) error {
	s.texts = append(s.texts, text)
	return nil
}

func (s *recordingSender) SendFile(_ context.Context, _ int64, _ telegram.MediaKind, path, _ string) error {
	s.files = append(s.files, path)
	return s.fileErr
}

type fixture struct {
	pipeline *Pipeline
	sessions *session.Service
	ents     entitlement.Repository
	sender   *recordingSender
	dialer   *stubDialer
}

func newFixture(t *testing.T, client *telegram.ScriptedClient, limit int64) *fixture {
	t.Helper()
	sealer, err := session.NewSealer(bytes.Repeat([]byte{3}, 32))
	if err != nil {
		t.Fatalf("build sealer: %v", err)
	}
	sessions := session.NewService(session.NewMemoryRepository(), nil, sealer, logging.Discard())
	ents := entitlement.NewMemoryRepository()
	sender := &recordingSender{}
	dialer := &stubDialer{client: client}
	pipeline := NewPipeline(sessions, dialer, policy.NewGate(ents, limit), sender, t.TempDir(), logging.Discard())
	return &fixture{pipeline: pipeline, sessions: sessions, ents: ents, sender: sender, dialer: dialer}
}

func ref() linkparse.Reference {
	return linkparse.Reference{ChatID: -1001234567890, MessageID: 55}
}

func TestRetrieveWithoutSession(t *testing.T) {
	f := newFixture(t, &telegram.ScriptedClient{}, 1<<20)

	_, err := f.pipeline.Retrieve(context.Background(), 1, 100, ref())
	if !errors.Is(err, tgerr.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if f.dialer.client.Connects != 0 {
		t.Fatal("no connection may be opened without a stored session")
	}
}

func TestRetrieveCopyFirst(t *testing.T) {
	forwards := 0
	client := &telegram.ScriptedClient{
		ForwardFunc: func(context.Context, int64, linkparse.Reference) error {
			forwards++
			return nil
		},
	}
	f := newFixture(t, client, 1<<20)
	ctx := context.Background()

	if err := f.sessions.Save(ctx, 1, "cred"); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	res, err := f.pipeline.Retrieve(ctx, 1, 100, ref())
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if res.Strategy != "copy" {
		t.Fatalf("expected copy strategy, got %q", res.Strategy)
	}
	if forwards != 0 {
		t.Fatal("forward must not run when copy succeeds")
	}
	if !f.dialer.lease.Released() {
		t.Fatal("connection not released after retrieval")
	}
}

func TestRetrieveSizeLimitBeforeAnyStrategy(t *testing.T) {
	copies := 0
	client := &telegram.ScriptedClient{
		FetchFunc: func(_ context.Context, r linkparse.Reference) (telegram.Message, error) {
			return telegram.Message{
				ID:    r.MessageID,
				Media: &telegram.Media{Kind: telegram.KindVideo, Size: 200},
			}, nil
		},
		CopyFunc: func(context.Context, int64, linkparse.Reference) error {
			copies++
			return nil
		},
	}
	f := newFixture(t, client, 100)
	ctx := context.Background()

	if err := f.sessions.Save(ctx, 1, "cred"); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	_, err := f.pipeline.Retrieve(ctx, 1, 100, ref())
	var sl *tgerr.SizeLimitError
	if !errors.As(err, &sl) {
		t.Fatalf("expected SizeLimitError, got %v", err)
	}
	if copies != 0 {
		t.Fatal("no transfer strategy may run once the gate denies")
	}
	if !f.dialer.lease.Released() {
		t.Fatal("connection not released after denial")
	}

	// An entitled user passes the same gate.
	if err := f.ents.Grant(ctx, 1); err != nil {
		t.Fatalf("grant: %v", err)
	}
	res, err := f.pipeline.Retrieve(ctx, 1, 100, ref())
	if err != nil {
		t.Fatalf("entitled retrieve: %v", err)
	}
	if res.Strategy != "copy" {
		t.Fatalf("expected copy, got %q", res.Strategy)
	}
}

func TestRetrieveEscalatesToReupload(t *testing.T) {
	var downloaded string
	client := &telegram.ScriptedClient{
		FetchFunc: func(_ context.Context, r linkparse.Reference) (telegram.Message, error) {
			return telegram.Message{
				ID:    r.MessageID,
				Text:  "caption",
				Media: &telegram.Media{Kind: telegram.KindPhoto, Size: 10},
			}, nil
		},
		CopyFunc: func(context.Context, int64, linkparse.Reference) error {
			return errors.New("CHAT_WRITE_FORBIDDEN_SOMEHOW")
		},
		ForwardFunc: func(context.Context, int64, linkparse.Reference) error {
			return errors.New("CHAT_SEND_MEDIA_RESTRICTED")
		},
		DownloadFunc: func(_ context.Context, _ linkparse.Reference, dir string) (string, error) {
			path := filepath.Join(dir, "media.bin")
			if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
				return "", err
			}
			downloaded = path
			return path, nil
		},
	}
	f := newFixture(t, client, 1<<20)
	ctx := context.Background()

	if err := f.sessions.Save(ctx, 1, "cred"); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	res, err := f.pipeline.Retrieve(ctx, 1, 100, ref())
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if res.Strategy != "reupload" {
		t.Fatalf("expected reupload, got %q", res.Strategy)
	}
	if len(f.sender.files) != 1 || f.sender.files[0] != downloaded {
		t.Fatalf("expected downloaded file transmitted, got %v", f.sender.files)
	}
	if _, err := os.Stat(downloaded); !os.IsNotExist(err) {
		t.Fatalf("expected temp file removed, stat err: %v", err)
	}
}

func TestRetrieveRemovesFileWhenSendFails(t *testing.T) {
	var downloaded string
	client := &telegram.ScriptedClient{
		FetchFunc: func(_ context.Context, r linkparse.Reference) (telegram.Message, error) {
			return telegram.Message{
				ID:    r.MessageID,
				Media: &telegram.Media{Kind: telegram.KindDocument, Size: 10},
			}, nil
		},
		CopyFunc: func(context.Context, int64, linkparse.Reference) error {
			return errors.New("copy exploded")
		},
		ForwardFunc: func(context.Context, int64, linkparse.Reference) error {
			return errors.New("forward exploded")
		},
		DownloadFunc: func(_ context.Context, _ linkparse.Reference, dir string) (string, error) {
			path := filepath.Join(dir, "media.bin")
			if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
				return "", err
			}
			downloaded = path
			return path, nil
		},
	}
	f := newFixture(t, client, 1<<20)
	f.sender.fileErr = errors.New("send failed")
	ctx := context.Background()

	if err := f.sessions.Save(ctx, 1, "cred"); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	_, err := f.pipeline.Retrieve(ctx, 1, 100, ref())
	var ex *tgerr.ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if _, err := os.Stat(downloaded); !os.IsNotExist(err) {
		t.Fatalf("expected temp file removed after send failure, stat err: %v", err)
	}
}

func TestRetrieveTextFallback(t *testing.T) {
	client := &telegram.ScriptedClient{
		FetchFunc: func(_ context.Context, r linkparse.Reference) (telegram.Message, error) {
			return telegram.Message{ID: r.MessageID, Text: "plain words"}, nil
		},
		CopyFunc: func(context.Context, int64, linkparse.Reference) error {
			return errors.New("copy exploded")
		},
		ForwardFunc: func(context.Context, int64, linkparse.Reference) error {
			return errors.New("forward exploded")
		},
	}
	f := newFixture(t, client, 1<<20)
	ctx := context.Background()

	if err := f.sessions.Save(ctx, 1, "cred"); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	res, err := f.pipeline.Retrieve(ctx, 1, 100, ref())
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if res.Strategy != "text" {
		t.Fatalf("expected text fallback, got %q", res.Strategy)
	}
	if len(f.sender.texts) != 1 || f.sender.texts[0] != "plain words" {
		t.Fatalf("unexpected texts: %v", f.sender.texts)
	}
}

func TestRetrieveStopsOnAccessDenied(t *testing.T) {
	forwards := 0
	client := &telegram.ScriptedClient{
		CopyFunc: func(context.Context, int64, linkparse.Reference) error {
			return errors.New("CHANNEL_PRIVATE")
		},
		ForwardFunc: func(context.Context, int64, linkparse.Reference) error {
			forwards++
			return nil
		},
	}
	f := newFixture(t, client, 1<<20)
	ctx := context.Background()

	if err := f.sessions.Save(ctx, 1, "cred"); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	_, err := f.pipeline.Retrieve(ctx, 1, 100, ref())
	if !errors.Is(err, tgerr.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if forwards != 0 {
		t.Fatal("permission failures must not escalate")
	}
	if !f.dialer.lease.Released() {
		t.Fatal("connection not released after final failure")
	}
}

func TestRetrieveExpiredSessionSurfaces(t *testing.T) {
	client := &telegram.ScriptedClient{
		FetchFunc: func(context.Context, linkparse.Reference) (telegram.Message, error) {
			return telegram.Message{}, errors.New("AUTH_KEY_UNREGISTERED")
		},
	}
	f := newFixture(t, client, 1<<20)
	ctx := context.Background()

	if err := f.sessions.Save(ctx, 1, "cred"); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	_, err := f.pipeline.Retrieve(ctx, 1, 100, ref())
	if !errors.Is(err, tgerr.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !f.dialer.lease.Released() {
		t.Fatal("connection not released after fetch failure")
	}
}
