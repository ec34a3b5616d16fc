package telegram

import (
	"context"
	"sync"

	"github.com/telefetch/telefetch/internal/linkparse"
)

// ScriptedClient is a test double for Client. Each capability can be scripted
// through its function field; unscripted capabilities succeed with zero
// values. Call counters and connection state are tracked under a mutex so
// tests can assert lifecycle invariants.
type ScriptedClient struct {
	mu          sync.Mutex
	connected   bool
	Connects    int
	Disconnects int

	ConnectFunc       func(ctx context.Context) error
	SendCodeFunc      func(ctx context.Context, phone string) (string, error)
	SignInFunc        func(ctx context.Context, phone, token, code string) error
	CheckPasswordFunc func(ctx context.Context, password string) error
	ExportFunc        func(ctx context.Context) (string, error)
	FetchFunc         func(ctx context.Context, ref linkparse.Reference) (Message, error)
	CopyFunc          func(ctx context.Context, toChatID int64, ref linkparse.Reference) error
	ForwardFunc       func(ctx context.Context, toChatID int64, ref linkparse.Reference) error
	DownloadFunc      func(ctx context.Context, ref linkparse.Reference, dir string) (string, error)
	ListChatsFunc     func(ctx context.Context) ([]ChatInfo, error)
}

// Connected reports whether the scripted client currently holds a connection.
func (c *ScriptedClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *ScriptedClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.Connects++
	c.mu.Unlock()
	if c.ConnectFunc != nil {
		if err := c.ConnectFunc(ctx); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

func (c *ScriptedClient) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Disconnects++
	c.connected = false
	return nil
}

func (c *ScriptedClient) SendCode(ctx context.Context, phone string) (string, error) {
	if c.SendCodeFunc != nil {
		return c.SendCodeFunc(ctx, phone)
	}
	return "token", nil
}

func (c *ScriptedClient) SignIn(ctx context.Context, phone, token, code string) error {
	if c.SignInFunc != nil {
		return c.SignInFunc(ctx, phone, token, code)
	}
	return nil
}

func (c *ScriptedClient) CheckPassword(ctx context.Context, password string) error {
	if c.CheckPasswordFunc != nil {
		return c.CheckPasswordFunc(ctx, password)
	}
	return nil
}

func (c *ScriptedClient) ExportCredential(ctx context.Context) (string, error) {
	if c.ExportFunc != nil {
		return c.ExportFunc(ctx)
	}
	return "credential", nil
}

func (c *ScriptedClient) FetchMessage(ctx context.Context, ref linkparse.Reference) (Message, error) {
	if c.FetchFunc != nil {
		return c.FetchFunc(ctx, ref)
	}
	return Message{ID: ref.MessageID}, nil
}

func (c *ScriptedClient) CopyMessage(ctx context.Context, toChatID int64, ref linkparse.Reference) error {
	if c.CopyFunc != nil {
		return c.CopyFunc(ctx, toChatID, ref)
	}
	return nil
}

func (c *ScriptedClient) ForwardMessage(ctx context.Context, toChatID int64, ref linkparse.Reference) error {
	if c.ForwardFunc != nil {
		return c.ForwardFunc(ctx, toChatID, ref)
	}
	return nil
}

func (c *ScriptedClient) DownloadMedia(ctx context.Context, ref linkparse.Reference, dir string) (string, error) {
	if c.DownloadFunc != nil {
		return c.DownloadFunc(ctx, ref, dir)
	}
	return "", nil
}

func (c *ScriptedClient) ListChats(ctx context.Context) ([]ChatInfo, error) {
	if c.ListChatsFunc != nil {
		return c.ListChatsFunc(ctx)
	}
	return nil, nil
}
