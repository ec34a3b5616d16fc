// Package telegram defines the capability surface this service consumes from
// an MTProto user-client library, plus the connection-lease lifecycle used by
// the login and retrieval flows. The wire protocol itself lives behind the
// Driver seam, registered by the embedding binary the way database/sql
// drivers are.
package telegram

import (
	"context"
	"errors"
	"sync"

	"github.com/telefetch/telefetch/internal/linkparse"
)

// MediaKind discriminates outbound send operations for downloaded payloads.
type MediaKind int

const (
	KindPhoto MediaKind = iota
	KindVideo
	KindAudio
	KindVoice
	KindAnimation
	KindDocument
)

// Media describes an attachment on a fetched message.
type Media struct {
	Kind     MediaKind
	Size     int64
	FileName string
}

// Message is the subset of a remote message the retrieval pipeline consumes.
type Message struct {
	ID    int
	Text  string // message text, or caption when media is present
	Media *Media
}

// ChatInfo summarizes one joined chat for the list-channels command.
type ChatInfo struct {
	ID     int64
	Title  string
	Handle string
}

// Client is the capability set consumed from the remote-platform library.
// Every method is blocking and honors context cancellation.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// SendCode requests a one-time code for the phone number and returns the
	// challenge token required to validate it.
	SendCode(ctx context.Context, phone string) (string, error)
	SignIn(ctx context.Context, phone, challengeToken, code string) error
	CheckPassword(ctx context.Context, password string) error

	// ExportCredential serializes the authenticated session into an opaque
	// string that can later be imported without repeating the challenge.
	ExportCredential(ctx context.Context) (string, error)

	FetchMessage(ctx context.Context, ref linkparse.Reference) (Message, error)
	CopyMessage(ctx context.Context, toChatID int64, ref linkparse.Reference) error
	ForwardMessage(ctx context.Context, toChatID int64, ref linkparse.Reference) error

	// DownloadMedia stores the message's media under dir and returns the
	// local file path.
	DownloadMedia(ctx context.Context, ref linkparse.Reference, dir string) (string, error)

	ListChats(ctx context.Context) ([]ChatInfo, error)
}

// Driver creates capability clients bound to one API application.
type Driver interface {
	// NewClient returns a fresh, unauthenticated client for a login flow.
	NewClient(apiID int, apiHash string) Client
	// NewClientWithCredential returns a client bound to an exported credential.
	NewClientWithCredential(apiID int, apiHash, credential string) Client
}

var (
	driverMu sync.RWMutex
	driver   Driver
)

// ErrNoDriver indicates no MTProto driver was registered by the binary.
var ErrNoDriver = errors.New("no mtproto driver registered")

// RegisterDriver installs the MTProto driver. It panics if called twice,
// matching the database/sql registration contract.
func RegisterDriver(d Driver) {
	driverMu.Lock()
	defer driverMu.Unlock()
	if driver != nil {
		panic("telegram: RegisterDriver called twice")
	}
	driver = d
}

// RegisteredDriver returns the installed driver or ErrNoDriver.
func RegisteredDriver() (Driver, error) {
	driverMu.RLock()
	defer driverMu.RUnlock()
	if driver == nil {
		return nil, ErrNoDriver
	}
	return driver, nil
}
