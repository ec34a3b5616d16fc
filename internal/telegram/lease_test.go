package telegram

import (
	"context"
	"testing"

	"github.com/telefetch/telefetch/internal/logging"
)

func TestLeaseReleasesExactlyOnce(t *testing.T) {
	client := &ScriptedClient{}
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	lease := NewLease(client, logging.Discard())
	if lease.Released() {
		t.Fatal("fresh lease reported released")
	}

	lease.Release(ctx)
	lease.Release(ctx)
	lease.Release(ctx)

	if !lease.Released() {
		t.Fatal("lease not marked released")
	}
	if client.Disconnects != 1 {
		t.Fatalf("expected exactly one disconnect, got %d", client.Disconnects)
	}
	if client.Connected() {
		t.Fatal("client still connected after release")
	}
}

func TestDialerConnectsBeforeLeasing(t *testing.T) {
	client := &ScriptedClient{}
	d := NewDialer(scriptedDriver{client: client}, 12345, "hash", logging.Discard())

	lease, err := d.DialFresh(context.Background())
	if err != nil {
		t.Fatalf("dial fresh: %v", err)
	}
	if !client.Connected() {
		t.Fatal("client not connected after dial")
	}

	lease.Release(context.Background())
	if client.Connected() {
		t.Fatal("client still connected after release")
	}
}

type scriptedDriver struct {
	client *ScriptedClient
}

func (d scriptedDriver) NewClient(int, string) Client { return d.client }

func (d scriptedDriver) NewClientWithCredential(int, string, string) Client { return d.client }
