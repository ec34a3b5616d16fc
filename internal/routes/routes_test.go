package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/telefetch/telefetch/internal/config"
	"github.com/telefetch/telefetch/internal/entitlement"
	"github.com/telefetch/telefetch/internal/logging"
	"github.com/telefetch/telefetch/internal/session"
)

func testApp(t *testing.T, adminToken string) (*fiber.App, entitlement.Repository) {
	t.Helper()

	sealer, err := session.NewSealer(bytes.Repeat([]byte{1}, 32))
	if err != nil {
		t.Fatalf("build sealer: %v", err)
	}
	sessions := session.NewService(session.NewMemoryRepository(), nil, sealer, logging.Discard())
	ents := entitlement.NewMemoryRepository()

	app := fiber.New()
	err = Setup(app, Deps{
		Cfg:      config.Config{AppName: "telefetch", AdminToken: adminToken},
		Sessions: sessions,
		Ents:     ents,
		Logger:   logging.Discard(),
	})
	if err != nil {
		t.Fatalf("setup routes: %v", err)
	}
	return app, ents
}

func TestRootReportsAlive(t *testing.T) {
	app, _ := testApp(t, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"active_sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "alive" {
		t.Fatalf("expected alive, got %q", body.Status)
	}
	if body.ActiveSessions != 0 {
		t.Fatalf("expected zero sessions, got %d", body.ActiveSessions)
	}
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	app, _ := testApp(t, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/admin/entitlements", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 with no admin token configured, got %d", resp.StatusCode)
	}
}

func TestAdminRoutesRejectBadToken(t *testing.T) {
	app, _ := testApp(t, "secret")

	req := httptest.NewRequest("GET", "/api/v1/admin/entitlements", nil)
	req.Header.Set("X-Admin-Token", "wrong")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestEntitlementLifecycleOverHTTP(t *testing.T) {
	app, ents := testApp(t, "secret")

	grant := httptest.NewRequest("POST", "/api/v1/admin/entitlements", strings.NewReader(`{"user_id":42}`))
	grant.Header.Set("X-Admin-Token", "secret")
	grant.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(grant)
	if err != nil {
		t.Fatalf("grant request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on grant, got %d", resp.StatusCode)
	}

	has, err := ents.Has(grant.Context(), 42)
	if err != nil || !has {
		t.Fatalf("expected user entitled after grant (has=%v err=%v)", has, err)
	}

	list := httptest.NewRequest("GET", "/api/v1/admin/entitlements", nil)
	list.Header.Set("X-Admin-Token", "secret")
	resp, err = app.Test(list)
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on list, got %d", resp.StatusCode)
	}
	if !bytes.Contains(raw, []byte(`"user_id":42`)) {
		t.Fatalf("expected granted user in listing, got %s", raw)
	}

	revoke := httptest.NewRequest("DELETE", "/api/v1/admin/entitlements/42", nil)
	revoke.Header.Set("X-Admin-Token", "secret")
	resp, err = app.Test(revoke)
	if err != nil {
		t.Fatalf("revoke request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on revoke, got %d", resp.StatusCode)
	}

	has, err = ents.Has(revoke.Context(), 42)
	if err != nil || has {
		t.Fatalf("expected user revoked (has=%v err=%v)", has, err)
	}
}

func TestGrantRejectsBadBody(t *testing.T) {
	app, _ := testApp(t, "secret")

	req := httptest.NewRequest("POST", "/api/v1/admin/entitlements", strings.NewReader(`{"user_id":-1}`))
	req.Header.Set("X-Admin-Token", "secret")
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
