package tracking

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-turfwar/internal/claim"

	"github.com/gofiber/fiber/v2"
)

func newTrackingApp(engine *Engine) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/capture"), engine, func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			c.Locals("user_id", id)
		}
		return c.Next()
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "user-a")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestCaptureHandlersFlow(t *testing.T) {
	f := newFixture()
	app := newTrackingApp(f.engine)

	if resp := do(t, app, http.MethodPost, "/capture/start", `{"activity":"Cycling"}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status %d", resp.StatusCode)
	}
	if resp := do(t, app, http.MethodPost, "/capture/start", ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict on second start, got %d", resp.StatusCode)
	}

	for _, p := range loop {
		body, _ := json.Marshal(map[string]float64{"lat": p.Lat, "lng": p.Lng})
		if resp := do(t, app, http.MethodPost, "/capture/location", string(body)); resp.StatusCode != http.StatusAccepted {
			t.Fatalf("location status %d", resp.StatusCode)
		}
	}
	if resp := do(t, app, http.MethodPost, "/capture/location", `{"provider_error":"timeout"}`); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("provider error status %d", resp.StatusCode)
	}

	resp := do(t, app, http.MethodGet, "/capture/session", "")
	var view View
	_ = json.NewDecoder(resp.Body).Decode(&view)
	if view.PointCount != len(loop) || view.Activity != "Cycling" || view.ProviderErrors != 1 {
		t.Fatalf("unexpected session view %+v", view)
	}

	resp = do(t, app, http.MethodPost, "/capture/stop", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status %d", resp.StatusCode)
	}
	var out claim.Outcome
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if !out.Captured || out.Territory == nil || out.Territory.OwnerID != "user-a" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	if resp := do(t, app, http.MethodPost, "/capture/stop", ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict on idle stop, got %d", resp.StatusCode)
	}
}

func TestCaptureHandlersValidation(t *testing.T) {
	f := newFixture()
	app := newTrackingApp(f.engine)

	if resp := do(t, app, http.MethodPost, "/capture/location", `{"lat":1,"lng":1}`); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict while idle, got %d", resp.StatusCode)
	}

	do(t, app, http.MethodPost, "/capture/start", "")

	cases := map[string]int{
		`{"lat":95,"lng":0}`: http.StatusUnprocessableEntity,
		`{"lat":1}`:          http.StatusBadRequest,
		`{`:                  http.StatusBadRequest,
	}
	for body, want := range cases {
		if resp := do(t, app, http.MethodPost, "/capture/location", body); resp.StatusCode != want {
			t.Fatalf("body %s: expected %d, got %d", body, want, resp.StatusCode)
		}
	}
}

func TestCaptureHandlersRequireUser(t *testing.T) {
	app := newTrackingApp(newFixture().engine)
	req := httptest.NewRequest(http.MethodPost, "/capture/start", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized without user")
	}
}
