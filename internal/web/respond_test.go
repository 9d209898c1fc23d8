package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func paginationApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/items", func(c *fiber.Ctx) error {
		p, err := ParsePagination(c)
		if err != nil {
			return err
		}
		return OK(c, fiber.StatusOK, fiber.Map{"page": p.Page, "limit": p.Limit, "offset": p.Offset()})
	})
	return app
}

func getJSON(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return resp.StatusCode, body
}

func TestParsePaginationDefaults(t *testing.T) {
	app := paginationApp()
	status, body := getJSON(t, app, "/items")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	data := body["data"].(map[string]any)
	if data["page"].(float64) != 1 || data["limit"].(float64) != 20 || data["offset"].(float64) != 0 {
		t.Fatalf("unexpected defaults: %+v", data)
	}
}

func TestParsePaginationWindow(t *testing.T) {
	app := paginationApp()
	status, body := getJSON(t, app, "/items?page=3&limit=50")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	data := body["data"].(map[string]any)
	if data["offset"].(float64) != 100 {
		t.Fatalf("expected offset 100 for page 3 of 50, got %v", data["offset"])
	}
}

func TestParsePaginationRejectsOutOfRange(t *testing.T) {
	app := paginationApp()

	for _, path := range []string{
		"/items?page=0",
		"/items?page=-1",
		"/items?page=abc",
		"/items?limit=0",
		"/items?limit=101",
		"/items?limit=ten",
	} {
		status, body := getJSON(t, app, path)
		if status != fiber.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, status)
		}
		errBody := body["error"].(map[string]any)
		if errBody["code"] != CodeValidation {
			t.Fatalf("%s: expected %s, got %v", path, CodeValidation, errBody["code"])
		}
	}
}

func TestErrorHandlerHidesInternalDetails(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("pgx: connection refused to 10.0.0.1")
	})

	status, body := getJSON(t, app, "/boom")
	if status != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	errBody := body["error"].(map[string]any)
	if errBody["code"] != CodeInternal {
		t.Fatalf("expected %s, got %v", CodeInternal, errBody["code"])
	}
	if errBody["message"] != "internal server error" {
		t.Fatalf("expected internal details hidden, got %v", errBody["message"])
	}
}

func TestErrorHandlerMapsFiberErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "submission not found")
	})

	status, body := getJSON(t, app, "/missing")
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	errBody := body["error"].(map[string]any)
	if errBody["code"] != CodeNotFound || errBody["message"] != "submission not found" {
		t.Fatalf("unexpected error body: %+v", errBody)
	}
}
