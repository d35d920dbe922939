package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nadzzz/freeflow/internal/snapshot"
	"github.com/nadzzz/freeflow/internal/transport"
)

func stubHandler(got *transport.Request) transport.Handler {
	return func(_ context.Context, req transport.Request) (*snapshot.ContextSnapshot, error) {
		*got = req
		shot := snapshot.Available(snapshot.Encoded{DataURI: "data:image/jpeg;base64,AAAA", MIMEType: "image/jpeg", Width: 4, Height: 3})
		if !req.IncludeScreenshot {
			shot = shot.WithoutImage()
		}
		return &snapshot.ContextSnapshot{
			CycleID:         "c-1",
			Metadata:        snapshot.Metadata{AppName: "Slack", WindowTitle: "general"},
			ActivitySummary: "The user is chatting. They are likely replying.",
			Screenshot:      shot,
		}, nil
	}
}

func post(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))
	return rec
}

func TestContextEndpoint(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		wantInclude bool
		wantDataURI bool
	}{
		{"default includes screenshot", "/v1/context", true, true},
		{"explicit true", "/v1/context?include_screenshot=true", true, true},
		{"status only", "/v1/context?include_screenshot=false", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got transport.Request
			rec := post(t, New(0).Handler(stubHandler(&got)), tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body)
			}
			if got.IncludeScreenshot != tt.wantInclude {
				t.Errorf("IncludeScreenshot = %v; want %v", got.IncludeScreenshot, tt.wantInclude)
			}

			var body struct {
				CycleID         string `json:"cycle_id"`
				AppName         string `json:"app_name"`
				ActivitySummary string `json:"activity_summary"`
				Context         string `json:"context"`
				Screenshot      struct {
					Status  string `json:"status"`
					DataURI string `json:"data_uri"`
				} `json:"screenshot"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.CycleID != "c-1" || body.AppName != "Slack" {
				t.Errorf("body = %+v", body)
			}
			if !strings.HasPrefix(body.Context, "Current activity: The user is chatting.") {
				t.Errorf("context = %q", body.Context)
			}
			if body.Screenshot.Status != "available" {
				t.Errorf("screenshot status = %q", body.Screenshot.Status)
			}
			if (body.Screenshot.DataURI != "") != tt.wantDataURI {
				t.Errorf("data uri present = %v; want %v", body.Screenshot.DataURI != "", tt.wantDataURI)
			}
		})
	}
}

func TestContextEndpointBadQuery(t *testing.T) {
	var got transport.Request
	rec := post(t, New(0).Handler(stubHandler(&got)), "/v1/context?include_screenshot=maybe")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestContextEndpointHandlerError(t *testing.T) {
	h := New(0).Handler(func(context.Context, transport.Request) (*snapshot.ContextSnapshot, error) {
		return nil, errors.New("boom")
	})
	if rec := post(t, h, "/v1/context"); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want 500", rec.Code)
	}
}

func TestContextEndpointMethod(t *testing.T) {
	var got transport.Request
	rec := httptest.NewRecorder()
	New(0).Handler(stubHandler(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/context", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d; want 405", rec.Code)
	}
}

func TestSwaggerDoc(t *testing.T) {
	var got transport.Request
	rec := httptest.NewRecorder()
	New(0).Handler(stubHandler(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/v1/context") {
		t.Error("swagger doc does not describe /v1/context")
	}
}
