package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type perms struct{ ax, rec bool }

func (p perms) Trusted() bool              { return p.ax }
func (p perms) ScreenCaptureAllowed() bool { return p.rec }

func get(t *testing.T, h http.Handler, path string) (int, Status) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("%s: decoding body: %v", path, err)
	}
	return rec.Code, st
}

func TestNotReady(t *testing.T) {
	s := New(0, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		code, st := get(t, s.Handler(), path)
		if code != http.StatusServiceUnavailable || st.Status != "not_ready" {
			t.Errorf("%s = %d %q", path, code, st.Status)
		}
	}
}

func TestReadyReportsPermissions(t *testing.T) {
	s := New(0, perms{ax: true, rec: false})
	s.SetReady(true)

	code, st := get(t, s.Handler(), "/readyz")
	if code != http.StatusOK || st.Status != "ok" {
		t.Fatalf("readyz = %d %q", code, st.Status)
	}
	if st.Accessibility == nil || !*st.Accessibility {
		t.Error("accessibility should be reported as granted")
	}
	if st.ScreenRecording == nil || *st.ScreenRecording {
		t.Error("screen recording should be reported as denied")
	}

	_, st = get(t, s.Handler(), "/healthz")
	if st.Accessibility != nil {
		t.Error("healthz should not carry permission flags")
	}
}
