package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
	if Handler() == nil {
		t.Error("Handler() returned nil")
	}
}

func TestRegistry_RuntimeCollectors(t *testing.T) {
	body := scrape(t, NewRegistry())
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
}

func TestRegistry_Recorders(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("get_val", "ok", 0.001)
	r.RecordRequest("get_val", "ok", 0.002)
	r.RecordRequest("set_val", "ACI-AUTH-4030", 0.001)
	r.SessionOpened()
	r.SessionOpened()
	r.SessionClosed()
	r.RecordAuthentication("service")
	r.RecordEvent(true)
	r.RecordEvent(false)
	r.RecordEvent(false)
	r.ObservePersist("write_item", nil)
	r.ObservePersist("write_item", errors.New("disk full"))

	body := scrape(t, r)
	for _, want := range []string{
		`aci_requests_total{command="get_val",result="ok"} 2`,
		`aci_requests_total{command="set_val",result="ACI-AUTH-4030"} 1`,
		`aci_request_duration_seconds_count{command="get_val"} 2`,
		`aci_sessions_active 1`,
		`aci_sessions_authenticated_total{kind="service"} 1`,
		`aci_events_delivered_total 1`,
		`aci_events_dropped_total 2`,
		`aci_persist_operations_total{op="write_item",result="ok"} 1`,
		`aci_persist_operations_total{op="write_item",result="error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %s", want)
		}
	}
}

type fakeSource []string

func (f fakeSource) Databases() []string { return f }

func TestCollector(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewCollector(fakeSource{"config", "main"})); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if body := scrape(t, r); !strings.Contains(body, "aci_databases_loaded 2") {
		t.Error("expected aci_databases_loaded 2")
	}
}
