package uptime

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func monitorsBody(statuses ...string) string {
	body := `{"data":[`
	for i, s := range statuses {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"id":"%d","attributes":{"status":"%s"}}`, i, s)
	}
	return body + `]}`
}

func TestCheckAllUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, monitorsBody("up", "up", "up"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", zap.NewNop())
	if got := c.Check(context.Background()); got != StatusUp {
		t.Errorf("got %q, want up", got)
	}
}

func TestCheckOneDownIsDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, monitorsBody("up", "down", "up"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", zap.NewNop())
	if got := c.Check(context.Background()); got != StatusDegraded {
		t.Errorf("got %q, want degraded", got)
	}
}

func TestCheckFetchFailureIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", zap.NewNop())
	if got := c.Check(context.Background()); got != StatusUnreachable {
		t.Errorf("got %q, want unreachable", got)
	}

	srv.Close()
	if got := c.Check(context.Background()); got != StatusUnreachable {
		t.Errorf("transport failure: got %q, want unreachable", got)
	}
}

func TestCheckNoMonitorsIsUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", zap.NewNop())
	if got := c.Check(context.Background()); got != StatusUp {
		t.Errorf("got %q, want up", got)
	}
}
