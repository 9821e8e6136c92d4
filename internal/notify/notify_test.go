package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/dukerupert/adoptrack/internal/metrics"
	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubGateway struct {
	err      error
	calls    int
	priority Priority
}

func (g *stubGateway) SendToUser(ctx context.Context, user model.User, text string, priority Priority) error {
	g.calls++
	g.priority = priority
	return g.err
}

func TestSendBestEffortSwallowsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	gw := &stubGateway{err: errors.New("bot blocked")}
	m := metrics.New(prometheus.NewRegistry())
	n := New(gw, "push", logger, m)

	if err := n.Send(context.Background(), BestEffort, model.User{ID: 7}, "hi"); err != nil {
		t.Fatalf("best effort returned %v", err)
	}
	if gw.calls != 1 {
		t.Errorf("calls = %d, want 1", gw.calls)
	}
	if gw.priority != PriorityNormal {
		t.Errorf("priority = %v, want normal", gw.priority)
	}
	if !strings.Contains(buf.String(), "user_id=7") || !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected warn log with user id, got %q", buf.String())
	}
	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("push", "best_effort", "failed")); got != 1 {
		t.Errorf("failed counter = %v, want 1", got)
	}
}

func TestSendFatalReturnsDeliveryError(t *testing.T) {
	gw := &stubGateway{err: errors.New("timeout")}
	n := New(gw, "log", nil, nil)

	err := n.Send(context.Background(), Fatal, model.User{ID: 3}, "hi")
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("err = %v, want ErrDelivery", err)
	}
	if gw.priority != PriorityHigh {
		t.Errorf("priority = %v, want high", gw.priority)
	}
}

func TestSendSuccess(t *testing.T) {
	gw := &stubGateway{}
	m := metrics.New(prometheus.NewRegistry())
	n := New(gw, "email", nil, m)

	if err := n.Send(context.Background(), Fatal, model.User{ID: 1}, "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("email", "fatal", "sent")); got != 1 {
		t.Errorf("sent counter = %v, want 1", got)
	}
}

func TestLogGateway(t *testing.T) {
	var buf bytes.Buffer
	g := NewLogGateway(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := g.SendToUser(context.Background(), model.User{ID: 42}, "trial extended", PriorityHigh); err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "user_id=42") || !strings.Contains(out, `text="trial extended"`) {
		t.Errorf("unexpected log line %q", out)
	}
}
