package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"quotebot-go/internal/risk"
	"quotebot-go/internal/signal"
)

func sampleSignal() signal.Signal {
	return signal.Signal{
		Instrument: "GOLD",
		Direction:  signal.Buy,
		Entry:      100,
		TakeProfit: 110,
		StopLoss:   95,
		Strategy:   "breakout",
	}
}

func TestBuildNotification(t *testing.T) {
	note := BuildNotification(sampleSignal(), Params{Amount: 2, TrailFactor: 0.7, MarketClosed: true, StrategyExit: true})
	if note.Profit != 10 || note.Loss != 5 {
		t.Fatalf("unexpected targets %+v", note)
	}
	if note.TrailSL < 6.99 || note.TrailSL > 7.01 {
		t.Fatalf("expected trail 7, got %.4f", note.TrailSL)
	}
	want := []string{"TP", "SL", "EOW_CLOSE", "STRATEGY"}
	if strings.Join(note.ExitCriteria, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected exit criteria %v", note.ExitCriteria)
	}
}

func TestLogNotifierLogsSignal(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	n := NewLogNotifier(logger)
	if err := n.Notify(context.Background(), BuildNotification(sampleSignal(), Params{Amount: 1})); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "GOLD") {
		t.Fatalf("log does not contain instrument: %s", out)
	}
}

func TestWebhookNotifierPostsPayload(t *testing.T) {
	var (
		mu       sync.Mutex
		received Notification
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, zerolog.Nop())
	if err := n.Notify(context.Background(), BuildNotification(sampleSignal(), Params{Amount: 3})); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if received.Instrument != "GOLD" || received.HookName != "BREAKOUT" || received.Amount != 3 {
		t.Fatalf("unexpected payload %+v", received)
	}
}

func TestWebhookNotifierReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, zerolog.Nop())
	if err := n.Notify(context.Background(), Notification{Instrument: "GOLD"}); err == nil {
		t.Fatalf("expected error on 502")
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return r.err
}

func TestForwarderDeliversAndLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	notifier := &recordingNotifier{err: errors.New("sink down")}
	f := NewForwarder(notifier, Params{Amount: 1}, risk.Limits{}, zerolog.New(&buf))

	f.Forward(sampleSignal())
	f.Wait()

	if len(notifier.notes) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(notifier.notes))
	}
	if !strings.Contains(buf.String(), "notification failed") {
		t.Fatalf("expected failure to be logged, got %s", buf.String())
	}
}

func TestForwarderRespectsRiskLimits(t *testing.T) {
	notifier := &recordingNotifier{}
	f := NewForwarder(notifier, Params{Amount: 10}, risk.Limits{MaxNotionalPerTrade: 500}, zerolog.Nop())

	f.Forward(sampleSignal()) // notional 1000
	f.Wait()
	if len(notifier.notes) != 0 {
		t.Fatalf("expected notification to be blocked")
	}

	small := NewForwarder(notifier, Params{Amount: 1}, risk.Limits{MaxNotionalPerTrade: 500}, zerolog.Nop())
	small.Forward(sampleSignal())
	small.Wait()
	if len(notifier.notes) != 1 {
		t.Fatalf("expected notification under the limit to pass")
	}
}
