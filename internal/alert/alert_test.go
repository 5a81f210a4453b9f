package alert

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"aq-backend/internal/models"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier stores every message it is asked to send
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	ok       bool
}

func (n *recordingNotifier) Send(ctx context.Context, text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.ok
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func newTestEvaluator(ok bool) (*Evaluator, *recordingNotifier, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	gate := NewCooldownGate(DefaultCooldown, WithClock(clock.Now))
	notifier := &recordingNotifier{ok: ok}
	return NewEvaluator(gate, notifier, zap.NewNop()), notifier, clock
}

func conditions(fired []Fired) []Condition {
	out := make([]Condition, len(fired))
	for i, f := range fired {
		out[i] = f.Condition
	}
	return out
}

func TestCooldownGateAcquire(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	gate := NewCooldownGate(5*time.Minute, WithClock(clock.Now))

	if !gate.Acquire("mq2_high") {
		t.Fatal("first acquire should succeed")
	}
	if gate.Acquire("mq2_high") {
		t.Fatal("second acquire inside the window should fail")
	}

	clock.Advance(5*time.Minute - time.Second)
	if gate.Acquire("mq2_high") {
		t.Fatal("acquire one second before the window ends should fail")
	}

	clock.Advance(time.Second)
	if !gate.Acquire("mq2_high") {
		t.Fatal("acquire exactly at the window boundary should succeed")
	}
	if gate.Acquire("mq2_high") {
		t.Fatal("window should be re-armed after a successful acquire")
	}
}

func TestCooldownGateKeysAreIndependent(t *testing.T) {
	gate := NewCooldownGate(time.Hour)

	if !gate.Acquire("mq2_high") {
		t.Fatal("mq2_high should fire")
	}
	if !gate.Acquire("mq135_high") {
		t.Fatal("mq135_high must not be blocked by mq2_high")
	}
	if !gate.Acquire("ai_bad") {
		t.Fatal("ai_bad must not be blocked by other keys")
	}
}

func TestCooldownGateReset(t *testing.T) {
	gate := NewCooldownGate(time.Hour)
	gate.Acquire("ai_bad")
	gate.Reset()
	if !gate.Acquire("ai_bad") {
		t.Fatal("acquire after Reset should succeed")
	}
}

func TestCooldownGateConcurrentAcquire(t *testing.T) {
	gate := NewCooldownGate(time.Hour)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.Acquire("mq2_high") {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestEvaluateMQ2Only(t *testing.T) {
	ev, notifier, _ := newTestEvaluator(true)

	res := ev.Evaluate(context.Background(), models.Reading{MQ2: 650, MQ135: 100, TempC: 22.5, HumPct: 40}, "")
	if len(res.Fired) != 1 || res.Fired[0].Condition != ConditionMQ2High {
		t.Fatalf("expected only mq2_high, got %v", conditions(res.Fired))
	}
	if !res.Fired[0].Delivered || notifier.count() != 1 {
		t.Fatalf("expected one delivered notification, got %d", notifier.count())
	}

	want := "ALERT: MQ2 HIGH\nmq2=650\nmq135=100\ntemp_c=22.5\nhum_pct=40.0\n"
	if res.Fired[0].Message != want {
		t.Errorf("message:\n%q\nwant\n%q", res.Fired[0].Message, want)
	}
}

func TestEvaluateAIBadOnly(t *testing.T) {
	ev, _, _ := newTestEvaluator(true)

	res := ev.Evaluate(context.Background(), models.Reading{MQ2: 300, MQ135: 300, TempC: 21.04, HumPct: 39.96}, "Bad")
	if len(res.Fired) != 1 || res.Fired[0].Condition != ConditionAIBad {
		t.Fatalf("expected only ai_bad, got %v", conditions(res.Fired))
	}

	want := "ALERT: AI PREDICTS BAD AIR QUALITY\nmq2=300, mq135=300, temp_c=21.0, hum_pct=40.0\n"
	if res.Fired[0].Message != want {
		t.Errorf("message:\n%q\nwant\n%q", res.Fired[0].Message, want)
	}
}

func TestEvaluateAllConditions(t *testing.T) {
	ev, notifier, _ := newTestEvaluator(true)

	res := ev.Evaluate(context.Background(), models.Reading{MQ2: 600, MQ135: 812.6, TempC: 25, HumPct: 60}, "Bad")
	got := conditions(res.Fired)
	want := []Condition{ConditionMQ2High, ConditionMQ135High, ConditionAIBad}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if notifier.count() != 3 {
		t.Errorf("expected 3 notifications, got %d", notifier.count())
	}

	wantMQ135 := "ALERT: MQ135 HIGH\nmq2=600\nmq135=813\ntemp_c=25.0\nhum_pct=60.0\nai=Bad\n"
	if res.Fired[1].Message != wantMQ135 {
		t.Errorf("message:\n%q\nwant\n%q", res.Fired[1].Message, wantMQ135)
	}
}

func TestEvaluateModerateLabelDoesNotFire(t *testing.T) {
	ev, notifier, _ := newTestEvaluator(true)

	res := ev.Evaluate(context.Background(), models.Reading{MQ2: 599.9, MQ135: 10}, "Moderate")
	if len(res.Fired) != 0 || len(res.Suppressed) != 0 || notifier.count() != 0 {
		t.Fatalf("expected nothing to fire, got %+v", res)
	}
}

func TestEvaluateCooldownSuppressesRepeats(t *testing.T) {
	ev, notifier, clock := newTestEvaluator(true)
	r := models.Reading{MQ2: 700, MQ135: 100, TempC: 22, HumPct: 40}

	ev.Evaluate(context.Background(), r, "")
	for i := 0; i < 5; i++ {
		clock.Advance(30 * time.Second)
		res := ev.Evaluate(context.Background(), r, "")
		if len(res.Fired) != 0 {
			t.Fatalf("repeat %d fired inside the cooldown window", i)
		}
		if len(res.Suppressed) != 1 || res.Suppressed[0] != ConditionMQ2High {
			t.Fatalf("expected mq2_high to be suppressed, got %v", res.Suppressed)
		}
	}
	if notifier.count() != 1 {
		t.Fatalf("expected 1 notification inside the window, got %d", notifier.count())
	}

	clock.Advance(DefaultCooldown)
	res := ev.Evaluate(context.Background(), r, "")
	if len(res.Fired) != 1 {
		t.Fatalf("expected one more notification after the window, got %d", len(res.Fired))
	}
	if notifier.count() != 2 {
		t.Fatalf("expected 2 notifications in total, got %d", notifier.count())
	}
}

func TestEvaluateDeliveryFailureKeepsCooldown(t *testing.T) {
	ev, notifier, clock := newTestEvaluator(false)
	r := models.Reading{MQ2: 100, MQ135: 900}

	res := ev.Evaluate(context.Background(), r, "")
	if len(res.Fired) != 1 || res.Fired[0].Delivered {
		t.Fatalf("expected one undelivered alert, got %+v", res.Fired)
	}

	clock.Advance(time.Minute)
	res = ev.Evaluate(context.Background(), r, "")
	if len(res.Fired) != 0 {
		t.Fatal("a failed delivery must not re-open the cooldown window")
	}
	if notifier.count() != 1 {
		t.Errorf("expected a single attempt, got %d", notifier.count())
	}
}
