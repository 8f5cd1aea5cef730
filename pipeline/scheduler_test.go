package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/parleybot/parley/platform"
)

type nullAdapter struct{}

func (nullAdapter) Meta() platform.AdapterMeta {
	return platform.AdapterMeta{ID: "null", Platform: platform.PlatformConsole, Name: "null"}
}
func (nullAdapter) Send(context.Context, *platform.Event, []platform.Segment) error { return nil }
func (nullAdapter) RequiresTurnEnd() bool                                           { return false }

func newEvent(t *testing.T, text string) *platform.Event {
	t.Helper()
	ev, err := platform.NewEvent(platform.EventOptions{
		Origin:   "console:local",
		Sender:   platform.Sender{ID: "u1", Name: "alice"},
		Segments: []platform.Segment{platform.Text(text)},
		Adapter:  nullAdapter{},
	})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	return ev
}

// trace collects the observed phase order across stages of one scheduler.
type trace struct {
	mu    sync.Mutex
	steps []string
}

func (tr *trace) add(step string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.steps = append(tr.steps, step)
}

func (tr *trace) snapshot() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]string, len(tr.steps))
	copy(out, tr.steps)
	return out
}

type plainProbe struct {
	name    string
	trace   *trace
	initErr error
	onEvent func(ev *platform.Event) error
}

func (p *plainProbe) Name() string { return p.name }

func (p *plainProbe) Initialize(_ context.Context, _ *Context) error { return p.initErr }

func (p *plainProbe) Process(_ context.Context, ev *platform.Event) error {
	if p.trace != nil {
		p.trace.add(p.name)
	}
	if p.onEvent != nil {
		return p.onEvent(ev)
	}
	return nil
}

type wrapProbe struct {
	name     string
	trace    *trace
	skipNext bool
}

func (w *wrapProbe) Name() string { return w.name }

func (w *wrapProbe) Initialize(_ context.Context, _ *Context) error { return nil }

func (w *wrapProbe) Process(ctx context.Context, _ *platform.Event, next Next) error {
	if w.trace != nil {
		w.trace.add(w.name + "-before")
	}
	if !w.skipNext {
		if err := next(ctx); err != nil {
			return err
		}
	}
	if w.trace != nil {
		w.trace.add(w.name + "-after")
	}
	return nil
}

type formlessStage struct{}

func (formlessStage) Name() string { return "formless" }

func (formlessStage) Initialize(context.Context, *Context) error { return nil }

func testContext(t *testing.T) *Context {
	t.Helper()
	pc, err := NewContext(ContextOptions{TenantID: "t1", TenantName: "Tenant One"})
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	return pc
}

func buildScheduler(t *testing.T, factories ...Factory) *Scheduler {
	t.Helper()
	s, err := NewScheduler(context.Background(), SchedulerOptions{
		Context: testContext(t),
		Stages:  factories,
	})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	return s
}

func TestScheduler_OnionOrder(t *testing.T) {
	tr := &trace{}
	s := buildScheduler(t,
		func() Stage { return &wrapProbe{name: "A", trace: tr} },
		func() Stage { return &plainProbe{name: "B", trace: tr} },
		func() Stage { return &wrapProbe{name: "C", trace: tr} },
		func() Stage { return &plainProbe{name: "D", trace: tr} },
	)

	outcome, err := s.Execute(context.Background(), newEvent(t, "hello"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want completed", outcome)
	}
	want := []string{"A-before", "B", "C-before", "D", "C-after", "A-after"}
	if got := tr.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestScheduler_DeterministicOrderAcrossInstances(t *testing.T) {
	factories := []Factory{
		func() Stage { return &plainProbe{name: "first"} },
		func() Stage { return &wrapProbe{name: "second"} },
		func() Stage { return &plainProbe{name: "third"} },
	}
	s1 := buildScheduler(t, factories...)
	s2 := buildScheduler(t, factories...)
	if !reflect.DeepEqual(s1.StageNames(), s2.StageNames()) {
		t.Fatalf("stage order differs: %v vs %v", s1.StageNames(), s2.StageNames())
	}

	for _, s := range []*Scheduler{s1, s2} {
		if _, err := s.Execute(context.Background(), newEvent(t, "x")); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}
}

func TestScheduler_StopShortCircuits(t *testing.T) {
	tr := &trace{}
	s := buildScheduler(t,
		func() Stage { return &wrapProbe{name: "outer", trace: tr} },
		func() Stage {
			return &plainProbe{name: "stopper", trace: tr, onEvent: func(ev *platform.Event) error {
				ev.Stop()
				return nil
			}}
		},
		func() Stage { return &plainProbe{name: "unreached", trace: tr} },
	)

	ev := newEvent(t, "hello")
	outcome, err := s.Execute(context.Background(), ev)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome != OutcomeStoppedEarly {
		t.Fatalf("outcome = %v, want stopped_early", outcome)
	}
	// The outer wrapping stage's after-phase still runs exactly once; the
	// stage positioned after the stopper never runs.
	want := []string{"outer-before", "stopper", "outer-after"}
	if got := tr.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestScheduler_StopBeforeFirstStage(t *testing.T) {
	tr := &trace{}
	s := buildScheduler(t,
		func() Stage {
			return &plainProbe{name: "banned-check", trace: tr, onEvent: func(ev *platform.Event) error {
				ev.Stop()
				return nil
			}}
		},
		func() Stage { return &wrapProbe{name: "collector", trace: tr} },
		func() Stage { return &plainProbe{name: "echo", trace: tr} },
	)

	outcome, err := s.Execute(context.Background(), newEvent(t, "hello"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome != OutcomeStoppedEarly {
		t.Fatalf("outcome = %v", outcome)
	}
	want := []string{"banned-check"}
	if got := tr.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v: wrapping stage must not even enter", got, want)
	}
}

func TestScheduler_WrappingStageMaySkipDownstream(t *testing.T) {
	tr := &trace{}
	s := buildScheduler(t,
		func() Stage { return &wrapProbe{name: "gate", trace: tr, skipNext: true} },
		func() Stage { return &plainProbe{name: "unreached", trace: tr} },
	)
	if _, err := s.Execute(context.Background(), newEvent(t, "x")); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := []string{"gate-before", "gate-after"}
	if got := tr.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestScheduler_StageErrorPropagates(t *testing.T) {
	stageErr := errors.New("provider unavailable")
	s := buildScheduler(t,
		func() Stage { return &wrapProbe{name: "outer"} },
		func() Stage {
			return &plainProbe{name: "failing", onEvent: func(*platform.Event) error { return stageErr }}
		},
	)
	_, err := s.Execute(context.Background(), newEvent(t, "x"))
	if !errors.Is(err, stageErr) {
		t.Fatalf("Execute() error = %v, want wrapped stage error", err)
	}
}

func TestScheduler_ErrorNamesOnlyFailingStage(t *testing.T) {
	stageErr := errors.New("provider unavailable")
	s := buildScheduler(t,
		func() Stage { return &wrapProbe{name: "outer"} },
		func() Stage { return &wrapProbe{name: "inner"} },
		func() Stage {
			return &plainProbe{name: "failing", onEvent: func(*platform.Event) error { return stageErr }}
		},
	)

	_, err := s.Execute(context.Background(), newEvent(t, "x"))
	if !errors.Is(err, stageErr) {
		t.Fatalf("Execute() error = %v, want wrapped stage error", err)
	}
	msg := err.Error()
	if got := strings.Count(msg, `stage "`); got != 1 {
		t.Fatalf("error names %d stages: %q", got, msg)
	}
	if !strings.Contains(msg, `stage "failing"`) {
		t.Fatalf("error = %q, want the failing stage named", msg)
	}
}

func TestNewScheduler_InitFailureAborts(t *testing.T) {
	initErr := errors.New("bad config")
	_, err := NewScheduler(context.Background(), SchedulerOptions{
		Context: testContext(t),
		Stages: []Factory{
			func() Stage { return &plainProbe{name: "ok"} },
			func() Stage { return &plainProbe{name: "broken", initErr: initErr} },
		},
	})
	if !errors.Is(err, initErr) {
		t.Fatalf("NewScheduler() error = %v, want init error", err)
	}
}

func TestNewScheduler_RejectsDuplicateAndFormlessStages(t *testing.T) {
	_, err := NewScheduler(context.Background(), SchedulerOptions{
		Context: testContext(t),
		Stages: []Factory{
			func() Stage { return &plainProbe{name: "dup"} },
			func() Stage { return &plainProbe{name: "dup"} },
		},
	})
	if err == nil {
		t.Fatal("expected duplicate stage error")
	}

	_, err = NewScheduler(context.Background(), SchedulerOptions{
		Context: testContext(t),
		Stages:  []Factory{func() Stage { return formlessStage{} }},
	})
	if err == nil {
		t.Fatal("expected formless stage error")
	}
}

func TestScheduler_ConcurrentEventsDoNotInterfere(t *testing.T) {
	s := buildScheduler(t,
		func() Stage { return &wrapProbe{name: "wrap"} },
		func() Stage {
			return &plainProbe{name: "annotate", onEvent: func(ev *platform.Event) error {
				ev.SetNote("text", ev.Text)
				ev.PushReply(platform.Text("echo:" + ev.Text))
				return nil
			}}
		},
	)

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("msg-%d", i)
			ev := newEvent(t, text)
			if _, err := s.Execute(context.Background(), ev); err != nil {
				errs <- err
				return
			}
			note, _ := ev.Note("text")
			if note != text {
				errs <- fmt.Errorf("event %d observed note %v", i, note)
				return
			}
			replies := ev.Replies()
			if len(replies) != 1 || replies[0].Text != "echo:"+text {
				errs <- fmt.Errorf("event %d observed replies %v", i, replies)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestScheduler_CancelledContext(t *testing.T) {
	tr := &trace{}
	s := buildScheduler(t,
		func() Stage { return &plainProbe{name: "only", trace: tr} },
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Execute(ctx, newEvent(t, "x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if len(tr.snapshot()) != 0 {
		t.Fatal("no stage should run after cancellation")
	}
}
