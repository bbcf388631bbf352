package sessions

import (
	"context"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestTicker_AdvancesActiveSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.StartWalkIn(ctx, "squash-1", booking("Ana"))

	tk := NewTicker(env.svc, time.Millisecond)
	defer tk.StopAll()
	tk.Watch("squash-1")
	tk.Watch("squash-1") // Idempotent.

	waitFor(t, "three ticks", func() bool {
		doc, err := env.svc.GetCourt(ctx, "squash-1")
		return err == nil && doc.Active != nil && doc.Active.ActualDuration >= 3
	})
}

func TestTicker_ExitsWhenSessionEnds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.StartWalkIn(ctx, "squash-1", booking("Ana"))

	tk := NewTicker(env.svc, time.Millisecond)
	defer tk.StopAll()
	tk.Watch("squash-1")

	if _, err := env.svc.End(ctx, "squash-1", EndSessionInput{PaymentMethod: MethodCash}); err != nil {
		t.Fatalf("end: %v", err)
	}
	waitFor(t, "loop exit", func() bool { return !tk.Running("squash-1") })

	doc, _ := env.svc.GetCourt(ctx, "squash-1")
	elapsed := doc.Finished[0].ActualDuration
	time.Sleep(10 * time.Millisecond)
	doc, _ = env.svc.GetCourt(ctx, "squash-1")
	if doc.Finished[0].ActualDuration != elapsed {
		t.Error("expected finished session to stop advancing")
	}
}

func TestTicker_StopAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.StartWalkIn(ctx, "squash-1", booking("Ana"))
	env.svc.StartWalkIn(ctx, "squash-2", booking("Ion"))

	tk := NewTicker(env.svc, time.Hour)
	tk.Watch("squash-1")
	tk.Watch("squash-2")
	if !tk.Running("squash-1") || !tk.Running("squash-2") {
		t.Fatal("expected both loops running")
	}

	tk.StopAll()
	if tk.Running("squash-1") || tk.Running("squash-2") {
		t.Error("expected no loops after StopAll")
	}
}

func TestTicker_Resume(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.StartWalkIn(ctx, "squash-4", booking("Ana"))
	env.svc.CreateUpcoming(ctx, "squash-5", booking("Ion"))

	tk := NewTicker(env.svc, time.Hour)
	defer tk.StopAll()
	if err := tk.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !tk.Running("squash-4") {
		t.Error("expected loop for the court with an active session")
	}
	if tk.Running("squash-5") {
		t.Error("expected no loop for a court with only bookings")
	}
}

func TestTicker_WatchRestartsIntervalForNewSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.StartWalkIn(ctx, "squash-1", booking("Ana"))

	tk := NewTicker(env.svc, 300*time.Millisecond)
	defer tk.StopAll()
	tk.Watch("squash-1")

	time.Sleep(200 * time.Millisecond)
	if _, err := env.svc.End(ctx, "squash-1", EndSessionInput{PaymentMethod: MethodCash}); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := env.svc.StartWalkIn(ctx, "squash-1", booking("Ion")); err != nil {
		t.Fatalf("walk-in: %v", err)
	}
	tk.Watch("squash-1")

	// The old loop's schedule would have ticked 100ms from here.
	time.Sleep(150 * time.Millisecond)
	doc, _ := env.svc.GetCourt(ctx, "squash-1")
	if doc.Active == nil || doc.Active.PlayerName != "Ion" {
		t.Fatalf("expected Ion active, got %+v", doc.Active)
	}
	if doc.Active.ActualDuration != 0 {
		t.Errorf("expected no tick within the first interval, got %d", doc.Active.ActualDuration)
	}

	waitFor(t, "first tick of the new session", func() bool {
		doc, err := env.svc.GetCourt(ctx, "squash-1")
		return err == nil && doc.Active != nil && doc.Active.ActualDuration >= 1
	})
}
