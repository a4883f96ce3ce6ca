package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rcliao/nihongo-srs/internal/store"
)

type fakeSource struct {
	counts []store.DueCount
	err    error
	calls  int
}

func (f *fakeSource) DueCounts(_ context.Context, _ time.Time) ([]store.DueCount, error) {
	f.calls++
	return f.counts, f.err
}

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func TestCheck(t *testing.T) {
	src := &fakeSource{counts: []store.DueCount{
		{UserID: "alice", Due: 3},
		{UserID: "bob", Due: 0},
		{UserID: "carol", Due: 12},
	}}
	var got []Reminder
	n := NotifierFunc(func(_ context.Context, r Reminder) error {
		got = append(got, r)
		return nil
	})
	s := New(src, n, WithClock(func() time.Time { return t0 }))

	sent, err := s.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if sent != 2 || len(got) != 2 {
		t.Fatalf("expected 2 reminders, got %d (%v)", sent, got)
	}
	if got[0].UserID != "alice" || got[0].Due != 3 || !got[0].At.Equal(t0) {
		t.Errorf("unexpected first reminder: %+v", got[0])
	}
	if got[1].UserID != "carol" || got[1].Due != 12 {
		t.Errorf("unexpected second reminder: %+v", got[1])
	}
}

func TestCheckSingleUser(t *testing.T) {
	src := &fakeSource{counts: []store.DueCount{{UserID: "alice", Due: 3}, {UserID: "carol", Due: 12}}}
	var got []Reminder
	s := New(src, NotifierFunc(func(_ context.Context, r Reminder) error {
		got = append(got, r)
		return nil
	}), WithUser("carol"))

	if sent, _ := s.Check(context.Background()); sent != 1 || got[0].UserID != "carol" {
		t.Errorf("expected one reminder for carol, got %v", got)
	}
}

func TestCheckErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("db locked")}
	s := New(src, NotifierFunc(func(context.Context, Reminder) error { return nil }))
	if _, err := s.Check(context.Background()); err == nil {
		t.Error("expected the source error")
	}

	src = &fakeSource{counts: []store.DueCount{{UserID: "alice", Due: 1}, {UserID: "bob", Due: 2}}}
	calls := 0
	s = New(src, NotifierFunc(func(_ context.Context, r Reminder) error {
		calls++
		if r.UserID == "alice" {
			return errors.New("offline")
		}
		return nil
	}))
	sent, err := s.Check(context.Background())
	if err != nil {
		t.Fatalf("notification failures should not fail the check: %v", err)
	}
	if sent != 1 || calls != 2 {
		t.Errorf("expected 1 sent of 2 attempts, got sent=%d calls=%d", sent, calls)
	}
}

func TestStartRunsImmediately(t *testing.T) {
	src := &fakeSource{counts: []store.DueCount{{UserID: "alice", Due: 4}}}
	got := make(chan Reminder, 10)
	s := New(src, NotifierFunc(func(_ context.Context, r Reminder) error {
		got <- r
		return nil
	}), WithInterval(time.Hour))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	select {
	case r := <-got:
		if r.UserID != "alice" || r.Due != 4 {
			t.Errorf("unexpected reminder: %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reminder within 5s of start")
	}
}
