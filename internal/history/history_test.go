package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordEventAndRecent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	if err := s.RecordEvent(ctx, "m1", EventLaunch, "", base); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordEvent(ctx, "m1", EventShutdown, "", base.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordEvent(ctx, "m2", EventBuildFailure, "parse error", base.Add(2*time.Minute)); err != nil {
		t.Fatal(err)
	}

	rows, err := s.Recent(ctx, "m1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Event != EventShutdown || rows[1].Event != EventLaunch {
		t.Fatalf("order = [%s %s], want [shutdown launch] (newest first)", rows[0].Event, rows[1].Event)
	}

	all, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all rows = %d, want 3", len(all))
	}
	if all[0].MonitorID != "m2" || all[0].Detail != "parse error" {
		t.Fatalf("newest row = %+v, want m2 build_failure with detail", all[0])
	}
}

func TestRecentRespectsLimit(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		if err := s.RecordEvent(ctx, "m1", EventLaunch, "", base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := s.Recent(ctx, "m1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}

func TestRecordImplementsLifecycle(t *testing.T) {
	s := openTest(t)
	s.Record("m1", EventLaunch)
	s.Record("m1", EventShutdown)

	rows, err := s.Recent(context.Background(), "m1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}

func TestPruneDeletesOldEvents(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	old := time.Now().AddDate(0, 0, -40)
	recent := time.Now().AddDate(0, 0, -1)

	if err := s.RecordEvent(ctx, "m1", EventLaunch, "", old); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordEvent(ctx, "m1", EventShutdown, "", recent); err != nil {
		t.Fatal(err)
	}

	if err := s.Prune(ctx, 30); err != nil {
		t.Fatal(err)
	}

	rows, err := s.Recent(ctx, "m1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows after prune = %d, want 1", len(rows))
	}
	if rows[0].Event != EventShutdown {
		t.Fatalf("surviving event = %q, want shutdown", rows[0].Event)
	}
}
