package store

import (
	"context"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/andresmejia3/veil/internal/region"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func mustRegion(t *testing.T, x0, y0, x1, y1 int) region.Region {
	t.Helper()
	r, err := region.New(image.Pt(x0, y0), image.Pt(x1, y1), region.DefaultShape)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func regionLines(stores []*region.Store) []string {
	var out []string
	for cam, s := range stores {
		out = append(out, fmt.Sprintf("cam%d %d", cam, s.Len()))
		s.Each(func(frame int, r region.Region) {
			out = append(out, fmt.Sprintf("%d %s", frame, r))
		})
	}
	return out
}

// TestStoreIntegration runs a full integration test against a real Postgres container.
// It requires Docker to be running.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Explicitly check for Docker availability and fail hard if missing
	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Fatalf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("veil_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// Initialize Store (runs migrations)
	s, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer s.Close(ctx)

	// --- Test Scenarios ---

	cam0 := region.NewStore(20)
	cam0.Append(0, mustRegion(t, 1, 2, 3, 4))
	cam0.Append(5, mustRegion(t, 10, 10, 100, 80))
	cam0.Append(5, mustRegion(t, 110, 80, 200, 150))
	cam0.Append(19, mustRegion(t, 0, 0, 640, 480))
	cam1 := region.NewStore(4)
	channels := []string{"/cam0", "/cam1"}

	if err := s.ReplaceRegions(ctx, "log_abc", "/bags/run.mcap", channels, []*region.Store{cam0, cam1}); err != nil {
		t.Fatalf("ReplaceRegions failed: %v", err)
	}

	loaded, err := s.LoadRegions(ctx, "log_abc")
	if err != nil {
		t.Fatalf("LoadRegions failed: %v", err)
	}
	if diff := cmp.Diff(regionLines([]*region.Store{cam0, cam1}), regionLines(loaded)); diff != "" {
		t.Errorf("archived regions mismatch (-want +got):\n%s", diff)
	}

	// Replacing drops the previous archive rather than appending to it.
	cam1.Append(3, mustRegion(t, 5, 5, 9, 9))
	if err := s.ReplaceRegions(ctx, "log_abc", "/bags/run.mcap", channels, []*region.Store{region.NewStore(20), cam1}); err != nil {
		t.Fatalf("second ReplaceRegions failed: %v", err)
	}
	loaded, err = s.LoadRegions(ctx, "log_abc")
	if err != nil {
		t.Fatalf("LoadRegions failed: %v", err)
	}
	if loaded[0].Count() != 0 || loaded[1].Count() != 1 {
		t.Errorf("expected 0 and 1 regions after replace, got %d and %d", loaded[0].Count(), loaded[1].Count())
	}

	if _, err := s.LoadRegions(ctx, "missing"); err == nil {
		t.Error("expected error for unknown log")
	}

	id, err := s.RecordExport(ctx, ExportRun{LogID: "log_abc", OutputPath: "/out/run_blurred.mcap", Blurred: 1, PassedThrough: 10})
	if err != nil {
		t.Fatalf("RecordExport failed: %v", err)
	}
	if id == uuid.Nil {
		t.Error("expected a generated export id")
	}

	logs, err := s.ListLogs(ctx)
	if err != nil {
		t.Fatalf("ListLogs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("Expected 1 log, got %d", len(logs))
	}
	if logs[0].Cameras != 2 || logs[0].Regions != 1 || logs[0].Exports != 1 {
		t.Errorf("unexpected log summary: %+v", logs[0])
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
