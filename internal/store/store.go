package store

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/andresmejia3/veil/internal/region"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store archives annotation regions and export runs in PostgreSQL.
type Store struct {
	conn *pgx.Conn
}

// LogInfo summarises one archived log.
type LogInfo struct {
	ID        string
	Path      string
	IndexedAt time.Time
	Cameras   int
	Regions   int
	Exports   int
}

// ExportRun records one export of a log.
type ExportRun struct {
	ID            uuid.UUID
	LogID         string
	OutputPath    string
	Blurred       int
	PassedThrough int
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS log_metadata (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			indexed_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS log_cameras (
			log_id TEXT REFERENCES log_metadata(id) ON DELETE CASCADE,
			camera INT NOT NULL,
			channel TEXT NOT NULL,
			frame_count INT NOT NULL,
			PRIMARY KEY (log_id, camera)
		);
		CREATE TABLE IF NOT EXISTS blur_regions (
			id BIGSERIAL PRIMARY KEY,
			log_id TEXT NOT NULL,
			camera INT NOT NULL,
			frame_index INT NOT NULL,
			ordinal INT NOT NULL,
			start_x INT NOT NULL,
			start_y INT NOT NULL,
			end_x INT NOT NULL,
			end_y INT NOT NULL,
			FOREIGN KEY (log_id, camera) REFERENCES log_cameras(log_id, camera) ON DELETE CASCADE
		);
		CREATE TABLE IF NOT EXISTS export_runs (
			id UUID PRIMARY KEY,
			log_id TEXT REFERENCES log_metadata(id) ON DELETE CASCADE,
			output_path TEXT NOT NULL,
			blurred INT NOT NULL,
			passed_through INT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS blur_regions_log_idx ON blur_regions (log_id, camera, frame_index, ordinal);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// ReplaceRegions stores the regions of every camera of a log, replacing
// whatever was archived for it before. channels names each camera's channel.
func (s *Store) ReplaceRegions(ctx context.Context, logID, path string, channels []string, stores []*region.Store) error {
	if len(channels) != len(stores) {
		return fmt.Errorf("got %d channels for %d cameras", len(channels), len(stores))
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO log_metadata (id, path, indexed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET indexed_at = NOW(), path = EXCLUDED.path
	`, logID, path)
	if err != nil {
		return err
	}
	// Cascades to blur_regions.
	if _, err := tx.Exec(ctx, "DELETE FROM log_cameras WHERE log_id = $1", logID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for cam, st := range stores {
		batch.Queue(`INSERT INTO log_cameras (log_id, camera, channel, frame_count) VALUES ($1, $2, $3, $4)`,
			logID, cam, channels[cam], st.Len())
	}
	for cam, st := range stores {
		ordinal := make(map[int]int)
		st.Each(func(frame int, r region.Region) {
			batch.Queue(`
				INSERT INTO blur_regions (log_id, camera, frame_index, ordinal, start_x, start_y, end_x, end_y)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, logID, cam, frame, ordinal[frame], r.Start().X, r.Start().Y, r.End().X, r.End().Y)
			ordinal[frame]++
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to archive regions: %w", err)
	}
	return tx.Commit(ctx)
}

// LoadRegions returns the archived regions of a log, one store per camera,
// with per-frame order as it was archived.
func (s *Store) LoadRegions(ctx context.Context, logID string) ([]*region.Store, error) {
	rows, err := s.conn.Query(ctx, `SELECT camera, frame_count FROM log_cameras WHERE log_id = $1 ORDER BY camera`, logID)
	if err != nil {
		return nil, err
	}
	var stores []*region.Store
	for rows.Next() {
		var cam, frames int
		if err := rows.Scan(&cam, &frames); err != nil {
			rows.Close()
			return nil, err
		}
		if cam != len(stores) {
			rows.Close()
			return nil, fmt.Errorf("archive of %s is missing camera %d", logID, len(stores))
		}
		stores = append(stores, region.NewStore(frames))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, fmt.Errorf("no archived regions for log %s", logID)
	}

	rows, err = s.conn.Query(ctx, `
		SELECT camera, frame_index, start_x, start_y, end_x, end_y
		FROM blur_regions WHERE log_id = $1
		ORDER BY camera, frame_index, ordinal
	`, logID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cam, frame, sx, sy, ex, ey int
		if err := rows.Scan(&cam, &frame, &sx, &sy, &ex, &ey); err != nil {
			return nil, err
		}
		r, err := region.New(image.Pt(sx, sy), image.Pt(ex, ey), region.DefaultShape)
		if err != nil {
			return nil, fmt.Errorf("cam%d frame %d: %w", cam, frame, err)
		}
		if err := stores[cam].Append(frame, r); err != nil {
			return nil, fmt.Errorf("cam%d: %w", cam, err)
		}
	}
	return stores, rows.Err()
}

// RecordExport logs a finished export and returns its generated ID.
func (s *Store) RecordExport(ctx context.Context, run ExportRun) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO export_runs (id, log_id, output_path, blurred, passed_through)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, run.LogID, run.OutputPath, run.Blurred, run.PassedThrough)
	return run.ID, err
}

// ListLogs returns every archived log with region and export counts.
func (s *Store) ListLogs(ctx context.Context) ([]LogInfo, error) {
	query := `
		SELECT m.id, m.path, m.indexed_at,
			(SELECT COUNT(*) FROM log_cameras c WHERE c.log_id = m.id),
			(SELECT COUNT(*) FROM blur_regions r WHERE r.log_id = m.id),
			(SELECT COUNT(*) FROM export_runs e WHERE e.log_id = m.id)
		FROM log_metadata m
		ORDER BY m.indexed_at DESC
	`
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []LogInfo
	for rows.Next() {
		var l LogInfo
		if err := rows.Scan(&l.ID, &l.Path, &l.IndexedAt, &l.Cameras, &l.Regions, &l.Exports); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS blur_regions CASCADE;
		DROP TABLE IF EXISTS export_runs CASCADE;
		DROP TABLE IF EXISTS log_cameras CASCADE;
		DROP TABLE IF EXISTS log_metadata CASCADE;
	`)
	return err
}
