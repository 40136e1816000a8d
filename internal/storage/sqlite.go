package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"fieldmap/internal/model"
	"fieldmap/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreatePOI inserts a new POI and populates its ID.
func (s *SQLite) CreatePOI(ctx context.Context, poi *model.POI) error {
	objective, err := marshalTask(poi.Objective)
	if err != nil {
		return err
	}
	reward, err := marshalTask(poi.Reward)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pois (name, lat, lon, objective, reward, updated_at, updated_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		poi.Name, poi.Lat, poi.Lon, objective, reward, timeValue(poi.UpdatedAt), poi.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("insert poi: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	poi.ID = id
	return nil
}

// GetPOI returns a single POI by its ID.
func (s *SQLite) GetPOI(ctx context.Context, id int64) (*model.POI, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, lat, lon, objective, reward, updated_at, updated_by
		 FROM pois WHERE id = ?`, id,
	)
	poi, err := scanPOI(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return poi, err
}

// ListPOIs returns all POIs ordered by ID.
func (s *SQLite) ListPOIs(ctx context.Context) ([]model.POI, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, lat, lon, objective, reward, updated_at, updated_by
		 FROM pois ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query pois: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pois []model.POI
	for rows.Next() {
		poi, err := scanPOI(rows)
		if err != nil {
			return nil, err
		}
		pois = append(pois, *poi)
	}
	return pois, rows.Err()
}

// SetPOITasks records a research report: the POI's current objective and
// reward, who reported them and when.
func (s *SQLite) SetPOITasks(ctx context.Context, id int64, objective, reward model.Task, reporter string, at time.Time) error {
	objJSON, err := marshalTask(objective)
	if err != nil {
		return err
	}
	rewJSON, err := marshalTask(reward)
	if err != nil {
		return err
	}
	return s.updatePOI(ctx,
		`UPDATE pois SET objective = ?, reward = ?, updated_at = ?, updated_by = ? WHERE id = ?`,
		objJSON, rewJSON, at.UTC().Format(timeLayout), reporter, id,
	)
}

// MovePOI updates a POI's coordinates.
func (s *SQLite) MovePOI(ctx context.Context, id int64, lat, lon float64) error {
	return s.updatePOI(ctx, `UPDATE pois SET lat = ?, lon = ? WHERE id = ?`, lat, lon, id)
}

// RenamePOI updates a POI's display name.
func (s *SQLite) RenamePOI(ctx context.Context, id int64, name string) error {
	return s.updatePOI(ctx, `UPDATE pois SET name = ? WHERE id = ?`, name, id)
}

// ClearPOI resets a POI's research back to unknown.
func (s *SQLite) ClearPOI(ctx context.Context, id int64, at time.Time) error {
	cleared, err := marshalTask(model.Task{Type: "unknown", Params: map[string]any{}})
	if err != nil {
		return err
	}
	return s.updatePOI(ctx,
		`UPDATE pois SET objective = ?, reward = ?, updated_at = ?, updated_by = '' WHERE id = ?`,
		cleared, cleared, at.UTC().Format(timeLayout), id,
	)
}

func (s *SQLite) updatePOI(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update poi: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateArena inserts a new arena and populates its ID.
func (s *SQLite) CreateArena(ctx context.Context, arena *model.Arena) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO arenas (name, lat, lon) VALUES (?, ?, ?)`,
		arena.Name, arena.Lat, arena.Lon,
	)
	if err != nil {
		return fmt.Errorf("insert arena: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	arena.ID = id
	return nil
}

// ListArenas returns all arenas ordered by ID.
func (s *SQLite) ListArenas(ctx context.Context) ([]model.Arena, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, lat, lon FROM arenas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query arenas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var arenas []model.Arena
	for rows.Next() {
		var a model.Arena
		if err := rows.Scan(&a.ID, &a.Name, &a.Lat, &a.Lon); err != nil {
			return nil, fmt.Errorf("scan arena: %w", err)
		}
		arenas = append(arenas, a)
	}
	return arenas, rows.Err()
}

// CreateWebhook inserts a new webhook and populates its ID and CreatedAt.
func (s *SQLite) CreateWebhook(ctx context.Context, hook *model.Webhook) error {
	objFilter, err := marshalFilter(hook.ObjectiveFilter)
	if err != nil {
		return err
	}
	rewFilter, err := marshalFilter(hook.RewardFilter)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO webhooks (active, kind, target, language, icon_set, species_set,
		                       show_species_icon, geofence_id, objective_filter, reward_filter,
		                       body, options, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		boolToInt(hook.Active), string(hook.Kind), hook.Target, hook.Language,
		hook.IconSet, hook.SpeciesSet, boolToInt(hook.ShowSpeciesIcon), hook.GeofenceID,
		objFilter, rewFilter, hook.Body, hook.Options, now,
	)
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	hook.ID = id
	hook.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListWebhooks returns all webhooks ordered by ID.
func (s *SQLite) ListWebhooks(ctx context.Context) ([]model.Webhook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, active, kind, target, language, icon_set, species_set,
		        show_species_icon, geofence_id, objective_filter, reward_filter,
		        body, options, created_at
		 FROM webhooks ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hooks []model.Webhook
	for rows.Next() {
		hook, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, *hook)
	}
	return hooks, rows.Err()
}

// CreateGeofence inserts a new geofence and populates its ID.
func (s *SQLite) CreateGeofence(ctx context.Context, fence *model.Geofence) error {
	vertices, err := json.Marshal(fence.Vertices)
	if err != nil {
		return fmt.Errorf("marshal vertices: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO geofences (name, vertices) VALUES (?, ?)`,
		fence.Name, string(vertices),
	)
	if err != nil {
		return fmt.Errorf("insert geofence: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	fence.ID = id
	return nil
}

// GetGeofence returns a single geofence by its ID.
func (s *SQLite) GetGeofence(ctx context.Context, id int64) (*model.Geofence, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, vertices FROM geofences WHERE id = ?`, id)
	fence, err := scanGeofence(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return fence, err
}

// ListGeofences returns all geofences ordered by ID.
func (s *SQLite) ListGeofences(ctx context.Context) ([]model.Geofence, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, vertices FROM geofences ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query geofences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fences []model.Geofence
	for rows.Next() {
		fence, err := scanGeofence(rows)
		if err != nil {
			return nil, err
		}
		fences = append(fences, *fence)
	}
	return fences, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeValue(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	v := t.UTC().Format(timeLayout)
	return &v
}

func marshalTask(task model.Task) (string, error) {
	if task.Params == nil {
		task.Params = map[string]any{}
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}
	return string(raw), nil
}

func marshalFilter(f model.TaskFilter) (string, error) {
	if f.Mode == "" {
		f.Mode = model.ModeWhitelist
	}
	if f.Patterns == nil {
		f.Patterns = []model.Task{}
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("marshal filter: %w", err)
	}
	return string(raw), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPOI(row scannable) (*model.POI, error) {
	var poi model.POI
	var objective, reward string
	var updatedAt sql.NullString
	err := row.Scan(&poi.ID, &poi.Name, &poi.Lat, &poi.Lon, &objective, &reward, &updatedAt, &poi.UpdatedBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan poi: %w", err)
	}
	if err := json.Unmarshal([]byte(objective), &poi.Objective); err != nil {
		return nil, fmt.Errorf("unmarshal objective: %w", err)
	}
	if err := json.Unmarshal([]byte(reward), &poi.Reward); err != nil {
		return nil, fmt.Errorf("unmarshal reward: %w", err)
	}
	if updatedAt.Valid {
		poi.UpdatedAt, _ = time.Parse(timeLayout, updatedAt.String)
	}
	return &poi, nil
}

func scanWebhook(row scannable) (*model.Webhook, error) {
	var hook model.Webhook
	var active, showSpecies int
	var geofenceID sql.NullInt64
	var objFilter, rewFilter, created string
	err := row.Scan(&hook.ID, &active, &hook.Kind, &hook.Target, &hook.Language,
		&hook.IconSet, &hook.SpeciesSet, &showSpecies, &geofenceID,
		&objFilter, &rewFilter, &hook.Body, &hook.Options, &created)
	if err != nil {
		return nil, fmt.Errorf("scan webhook: %w", err)
	}
	hook.Active = active == 1
	hook.ShowSpeciesIcon = showSpecies == 1
	if geofenceID.Valid {
		hook.GeofenceID = &geofenceID.Int64
	}
	if err := json.Unmarshal([]byte(objFilter), &hook.ObjectiveFilter); err != nil {
		return nil, fmt.Errorf("unmarshal objective filter: %w", err)
	}
	if err := json.Unmarshal([]byte(rewFilter), &hook.RewardFilter); err != nil {
		return nil, fmt.Errorf("unmarshal reward filter: %w", err)
	}
	hook.CreatedAt, _ = time.Parse(timeLayout, created)
	return &hook, nil
}

func scanGeofence(row scannable) (*model.Geofence, error) {
	var fence model.Geofence
	var vertices string
	err := row.Scan(&fence.ID, &fence.Name, &vertices)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan geofence: %w", err)
	}
	if err := json.Unmarshal([]byte(vertices), &fence.Vertices); err != nil {
		return nil, fmt.Errorf("unmarshal vertices: %w", err)
	}
	return &fence, nil
}
