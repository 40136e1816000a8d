// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"fieldmap/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	CreatePOI(ctx context.Context, poi *model.POI) error
	GetPOI(ctx context.Context, id int64) (*model.POI, error)
	ListPOIs(ctx context.Context) ([]model.POI, error)
	SetPOITasks(ctx context.Context, id int64, objective, reward model.Task, reporter string, at time.Time) error
	MovePOI(ctx context.Context, id int64, lat, lon float64) error
	RenamePOI(ctx context.Context, id int64, name string) error
	ClearPOI(ctx context.Context, id int64, at time.Time) error

	CreateArena(ctx context.Context, arena *model.Arena) error
	ListArenas(ctx context.Context) ([]model.Arena, error)

	CreateWebhook(ctx context.Context, hook *model.Webhook) error
	ListWebhooks(ctx context.Context) ([]model.Webhook, error)

	CreateGeofence(ctx context.Context, fence *model.Geofence) error
	GetGeofence(ctx context.Context, id int64) (*model.Geofence, error)
	ListGeofences(ctx context.Context) ([]model.Geofence, error)

	Close() error
}
