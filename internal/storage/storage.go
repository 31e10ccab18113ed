package storage

import (
	"context"
	"time"
)

// Episode records one completed (or refused) script generation run.
type Episode struct {
	ID             string
	Topic          string
	Mode           string
	Style          string
	Length         string
	Tone           string
	Audience       string
	SourcesTotal   int
	SourcesFetched int
	Path           string // script file on disk, empty when generation was refused
	Duration       time.Duration
	CreatedAt      time.Time
	Error          string // non-empty if the run failed or was refused
}

// Filter allows querying for specific Episodes.
type Filter struct {
	Topic  string
	Mode   string
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend defines the interface for archiving and querying episodes.
type Backend interface {
	Save(ctx context.Context, episode *Episode) error
	Query(ctx context.Context, filter Filter) ([]*Episode, error)
	Close() error
}
