package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed observation message from a source.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// TrackUpdate describes the outcome of merging one observation into a track file.
type TrackUpdate struct {
	StormID     string    `json:"atcf_id"`
	Agency      string    `json:"agency"`
	Technique   string    `json:"technique"`
	DTG         string    `json:"dtg"`
	Path        string    `json:"path"`
	Records     int       `json:"records"`
	Appended    bool      `json:"appended"`
	ProcessedAt time.Time `json:"processed_at"`
}
