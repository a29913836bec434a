package model

import "time"

// SecurityEvent is the uniform reporting shape of an audit record in the admin feed.
type SecurityEvent struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Category    string         `json:"category"`
	Severity    string         `json:"severity"`
	Description string         `json:"description"`
	UserID      string         `json:"userId,omitempty"`
	IP          string         `json:"ip,omitempty"`
	UserAgent   string         `json:"userAgent,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Sample      bool           `json:"sample,omitempty"`
}

type FeedStatus string

const (
	FeedLive        FeedStatus = "live"
	FeedEmpty       FeedStatus = "empty"
	FeedUnavailable FeedStatus = "unavailable"
)

// FeedResult is a normalised read. Status distinguishes a genuinely empty window from a
// store failure; Sample is set when Items were substituted with demonstration data.
type FeedResult[T any] struct {
	Items  []T        `json:"items"`
	Status FeedStatus `json:"status"`
	Sample bool       `json:"sample"`
}
