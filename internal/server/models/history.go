// Package models defines server-side data models persisted in the database.
package models

import "time"

// Outcome of a recorded tool run.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// HistoryRecord is one tool invocation.
type HistoryRecord struct {
	ID string `json:"id"`
	// UserID is empty for anonymous requests.
	UserID   string `json:"userId,omitempty"`
	Tool     string `json:"tool"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	// StorageKey points at the archived output in object storage, if any.
	StorageKey string    `json:"-"`
	Archived   bool      `json:"archived"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DailyUsage counts runs of one tool on one UTC day.
type DailyUsage struct {
	Day   time.Time `json:"day"`
	Tool  string    `json:"tool"`
	Count int64     `json:"count"`
}
