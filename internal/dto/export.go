package dto

import (
	"time"

	"camwatch/internal/models"
)

const (
	ExportRunning = "running"
	ExportDone    = "done"
	ExportFailed  = "failed"
)

// ExportJob reports the progress of an asynchronous export.
type ExportJob struct {
	ID       string        `json:"id"`
	Video    string        `json:"video"`
	Status   string        `json:"status"`
	Marks    int           `json:"marks"`
	Clips    []models.Clip `json:"clips"`
	Errors   []string      `json:"errors,omitempty"`
	Started  time.Time     `json:"started"`
	Finished *time.Time    `json:"finished,omitempty"`
}
