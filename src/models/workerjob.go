package models

import "time"

type JobPriority int

const (
	PriorityHigh   JobPriority = 1
	PriorityMedium JobPriority = 3
	PriorityLow    JobPriority = 5
)

// WorkerJob is one row in the external delivery queue's inbox. This engine
// only enqueues; execution, retry and ordering belong to the worker.
type WorkerJob struct {
	ID       int         `db:"id"`
	Name     string      `db:"name"`
	Priority JobPriority `db:"priority"`
	ItemID   int         `db:"item_id"`
	Created  time.Time   `db:"created"`
	Done     bool        `db:"done"`
}
