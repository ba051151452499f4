package repository

import (
	"context"

	"github.com/google/uuid"
)

// SweepTask is the queue message asking a worker to run a full sweep.
type SweepTask struct {
	SweepID    uuid.UUID `json:"sweep_id"`
	RetryCount int       `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishSweepTask sends a sweep task to the queue.
	PublishSweepTask(ctx context.Context, task SweepTask) error

	// ConsumeSweepTasks blocks consuming sweep tasks until ctx is cancelled.
	// The handler function is called for each received task.
	ConsumeSweepTasks(ctx context.Context, handler func(task SweepTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
