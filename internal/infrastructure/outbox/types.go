package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is a queued notification about a user's open tasks. Delivery is
// handled downstream; the outbox only guarantees that enqueued reminders
// survive restarts until dispatched or expired.
type Reminder struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	OpenTasks int       `json:"open_tasks"`
	Retries   int       `json:"retries"`
	Timestamp time.Time `json:"timestamp"`

	bucketKey []byte
}

func (r *Reminder) normalize() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
}
