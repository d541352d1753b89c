package domain

import "time"

// Job is a unit of work handed from the webhook receiver to queue workers.
// Each job runs one full cycle for one repository.
type Job struct {
	ID         string    `json:"id"`
	Trigger    Trigger   `json:"trigger"`
	Owner      string    `json:"owner"`
	Repository string    `json:"repository"`
	Sender     string    `json:"sender,omitempty"`
	DeliveryID string    `json:"delivery_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// FullName returns owner/repository.
func (j Job) FullName() string {
	return j.Owner + "/" + j.Repository
}
