package domain

import "time"

// Concert represents a listed show that tickets are sold for.
type Concert struct {
	ID          string
	Name        string
	Artist      string
	Date        time.Time
	Venue       string
	Description string
	CreatedAt   time.Time
}
