package model

import "time"

// Category is display metadata joined onto transactions. Assignment happens
// upstream; this engine only reads names and suggests corrections.
type Category struct {
	CreatedAt time.Time
	Name      string
	Color     string
	ID        int
}
