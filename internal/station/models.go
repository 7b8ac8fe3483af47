package station

import (
	"time"
)

type Station struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Name      string    `json:"name"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Region is a pre-validated candidate home location. Regions are reserved in
// bulk ahead of demand and consumed at most once when a new player's station
// is placed.
type Region struct {
	ID             int64     `json:"id"`
	X              int       `json:"x"`
	Y              int       `json:"y"`
	StationRadius  int       `json:"station_radius"`
	AsteroidRadius int       `json:"asteroid_radius"`
	Used           bool      `json:"used"`
	AssignedUserID *int      `json:"assigned_user_id"`
	CreatedAt      time.Time `json:"created_at"`
}
