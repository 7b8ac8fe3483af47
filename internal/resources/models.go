package resources

import (
	"time"
)

type Balance struct {
	UserID    int       `json:"user_id"`
	Resource  Type      `json:"resource"`
	Amount    int64     `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}
