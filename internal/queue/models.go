package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"starbase-server/internal/spacecraft"
)

type ActionType string

const (
	ActionMining   ActionType = "mining"
	ActionBuilding ActionType = "building"
	ActionProduce  ActionType = "produce"
	ActionCombat   ActionType = "combat"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether the status ends the entry's lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Entry is one queued action awaiting resolution. TargetID's meaning depends
// on the action type: asteroid for mining, defender user for combat, zero for
// building and production. Detail carries the type-specific payload.
type Entry struct {
	ID        int64           `json:"id"`
	UserID    int             `json:"user_id"`
	Type      ActionType      `json:"type"`
	TargetID  int64           `json:"target_id"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Status    Status          `json:"status"`
	Detail    json.RawMessage `json:"detail"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ArchiveEntry is the immutable historical copy of a terminal entry.
type ArchiveEntry struct {
	ID         int64           `json:"id"`
	EntryID    int64           `json:"entry_id"`
	UserID     int             `json:"user_id"`
	Type       ActionType      `json:"type"`
	TargetID   int64           `json:"target_id"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	Status     Status          `json:"status"`
	Detail     json.RawMessage `json:"detail"`
	ArchivedAt time.Time       `json:"archived_at"`
}

// MiningDetail is the payload of a mining expedition: the committed fleet
// manifest, re-read at resolution to recompute cargo and miner bonus.
type MiningDetail struct {
	Manifest spacecraft.Manifest `json:"manifest"`
}

// BuildingDetail records which building the entry upgrades and to what level.
type BuildingDetail struct {
	BuildingType string `json:"building_type"`
	TargetLevel  int    `json:"target_level"`
}

// ProductionDetail records the spacecraft type and quantity being produced.
type ProductionDetail struct {
	ShipType string `json:"ship_type"`
	Quantity int    `json:"quantity"`
}

// CombatDetail is the payload of an attack: the attacker's committed fleet.
type CombatDetail struct {
	Manifest spacecraft.Manifest `json:"manifest"`
}

// DecodeDetail unmarshals the entry's payload into the given detail struct.
func (e *Entry) DecodeDetail(v any) error {
	if len(e.Detail) == 0 {
		return fmt.Errorf("entry %d has no detail payload", e.ID)
	}
	if err := json.Unmarshal(e.Detail, v); err != nil {
		return fmt.Errorf("failed to decode detail of entry %d: %w", e.ID, err)
	}
	return nil
}

// EncodeDetail marshals a detail payload for storage on an entry.
func EncodeDetail(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode detail: %w", err)
	}
	return data, nil
}

// Stats summarizes the live queue by status.
type Stats struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Processing int `json:"processing"`
	Archived   int `json:"archived"`
}
