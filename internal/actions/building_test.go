package actions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starbase-server/internal/actions"
	"starbase-server/internal/building"
	"starbase-server/internal/queue"
	"starbase-server/internal/shared/database"
	apperrors "starbase-server/internal/shared/errors"
)

type fakeBuildings struct {
	levels   map[building.Type]int
	setCalls int
}

func (f *fakeBuildings) GetLevel(_ context.Context, _ *database.Tx, _ int, buildingType building.Type) (int, error) {
	return f.levels[buildingType], nil
}

func (f *fakeBuildings) SetLevel(_ context.Context, _ *database.Tx, _ int, buildingType building.Type, level int) error {
	if f.levels == nil {
		f.levels = map[building.Type]int{}
	}
	f.levels[buildingType] = level
	f.setCalls++
	return nil
}

func buildingEntry(t *testing.T, buildingType string, targetLevel int) *queue.Entry {
	t.Helper()

	detail, err := queue.EncodeDetail(queue.BuildingDetail{BuildingType: buildingType, TargetLevel: targetLevel})
	require.NoError(t, err)

	return &queue.Entry{ID: 21, UserID: 1, Type: queue.ActionBuilding, Detail: detail}
}

func TestBuildingUpgradeSetsTargetLevel(t *testing.T) {
	buildings := &fakeBuildings{levels: map[building.Type]int{building.Shipyard: 2}}
	handler := actions.NewBuildingUpgradeHandler(buildings, quietLogger())

	err := handler.Handle(context.Background(), nil, buildingEntry(t, "Shipyard", 3))

	require.NoError(t, err)
	assert.Equal(t, 3, buildings.levels[building.Shipyard])
	assert.Equal(t, 1, buildings.setCalls)
}

func TestBuildingUpgradeRetryIsIdempotent(t *testing.T) {
	// A retried entry finds the level already set and leaves it alone.
	buildings := &fakeBuildings{levels: map[building.Type]int{building.StorageDepot: 4}}
	handler := actions.NewBuildingUpgradeHandler(buildings, quietLogger())

	err := handler.Handle(context.Background(), nil, buildingEntry(t, "StorageDepot", 4))

	require.NoError(t, err)
	assert.Equal(t, 4, buildings.levels[building.StorageDepot])
	assert.Zero(t, buildings.setCalls)
}

func TestBuildingUpgradeUnknownType(t *testing.T) {
	handler := actions.NewBuildingUpgradeHandler(&fakeBuildings{}, quietLogger())

	err := handler.Handle(context.Background(), nil, buildingEntry(t, "MoonBase", 1))

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestBuildingUpgradeInvalidTargetLevel(t *testing.T) {
	handler := actions.NewBuildingUpgradeHandler(&fakeBuildings{}, quietLogger())

	err := handler.Handle(context.Background(), nil, buildingEntry(t, "Shipyard", 0))

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
