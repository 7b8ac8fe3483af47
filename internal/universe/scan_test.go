package universe

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starbase-server/internal/player"
	apperrors "starbase-server/internal/shared/errors"
	"starbase-server/internal/spatial"
)

type fakeCounter struct {
	count int
}

func (f *fakeCounter) CountAsteroidsNear(context.Context, spatial.Point, int) (int, error) {
	return f.count, nil
}

type fakeHomes struct {
	point *spatial.Point
}

func (f *fakeHomes) GetStationPoint(context.Context, int) (*spatial.Point, error) {
	return f.point, nil
}

type fakeScanAttrs struct {
	sensorRange int
}

func (f *fakeScanAttrs) GetAttributes(context.Context, int) (player.Attributes, error) {
	attrs := player.BaseAttributes()
	attrs.SensorRange = f.sensorRange
	return attrs, nil
}

func TestScanHealthyFieldSpawnsNothing(t *testing.T) {
	cfg := testUniverseConfig()
	cfg.ScanMinNearby = 15
	cfg.ScanSpawnCount = 10

	store := &fakeAsteroidStore{}
	g := NewGenerator(cfg, store, &fakePlacements{}, rand.New(rand.NewSource(1)), testLogger())
	svc := NewScanService(cfg, &fakeCounter{count: 20}, &fakeHomes{point: &spatial.Point{X: 2500, Y: 2500}}, &fakeScanAttrs{sensorRange: 900}, g, testLogger())

	result, err := svc.Scan(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, ScanResult{Nearby: 20, Radius: 900}, result)
	assert.Empty(t, store.created)
}

func TestScanThinFieldSpawnsNearby(t *testing.T) {
	cfg := testUniverseConfig()
	cfg.ScanMinNearby = 15
	cfg.ScanSpawnCount = 8

	home := spatial.Point{X: 2500, Y: 2500}
	store := &fakeAsteroidStore{}
	g := NewGenerator(cfg, store, &fakePlacements{}, rand.New(rand.NewSource(4)), testLogger())
	svc := NewScanService(cfg, &fakeCounter{count: 2}, &fakeHomes{point: &home}, &fakeScanAttrs{sensorRange: 2000}, g, testLogger())

	result, err := svc.Scan(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, result.Spawned, len(store.created))
	assert.Greater(t, result.Spawned, 0)
	assert.Equal(t, 2+result.Spawned, result.Nearby)

	for _, a := range store.created {
		dist := spatial.Distance(spatial.Point{X: a.X, Y: a.Y}, home)
		assert.LessOrEqual(t, dist, float64(2000), "scan spawn must stay inside the sensor sweep")
	}
}

func TestScanWithoutStation(t *testing.T) {
	cfg := testUniverseConfig()
	g := NewGenerator(cfg, &fakeAsteroidStore{}, &fakePlacements{}, rand.New(rand.NewSource(1)), testLogger())
	svc := NewScanService(cfg, &fakeCounter{}, &fakeHomes{}, &fakeScanAttrs{sensorRange: 500}, g, testLogger())

	_, err := svc.Scan(context.Background(), 7)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
