package universe

import (
	"context"
	"log/slog"

	"starbase-server/internal/player"
	"starbase-server/internal/shared/config"
	apperrors "starbase-server/internal/shared/errors"
	"starbase-server/internal/spatial"
)

// AsteroidCounter reports local asteroid density for scan decisions.
type AsteroidCounter interface {
	CountAsteroidsNear(ctx context.Context, center spatial.Point, radius int) (int, error)
}

// HomeLocator resolves a player's station coordinates.
type HomeLocator interface {
	GetStationPoint(ctx context.Context, userID int) (*spatial.Point, error)
}

// AttributeSource provides the sensor range the scan sweeps.
type AttributeSource interface {
	GetAttributes(ctx context.Context, userID int) (player.Attributes, error)
}

type ScanResult struct {
	Nearby  int `json:"nearby"`
	Spawned int `json:"spawned"`
	Radius  int `json:"radius"`
}

// ScanService sweeps the space around a player's station. A sweep that finds
// the local field thinner than the configured floor triggers a regional spawn,
// so active players keep something to mine without densifying the whole map.
type ScanService struct {
	cfg       config.UniverseConfig
	counter   AsteroidCounter
	homes     HomeLocator
	attrs     AttributeSource
	generator *Generator
	logger    *slog.Logger
}

func NewScanService(cfg config.UniverseConfig, counter AsteroidCounter, homes HomeLocator, attrs AttributeSource, generator *Generator, logger *slog.Logger) *ScanService {
	logger.Debug("Initializing scan service")

	return &ScanService{
		cfg:       cfg,
		counter:   counter,
		homes:     homes,
		attrs:     attrs,
		generator: generator,
		logger:    logger,
	}
}

func (s *ScanService) Scan(ctx context.Context, userID int) (ScanResult, error) {
	logger := s.logger.With("component", "scan_service", "operation", "scan", "user_id", userID)

	home, err := s.homes.GetStationPoint(ctx, userID)
	if err != nil {
		return ScanResult{}, err
	}
	if home == nil {
		return ScanResult{}, apperrors.NotFoundf("user %d has no station", userID)
	}

	attrs, err := s.attrs.GetAttributes(ctx, userID)
	if err != nil {
		return ScanResult{}, err
	}
	radius := attrs.SensorRange

	nearby, err := s.counter.CountAsteroidsNear(ctx, *home, radius)
	if err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{Nearby: nearby, Radius: radius}
	if nearby >= s.cfg.ScanMinNearby {
		logger.Debug("Scan found a healthy field", "nearby", nearby, "radius", radius)
		return result, nil
	}

	logger.Info("Local field below floor, spawning", "nearby", nearby, "floor", s.cfg.ScanMinNearby)

	spawned, err := s.generator.GenerateInRegion(ctx, *home, radius, s.cfg.ScanSpawnCount)
	if err != nil {
		// A saturated region is a valid scan outcome, not a failure.
		if apperrors.IsType(err, apperrors.ErrorTypeExhausted) {
			logger.Warn("Regional spawn exhausted placement budget", "generated", spawned.Generated)
		} else {
			return ScanResult{}, err
		}
	}

	result.Spawned = spawned.Generated
	result.Nearby += spawned.Generated
	return result, nil
}
