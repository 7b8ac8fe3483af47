package config

import (
	"fmt"
	"starbase-server/internal/shared/utils"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
	Universe UniverseConfig
	Queue    QueueConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	FrontendURL  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level      string
	JSONFormat bool
}

// UniverseConfig holds every tunable the generator and the region pool
// consume. Distances are in universe coordinate units.
type UniverseConfig struct {
	Size                  int
	AsteroidCount         int
	AsteroidDistance      int
	AsteroidToStationBase int
	StationDistance       int
	StationInnerRadius    int
	StationOuterRadius    int
	ExtremeDistance       int
	StrategicCount        int
	MaxAttempts           int
	RegionalThreshold     int
	FailureBudget         float64
	BatchSize             int
	RegionPoolSize        int
	AsteroidsPerPlayer    int
	ScanMinNearby         int
	ScanSpawnCount        int
}

type QueueConfig struct {
	PollInterval      time.Duration
	StuckTimeout      time.Duration
	ClaimBatchSize    int
	InstantPerSecond  float64
	InstantBurst      int
	CombatPlunderRate float64
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Redis:    loadRedisConfig(),
		Logging:  loadLoggingConfig(),
		Universe: loadUniverseConfig(),
		Queue:    loadQueueConfig(),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_WRITE_TIMEOUT_SECONDS", "15"))
	idleTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		FrontendURL:  utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_IDLE_CONNS", "5"))
	connMaxLifetime, _ := strconv.Atoi(utils.GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "starbase"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
		MigrationsPath:  utils.GetEnv("DB_MIGRATIONS_PATH", "migrations"),
	}
}

func loadRedisConfig() RedisConfig {
	enabled := utils.GetEnv("REDIS_ENABLED", "true") == "true"
	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:  enabled,
		URL:      utils.GetEnv("REDIS_URL", ""),
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		JSONFormat: environment == "production",
	}
}

func loadUniverseConfig() UniverseConfig {
	size, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_SIZE", "20000"))
	asteroidCount, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_ASTEROID_COUNT", "5000"))
	asteroidDistance, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_ASTEROID_DISTANCE", "300"))
	asteroidToStation, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_ASTEROID_TO_STATION_BASE", "1000"))
	stationDistance, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_STATION_DISTANCE", "4000"))
	innerRadius, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_STATION_INNER_RADIUS", "2000"))
	outerRadius, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_STATION_OUTER_RADIUS", "4000"))
	extremeDistance, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_EXTREME_DISTANCE", "6000"))
	strategicCount, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_STRATEGIC_ASTEROID_COUNT", "6"))
	maxAttempts, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_PLACEMENT_MAX_ATTEMPTS", "5000"))
	regionalThreshold, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_PLACEMENT_REGIONAL_THRESHOLD", "750"))
	failureBudget, _ := strconv.ParseFloat(utils.GetEnv("UNIVERSE_PLACEMENT_FAILURE_BUDGET", "0.10"), 64)
	batchSize, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_PERSIST_BATCH_SIZE", "100"))
	regionPoolSize, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_REGION_POOL_SIZE", "20"))
	asteroidsPerPlayer, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_ASTEROIDS_PER_PLAYER", "150"))
	scanMinNearby, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_SCAN_MIN_NEARBY", "15"))
	scanSpawnCount, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_SCAN_SPAWN_COUNT", "10"))

	return UniverseConfig{
		Size:                  size,
		AsteroidCount:         asteroidCount,
		AsteroidDistance:      asteroidDistance,
		AsteroidToStationBase: asteroidToStation,
		StationDistance:       stationDistance,
		StationInnerRadius:    innerRadius,
		StationOuterRadius:    outerRadius,
		ExtremeDistance:       extremeDistance,
		StrategicCount:        strategicCount,
		MaxAttempts:           maxAttempts,
		RegionalThreshold:     regionalThreshold,
		FailureBudget:         failureBudget,
		BatchSize:             batchSize,
		RegionPoolSize:        regionPoolSize,
		AsteroidsPerPlayer:    asteroidsPerPlayer,
		ScanMinNearby:         scanMinNearby,
		ScanSpawnCount:        scanSpawnCount,
	}
}

func loadQueueConfig() QueueConfig {
	pollSeconds, _ := strconv.Atoi(utils.GetEnv("QUEUE_POLL_INTERVAL_SECONDS", "60"))
	stuckMinutes, _ := strconv.Atoi(utils.GetEnv("QUEUE_STUCK_TIMEOUT_MINUTES", "10"))
	claimBatchSize, _ := strconv.Atoi(utils.GetEnv("QUEUE_CLAIM_BATCH_SIZE", "500"))
	instantPerSecond, _ := strconv.ParseFloat(utils.GetEnv("QUEUE_INSTANT_PER_SECOND", "1"), 64)
	instantBurst, _ := strconv.Atoi(utils.GetEnv("QUEUE_INSTANT_BURST", "3"))
	plunderRate, _ := strconv.ParseFloat(utils.GetEnv("QUEUE_COMBAT_PLUNDER_RATE", "0.5"), 64)

	return QueueConfig{
		PollInterval:      time.Duration(pollSeconds) * time.Second,
		StuckTimeout:      time.Duration(stuckMinutes) * time.Minute,
		ClaimBatchSize:    claimBatchSize,
		InstantPerSecond:  instantPerSecond,
		InstantBurst:      instantBurst,
		CombatPlunderRate: plunderRate,
	}
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Universe.Size <= 0 {
		return fmt.Errorf("UNIVERSE_SIZE must be positive")
	}

	if c.Universe.StationInnerRadius > c.Universe.StationOuterRadius {
		return fmt.Errorf("UNIVERSE_STATION_INNER_RADIUS cannot exceed UNIVERSE_STATION_OUTER_RADIUS")
	}

	if c.Universe.FailureBudget < 0 || c.Universe.FailureBudget > 1 {
		return fmt.Errorf("UNIVERSE_PLACEMENT_FAILURE_BUDGET must be between 0 and 1")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
