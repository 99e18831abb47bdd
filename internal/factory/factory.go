package factory

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"diceboard/internal/dependencies/clock"
	"diceboard/internal/dependencies/random"
	"diceboard/internal/services/game"
	"diceboard/internal/services/identity"
	"diceboard/internal/services/reconnect"
	"diceboard/internal/services/room"
	"diceboard/internal/storage"
	"diceboard/internal/storage/memory"
	redisstorage "diceboard/internal/storage/redis"
	"diceboard/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	Storage storage.Storage

	Clock  clock.Clock
	Random random.Random

	Gateway         *ws.Gateway
	IdentityService *identity.Service
	Supervisor      *reconnect.Supervisor
	RoomController  *room.Controller
	GameController  *game.Controller
	Hub             *ws.Hub
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// GracePeriod is how long a disconnected player is held before removal
	// If zero, defaults to reconnect.DefaultGracePeriod
	GracePeriod time.Duration
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	grace := cfg.GracePeriod
	if grace == 0 {
		grace = reconnect.DefaultGracePeriod
	}

	clk := clock.New()
	rnd := random.New()

	return newWithDependencies(store, clk, rnd, grace, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, grace time.Duration, logger *slog.Logger) *App {
	gateway := ws.NewGateway(logger)
	colors := identity.NewColorPool(rnd, logger)
	identityService := identity.New(store, colors, clk, logger)
	supervisor := reconnect.New(clk, grace, logger)
	roomController := room.NewController(store, gateway, colors, clk, rnd, logger)
	gameController := game.NewController(store, roomController, gateway, rnd, logger)
	hub := ws.NewHub(gateway, store, identityService, roomController, gameController, supervisor, logger)

	return &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		Gateway:         gateway,
		IdentityService: identityService,
		Supervisor:      supervisor,
		RoomController:  roomController,
		GameController:  gameController,
		Hub:             hub,
	}
}
