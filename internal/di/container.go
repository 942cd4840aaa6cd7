package di

import (
	"github.com/redis/go-redis/v9"

	"github.com/eventgate/checkin/internal/handler"
	"github.com/eventgate/checkin/internal/repository"
	"github.com/eventgate/checkin/internal/service"
	"github.com/eventgate/checkin/pkg/database"
)

// Container holds all dependencies for the check-in service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	EventRepo        repository.EventRepository
	RegistrationRepo repository.RegistrationRepository

	// Services
	CheckinService service.CheckinService
	EventService   service.EventService

	// Handlers
	HealthHandler  *handler.HealthHandler
	CheckinHandler *handler.CheckinHandler
	EventHandler   *handler.EventHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher service.AdmissionPublisher
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}

	// Initialize repositories
	c.EventRepo = repository.NewPostgresEventRepository(c.DB.Pool())
	c.RegistrationRepo = repository.NewPostgresRegistrationRepository(c.DB.Pool())

	// Initialize services
	c.CheckinService = service.NewCheckinService(c.EventRepo, c.RegistrationRepo, cfg.Publisher)
	c.EventService = service.NewEventService(c.EventRepo, c.RegistrationRepo)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.CheckinHandler = handler.NewCheckinHandler(c.CheckinService)
	c.EventHandler = handler.NewEventHandler(c.EventService)

	return c
}
