package container

import (
	"context"
	"fmt"
	"sync"

	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	implementation "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Repository/Implementation"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container manages dependencies and their lifecycle
type Container struct {
	config *config.Config
	logger *logger.Logger
	client *mongo.Client

	// Services will be added here as they are implemented
	services map[string]interface{}

	// Mutex for thread-safe access
	mu sync.RWMutex

	// Cleanup functions
	cleanupFuncs []func() error
}

// IngestorContainer manages dependencies for the MQTT ingestor service
type IngestorContainer struct {
	config *config.IngestorConfig
	logger *logger.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	log := logger.NewLogger(&cfg.Logging)

	container := &Container{
		config:   cfg,
		logger:   log,
		services: make(map[string]interface{}),
	}

	return container, nil
}

// NewIngestorContainer creates a new container for the MQTT ingestor service
func NewIngestorContainer() (*IngestorContainer, error) {
	cfg, err := config.LoadIngestorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load ingestor configuration: %w", err)
	}

	log := logger.NewLogger(&cfg.Logging)

	return &IngestorContainer{
		config: cfg,
		logger: log,
	}, nil
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetConfig returns the ingestor configuration
func (c *IngestorContainer) GetConfig() *config.IngestorConfig {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetLogger returns the logger
func (c *IngestorContainer) GetLogger() *logger.Logger {
	return c.logger
}

// GetMongoClient returns the shared MongoDB client, connecting on first use
func (c *Container) GetMongoClient() (*mongo.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		client, err := implementation.ConnectWithTimeout(c.config.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		c.client = client
	}

	return c.client, nil
}

// GetDatabase returns the application database handle
func (c *Container) GetDatabase() (*mongo.Database, error) {
	client, err := c.GetMongoClient()
	if err != nil {
		return nil, err
	}
	return client.Database(c.config.Mongo.Database), nil
}

// RegisterService registers a service in the container
func (c *Container) RegisterService(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// GetService retrieves a service from the container
func (c *Container) GetService(name string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	service, exists := c.services[name]
	return service, exists
}

// HealthCheck reports connectivity of the container's dependencies
func (c *Container) HealthCheck(ctx context.Context) map[string]interface{} {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return map[string]interface{}{
			"status":  "degraded",
			"mongodb": "not connected",
		}
	}

	if err := client.Ping(ctx, nil); err != nil {
		return map[string]interface{}{
			"status":  "unhealthy",
			"mongodb": err.Error(),
		}
	}

	return map[string]interface{}{
		"status":  "healthy",
		"mongodb": "connected",
	}
}

// Shutdown gracefully shuts down the container and all its dependencies
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	// Execute cleanup functions in reverse order
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	if c.client != nil {
		if err := c.client.Disconnect(ctx); err != nil {
			c.logger.ErrorWithError(err, "Error disconnecting from MongoDB")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

// Shutdown gracefully shuts down the ingestor container
func (c *IngestorContainer) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down ingestor container...")
	c.logger.Info("Ingestor container shutdown complete")
	return nil
}

// AddCleanupFunc adds a cleanup function
func (c *Container) AddCleanupFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
