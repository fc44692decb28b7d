package applications

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	store   *Store
	service *Service
	handler *Handler
}

// NewFeature creates the applications feature.
func NewFeature(db *gorm.DB, logger *zap.Logger) *Feature {
	store := NewStore(db)
	svc := NewService(store, logger)
	h := NewHandler(svc)
	return &Feature{store: store, service: svc, handler: h}
}

// Store exposes the feature's store for wiring into the reconciliation
// engine and the command layer.
func (f *Feature) Store() *Store {
	return f.store
}

// Service exposes the feature's service for command-line use.
func (f *Feature) Service() *Service {
	return f.service
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "applications"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
