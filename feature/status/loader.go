package status

import (
	"time"

	"github.com/coder/quartz"
	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
}

// NewFeature creates the status feature.
func NewFeature(plans PlanSource, ledger LedgerSource, backend BackendChecker, staleAfter time.Duration, clock quartz.Clock) *Feature {
	return &Feature{handler: NewHandler(NewService(plans, ledger, backend, staleAfter, clock))}
}

func (f *Feature) Name() string {
	return "status"
}

func (f *Feature) IsEnabled() bool {
	return true
}

func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
