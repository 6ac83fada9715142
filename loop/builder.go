package loop

import (
	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/registry"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/service"
)

// Builder can build loop managers.
type Builder struct {
	reg      *registry.Manager
	services *service.Manager
	log      logr.Logger
	rxBudget int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		log:      logr.Discard(),
		rxBudget: 16,
	}
}

// WithRegistry sets the directory used to route messages and responses.
func (b Builder) WithRegistry(r *registry.Manager) Builder {
	b.reg = r
	return b
}

// WithServices sets the service manager used to route requests.
func (b Builder) WithServices(s *service.Manager) Builder {
	b.services = s
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l logr.Logger) Builder {
	b.log = l
	return b
}

// WithRxBudget sets how many transfers are taken from each adapter per
// iteration.
func (b Builder) WithRxBudget(n int) Builder {
	b.rxBudget = n
	return b
}

// Build creates the manager.
func (b Builder) Build(name string) *Manager {
	b.parametersMustBeValid()

	return &Manager{
		name:     name,
		reg:      b.reg,
		services: b.services,
		log:      b.log,
		rxBudget: b.rxBudget,
	}
}

func (b Builder) parametersMustBeValid() {
	if b.reg == nil {
		panic("loop manager requires a registry")
	}

	if b.services == nil {
		panic("loop manager requires a service manager")
	}

	if b.rxBudget <= 0 {
		panic("RX budget must be positive")
	}
}
