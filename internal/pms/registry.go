package pms

import (
	"fmt"
	"log"
	"sync"

	"github.com/dentalray/pmsbridge/internal/config"
)

// Constructor builds a Provider from the loaded configuration.
// Implementations register themselves with Register from init().
type Constructor func(cfg *config.Config, logger *log.Logger) (Provider, error)

var (
	registry   = make(map[Type]Constructor)
	registryMu sync.RWMutex
)

// Register registers a provider constructor.
// Called from init() in implementation packages.
//
// Example:
//
//	func init() {
//	    pms.Register(pms.TypeOpenDental, New)
//	}
func Register(t Type, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if constructor == nil {
		panic(fmt.Sprintf("pms: Register constructor is nil for %s", t))
	}
	if _, exists := registry[t]; exists {
		panic(fmt.Sprintf("pms: Register called twice for %s", t))
	}

	registry[t] = constructor
}

// IsRegistered returns true if a constructor exists for the type.
func IsRegistered(t Type) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, exists := registry[t]
	return exists
}

// New creates the Provider selected by cfg.Provider.
//
// Providers from the closed set without a registered implementation
// (Dentrix, EagleSoft) yield a no-op provider so the agent keeps
// running and logging instead of failing at startup. An unknown
// provider string is a configuration error.
func New(cfg *config.Config, logger *log.Logger) (Provider, error) {
	t, err := ParseType(cfg.Provider)
	if err != nil {
		return nil, err
	}

	registryMu.RLock()
	constructor := registry[t]
	registryMu.RUnlock()

	if constructor == nil {
		logger.Printf("Provider %s is not implemented; using no-op provider", t)
		return NewNoop(t, logger), nil
	}

	return constructor(cfg, logger)
}
