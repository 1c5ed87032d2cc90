package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotRegistered is returned when no factory exists for a provider name
var ErrNotRegistered = errors.New("payment provider is not registered")

// ProviderRegistry maps provider names to the factories building their clients.
// Names are matched case-insensitively so PAYMENT_PROVIDER=Resurs works.
type ProviderRegistry struct {
	factories map[string]ProviderFactory
	mu        sync.RWMutex
}

// NewProviderRegistry creates an empty registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		factories: make(map[string]ProviderFactory),
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces the factory for name. It panics on an empty
// name or a nil factory since both are programming errors in an init func.
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	key := normalizeName(name)
	if key == "" {
		panic("provider: Register called with an empty name")
	}
	if factory == nil {
		panic("provider: Register factory is nil for " + key)
	}

	r.mu.Lock()
	r.factories[key] = factory
	r.mu.Unlock()
}

// Get returns the factory registered under name
func (r *ProviderRegistry) Get(name string) (ProviderFactory, error) {
	r.mu.RLock()
	factory, ok := r.factories[normalizeName(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNotRegistered, name)
	}
	return factory, nil
}

// CreateProvider builds a new, uninitialized session client
func (r *ProviderRegistry) CreateProvider(name string) (SessionClient, error) {
	factory, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	client := factory()
	if client == nil {
		return nil, fmt.Errorf("payment provider '%s' factory returned no client", name)
	}
	return client, nil
}

// InitializeProvider builds a client, checks config against its declared
// fields and initializes it. Config problems are reported before any
// connection is attempted.
func (r *ProviderRegistry) InitializeProvider(name string, config map[string]string) (SessionClient, error) {
	client, err := r.CreateProvider(name)
	if err != nil {
		return nil, err
	}

	if err := client.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", name, err)
	}
	if err := client.Initialize(config); err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", name, err)
	}
	return client, nil
}

// GetProviderNames lists registered names in sorted order
func (r *ProviderRegistry) GetProviderNames() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// DefaultRegistry holds the providers registered by imported provider packages
var DefaultRegistry = NewProviderRegistry()

// Register adds a factory to DefaultRegistry
func Register(name string, factory ProviderFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a factory from DefaultRegistry
func Get(name string) (ProviderFactory, error) {
	return DefaultRegistry.Get(name)
}

// CreateProvider builds a client from DefaultRegistry
func CreateProvider(name string) (SessionClient, error) {
	return DefaultRegistry.CreateProvider(name)
}

// InitializeProvider builds and initializes a client from DefaultRegistry
func InitializeProvider(name string, config map[string]string) (SessionClient, error) {
	return DefaultRegistry.InitializeProvider(name, config)
}

// GetProviderNames lists the names in DefaultRegistry
func GetProviderNames() []string {
	return DefaultRegistry.GetProviderNames()
}
