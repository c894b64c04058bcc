package logging

import (
	"fmt"
	"time"

	"jobscout/internal/config"
	"jobscout/internal/logging/adapters"
)

// adapterHealthInterval is how often the health checker polls remote sinks
// during an unattended scrape run.
const adapterHealthInterval = 30 * time.Second

// remoteCircuitFailureThreshold trips a sink's breaker after this many
// consecutive write failures, and remoteCircuitResetTimeout is how long the
// breaker stays open before allowing a half-open probe.
const (
	remoteCircuitFailureThreshold = 5
	remoteCircuitResetTimeout     = 30 * time.Second
)

// Manager wires configured adapters into the multi-logger. Remote sinks
// (Betterstack) are wrapped in a circuit breaker and polled by a health
// checker so a degraded log endpoint degrades logging, not the scrape
// pipeline itself.
type Manager struct {
	factory       *AdapterFactory
	logger        *MultiLogger
	errorHandler  *ErrorHandler
	healthChecker *HealthChecker
}

// NewManager creates a new logging manager
func NewManager() *Manager {
	return &Manager{
		factory:       NewAdapterFactory(),
		logger:        NewMultiLogger(),
		healthChecker: NewHealthChecker(adapterHealthInterval),
	}
}

// Initialize initializes the logging system from configuration
func (m *Manager) Initialize(cfg *config.Config) error {
	// Set the log level
	level := ParseLogLevel(cfg.Logging.Level)
	m.logger.SetLevel(level)

	var err error
	if len(cfg.Logging.Adapters) > 0 {
		// If new adapter configuration is provided, use it
		err = m.initializeFromAdapters(cfg.Logging.Adapters)
	} else {
		// Fallback to legacy configuration
		err = m.initializeFromLegacyConfig(cfg)
	}
	if err != nil {
		return err
	}

	m.healthChecker.Start()
	return nil
}

// initializeFromAdapters initializes logging adapters from the new configuration format
func (m *Manager) initializeFromAdapters(adapterConfigs []struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}) error {
	fallback := adapters.NewStdoutAdapter("fallback_stdout", adapters.StdoutConfig{Format: "json"})
	m.errorHandler = NewErrorHandler(ErrorHandlerConfig{FallbackAdapter: fallback})

	for _, adapterConfig := range adapterConfigs {
		if !adapterConfig.Enabled {
			continue
		}

		// Convert to our internal adapter config
		config := AdapterConfig{
			Name:    adapterConfig.Name,
			Type:    adapterConfig.Type,
			Enabled: adapterConfig.Enabled,
			Options: adapterConfig.Options,
		}

		adapter, err := m.factory.CreateAdapter(config)
		if err != nil {
			return fmt.Errorf("failed to create adapter %s: %w", adapterConfig.Name, err)
		}

		// Only network sinks can hang or fail mid-scrape; local sinks
		// (stdout/file) don't need breaker protection.
		if adapterConfig.Type == "betterstack" {
			breaker := NewCircuitBreaker(remoteCircuitFailureThreshold, remoteCircuitResetTimeout)
			adapter = newGuardedAdapter(adapter, breaker, m.errorHandler)
		}

		m.healthChecker.AddAdapter(adapter)
		if err := m.logger.AddAdapter(adapter); err != nil {
			return fmt.Errorf("failed to add adapter %s: %w", adapterConfig.Name, err)
		}
	}

	return nil
}

// initializeFromLegacyConfig initializes logging from legacy configuration for backward compatibility
func (m *Manager) initializeFromLegacyConfig(cfg *config.Config) error {
	// Create a stdout adapter based on legacy config
	stdoutConfig := adapters.StdoutConfig{
		Format:    cfg.Logging.Format,
		Colorized: false, // Legacy config doesn't support colorization
	}

	adapter := adapters.NewStdoutAdapter("legacy_stdout", stdoutConfig)
	if err := m.logger.AddAdapter(adapter); err != nil {
		return fmt.Errorf("failed to add legacy stdout adapter: %w", err)
	}

	return nil
}

// GetLogger returns the initialized logger
func (m *Manager) GetLogger() Logger {
	return m.logger
}

// Close closes the logging system
func (m *Manager) Close() error {
	m.healthChecker.Stop()
	if m.logger != nil {
		return m.logger.Close()
	}
	return nil
}

// Global manager instance
var globalManager *Manager

// InitializeLogging initializes the global logging system
func InitializeLogging(cfg *config.Config) error {
	globalManager = NewManager()
	return globalManager.Initialize(cfg)
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() Logger {
	if globalManager == nil {
		// Fallback to a basic logger if not initialized
		manager := NewManager()
		stdoutConfig := adapters.StdoutConfig{
			Format:    "json",
			Colorized: false,
		}
		adapter := adapters.NewStdoutAdapter("fallback_stdout", stdoutConfig)
		manager.logger.AddAdapter(adapter)
		globalManager = manager
	}
	return globalManager.GetLogger()
}

// CloseLogging closes the global logging system
func CloseLogging() error {
	if globalManager != nil {
		return globalManager.Close()
	}
	return nil
}
