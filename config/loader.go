package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults applied to fields left empty in config.yml.
const (
	DefaultPort                          = 16180
	DefaultResponseCacheTTLSeconds       = 30
	DefaultMaxTransferDistanceMeters     = 500
	DefaultMaxNumberOfTransfers          = 12
	DefaultAdditionalTransfersLimit      = 5
	DefaultBinarySearchThreshold         = 50
	DefaultIterationDepartureStepSeconds = 60
	DefaultSearchWindowMinutes           = 40
	DefaultMaxSearchWindowMinutes        = 180
	DefaultSearchTimeoutMillis           = 5000
	DefaultTransferSlackSeconds          = 60
	DefaultMaxAccessEgressMinutes        = 45
	DefaultMaxDirectStreetMinutes        = 240
	DefaultAdditionalSearchDaysFuture    = 1
	DefaultTransferCacheMaxSize          = 25
	DefaultFlexCalculator                = "direct"
	DefaultDirectSpeed                   = 8.0
	DefaultDirectExtraTimeSeconds        = 300
	DefaultMaxFlexTripMinutes            = 45
	DefaultMaxVehicleSpeed               = 29
	DefaultStreetTimeFactor              = 1.25
	DefaultFlexMaxTransferSeconds        = 300
	DefaultFlexPathCacheSize             = 64
	DefaultNumItineraries                = 50
	DefaultRealtimeTimeoutMS             = 10000
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from config.yml
func LoadAppConfig() error {
	paths := []string{"config.yml", "./config/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	cfg, err := LoadAppConfigFromBytes(data)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

// LoadAppConfigFromFile reads a single config file without touching the global Config.
func LoadAppConfigFromFile(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, err
	}
	return LoadAppConfigFromBytes(data)
}

// LoadAppConfigFromBytes unmarshals, validates and fills defaults.
func LoadAppConfigFromBytes(data []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	if err := validate(cfg); err != nil {
		return AppConfig{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() AppConfig {
	var cfg AppConfig
	cfg.applyDefaults()
	return cfg
}

func validate(cfg AppConfig) error {
	v := validator.New()
	sections := []any{
		cfg.Server, cfg.Network, cfg.Routing, cfg.TransferCache,
		cfg.Flex, cfg.ItineraryFilters, cfg.Realtime,
	}
	for _, s := range sections {
		if err := v.Struct(s); err != nil {
			return err
		}
	}
	// transvision is optional; if present validate it
	if cfg.ItineraryFilters.Transvision != nil {
		if err := v.Struct(cfg.ItineraryFilters.Transvision); err != nil {
			return err
		}
	}
	if cfg.Routing.MaxSearchWindowMinutes > 0 && cfg.Routing.SearchWindowMinutes > cfg.Routing.MaxSearchWindowMinutes {
		return fmt.Errorf("routing.searchWindowMinutes (%d) exceeds routing.maxSearchWindowMinutes (%d)",
			cfg.Routing.SearchWindowMinutes, cfg.Routing.MaxSearchWindowMinutes)
	}
	return nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ResponseCacheTTLSeconds == 0 {
		c.Server.ResponseCacheTTLSeconds = DefaultResponseCacheTTLSeconds
	}

	if c.Network.MaxTransferDistanceMeters == 0 {
		c.Network.MaxTransferDistanceMeters = DefaultMaxTransferDistanceMeters
	}

	r := &c.Routing
	if r.MaxNumberOfTransfers == 0 {
		r.MaxNumberOfTransfers = DefaultMaxNumberOfTransfers
	}
	if r.AdditionalTransfersLimit == 0 {
		r.AdditionalTransfersLimit = DefaultAdditionalTransfersLimit
	}
	if r.ScheduledTripBinarySearchThreshold == 0 {
		r.ScheduledTripBinarySearchThreshold = DefaultBinarySearchThreshold
	}
	if r.IterationDepartureStepSeconds == 0 {
		r.IterationDepartureStepSeconds = DefaultIterationDepartureStepSeconds
	}
	if r.SearchWindowMinutes == 0 {
		r.SearchWindowMinutes = DefaultSearchWindowMinutes
	}
	if r.MaxSearchWindowMinutes == 0 {
		r.MaxSearchWindowMinutes = DefaultMaxSearchWindowMinutes
	}
	if r.SearchTimeoutMillis == 0 {
		r.SearchTimeoutMillis = DefaultSearchTimeoutMillis
	}
	if r.TransferSlackSeconds == 0 {
		r.TransferSlackSeconds = DefaultTransferSlackSeconds
	}
	if r.MaxAccessEgressDurationMinutes == 0 {
		r.MaxAccessEgressDurationMinutes = DefaultMaxAccessEgressMinutes
	}
	if r.MaxDirectStreetDurationMinutes == 0 {
		r.MaxDirectStreetDurationMinutes = DefaultMaxDirectStreetMinutes
	}
	if r.AdditionalSearchDaysFuture == 0 {
		r.AdditionalSearchDaysFuture = DefaultAdditionalSearchDaysFuture
	}

	if c.TransferCache.MaxSize == 0 {
		c.TransferCache.MaxSize = DefaultTransferCacheMaxSize
	}
	if c.TransferCache.MaxThreads == 0 {
		c.TransferCache.MaxThreads = max(runtime.NumCPU()-1, 1)
	}

	f := &c.Flex
	if f.Calculator == "" {
		f.Calculator = DefaultFlexCalculator
	}
	if f.DirectSpeed == 0 {
		f.DirectSpeed = DefaultDirectSpeed
	}
	if f.MaxTripDurationMinutes == 0 {
		f.MaxTripDurationMinutes = DefaultMaxFlexTripMinutes
	}
	if f.MaxVehicleSpeed == 0 {
		f.MaxVehicleSpeed = DefaultMaxVehicleSpeed
	}
	if f.StreetTimeFactor == 0 {
		f.StreetTimeFactor = DefaultStreetTimeFactor
	}
	if f.MaxTransferSeconds == 0 {
		f.MaxTransferSeconds = DefaultFlexMaxTransferSeconds
	}
	if f.PathCacheSize == 0 {
		f.PathCacheSize = DefaultFlexPathCacheSize
	}

	if c.ItineraryFilters.NumItineraries == 0 {
		c.ItineraryFilters.NumItineraries = DefaultNumItineraries
	}

	if c.Realtime.TimeoutMS == 0 {
		c.Realtime.TimeoutMS = DefaultRealtimeTimeoutMS
	}
}
