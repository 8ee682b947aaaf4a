package config

import "time"

// ServerConfig contains server configuration
type ServerConfig struct {
	Port                    int `yaml:"port" validate:"gte=0,lte=65535"`
	ResponseCacheTTLSeconds int `yaml:"responseCacheTTLSeconds" validate:"gte=0"`
}

// NetworkConfig describes where the network snapshot comes from
type NetworkConfig struct {
	GTFSPath                  string  `yaml:"gtfsPath"`
	SnapshotCachePath         string  `yaml:"snapshotCachePath"`
	MaxTransferDistanceMeters float64 `yaml:"maxTransferDistanceMeters" validate:"gte=0"`
	// Timezone overrides the feed's agency timezone when set
	Timezone string `yaml:"timezone" validate:"omitempty,timezone"`
}

// RoutingConfig contains search tuning parameters
type RoutingConfig struct {
	ParallelRouting                    *bool `yaml:"parallelRouting"`
	MaxNumberOfTransfers               int   `yaml:"maxNumberOfTransfers" validate:"gte=0,lte=30"`
	AdditionalTransfersLimit           int   `yaml:"additionalTransfersLimit" validate:"gte=0"`
	ScheduledTripBinarySearchThreshold int   `yaml:"scheduledTripBinarySearchThreshold" validate:"gte=0"`
	IterationDepartureStepSeconds      int   `yaml:"iterationDepartureStepSeconds" validate:"gte=0"`
	SearchWindowMinutes                int   `yaml:"searchWindowMinutes" validate:"gte=0"`
	MaxSearchWindowMinutes             int   `yaml:"maxSearchWindowMinutes" validate:"gte=0"`
	SearchTimeoutMillis                int   `yaml:"searchTimeoutMillis" validate:"gte=0"`
	BoardSlackSeconds                  int   `yaml:"boardSlackSeconds" validate:"gte=0"`
	TransferSlackSeconds               int   `yaml:"transferSlackSeconds" validate:"gte=0"`
	MaxAccessEgressDurationMinutes     int   `yaml:"maxAccessEgressDurationMinutes" validate:"gte=0"`
	MaxDirectStreetDurationMinutes     int   `yaml:"maxDirectStreetDurationMinutes" validate:"gte=0"`
	AdditionalSearchDaysFuture         int   `yaml:"additionalSearchDaysFuture" validate:"gte=0,lte=7"`
}

// TransferCacheConfig sizes the transfer index cache and its build pool
type TransferCacheConfig struct {
	MaxSize    int `yaml:"maxSize" validate:"gte=0"`
	MaxThreads int `yaml:"maxThreads" validate:"gte=0"`
}

// FlexConfig contains flex routing parameters and access/egress policies
type FlexConfig struct {
	Calculator                                     string  `yaml:"calculator" validate:"omitempty,oneof=direct street streetWithDirectFallback"`
	DirectSpeed                                    float64 `yaml:"directSpeed" validate:"gte=0"`
	DirectExtraTimeSeconds                         *int    `yaml:"directExtraTimeSeconds" validate:"omitempty,gte=0"`
	MaxTripDurationMinutes                         int     `yaml:"maxTripDurationMinutes" validate:"gte=0"`
	MaxVehicleSpeed                                float64 `yaml:"maxVehicleSpeed" validate:"gte=0"`
	StreetTimeFactor                               float64 `yaml:"streetTimeFactor" validate:"gte=0"`
	MaxTransferSeconds                             int     `yaml:"maxTransferSeconds" validate:"gte=0"`
	AllowOnlyStopReachedOnBoard                    bool    `yaml:"allowOnlyStopReachedOnBoard"`
	MinimumStreetDistanceForFlex                   float64 `yaml:"minimumStreetDistanceForFlex" validate:"gte=0"`
	MaximumStreetDistanceForWalkingIfFlexAvailable float64 `yaml:"maximumStreetDistanceForWalkingIfFlexAvailable" validate:"gte=0"`
	RemoveWalkingIfFlexIsFaster                    bool    `yaml:"removeWalkingIfFlexIsFaster"`
	PathCacheSize                                  int     `yaml:"pathCacheSize" validate:"gte=0"`
}

// TransvisionConfig holds the scoring parameters of the transvision selection
type TransvisionConfig struct {
	MinimumTaxiSecondGroups          int     `yaml:"minimumTaxiSecondGroups" validate:"gte=0"`
	MinimumTaxiTransferScore         float64 `yaml:"minimumTaxiTransferScore" validate:"gte=0"`
	MinimumTransfersSecondGroups     int     `yaml:"minimumTransfersSecondGroups" validate:"gte=0"`
	MinimumTransfersTaxiGroups       int     `yaml:"minimumTransfersTaxiGroups" validate:"gte=0"`
	FasterTransfersScore             float64 `yaml:"fasterTransfersScore" validate:"gte=0"`
	MinimumSecondsForFasterItinerary int     `yaml:"minimumSecondsForFasterItinerary" validate:"gte=0"`
	MaximumScoreFasterItinerary      float64 `yaml:"maximumScoreFasterItinerary" validate:"gte=0"`
}

// ItineraryFilterConfig parameterizes the itinerary filter chain
type ItineraryFilterConfig struct {
	Debug                               bool               `yaml:"debug"`
	NumItineraries                      int                `yaml:"numItineraries" validate:"gte=0"`
	FlexToScheduledTransitDistanceRatio float64            `yaml:"flexToScheduledTransitDistanceRatio" validate:"gte=0"`
	FlexToScheduledTransitDurationRatio float64            `yaml:"flexToScheduledTransitDurationRatio" validate:"gte=0"`
	RemoveTransitIfStreetOnlyIsBetter   *bool              `yaml:"removeTransitIfStreetOnlyIsBetter"`
	RequireScheduledTransit             bool               `yaml:"requireScheduledTransit"`
	Transvision                         *TransvisionConfig `yaml:"transvision"`
}

// RealtimeConfig contains GTFS-Realtime feed configuration
type RealtimeConfig struct {
	TripUpdatesURL string `yaml:"tripUpdatesURL" validate:"omitempty,url"`
	AlertsURL      string `yaml:"alertsURL" validate:"omitempty,url"`
	TimeoutMS      int    `yaml:"timeoutMS" validate:"gte=0"`
	// RefreshSeconds reloads the feeds periodically in serve mode; 0 loads them once
	RefreshSeconds int `yaml:"refreshSeconds" validate:"gte=0"`
}

// QueryLogConfig enables the sqlite query log when Path is set
type QueryLogConfig struct {
	Path string `yaml:"path"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server           ServerConfig          `yaml:"server"`
	Network          NetworkConfig         `yaml:"network"`
	Routing          RoutingConfig         `yaml:"routing"`
	TransferCache    TransferCacheConfig   `yaml:"transferCache"`
	Flex             FlexConfig            `yaml:"flex"`
	ItineraryFilters ItineraryFilterConfig `yaml:"itineraryFilters"`
	Realtime         RealtimeConfig        `yaml:"realtime"`
	QueryLog         QueryLogConfig        `yaml:"queryLog"`
}

// IsParallelRouting reports whether sub-searches run concurrently.
func (r RoutingConfig) IsParallelRouting() bool {
	return r.ParallelRouting == nil || *r.ParallelRouting
}

// SearchTimeout is the wall-clock budget of one routing request.
func (r RoutingConfig) SearchTimeout() time.Duration {
	return time.Duration(r.SearchTimeoutMillis) * time.Millisecond
}

// DefaultSearchWindow is used when a request does not set one.
func (r RoutingConfig) DefaultSearchWindow() time.Duration {
	return time.Duration(r.SearchWindowMinutes) * time.Minute
}

// MaxSearchWindow caps the search window of any request.
func (r RoutingConfig) MaxSearchWindow() time.Duration {
	return time.Duration(r.MaxSearchWindowMinutes) * time.Minute
}

// MaxAccessEgressDuration bounds the street search around origin and destination.
func (r RoutingConfig) MaxAccessEgressDuration() time.Duration {
	return time.Duration(r.MaxAccessEgressDurationMinutes) * time.Minute
}

// MaxDirectStreetDuration bounds the direct street search.
func (r RoutingConfig) MaxDirectStreetDuration() time.Duration {
	return time.Duration(r.MaxDirectStreetDurationMinutes) * time.Minute
}

// RefreshInterval is how often the server reloads the realtime feeds.
func (r RealtimeConfig) RefreshInterval() time.Duration {
	return time.Duration(r.RefreshSeconds) * time.Second
}

// Timeout bounds one feed fetch.
func (r RealtimeConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// MaxTripDuration bounds a single flex ride.
func (f FlexConfig) MaxTripDuration() time.Duration {
	return time.Duration(f.MaxTripDurationMinutes) * time.Minute
}

// ExtraTime is the fixed boarding time added by the direct flex calculator.
func (f FlexConfig) ExtraTime() int {
	if f.DirectExtraTimeSeconds == nil {
		return DefaultDirectExtraTimeSeconds
	}
	return *f.DirectExtraTimeSeconds
}

// IsRemoveTransitIfStreetOnlyIsBetter defaults to true when unset.
func (f ItineraryFilterConfig) IsRemoveTransitIfStreetOnlyIsBetter() bool {
	return f.RemoveTransitIfStreetOnlyIsBetter == nil || *f.RemoveTransitIfStreetOnlyIsBetter
}
