package metrics

// Config controls the Prometheus registry and the optional scrape endpoint.
type Config struct {
	// Address is the listen address of the /metrics server, e.g. ":9090".
	// Empty disables the HTTP server; metrics are still collected.
	Address string `yaml:"address" mapstructure:"address" envconfig:"METRICS_ADDRESS"`

	// ServiceName is added to every metric as the constant "service" label.
	ServiceName string `yaml:"service_name" mapstructure:"service_name" envconfig:"METRICS_SERVICE_NAME"`

	// EnableDefaultCollectors registers Go runtime, process and build info collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" mapstructure:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS"`
}
