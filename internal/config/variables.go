package config

var (
	Bundle       string // Name of the bundle selected with --bundle
	StatsPath    string // Stats file or URL given on the command line
	Origin       string // Origin used to fetch assets when publicPath is relative
	GlobalConfig Config

	// Script emission
	ScriptMode  = "entry-async"
	Preload     = false
	Nonce       string
	CrossOrigin string
	IslandID    = "__LAZY_CHUNKS__"

	// Warm worker pool configuration
	MaxConcurrentWarm = 4   // Maximum concurrent warm workers (I/O bound)
	WarmQueueSize     = 400 // Size of warm processing queue buffer
	RequestsPerMinute = 600 // Rate limit shared by every warm worker

	LogLevel = "info"
)

var DefaultConfig = Config{
	Bundles:  make(map[string]BundleConfig),
	LogLevel: "info",
	Emit: EmitConfig{
		Mode:     "entry-async",
		IslandID: "__LAZY_CHUNKS__",
	},
	Warm: WarmConfig{
		Workers:           4,
		QueueSize:         400,
		RequestsPerMinute: 600,
	},
}

type Config struct {
	Bundles map[string]BundleConfig `mapstructure:"bundles" yaml:"bundles"`

	LogLevel string     `mapstructure:"log_level" yaml:"log_level"`
	Emit     EmitConfig `mapstructure:"emit" yaml:"emit"`
	Warm     WarmConfig `mapstructure:"warm" yaml:"warm"`
}

// BundleConfig names one deployed build
type BundleConfig struct {
	Stats  string `mapstructure:"stats" yaml:"stats"`
	Origin string `mapstructure:"origin" yaml:"origin,omitempty"`
}

type EmitConfig struct {
	Mode        string `mapstructure:"mode" yaml:"mode"`
	Preload     bool   `mapstructure:"preload" yaml:"preload"`
	CrossOrigin string `mapstructure:"crossorigin" yaml:"crossorigin,omitempty"`
	IslandID    string `mapstructure:"island_id" yaml:"island_id"`
}

type WarmConfig struct {
	Workers           int `mapstructure:"workers" yaml:"workers"`
	QueueSize         int `mapstructure:"queue_size" yaml:"queue_size"`
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// GetBundleStats returns the stats source for the current run: the --stats
// flag if set, otherwise the selected bundle's
func GetBundleStats() string {
	if StatsPath != "" {
		return StatsPath
	}
	if b, ok := GlobalConfig.Bundles[Bundle]; ok {
		return b.Stats
	}
	return ""
}

// GetBundleOrigin returns the asset origin for the current run
func GetBundleOrigin() string {
	if Origin != "" {
		return Origin
	}
	if b, ok := GlobalConfig.Bundles[Bundle]; ok {
		return b.Origin
	}
	return ""
}
