package common

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ValentinKolb/kvkit/lib/registry"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/ValentinKolb/kvkit/lib/stream"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "kvkit"

// --------------------------------------------------------------------------
// Configuration structs
// --------------------------------------------------------------------------

// SourceConfig selects where the bulk data comes from.
type SourceConfig struct {
	Type      string `mapstructure:"type"` // file or object
	Path      string `mapstructure:"path"` // file path
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Object    string `mapstructure:"object"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	Secure    bool   `mapstructure:"secure"`
}

// LoaderConfig describes the load pipeline.
type LoaderConfig struct {
	Strategy      string               `mapstructure:"strategy"` // inplace or replace
	Source        SourceConfig         `mapstructure:"source"`
	Parser        registry.TypeOptions `mapstructure:"parser"`
	Format        string               `mapstructure:"format"` // lines or bson
	SkipDirtyRows bool                 `mapstructure:"skip_dirty_rows"`
	BufferMinSize int                  `mapstructure:"buffer_min_size"`
	BufferMaxSize int                  `mapstructure:"buffer_max_size"`
	LoadOnStart   bool                 `mapstructure:"load_on_start"`
}

// TriggerConfig selects how changes of the source are detected.
type TriggerConfig struct {
	Type     string        `mapstructure:"type"` // file, poll or none
	Debounce time.Duration `mapstructure:"debounce"`
	Interval time.Duration `mapstructure:"interval"`
}

// LogConfig configures InitLoggers.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	Endpoint string `mapstructure:"endpoint"` // listen address, empty disables it
}

// Config is the complete configuration of the command line tools.
type Config struct {
	Store   registry.TypeOptions `mapstructure:"store"`
	Loader  LoaderConfig         `mapstructure:"loader"`
	Trigger TriggerConfig        `mapstructure:"trigger"`
	Log     LogConfig            `mapstructure:"log"`
	Metrics MetricsConfig        `mapstructure:"metrics"`
}

// defaults are registered with viper so every key can be overridden from the
// environment
var defaults = map[string]any{
	"store.type":               registry.ShardedStore,
	"loader.strategy":          "inplace",
	"loader.source.type":       "file",
	"loader.source.path":       "",
	"loader.source.endpoint":   "",
	"loader.source.bucket":     "",
	"loader.source.object":     "",
	"loader.source.access_key": "",
	"loader.source.secret_key": "",
	"loader.source.region":     "",
	"loader.source.secure":     true,
	"loader.parser.type":       registry.LineParser,
	"loader.format":            "lines",
	"loader.skip_dirty_rows":   true,
	"loader.buffer_min_size":   stream.DefaultBufferMinSize,
	"loader.buffer_max_size":   stream.DefaultBufferMaxSize,
	"loader.load_on_start":     true,
	"trigger.type":             "file",
	"trigger.debounce":         "100ms",
	"trigger.interval":         "5s",
	"log.level":                "info",
	"log.format":               "console",
	"metrics.endpoint":         "",
}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// InitViper prepares v for LoadConfig: .env files, environment binding and
// defaults. Command line flags can be bound afterwards.
func InitViper(v *viper.Viper) {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// LoadConfig reads the optional config file into v and decodes the result.
// Environment variables (KVKIT_LOADER_SOURCE_PATH, ...) win over the file.
func LoadConfig(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, store.WrapError(store.CodeIO, err, "read config "+file)
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, store.WrapError(store.CodeOther, err, "decode config")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks the enumerations and required fields.
func (c *Config) Validate() error {
	check := func(field, value string, allowed ...string) error {
		for _, a := range allowed {
			if strings.EqualFold(value, a) {
				return nil
			}
		}
		return store.Errorf(store.CodeOther, "invalid %s %q, must be one of %s", field, value, strings.Join(allowed, ", "))
	}

	if c.Store.Type == "" {
		return store.NewError(store.CodeOther, "store.type is required")
	}
	if err := check("loader.strategy", c.Loader.Strategy, "inplace", "replace"); err != nil {
		return err
	}
	if err := check("loader.source.type", c.Loader.Source.Type, "file", "object"); err != nil {
		return err
	}
	if err := check("loader.format", c.Loader.Format, "lines", "bson"); err != nil {
		return err
	}
	if err := check("trigger.type", c.Trigger.Type, "file", "poll", "none"); err != nil {
		return err
	}
	if strings.EqualFold(c.Loader.Source.Type, "object") && (c.Loader.Source.Bucket == "" || c.Loader.Source.Object == "") {
		return store.NewError(store.CodeOther, "object sources need loader.source.bucket and loader.source.object")
	}
	if strings.EqualFold(c.Loader.Source.Type, "object") && strings.EqualFold(c.Trigger.Type, "file") {
		return store.NewError(store.CodeOther, "object sources can not be watched with a file trigger, use trigger.type poll")
	}
	if _, err := parseLogLevel(c.Log.Level); err != nil {
		return store.WrapError(store.CodeOther, err, "")
	}
	return store.WrapError(store.CodeOther, checkLogFormat(c.Log.Format), "")
}

// --------------------------------------------------------------------------
// Printing
// --------------------------------------------------------------------------

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addOptions := func(opts map[string]any) {
		keys := make([]string, 0, len(opts))
		for k := range opts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if strings.Contains(k, "password") || strings.Contains(k, "secret") {
				addField(k, "***")
				continue
			}
			addField(k, fmt.Sprint(opts[k]))
		}
	}

	addSection("Store")
	addField("Type", c.Store.Type)
	addOptions(c.Store.Options)

	addSection("Loader")
	addField("Strategy", c.Loader.Strategy)
	addField("Format", c.Loader.Format)
	addField("Parser", c.Loader.Parser.Type)
	addOptions(c.Loader.Parser.Options)
	addField("Skip Dirty Rows", fmt.Sprintf("%t", c.Loader.SkipDirtyRows))
	addField("Buffer (min/max)", fmt.Sprintf("%d / %d bytes", c.Loader.BufferMinSize, c.Loader.BufferMaxSize))
	addField("Load On Start", fmt.Sprintf("%t", c.Loader.LoadOnStart))

	addSection("Source")
	addField("Type", c.Loader.Source.Type)
	if strings.EqualFold(c.Loader.Source.Type, "object") {
		addField("Endpoint", c.Loader.Source.Endpoint)
		addField("Object", c.Loader.Source.Bucket+"/"+c.Loader.Source.Object)
		addField("Secure", fmt.Sprintf("%t", c.Loader.Source.Secure))
	} else {
		addField("Path", c.Loader.Source.Path)
	}

	addSection("Trigger")
	addField("Type", c.Trigger.Type)
	switch strings.ToLower(c.Trigger.Type) {
	case "file":
		addField("Debounce", c.Trigger.Debounce.String())
	case "poll":
		addField("Interval", c.Trigger.Interval.String())
	}

	addSection("Logging")
	addField("Log Level", c.Log.Level)
	addField("Log Format", c.Log.Format)

	if c.Metrics.Endpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.Metrics.Endpoint)
	}

	return sb.String()
}
