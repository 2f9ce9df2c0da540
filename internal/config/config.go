package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP        HTTPConfig
	Graph       GraphConfig
	Logging     LoggingConfig
	SPARQL      SPARQLConfig
	Harvest     HarvestConfig
	Output      OutputConfig
	Store       StoreConfig
	ObjectStore ObjectStoreConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int `validate:"min=1,max=65535"`
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// GraphConfig describes connectivity to the Neo4j export target. An empty URI
// disables the export.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string `validate:"oneof=text json TEXT JSON"`
	Colored       bool
	IncludeCaller bool
}

// SPARQLConfig describes the linked-data endpoint triples are fetched from.
type SPARQLConfig struct {
	Endpoint       string        `validate:"required,url"`
	ResourcePrefix string        `validate:"required"`
	Timeout        time.Duration `validate:"gt=0"`
	RateLimit      float64       `validate:"gte=0"`
	Hops           int           `validate:"oneof=1 2"`
}

// HarvestConfig controls fetching concurrency and the reduction pipeline.
type HarvestConfig struct {
	Workers         int    `validate:"min=1"`
	OnError         string `validate:"oneof=abort skip"`
	MinCount        int    `validate:"min=0"`
	IncludePatterns []string
	ExcludePatterns []string
	Merge           bool
	MergedName      string `validate:"required"`
	MetricsTextfile string
}

// OutputConfig locates the N3 output tree: <Root>/<Category>/<graph>.n3.
type OutputConfig struct {
	Root     string `validate:"required"`
	Category string `validate:"required,excludesall=/\\,ne=.,ne=.."`
}

// StoreConfig points at the SQLite quad store. An empty path disables it.
type StoreConfig struct {
	Path string
}

// ObjectStoreConfig configures the S3-compatible upload target. An empty
// endpoint disables it.
type ObjectStoreConfig struct {
	Endpoint  string
	Bucket    string `validate:"required_with=Endpoint"`
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// OnError policies for per-term fetch failures.
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10

	defaultSPARQLEndpoint = "https://ja.dbpedia.org/sparql"
	defaultResourcePrefix = "http://ja.dbpedia.org/resource/"
	defaultSPARQLTimeout  = 30 * time.Second
	defaultRateLimit      = 5
	defaultHops           = 1
	defaultWorkers        = 4
	defaultMergedName     = "all"
	defaultOutputRoot     = "data"
	defaultOutputCategory = "terms"
)

// DefaultIncludePatterns keeps resources of the Japanese DBpedia.
var DefaultIncludePatterns = []string{
	`http://ja.dbpedia.org/resource/+`,
}

// DefaultExcludePatterns drops calendar day pages, year pages and templates,
// which link to almost everything and carry no signal.
var DefaultExcludePatterns = []string{
	`http://ja.dbpedia.org/resource/(\d{1})月(\d{1})日`,
	`http://ja.dbpedia.org/resource/(\d{1})月(\d{2})日`,
	`http://ja.dbpedia.org/resource/(\d{2})月(\d{1})日`,
	`http://ja.dbpedia.org/resource/(\d{2})月(\d{2})日`,
	`http://ja.dbpedia.org/resource/(\d{4})年`,
	`http://ja.dbpedia.org/resource/Template:+`,
}

var validate = validator.New()

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			Colored:       parseBoolWithDefault("LOG_COLOR", false),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
		SPARQL: SPARQLConfig{
			Endpoint:       valueOrDefault("SPARQL_ENDPOINT", defaultSPARQLEndpoint),
			ResourcePrefix: valueOrDefault("SPARQL_RESOURCE_PREFIX", defaultResourcePrefix),
			Timeout:        defaultSPARQLTimeout,
			Hops:           parseIntWithDefault("SPARQL_HOPS", defaultHops),
		},
		Harvest: HarvestConfig{
			Workers:         parseIntWithDefault("HARVEST_WORKERS", defaultWorkers),
			OnError:         strings.ToLower(valueOrDefault("HARVEST_ON_ERROR", OnErrorAbort)),
			MinCount:        parseIntWithDefault("HARVEST_MIN_COUNT", 0),
			IncludePatterns: parsePatterns("HARVEST_INCLUDE", DefaultIncludePatterns),
			ExcludePatterns: parsePatterns("HARVEST_EXCLUDE", DefaultExcludePatterns),
			Merge:           parseBoolWithDefault("HARVEST_MERGE", false),
			MergedName:      valueOrDefault("HARVEST_MERGED_NAME", defaultMergedName),
			MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		},
		Output: OutputConfig{
			Root:     valueOrDefault("OUTPUT_ROOT", defaultOutputRoot),
			Category: valueOrDefault("OUTPUT_CATEGORY", defaultOutputCategory),
		},
		Store: StoreConfig{
			Path: os.Getenv("STORE_PATH"),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:  os.Getenv("OBJECT_STORE_ENDPOINT"),
			Bucket:    os.Getenv("OBJECT_STORE_BUCKET"),
			AccessKey: os.Getenv("OBJECT_STORE_ACCESS_KEY"),
			SecretKey: os.Getenv("OBJECT_STORE_SECRET_KEY"),
			UseSSL:    parseBoolWithDefault("OBJECT_STORE_USE_SSL", true),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"SPARQL_TIMEOUT", &cfg.SPARQL.Timeout},
	}
	for _, d := range durations {
		if err := parseDurationInto(d.key, d.target); err != nil {
			return Config{}, err
		}
	}

	rateLimit, err := parseFloatWithDefault("SPARQL_RATE_LIMIT", defaultRateLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.SPARQL.RateLimit = rateLimit

	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", false)
	cfg.HTTP.AllowedOriginsCSV = os.Getenv("SERVER_ALLOWED_ORIGINS")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints declared on the config structs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	val, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return val, nil
}

func parseDurationInto(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = d
	return nil
}

// parsePatterns splits a whitespace separated list of regular expressions.
func parsePatterns(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return append([]string(nil), fallback...)
	}
	return strings.Fields(v)
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
