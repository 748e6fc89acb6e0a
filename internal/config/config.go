package config

import (
	stderrors "errors"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/vango-dev/routecheck/internal/errors"
	"github.com/vango-dev/routecheck/internal/validate"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "routecheck.json"

// Default configuration values.
const (
	DefaultRoutes      = "routes.yaml"
	DefaultSource      = "."
	DefaultFormat      = "text"
	DefaultFailOn      = "error"
	DefaultConcurrency = 1
	DefaultHost        = "localhost"
	DefaultPort        = 8085
	DefaultNamespace   = "routecheck"
	DefaultPrefix      = "reports/"
)

// Config represents the routecheck.json configuration file.
type Config struct {
	// Routes is the route table file, relative to the config file.
	Routes string `json:"routes,omitempty"`

	// Sources are Go source directories scanned for handler signatures.
	Sources []string `json:"sources,omitempty" validate:"dive,required"`

	// Injected lists extra parameter types supplied by the framework,
	// e.g. "*app.Ctx".
	Injected []string `json:"injected,omitempty" validate:"dive,required"`

	// TextAliases are declared types treated as equal to str.
	TextAliases []string `json:"textAliases,omitempty" validate:"dive,required"`

	// Converters are custom placeholder converters.
	Converters []ConverterConfig `json:"converters,omitempty" validate:"dive"`

	// Silenced maps handler globs to comma-separated diagnostic codes.
	Silenced map[string]string `json:"silenced,omitempty" validate:"dive,keys,required,endkeys,required"`

	// Format is the default output format.
	Format string `json:"format,omitempty" validate:"omitempty,oneof=text compact json github"`

	// FailOn is the lowest level that fails a check.
	FailOn string `json:"failOn,omitempty" validate:"omitempty,oneof=error warning never"`

	// Concurrency is the number of endpoints checked in parallel.
	Concurrency int `json:"concurrency,omitempty" validate:"gte=0,lte=256"`

	// Serve configures the check server.
	Serve ServeConfig `json:"serve"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `json:"metrics"`

	// Publish configures report uploads.
	Publish PublishConfig `json:"publish"`

	// configPath is the path to the config file (not serialized).
	configPath string
}

// ConverterConfig declares a custom converter.
type ConverterConfig struct {
	Name   string `json:"name" validate:"required,identifier"`
	Type   string `json:"type" validate:"required"`
	Regexp string `json:"regexp,omitempty"`
}

// ServeConfig contains check server settings.
type ServeConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty" validate:"gte=0,lte=65535"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty" validate:"omitempty,identifier"`
}

// PublishConfig contains report upload settings. Reports go to S3 when
// Bucket is set, or to a local directory when Dir is set.
type PublishConfig struct {
	Dir    string `json:"dir,omitempty" validate:"excluded_with=Bucket"`
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty" validate:"required_with=Bucket"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Routes:      DefaultRoutes,
		Sources:     []string{DefaultSource},
		Format:      DefaultFormat,
		FailOn:      DefaultFailOn,
		Concurrency: DefaultConcurrency,
		Serve: ServeConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
		Publish: PublishConfig{
			Prefix: DefaultPrefix,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for routecheck.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithFile(path).
				WithSuggestion("Create " + ConfigFileName + " or pass --routes and --src")
		}
		return nil, errors.New(errors.CodeConfigInvalid).WithFile(path).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).WithFile(path).Wrap(err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	cfg.configPath = absPath
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to its original path.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New(errors.CodeConfigInvalid).WithDetail("Config has no path; use SaveTo.")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// Add trailing newline
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	c.configPath = path
	return nil
}

// Path returns the path to the config file.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return "."
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	if c.Routes == "" {
		c.Routes = DefaultRoutes
	}
	if len(c.Sources) == 0 {
		c.Sources = []string{DefaultSource}
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.FailOn == "" {
		c.FailOn = DefaultFailOn
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Serve.Host == "" {
		c.Serve.Host = DefaultHost
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultPort
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Publish.Prefix == "" {
		c.Publish.Prefix = DefaultPrefix
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verr *validate.Error
		if !stderrors.As(err, &verr) {
			return errors.New(errors.CodeConfigValue).WithFile(c.configPath).Wrap(err)
		}
		first := verr.Fields[0]
		return errors.New(errors.CodeConfigValue).
			WithFile(c.configPath).
			WithDetail(verr.Error()).
			WithSuggestion("Fix \"" + first.Path + "\" in " + ConfigFileName)
	}

	seen := make(map[string]bool, len(c.Converters))
	for _, conv := range c.Converters {
		if seen[conv.Name] {
			return errors.New(errors.CodeConfigValue).
				WithFile(c.configPath).
				WithDetail("Converter \"" + conv.Name + "\" is declared twice.")
		}
		seen[conv.Name] = true
	}

	return nil
}

// RoutesPath returns the absolute path to the route table.
func (c *Config) RoutesPath() string {
	return c.resolvePath(c.Routes)
}

// SourcePaths returns the absolute paths of the source directories.
func (c *Config) SourcePaths() []string {
	paths := make([]string, len(c.Sources))
	for i, src := range c.Sources {
		paths[i] = c.resolvePath(src)
	}
	return paths
}

// Address returns the check server listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Serve.Host, strconv.Itoa(c.Serve.Port))
}

// SilencedGlobs returns the silenced handler globs, sorted.
func (c *Config) SilencedGlobs() []string {
	globs := make([]string, 0, len(c.Silenced))
	for glob := range c.Silenced {
		globs = append(globs, glob)
	}
	sort.Strings(globs)
	return globs
}

// PublishEnabled reports whether report uploads are configured.
func (c *Config) PublishEnabled() bool {
	return c.Publish.Bucket != "" || c.Publish.Dir != ""
}

// PublishDir returns the absolute report directory, or "".
func (c *Config) PublishDir() string {
	return c.resolvePath(c.Publish.Dir)
}

func (c *Config) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// Exists checks if a routecheck.json exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot searches upward from the given directory for routecheck.json.
// Returns the directory containing routecheck.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", errors.New(errors.CodeConfigNotFound).
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory.")
		}
		dir = parent
	}
}

// LoadFromWorkingDir finds and loads config from the current working directory.
// It searches upward for routecheck.json.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
