package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"growth-charts/internal/generator"
	"growth-charts/internal/render"
)

// Config holds the whole server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Generator GeneratorConfig `yaml:"generator"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Cache     CacheConfig     `yaml:"cache"`
	Render    RenderConfig    `yaml:"render"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Listen        string   `yaml:"listen"`
	Path          string   `yaml:"path"`
	ReadTimeout   Duration `yaml:"read_timeout"`
	WriteTimeout  Duration `yaml:"write_timeout"`
	Page          bool     `yaml:"page"`           // wrap results in the form page
	GenerateOnGet bool     `yaml:"generate_on_get"` // GET runs the program with an empty identifier
}

// GeneratorConfig configures the external chart program
type GeneratorConfig struct {
	Interpreter    string   `yaml:"interpreter"` // empty: python3/python from PATH
	Script         string   `yaml:"script"`
	WorkDir        string   `yaml:"work_dir"`
	ArtifactName   string   `yaml:"artifact_name"`
	Mode           string   `yaml:"mode"` // shared, scoped, stdout
	Timeout        Duration `yaml:"timeout"`
	MaxConcurrent  int      `yaml:"max_concurrent"`
	MaxOutputBytes int      `yaml:"max_output_bytes"`
	Env            []string `yaml:"env"`
}

// WorkspaceConfig configures request-scoped artifact directories
type WorkspaceConfig struct {
	BaseDir       string   `yaml:"base_dir"`
	SweepInterval Duration `yaml:"sweep_interval"`
	MaxAge        Duration `yaml:"max_age"`
}

// CacheConfig configures the artifact cache. A zero TTL disables it.
type CacheConfig struct {
	TTL Duration `yaml:"ttl"`
}

// RenderConfig configures the response markup
type RenderConfig struct {
	IframeHeight      string `yaml:"iframe_height"`
	ProcessErrorText  string `yaml:"process_error_text"`
	ArtifactErrorText string `yaml:"artifact_error_text"`
	TimeoutErrorText  string `yaml:"timeout_error_text"`
	IdentifierPattern string `yaml:"identifier_pattern"`
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level      string `yaml:"level"`
	TimeLayout string `yaml:"time_layout"`
	Colored    bool   `yaml:"colored"`
	JSON       bool   `yaml:"json"`
}

// Duration is a time.Duration read from strings such as "90s", "2m" or "1d"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ParseDuration accepts Go durations plus day and week units. Empty and "0"
// mean zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:        ":8080",
			Path:          "/",
			ReadTimeout:   Duration(30 * time.Second),
			WriteTimeout:  Duration(5 * time.Minute),
			GenerateOnGet: true,
		},
		Generator: GeneratorConfig{
			Script:        generator.DefaultScript,
			WorkDir:       ".",
			ArtifactName:  generator.DefaultArtifactName,
			Mode:          string(generator.ModeScoped),
			Timeout:       Duration(2 * time.Minute),
			MaxConcurrent: 4,
		},
		Workspace: WorkspaceConfig{
			SweepInterval: Duration(10 * time.Minute),
			MaxAge:        Duration(time.Hour),
		},
		Render: RenderConfig{
			IframeHeight:      render.DefaultIframeHeight,
			ProcessErrorText:  "Error al ejecutar el script de Python.",
			ArtifactErrorText: "Error al leer el gráfico generado.",
			TimeoutErrorText:  "El script de Python tardó demasiado en responder.",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Colored: true,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overlays CHART_* environment variables
func (c *Config) applyEnvOverrides() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = Duration(d)
		}
	}

	setString("CHART_LISTEN", &c.Server.Listen)
	setBool("CHART_PAGE", &c.Server.Page)
	setBool("CHART_GENERATE_ON_GET", &c.Server.GenerateOnGet)
	setString("CHART_INTERPRETER", &c.Generator.Interpreter)
	setString("CHART_SCRIPT", &c.Generator.Script)
	setString("CHART_WORK_DIR", &c.Generator.WorkDir)
	setString("CHART_MODE", &c.Generator.Mode)
	setDuration("CHART_TIMEOUT", &c.Generator.Timeout)
	setInt("CHART_MAX_CONCURRENT", &c.Generator.MaxConcurrent)
	setString("CHART_WORKSPACE_DIR", &c.Workspace.BaseDir)
	setDuration("CHART_CACHE_TTL", &c.Cache.TTL)
	setString("CHART_IFRAME_HEIGHT", &c.Render.IframeHeight)
	setString("CHART_IDENTIFIER_PATTERN", &c.Render.IdentifierPattern)
	setString("CHART_LOG_LEVEL", &c.Logging.Level)
	setBool("CHART_LOG_COLOR", &c.Logging.Colored)
	setBool("CHART_LOG_JSON", &c.Logging.JSON)

	return errors.Join(errs...)
}

// Validate reports every problem with the configuration at once
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen must not be empty"))
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		errs = append(errs, fmt.Errorf("server.path %q must start with /", c.Server.Path))
	}
	if c.Generator.Script == "" {
		errs = append(errs, errors.New("generator.script must not be empty"))
	}
	if !lo.Contains(generator.Modes, generator.Mode(c.Generator.Mode)) {
		errs = append(errs, fmt.Errorf("generator.mode %q must be one of %v", c.Generator.Mode, generator.Modes))
	}
	if c.Generator.Mode == string(generator.ModeShared) && c.Generator.ArtifactName == "" {
		errs = append(errs, errors.New("generator.artifact_name is required in shared mode"))
	}
	if c.Generator.MaxConcurrent < 0 {
		errs = append(errs, errors.New("generator.max_concurrent must not be negative"))
	}
	for _, kv := range c.Generator.Env {
		if !strings.Contains(kv, "=") {
			errs = append(errs, fmt.Errorf("generator.env entry %q must be KEY=VALUE", kv))
		}
	}
	if c.Render.IframeHeight == "" {
		errs = append(errs, errors.New("render.iframe_height must not be empty"))
	}
	if c.Render.IdentifierPattern != "" {
		if _, err := regexp.Compile(c.Render.IdentifierPattern); err != nil {
			errs = append(errs, fmt.Errorf("render.identifier_pattern: %w", err))
		}
	}
	if lo.SomeBy([]Duration{c.Server.ReadTimeout, c.Server.WriteTimeout, c.Generator.Timeout, c.Cache.TTL}, func(d Duration) bool { return d < 0 }) {
		errs = append(errs, errors.New("durations must not be negative"))
	}

	return errors.Join(errs...)
}

// GeneratorSettings converts the file settings into a generator.Config
func (c *Config) GeneratorSettings() generator.Config {
	return generator.Config{
		Interpreter:    c.Generator.Interpreter,
		Script:         c.Generator.Script,
		WorkDir:        c.Generator.WorkDir,
		ArtifactName:   c.Generator.ArtifactName,
		Mode:           generator.Mode(c.Generator.Mode),
		Timeout:        c.Generator.Timeout.Std(),
		Env:            c.Generator.Env,
		MaxConcurrent:  c.Generator.MaxConcurrent,
		MaxOutputBytes: c.Generator.MaxOutputBytes,
	}
}
