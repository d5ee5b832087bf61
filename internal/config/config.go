// Package config loads the binserve configuration file using Viper, with
// environment variable overrides under the BINSERVE_ prefix and flag
// overrides for the listen address and TLS key pair.
//
// Scalar sections (server, static, config) are read through Viper. The map
// sections whose keys are user data (routes, insert_headers, template
// partials and variables, error pages) are decoded with yaml.v3 so their keys
// keep their exact case and may contain dots.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "binserve.json"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BINSERVE"

const keyDelimiter = "::"

type Config struct {
	Server        ServerConfig      `mapstructure:"server"`
	Routes        map[string]string `mapstructure:"-"`
	Static        StaticConfig      `mapstructure:"static"`
	Template      TemplateConfig    `mapstructure:"template"`
	Toggles       Toggles           `mapstructure:"config"`
	InsertHeaders map[string]string `mapstructure:"-"`

	// File is the absolute path the configuration was read from.
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Host string    `mapstructure:"host"`
	TLS  TLSConfig `mapstructure:"tls"`
}

type TLSConfig struct {
	Host   string `mapstructure:"host"`
	Enable bool   `mapstructure:"enable"`
	Key    string `mapstructure:"key"`
	Cert   string `mapstructure:"cert"`
}

type StaticConfig struct {
	Directory  string            `mapstructure:"directory"`
	ServedFrom string            `mapstructure:"served_from"`
	ErrorPages map[string]string `mapstructure:"-"`
}

type TemplateConfig struct {
	Partials  map[string]string      `mapstructure:"-"`
	Variables map[string]interface{} `mapstructure:"-"`
}

// Toggles are the feature switches of the "config" section.
type Toggles struct {
	EnableHotReload        bool   `mapstructure:"enable_hot_reload"`
	FastMemCache           bool   `mapstructure:"fast_mem_cache"`
	EnableCacheControl     bool   `mapstructure:"enable_cache_control"`
	EnableDirectoryListing bool   `mapstructure:"enable_directory_listing"`
	MinifyHTML             bool   `mapstructure:"minify_html"`
	FollowSymlinks         bool   `mapstructure:"follow_symlinks"`
	EnableLogging          bool   `mapstructure:"enable_logging"`
	EnableLiveReload       bool   `mapstructure:"enable_live_reload"`
	MaxConnections         int    `mapstructure:"max_connections"`
	LogLevel               string `mapstructure:"log_level"`
	LogFormat              string `mapstructure:"log_format"`
	LogFile                string `mapstructure:"log_file"`
}

// Overrides carries command line values that win over the file and the
// environment. Empty fields are ignored.
type Overrides struct {
	Host    string
	TLSKey  string
	TLSCert string
}

// userSections mirrors the parts of the file decoded outside Viper.
type userSections struct {
	Routes        map[string]string `yaml:"routes"`
	InsertHeaders map[string]string `yaml:"insert_headers"`
	Static        struct {
		ErrorPages map[string]string `yaml:"error_pages"`
	} `yaml:"static"`
	Template struct {
		Partials  map[string]string      `yaml:"partials"`
		Variables map[string]interface{} `yaml:"variables"`
	} `yaml:"template"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server::host", "")
	v.SetDefault("server::tls::host", "")
	v.SetDefault("server::tls::enable", false)
	v.SetDefault("server::tls::key", "")
	v.SetDefault("server::tls::cert", "")
	v.SetDefault("static::directory", "")
	v.SetDefault("static::served_from", "")
	v.SetDefault("config::enable_hot_reload", true)
	v.SetDefault("config::fast_mem_cache", true)
	v.SetDefault("config::enable_cache_control", true)
	v.SetDefault("config::enable_directory_listing", false)
	v.SetDefault("config::minify_html", false)
	v.SetDefault("config::follow_symlinks", false)
	v.SetDefault("config::enable_logging", false)
	v.SetDefault("config::enable_live_reload", false)
	v.SetDefault("config::max_connections", 500)
	v.SetDefault("config::log_level", "info")
	v.SetDefault("config::log_format", "console")
	v.SetDefault("config::log_file", "")
}

// Load reads the configuration file at path, applies environment and flag
// overrides, and validates the result. Every call returns a fresh snapshot.
func Load(path string, overrides Overrides) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	setDefaults(v)
	v.SetConfigFile(abs)
	if ext := strings.TrimPrefix(filepath.Ext(abs), "."); ext == "" {
		v.SetConfigType("json")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if overrides.Host != "" {
		v.Set("server::host", overrides.Host)
	}
	if overrides.TLSKey != "" {
		v.Set("server::tls::key", overrides.TLSKey)
	}
	if overrides.TLSCert != "" {
		v.Set("server::tls::cert", overrides.TLSCert)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", path, err)
	}

	var sections userSections
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("decoding config sections %s: %w", path, err)
	}

	config.Routes = sections.Routes
	config.InsertHeaders = sections.InsertHeaders
	config.Static.ErrorPages = sections.Static.ErrorPages
	config.Template.Partials = sections.Template.Partials
	config.Template.Variables = sections.Template.Variables
	config.File = abs

	config.Server.Host = withDefaultPort(config.Server.Host, "80")
	if config.Server.TLS.Enable {
		config.Server.TLS.Host = withDefaultPort(config.Server.TLS.Host, "443")
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func withDefaultPort(host, port string) string {
	if host == "" {
		return host
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), port)
}

// RouteURLs returns the configured route URLs in a stable order.
func (c *Config) RouteURLs() []string {
	urls := make([]string, 0, len(c.Routes))
	for url := range c.Routes {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// NotFoundPage returns the user supplied 404 page, if any.
func (c *Config) NotFoundPage() (string, bool) {
	page, ok := c.Static.ErrorPages["404"]
	return page, ok && page != ""
}

// PartialFiles returns the partial template paths in a stable order.
func (c *Config) PartialFiles() []string {
	files := make([]string, 0, len(c.Template.Partials))
	for _, path := range c.Template.Partials {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}
