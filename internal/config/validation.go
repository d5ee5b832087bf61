package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	berrors "github.com/conneroisu/binserve/internal/errors"
)

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateRoutes(config.Routes); err != nil {
		return fmt.Errorf("routes: %w", err)
	}

	if err := validateStaticConfig(&config.Static); err != nil {
		return fmt.Errorf("static config: %w", err)
	}

	for name, path := range config.Template.Partials {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("template partial %q: %w", name, err)
		}
	}

	if err := validateHeaders(config.InsertHeaders); err != nil {
		return fmt.Errorf("insert_headers: %w", err)
	}

	if config.Toggles.MaxConnections < 0 {
		return berrors.NewConfigError(berrors.ErrCodeConfigInvalid,
			fmt.Sprintf("max_connections must not be negative, got %d", config.Toggles.MaxConnections))
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	if config.Host == "" {
		return berrors.NewConfigError(berrors.ErrCodeConfigMissing, "server.host is required")
	}

	if _, _, err := net.SplitHostPort(config.Host); err != nil {
		return berrors.NewConfigError(berrors.ErrCodeConfigInvalid,
			fmt.Sprintf("server.host %q is not a valid address", config.Host))
	}

	if !config.TLS.Enable {
		return nil
	}

	if config.TLS.Host == "" {
		return berrors.NewConfigError(berrors.ErrCodeConfigMissing, "server.tls.host is required when TLS is enabled")
	}
	if config.TLS.Key == "" || config.TLS.Cert == "" {
		return berrors.NewConfigError(berrors.ErrCodeConfigMissing, "server.tls.key and server.tls.cert are required when TLS is enabled")
	}

	return nil
}

func validateRoutes(routes map[string]string) error {
	if len(routes) == 0 {
		return berrors.NewConfigError(berrors.ErrCodeConfigMissing, "at least one route is required")
	}

	for url, path := range routes {
		if !strings.HasPrefix(url, "/") {
			return berrors.NewConfigError(berrors.ErrCodeConfigInvalid,
				fmt.Sprintf("route %q must start with /", url))
		}
		if err := validatePath(path); err != nil {
			return fmt.Errorf("route %q: %w", url, err)
		}
	}

	return nil
}

func validateStaticConfig(config *StaticConfig) error {
	if config.Directory != "" {
		if err := validatePath(config.Directory); err != nil {
			return fmt.Errorf("directory: %w", err)
		}
		if config.ServedFrom == "" || !strings.HasPrefix(config.ServedFrom, "/") {
			return berrors.NewConfigError(berrors.ErrCodeConfigInvalid,
				"static.served_from must be an absolute URL path when static.directory is set")
		}
		if strings.Trim(config.ServedFrom, "/") == "" {
			return berrors.NewConfigError(berrors.ErrCodeConfigInvalid,
				"static.served_from cannot be the site root")
		}
	}

	for code, path := range config.ErrorPages {
		status, err := strconv.Atoi(code)
		if err != nil || status < 100 || status > 599 {
			return berrors.NewConfigError(berrors.ErrCodeConfigInvalid,
				fmt.Sprintf("error page key %q is not an HTTP status code", code))
		}
		if err := validatePath(path); err != nil {
			return fmt.Errorf("error page %s: %w", code, err)
		}
	}

	return nil
}

func validateHeaders(headers map[string]string) error {
	for name, value := range headers {
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return berrors.ErrInvalidHeader(name, value)
		}
	}
	return nil
}

// validatePath rejects empty paths and paths that climb out of the working
// tree.
func validatePath(path string) error {
	if path == "" {
		return berrors.NewConfigError(berrors.ErrCodeConfigInvalid, "empty path")
	}

	if strings.Contains(filepath.ToSlash(path), "..") {
		return berrors.ErrPathTraversal(path)
	}

	return nil
}
