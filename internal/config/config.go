// Package config loads server settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ironsheep/perspective-mcp/internal/detection"
	"github.com/ironsheep/perspective-mcp/internal/perspective"
)

// Detector backends.
const (
	DetectorContour = "contour"
	DetectorRemote  = "remote"
	DetectorNone    = "none"
)

// Config holds process-wide settings.
type Config struct {
	// LogLevel is "info" or "debug".
	LogLevel string

	// OutputDir is where corrected images are saved.
	OutputDir string

	// Correction is the default per-request configuration; callers may
	// override individual fields.
	Correction perspective.Config

	// Detector selects the detection backend: contour, remote or none.
	Detector        string
	DetectorSocket  string
	DetectorTimeout time.Duration

	// HTTPAddr enables the HTTP API when non-empty, e.g. ":8080".
	HTTPAddr string
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

// Load reads the given .env files (".env" when none are named), then builds
// the configuration from the environment. Variables already set in the
// environment win over file values. A missing default .env is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	defaults := perspective.DefaultConfig()
	cfg := &Config{
		LogLevel:       strings.ToLower(getEnv("IMAGE_MCP_LOG_LEVEL", "info")),
		OutputDir:      getEnv("PERSPECTIVE_OUTPUT_DIR", "./corrected"),
		Detector:       strings.ToLower(getEnv("PERSPECTIVE_DETECTOR", DetectorContour)),
		DetectorSocket: getEnv("PERSPECTIVE_DETECTOR_SOCKET", "/tmp/perspective-detector.sock"),
		HTTPAddr:       getEnv("PERSPECTIVE_HTTP_ADDR", ""),
		Correction:     defaults,
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	policy, err := perspective.ParseSelectionPolicy(getEnv("PERSPECTIVE_POLICY", defaults.SelectionPolicy.String()))
	collect(err)
	cfg.Correction.SelectionPolicy = policy

	cfg.Correction.FallbackEnabled, err = getEnvBool("PERSPECTIVE_FALLBACK", defaults.FallbackEnabled)
	collect(err)
	cfg.Correction.MaxObservations, err = getEnvInt("PERSPECTIVE_MAX_OBSERVATIONS", defaults.MaxObservations)
	collect(err)
	cfg.Correction.MinimumConfidence, err = getEnvFloat("PERSPECTIVE_MIN_CONFIDENCE", defaults.MinimumConfidence)
	collect(err)
	cfg.Correction.MinimumAspectRatio, err = getEnvFloat("PERSPECTIVE_MIN_ASPECT", defaults.MinimumAspectRatio)
	collect(err)
	cfg.Correction.MaximumAspectRatio, err = getEnvFloat("PERSPECTIVE_MAX_ASPECT", defaults.MaximumAspectRatio)
	collect(err)
	cfg.Correction.MinimumSize, err = getEnvFloat("PERSPECTIVE_MIN_SIZE", defaults.MinimumSize)
	collect(err)

	timeoutMs, err := getEnvInt("PERSPECTIVE_DETECTOR_TIMEOUT_MS", int(detection.DefaultRemoteTimeout/time.Millisecond))
	collect(err)
	cfg.DetectorTimeout = time.Duration(timeoutMs) * time.Millisecond

	switch cfg.Detector {
	case DetectorContour, DetectorRemote, DetectorNone:
	default:
		errs = append(errs, fmt.Errorf("PERSPECTIVE_DETECTOR: unknown detector %q", cfg.Detector))
	}

	if len(errs) == 0 {
		collect(cfg.Correction.Validate())
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// NewDetector builds the configured detection backend. DetectorNone
// returns nil, which disables detection.
func (c *Config) NewDetector() perspective.Detector {
	switch c.Detector {
	case DetectorRemote:
		return detection.NewRemoteDetector(c.DetectorSocket, c.DetectorTimeout)
	case DetectorNone:
		return nil
	default:
		return detection.NewContourDetector()
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defaultVal, fmt.Errorf("%s: invalid integer %q", key, val)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: invalid number %q", key, val)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return defaultVal, fmt.Errorf("%s: invalid boolean %q", key, val)
	}
	return b, nil
}
