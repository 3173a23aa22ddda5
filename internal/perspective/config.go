package perspective

import (
	"fmt"
	"strings"
)

// SelectionPolicy decides which detector candidate is warped.
type SelectionPolicy int

const (
	// PolicyStrict asks the detector for a single observation and accepts it
	// unconditionally.
	PolicyStrict SelectionPolicy = iota

	// PolicyBestByArea picks the candidate with the largest bounding-box area.
	// Ties keep the first candidate encountered.
	PolicyBestByArea
)

// String returns the policy name used in configuration.
func (p SelectionPolicy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyBestByArea:
		return "best_by_area"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseSelectionPolicy parses "strict" or "best_by_area" (also "best-by-area"
// and "best").
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return PolicyStrict, nil
	case "best_by_area", "best-by-area", "best", "bestbyarea":
		return PolicyBestByArea, nil
	default:
		return 0, fmt.Errorf("unknown selection policy: %q", s)
	}
}

// DetectOptions are the filter thresholds handed to the detector.
// They are forwarded as-is and not re-applied to the returned candidates.
type DetectOptions struct {
	// MaxObservations caps the number of candidates returned (>= 1).
	MaxObservations int `json:"max_observations"`

	// MinimumConfidence drops candidates below this confidence (0-1).
	MinimumConfidence float64 `json:"minimum_confidence"`

	// MinimumAspectRatio and MaximumAspectRatio bound short side / long side.
	MinimumAspectRatio float64 `json:"minimum_aspect_ratio"`
	MaximumAspectRatio float64 `json:"maximum_aspect_ratio"`

	// MinimumSize is the smallest accepted short side, as a fraction of the
	// image's short side.
	MinimumSize float64 `json:"minimum_size"`
}

// Config controls one correction request.
type Config struct {
	DetectOptions

	// FallbackEnabled synthesizes a quad when detection yields nothing.
	FallbackEnabled bool `json:"fallback_enabled"`

	SelectionPolicy SelectionPolicy `json:"selection_policy"`
}

// DefaultConfig returns the best-of-many configuration with fallback enabled.
func DefaultConfig() Config {
	return Config{
		DetectOptions: DetectOptions{
			MaxObservations:    8,
			MinimumConfidence:  0.5,
			MinimumAspectRatio: 0.3,
			MaximumAspectRatio: 1.0,
			MinimumSize:        0.2,
		},
		FallbackEnabled: true,
		SelectionPolicy: PolicyBestByArea,
	}
}

// Validate checks every threshold against its documented range.
func (c Config) Validate() error {
	switch {
	case c.MaxObservations < 1:
		return fmt.Errorf("%w: max observations must be >= 1, got %d", ErrInvalidConfig, c.MaxObservations)
	case c.MinimumConfidence < 0 || c.MinimumConfidence > 1:
		return fmt.Errorf("%w: minimum confidence must be in [0,1], got %g", ErrInvalidConfig, c.MinimumConfidence)
	case c.MinimumAspectRatio <= 0 || c.MinimumAspectRatio > 1:
		return fmt.Errorf("%w: minimum aspect ratio must be in (0,1], got %g", ErrInvalidConfig, c.MinimumAspectRatio)
	case c.MaximumAspectRatio < c.MinimumAspectRatio || c.MaximumAspectRatio > 1:
		return fmt.Errorf("%w: maximum aspect ratio must be in [%g,1], got %g", ErrInvalidConfig, c.MinimumAspectRatio, c.MaximumAspectRatio)
	case c.MinimumSize <= 0 || c.MinimumSize > 1:
		return fmt.Errorf("%w: minimum size must be in (0,1], got %g", ErrInvalidConfig, c.MinimumSize)
	}
	switch c.SelectionPolicy {
	case PolicyStrict, PolicyBestByArea:
	default:
		return fmt.Errorf("%w: unknown selection policy %d", ErrInvalidConfig, int(c.SelectionPolicy))
	}
	return nil
}

// DetectorOptions returns the options sent to the detector. The strict
// policy always limits the detector to a single observation.
func (c Config) DetectorOptions() DetectOptions {
	opts := c.DetectOptions
	if c.SelectionPolicy == PolicyStrict {
		opts.MaxObservations = 1
	}
	return opts
}
