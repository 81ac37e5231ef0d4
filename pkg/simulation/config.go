package simulation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidConfig is wrapped by every validation failure of LoadConfig.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed config_schema.json
var configSchema string

const configSchemaURL = "config_schema.json"

type Config struct {
	// Viewport, normally overwritten by the presentation layer
	WorldWidth   float64 `json:"worldWidth" toml:"worldWidth"`
	WorldHeight  float64 `json:"worldHeight" toml:"worldHeight"`
	PredatorSize float64 `json:"predatorSize" toml:"predatorSize"` // used for the edge test

	// Population
	SwarmSize int `json:"swarmSize" toml:"swarmSize"`

	// Kinematics
	Speed          float64 `json:"speed" toml:"speed"`
	PredatorSpeed  float64 `json:"predatorSpeed" toml:"predatorSpeed"`
	SteeringDamper float64 `json:"steeringDamper" toml:"steeringDamper"`

	// Rule priorities
	TargetPriority     int `json:"targetPriority" toml:"targetPriority"`
	AlignmentPriority  int `json:"alignmentPriority" toml:"alignmentPriority"`
	SeparationPriority int `json:"separationPriority" toml:"separationPriority"`
	CohesionPriority   int `json:"cohesionPriority" toml:"cohesionPriority"`

	// Interaction Radii
	CohesionRadius     float64 `json:"cohesionRadius" toml:"cohesionRadius"`
	AlignmentRadius    float64 `json:"alignmentRadius" toml:"alignmentRadius"`
	SeparationDistance float64 `json:"separationDistance" toml:"separationDistance"`
	AwarenessRadius    float64 `json:"awarenessRadius" toml:"awarenessRadius"` // how far agents notice the predator
	KillRadius         float64 `json:"killRadius" toml:"killRadius"`

	// Predator
	PredatorActive bool `json:"predatorActive" toml:"predatorActive"`
	PredatorLethal bool `json:"predatorLethal" toml:"predatorLethal"`

	// Escape
	EscapeStrategy string  `json:"escapeStrategy" toml:"escapeStrategy"`
	EscapeBeta     float64 `json:"escapeBeta" toml:"escapeBeta"` // potential field only

	// Timing, in milliseconds so the file formats stay plain numbers
	FrameRate          int `json:"frameRate" toml:"frameRate"`
	TargetRepositionMs int `json:"targetRepositionMs" toml:"targetRepositionMs"`
	HoldIntervalMs     int `json:"holdIntervalMs" toml:"holdIntervalMs"`
}

func DefaultConfig() *Config {
	return &Config{
		WorldWidth:         900,
		WorldHeight:        700,
		PredatorSize:       30,
		SwarmSize:          150,
		Speed:              3,
		PredatorSpeed:      3,
		SteeringDamper:     0.11,
		TargetPriority:     10,
		AlignmentPriority:  7,
		SeparationPriority: 7,
		CohesionPriority:   2,
		CohesionRadius:     50,
		AlignmentRadius:    50,
		SeparationDistance: 25,
		AwarenessRadius:    100,
		KillRadius:         10,
		EscapeStrategy:     EscapePotentialField.String(),
		EscapeBeta:         0.5,
		FrameRate:          120,
		TargetRepositionMs: 4000,
		HoldIntervalMs:     1000,
	}
}

// FrameDuration is the fixed sleep between two ticks.
func (c *Config) FrameDuration() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

// TargetReposition is the period of the automatic target mover.
func (c *Config) TargetReposition() time.Duration {
	return time.Duration(c.TargetRepositionMs) * time.Millisecond
}

// HoldInterval is how long hold-based escape strategies keep a decision.
func (c *Config) HoldInterval() time.Duration {
	return time.Duration(c.HoldIntervalMs) * time.Millisecond
}

// Validate checks the configuration against the embedded JSON schema.
func (c *Config) Validate() error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return validateDocument(b)
}

// LoadConfig loads a JSON or TOML file (chosen by extension), overlays it on
// DefaultConfig and validates the result against the schema.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".toml":
		md, err := toml.Decode(string(b), cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode config toml: %v", ErrInvalidConfig, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidConfig, undecoded)
		}
	default:
		// validate the raw document too, so unknown keys are reported
		if err := validateDocument(b); err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseEscapeKind(cfg.EscapeStrategy); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func validateDocument(b []byte) error {
	sch, err := jsonschema.CompileString(configSchemaURL, configSchema)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: failed to decode config json: %v", ErrInvalidConfig, err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
