package danmaku

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the engine's geometry and timing constants. Every field has a
// usable default; see DefaultConfig.
type Config struct {
	// Lanes is the number of horizontal tracks.
	Lanes int `yaml:"lanes"`
	// Speed is the horizontal velocity of every placement, in pixels per second.
	Speed float64 `yaml:"speed"`
	// SafeDistance is the minimum gap between neighbours in a lane.
	SafeDistance float64 `yaml:"safe_distance"`

	ItemHeight      float64 `yaml:"item_height"`
	RowSpacing      float64 `yaml:"row_spacing"`
	AvatarSize      float64 `yaml:"avatar_size"`
	ImageSize       float64 `yaml:"image_size"`
	ImageMarginLeft float64 `yaml:"image_margin_left"`
	PaddingLeft     float64 `yaml:"padding_left"`
	PaddingRight    float64 `yaml:"padding_right"`
	TextSize        float64 `yaml:"text_size"`

	ViewportWidth  float64 `yaml:"viewport_width"`
	ViewportHeight float64 `yaml:"viewport_height"`

	// MaxElapsed caps a single tick's elapsed time so a stalled frame does
	// not teleport every placement.
	MaxElapsed time.Duration `yaml:"max_elapsed"`
	// FeedBatch is the most backlog items placed per tick.
	FeedBatch int `yaml:"feed_batch"`
	// NeedMoreFactor scales ViewportWidth into the low-water mark for
	// OnNeedMore.
	NeedMoreFactor float64 `yaml:"need_more_factor"`
	// ClickSlop is the largest press-to-release distance still treated as
	// a click.
	ClickSlop float64 `yaml:"click_slop"`
	// FadeIn is the entry fade duration. Zero disables fading.
	FadeIn time.Duration `yaml:"fade_in"`
}

// DefaultConfig returns the stock configuration: three lanes at 200 px/s.
func DefaultConfig() Config {
	return Config{
		Lanes:           3,
		Speed:           200,
		SafeDistance:    20,
		ItemHeight:      36,
		RowSpacing:      8,
		AvatarSize:      28,
		ImageSize:       24,
		ImageMarginLeft: 6,
		PaddingLeft:     8,
		PaddingRight:    12,
		TextSize:        14,
		ViewportWidth:   640,
		ViewportHeight:  160,
		MaxElapsed:      time.Second,
		FeedBatch:       3,
		NeedMoreFactor:  1.5,
		ClickSlop:       8,
		FadeIn:          200 * time.Millisecond,
	}
}

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("danmaku: invalid config")

// Validate reports the first field that cannot drive an engine.
func (c Config) Validate() error {
	switch {
	case c.Lanes < 1:
		return fmt.Errorf("%w: lanes must be at least 1, got %d", ErrInvalidConfig, c.Lanes)
	case c.Speed <= 0:
		return fmt.Errorf("%w: speed must be positive, got %g", ErrInvalidConfig, c.Speed)
	case c.SafeDistance < 0:
		return fmt.Errorf("%w: safe_distance must not be negative, got %g", ErrInvalidConfig, c.SafeDistance)
	case c.ItemHeight <= 0:
		return fmt.Errorf("%w: item_height must be positive, got %g", ErrInvalidConfig, c.ItemHeight)
	case c.ViewportWidth <= 0 || c.ViewportHeight <= 0:
		return fmt.Errorf("%w: viewport must be positive, got %gx%g", ErrInvalidConfig, c.ViewportWidth, c.ViewportHeight)
	case c.MaxElapsed <= 0:
		return fmt.Errorf("%w: max_elapsed must be positive, got %v", ErrInvalidConfig, c.MaxElapsed)
	case c.FeedBatch < 1:
		return fmt.Errorf("%w: feed_batch must be at least 1, got %d", ErrInvalidConfig, c.FeedBatch)
	}
	return nil
}

// LaneY returns the fixed top coordinate of lane i.
func (c Config) LaneY(i int) float64 {
	return c.RowSpacing + float64(i)*(c.ItemHeight+c.RowSpacing)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Fields missing from data keep their defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("danmaku: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file. See ParseConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("danmaku: read config: %w", err)
	}
	return ParseConfig(data)
}
