// Package controls holds the aggregation controls of a page session: the
// detail level slider, the semantic threshold slider and the semantic metric
// radio group.
package controls

import (
	"math"
	"strconv"
	"sync"

	"github.com/AaronLay10/SemanticZoom/internal/miner"
)

// Mode is a semantic metric. Unknown modes are forwarded to the mining
// service unchanged.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeInfrequent Mode = "infrequent"
	ModeFrequent   Mode = "frequent"
	ModeShortTime  Mode = "short_time"
	ModeLongTime   Mode = "long_time"
)

// Default control values for a fresh page session.
const (
	DefaultLevel     = 0.5
	DefaultThreshold = 0.5
)

// View is the rendered state of the controls.
type View struct {
	Level          float64 `json:"level"`
	LevelLabel     string  `json:"levelLabel"`
	Threshold      float64 `json:"threshold"`
	ThresholdLabel string  `json:"thresholdLabel"`
	Mode           Mode    `json:"mode"`
}

// Controls is safe for concurrent use.
type Controls struct {
	mu        sync.Mutex
	level     float64
	threshold float64
	mode      Mode
}

// New returns controls at their default values.
func New() *Controls {
	return &Controls{level: DefaultLevel, threshold: DefaultThreshold, mode: ModeNone}
}

// SetLevel moves the detail level slider.
func (c *Controls) SetLevel(v float64) {
	c.mu.Lock()
	c.level = unit(v)
	c.mu.Unlock()
}

// SetThreshold moves the semantic threshold slider.
func (c *Controls) SetThreshold(v float64) {
	c.mu.Lock()
	c.threshold = unit(v)
	c.mu.Unlock()
}

// SelectMode selects a semantic metric. Picking a metric that looks for rare
// or fast behavior drops the threshold to 0; picking one that looks for
// common or slow behavior raises it to 1. Other modes leave it alone.
func (c *Controls) SelectMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
	switch m {
	case ModeInfrequent, ModeShortTime:
		c.threshold = 0
	case ModeFrequent, ModeLongTime:
		c.threshold = 1
	}
}

// View returns the current values with their labels.
func (c *Controls) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Level:          c.level,
		LevelLabel:     Percent(c.level),
		Threshold:      c.threshold,
		ThresholdLabel: Percent(c.threshold),
		Mode:           c.mode,
	}
}

// Params returns aggregation parameters for the current values. The log id
// is left empty for the caller to fill.
func (c *Controls) Params() miner.AggregationParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return miner.AggregationParams{
		Level:        c.level,
		SemanticMode: string(c.mode),
		Threshold:    c.threshold,
	}
}

// Percent formats a fraction as a whole percentage, rounding halves up.
func Percent(v float64) string {
	return strconv.Itoa(int(math.Floor(v*100+0.5))) + "%"
}

func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
