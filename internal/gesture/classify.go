package gesture

import (
	"math"

	"github.com/benvon/excuse-deck/internal/models"
)

// Frame is one movement sample: cumulative displacement from gesture start
// and instantaneous velocity in units per millisecond. Negative DY is up.
type Frame struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Classify returns the tentative direction of f, its displacement along the
// primary axis and the speed along that axis.
func Classify(cfg Config, f Frame) (dir models.Direction, displacement, speed float64) {
	absX, absY := math.Abs(f.DX), math.Abs(f.DY)

	if !cfg.AllowUp {
		if f.DX == 0 && f.DY == 0 {
			return models.DirectionNone, 0, 0
		}
		dir = models.DirectionRight
		if f.DX < 0 {
			dir = models.DirectionLeft
		}
		return dir, math.Max(absX, absY), math.Max(math.Abs(f.VX), math.Abs(f.VY))
	}

	switch {
	case absX > absY && f.DX < 0:
		return models.DirectionLeft, absX, math.Abs(f.VX)
	case absX > absY:
		return models.DirectionRight, absX, math.Abs(f.VX)
	case f.DY < 0:
		return models.DirectionUp, absY, math.Abs(f.VY)
	default:
		return models.DirectionNone, 0, 0
	}
}

// Progress is min(displacement/threshold, 1)
func Progress(cfg Config, displacement float64) float64 {
	if cfg.Threshold <= 0 {
		return 1
	}
	return math.Min(displacement/cfg.Threshold, 1)
}
