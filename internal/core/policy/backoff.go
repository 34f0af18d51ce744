package policy

import (
	"math"
	"math/rand/v2"
	"time"
)

// Delay computes the pre-jitter wait before retry number attempt (0-indexed).
func Delay(c Config, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	var d float64
	switch c.Strategy {
	case StrategyImmediate, StrategyNoRetry:
		return 0
	case StrategyFixed, StrategyResetResource:
		return c.BaseDelay
	case StrategyLinear:
		d = float64(c.BaseDelay) * float64(attempt+1)
	default:
		d = float64(c.BaseDelay) * math.Pow(2, float64(attempt))
	}

	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// Jitter spreads d uniformly over [0.5d, 1.5d).
func Jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return time.Duration(float64(d) * (0.5 + rand.Float64()))
}

// Next returns the delay to actually wait, applying jitter when enabled.
func Next(c Config, attempt int) time.Duration {
	d := Delay(c, attempt)
	if c.Jitter {
		return Jitter(d)
	}
	return d
}
