package engine

import (
	"math"
	"math/rand"
	"time"
)

// Strategy computes the delay before the (attempt+1)'th reconnect attempt,
// where attempt is the number of consecutive failures already observed
// (the first retry after a fresh connection is attempt 0).
type Strategy interface {
	Delay(attempt int) time.Duration
}

const backoffBase = time.Second

// Exponential is the default reconnection strategy: delay = min(base*2^attempt, max) + uniform(0, 10%).
type Exponential struct {
	// MaxBackoff caps the delay before jitter. Zero means the default of 60s.
	MaxBackoff time.Duration
}

func (e Exponential) Delay(attempt int) time.Duration {
	max := e.MaxBackoff
	if max <= 0 {
		max = 60 * time.Second
	}
	pow := math.Pow(2, float64(attempt))
	capped := math.Min(pow, max.Seconds())
	d := time.Duration(capped * float64(backoffBase))
	jitter := time.Duration(rand.Float64() * 0.1 * float64(d))
	return d + jitter
}

// Custom wraps a caller-supplied pure function of the attempt index, so
// implementers can encode decorrelated-jitter or other strategies without
// touching the engine.
type Custom struct {
	Fn func(attempt int) time.Duration
}

func (c Custom) Delay(attempt int) time.Duration {
	return c.Fn(attempt)
}
