package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged draws.
// Every draw is logged at debug level.
//
// Roller satisfies Random.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs each draw to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// UniformInt returns an int in [min, max] inclusive.
//
// Postcondition: min <= result <= max when max >= min; result == min otherwise.
func (r *Roller) UniformInt(min, max int) int {
	if max <= min {
		return min
	}
	v := min + r.src.Intn(max-min+1)
	r.logger.Debug("uniform int draw",
		zap.Int("min", min),
		zap.Int("max", max),
		zap.Int("value", v),
	)
	return v
}

// UniformFloat returns a float in [min, max).
//
// Postcondition: min <= result < max when max > min; result == min otherwise.
func (r *Roller) UniformFloat(min, max float64) float64 {
	if max <= min {
		return min
	}
	v := min + r.src.Float64()*(max-min)
	r.logger.Debug("uniform float draw",
		zap.Float64("min", min),
		zap.Float64("max", max),
		zap.Float64("value", v),
	)
	return v
}

// NewLoggedRollerNop returns a Roller that discards its draw log.
func NewLoggedRollerNop(src Source) *Roller {
	return NewLoggedRoller(src, zap.NewNop())
}
