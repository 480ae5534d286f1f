package policies

import (
	"fmt"
	"math"
)

// Schedule kinds
const (
	ScheduleConstant    = "constant"
	ScheduleHarmonic    = "harmonic"
	SchedulePolynomial  = "polynomial"
	ScheduleExponential = "exponential"
)

// Schedule maps a 1-based count to a rate (step size or exploration rate)
type Schedule interface {
	Rate(n int) float64
}

// ScheduleConfig describes a schedule, the fields used depend on Kind:
//
//	constant:    Value
//	harmonic:    Scale / (Offset + n)
//	polynomial:  Scale / (Offset + n)^Power
//	exponential: max(Min, Value * Decay^n)
type ScheduleConfig struct {
	Kind   string  `yaml:"kind" json:"kind"`
	Value  float64 `yaml:"value,omitempty" json:"value,omitempty"`
	Scale  float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
	Offset float64 `yaml:"offset,omitempty" json:"offset,omitempty"`
	Power  float64 `yaml:"power,omitempty" json:"power,omitempty"`
	Decay  float64 `yaml:"decay,omitempty" json:"decay,omitempty"`
	Min    float64 `yaml:"min,omitempty" json:"min,omitempty"`
}

func Constant(value float64) ScheduleConfig {
	return ScheduleConfig{Kind: ScheduleConstant, Value: value}
}

// Harmonic is the 1/n schedule
func Harmonic() ScheduleConfig {
	return ScheduleConfig{Kind: ScheduleHarmonic, Scale: 1}
}

func Polynomial(scale, power float64) ScheduleConfig {
	return ScheduleConfig{Kind: SchedulePolynomial, Scale: scale, Power: power}
}

func Exponential(start, decay, min float64) ScheduleConfig {
	return ScheduleConfig{Kind: ScheduleExponential, Value: start, Decay: decay, Min: min}
}

func (c ScheduleConfig) String() string {
	switch c.Kind {
	case ScheduleConstant:
		return fmt.Sprintf("constant(%g)", c.Value)
	case ScheduleHarmonic:
		return fmt.Sprintf("%g/(%g+n)", c.Scale, c.Offset)
	case SchedulePolynomial:
		return fmt.Sprintf("%g/(%g+n)^%g", c.Scale, c.Offset, c.Power)
	case ScheduleExponential:
		return fmt.Sprintf("max(%g, %g*%g^n)", c.Min, c.Value, c.Decay)
	}
	return c.Kind
}

// Build validates the configuration and returns the schedule
func (c ScheduleConfig) Build() (Schedule, error) {
	switch c.Kind {
	case ScheduleConstant:
		if c.Value < 0 || math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			return nil, fmt.Errorf("%w: constant value %v", ErrInvalidSchedule, c.Value)
		}
		return constantSchedule(c.Value), nil
	case ScheduleHarmonic, SchedulePolynomial:
		power := 1.0
		if c.Kind == SchedulePolynomial {
			power = c.Power
		}
		if c.Scale <= 0 || power <= 0 || c.Offset+1 <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSchedule, c)
		}
		return &polynomialSchedule{scale: c.Scale, offset: c.Offset, power: power}, nil
	case ScheduleExponential:
		if c.Value < 0 || c.Decay <= 0 || c.Decay > 1 || c.Min < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSchedule, c)
		}
		return &exponentialSchedule{start: c.Value, decay: c.Decay, min: c.Min}, nil
	case "":
		return nil, fmt.Errorf("%w: missing kind", ErrInvalidSchedule)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSchedule, c.Kind)
}

type constantSchedule float64

func (c constantSchedule) Rate(_ int) float64 {
	return float64(c)
}

type polynomialSchedule struct {
	scale  float64
	offset float64
	power  float64
}

func (p *polynomialSchedule) Rate(n int) float64 {
	if p.power == 1 {
		return p.scale / (p.offset + float64(n))
	}
	return p.scale / math.Pow(p.offset+float64(n), p.power)
}

type exponentialSchedule struct {
	start float64
	decay float64
	min   float64
}

func (e *exponentialSchedule) Rate(n int) float64 {
	return math.Max(e.min, e.start*math.Pow(e.decay, float64(n)))
}
