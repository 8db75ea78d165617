// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import "math"

// Schedule maps a step index to a learning rate.
type Schedule interface {
	LearningRate(step int) float64
}

// Constant is a fixed learning rate schedule.
type Constant struct {
	LR float64
}

func (c Constant) LearningRate(_ int) float64 { return c.LR }

// CosineDecay is linear warmup from zero to Base over WarmupSteps followed
// by cosine decay to zero over DecaySteps.
type CosineDecay struct {
	// Base is the peak learning rate reached at the end of warmup.
	Base float64
	// WarmupSteps is the length of the linear warmup. Zero disables it.
	WarmupSteps int
	// DecaySteps is the length of the cosine decay after warmup.
	DecaySteps int
}

func (c *CosineDecay) LearningRate(step int) float64 {
	if c.WarmupSteps > 0 && step < c.WarmupSteps {
		return c.Base * float64(step) / float64(c.WarmupSteps)
	}
	if c.DecaySteps <= 0 {
		return c.Base
	}
	t := float64(step-c.WarmupSteps) / float64(c.DecaySteps)
	if t > 1 {
		t = 1
	}
	return 0.5 * c.Base * (1 + math.Cos(math.Pi*t))
}
