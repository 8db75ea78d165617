// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import "math"

// Optimizer applies gradient updates to a flat parameter slice.
type Optimizer interface {
	// Step updates params in place using grads. Both slices must have the
	// same length across all calls to one optimizer.
	Step(params, grads []float64)
	// SetLR updates the learning rate, for schedule-driven training.
	SetLR(lr float64)
	// LR returns the current learning rate.
	LR() float64
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0, range [0, 1))
}

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	lr       float64
	momentum float64
	velocity []float64
}

// NewSGD creates an SGD optimizer. Zero config values select defaults.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{lr: config.LR, momentum: config.Momentum}
}

func (s *SGD) Step(params, grads []float64) {
	if s.momentum == 0 {
		for i := range params {
			params[i] -= s.lr * grads[i]
		}
		return
	}
	if s.velocity == nil {
		s.velocity = make([]float64, len(params))
	}
	for i := range params {
		s.velocity[i] = s.momentum*s.velocity[i] + grads[i]
		params[i] -= s.lr * s.velocity[i]
	}
}

func (s *SGD) SetLR(lr float64) { s.lr = lr }
func (s *SGD) LR() float64      { return s.lr }

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Moment decay coefficients (default: [0.9, 0.999])
	Eps   float64    // Numerical stability term (default: 1e-8)
}

// Adam implements the Adam optimizer with bias correction.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	param = param - lr * (m_t / (1-beta1^t)) / (sqrt(v_t / (1-beta2^t)) + eps)
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014).
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int
	m, v  []float64
}

// NewAdam creates an Adam optimizer. Zero config values select defaults.
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{lr: config.LR, beta1: config.Betas[0], beta2: config.Betas[1], eps: config.Eps}
}

func (a *Adam) Step(params, grads []float64) {
	if a.m == nil {
		a.m = make([]float64, len(params))
		a.v = make([]float64, len(params))
	}
	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i := range params {
		g := grads[i]
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g
		mHat := a.m[i] / bc1
		vHat := a.v[i] / bc2
		params[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
}

func (a *Adam) SetLR(lr float64) { a.lr = lr }
func (a *Adam) LR() float64      { return a.lr }

// Timestep returns the number of steps taken, for monitoring.
func (a *Adam) Timestep() int { return a.t }
