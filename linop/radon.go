// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package linop

import (
	"fmt"

	"github.com/ripl-sci/ripl/array"
)

// Device selects where a projection engine executes. It is chosen
// explicitly at construction; the optimization core never auto-detects
// hardware.
type Device int

const (
	// DeviceCPU runs projection kernels on the host.
	DeviceCPU Device = iota
	// DeviceGPU runs projection kernels on an accelerator. Forward and
	// adjoint evaluation then cross a host/accelerator memory copy on
	// every call.
	DeviceGPU
)

func (d Device) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	case DeviceGPU:
		return "gpu"
	default:
		return fmt.Sprintf("device(%d)", int(d))
	}
}

// ProjectionGeometry describes a parallel-beam acquisition.
type ProjectionGeometry struct {
	// VolumeShape is the shape of the reconstruction volume (rows, cols).
	VolumeShape array.Shape
	// DetectorSpacing is the spacing between detector elements.
	DetectorSpacing float64
	// DetectorCount is the number of detector elements.
	DetectorCount int
	// Angles holds the projection angles in radians, one per view.
	Angles []float64
	// VolumeExtent optionally fixes the physical extents of the volume as
	// (minX, maxX, minY, maxY). When nil, pixels are unit squares and the
	// volume is centered on the origin.
	VolumeExtent []float64
}

// ProjectionEngine is the boundary to an external projection toolbox. Both
// calls block until the result is written into dst; implementations own any
// batching, dispatch, or device transfer.
type ProjectionEngine interface {
	// Project computes the forward projection (Radon transform) of volume
	// into a sinogram of shape (len(Angles), DetectorCount).
	Project(dst, volume []float64, g ProjectionGeometry, device Device)
	// BackProject computes the adjoint of Project.
	BackProject(dst, sinogram []float64, g ProjectionGeometry, device Device)
}

// ProjectorConfig configures a Projector.
type ProjectorConfig struct {
	Geometry ProjectionGeometry
	Device   Device
	Engine   ProjectionEngine
}

// Projector is the parallel-beam tomographic projection operator. It maps a
// volume to a sinogram with one row per projection angle, delegating the
// numerical kernels to an external engine.
type Projector struct {
	geom     ProjectionGeometry
	device   Device
	engine   ProjectionEngine
	outShape array.Shape
}

// NewProjector validates the geometry and creates the operator.
func NewProjector(cfg ProjectorConfig) (*Projector, error) {
	g := cfg.Geometry
	if cfg.Engine == nil {
		return nil, fmt.Errorf("linop: projector requires a projection engine")
	}
	if len(g.VolumeShape) != 2 {
		return nil, fmt.Errorf("linop: projector volume shape %v is not 2-D: %w", g.VolumeShape, ErrShapeMismatch)
	}
	if err := g.VolumeShape.Validate(); err != nil {
		return nil, err
	}
	if g.DetectorSpacing <= 0 {
		return nil, fmt.Errorf("linop: detector spacing %v must be positive", g.DetectorSpacing)
	}
	if g.DetectorCount <= 0 {
		return nil, fmt.Errorf("linop: detector count %d must be positive", g.DetectorCount)
	}
	if len(g.Angles) == 0 {
		return nil, fmt.Errorf("linop: projector requires at least one angle")
	}
	if g.VolumeExtent != nil {
		if len(g.VolumeExtent) != 4 {
			return nil, fmt.Errorf("linop: volume extent must be (minX, maxX, minY, maxY), got %d values", len(g.VolumeExtent))
		}
		if g.VolumeExtent[0] >= g.VolumeExtent[1] || g.VolumeExtent[2] >= g.VolumeExtent[3] {
			return nil, fmt.Errorf("linop: volume extent %v is empty", g.VolumeExtent)
		}
	}
	geom := g
	geom.VolumeShape = g.VolumeShape.Clone()
	geom.Angles = array.CloneSlice(g.Angles)
	if g.VolumeExtent != nil {
		geom.VolumeExtent = array.CloneSlice(g.VolumeExtent)
	}
	return &Projector{
		geom:     geom,
		device:   cfg.Device,
		engine:   cfg.Engine,
		outShape: array.Shape{len(g.Angles), g.DetectorCount},
	}, nil
}

func (p *Projector) InputShape() array.Shape  { return p.geom.VolumeShape }
func (p *Projector) OutputShape() array.Shape { return p.outShape }

// Geometry returns the acquisition geometry.
func (p *Projector) Geometry() ProjectionGeometry { return p.geom }

// Device returns the device the engine was configured for.
func (p *Projector) Device() Device { return p.device }

func (p *Projector) Apply(dst, x []float64) {
	p.engine.Project(dst, x, p.geom, p.device)
}

func (p *Projector) Adjoint(dst, y []float64) {
	p.engine.BackProject(dst, y, p.geom, p.device)
}
