// Package fft implements multi-dimensional discrete Fourier transforms on
// top of gonum's one-dimensional complex FFT, using a row-column
// decomposition along every axis of a fixed shape.
package fft

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/ripl-sci/ripl/array"
)

// Plan performs forward and inverse transforms over every axis of a fixed
// N-D shape. Plans hold scratch buffers and must not be shared between
// goroutines.
type Plan struct {
	shape   array.Shape
	strides []int
	ffts    []*fourier.CmplxFFT
	n       int
	line    []complex128
}

// NewPlan creates a transform plan for the given shape.
func NewPlan(shape array.Shape) *Plan {
	maxDim := 0
	ffts := make([]*fourier.CmplxFFT, len(shape))
	for i, dim := range shape {
		ffts[i] = fourier.NewCmplxFFT(dim)
		if dim > maxDim {
			maxDim = dim
		}
	}
	return &Plan{
		shape:   shape.Clone(),
		strides: shape.Strides(),
		ffts:    ffts,
		n:       shape.NumElements(),
		line:    make([]complex128, maxDim),
	}
}

// Shape returns the shape the plan was built for.
func (p *Plan) Shape() array.Shape { return p.shape }

// Len returns the total number of elements transformed.
func (p *Plan) Len() int { return p.n }

// Forward transforms data in place along every axis.
func (p *Plan) Forward(data []complex128) {
	if len(data) != p.n {
		panic("fft: buffer length does not match plan shape")
	}
	for axis := range p.shape {
		p.transformAxis(data, axis, false)
	}
}

// Inverse applies the inverse transform in place along every axis and
// normalizes by the total number of elements, so that Inverse(Forward(x))
// recovers x.
func (p *Plan) Inverse(data []complex128) {
	if len(data) != p.n {
		panic("fft: buffer length does not match plan shape")
	}
	for axis := range p.shape {
		p.transformAxis(data, axis, true)
	}
	scale := complex(1/float64(p.n), 0)
	for i := range data {
		data[i] *= scale
	}
}

// transformAxis applies the 1-D transform to every line along axis.
// gonum's CmplxFFT is unnormalized in both directions; normalization is
// applied once in Inverse.
func (p *Plan) transformAxis(data []complex128, axis int, inverse bool) {
	dim := p.shape[axis]
	if dim == 1 {
		return
	}
	stride := p.strides[axis]
	t := p.ffts[axis]
	line := p.line[:dim]

	// Lines along axis start at base = outer*dim*stride + inner for every
	// outer block and inner offset within the stride.
	outer := p.n / (dim * stride)
	for o := 0; o < outer; o++ {
		for inner := 0; inner < stride; inner++ {
			base := o*dim*stride + inner
			for k := 0; k < dim; k++ {
				line[k] = data[base+k*stride]
			}
			if inverse {
				t.Sequence(line, line)
			} else {
				t.Coefficients(line, line)
			}
			for k := 0; k < dim; k++ {
				data[base+k*stride] = line[k]
			}
		}
	}
}

// ToComplex widens a real buffer into dst.
func ToComplex(dst []complex128, src []float64) {
	for i, v := range src {
		dst[i] = complex(v, 0)
	}
}

// Real narrows a complex buffer into dst, discarding imaginary parts.
func Real(dst []float64, src []complex128) {
	for i, v := range src {
		dst[i] = real(v)
	}
}

// KernelFreq returns the frequency response of a kernel embedded at the
// origin of the given shape. kernelShape must not exceed shape along any
// axis; the kernel is zero-padded and transformed with a plan for shape.
func KernelFreq(p *Plan, kernel []float64, kernelShape array.Shape) []complex128 {
	full := make([]complex128, p.n)
	embed(full, kernel, kernelShape, p.shape, p.strides)
	p.Forward(full)
	return full
}

// embed scatters a small row-major real block into the origin corner of a
// larger complex buffer.
func embed(dst []complex128, src []float64, srcShape, dstShape array.Shape, dstStrides []int) {
	if len(srcShape) != len(dstShape) {
		panic("fft: kernel rank does not match plan shape")
	}
	for i := range srcShape {
		if srcShape[i] > dstShape[i] {
			panic("fft: kernel larger than plan shape")
		}
	}
	srcStrides := srcShape.Strides()
	for i := range src {
		rem := i
		di := 0
		for ax := range srcShape {
			coord := rem / srcStrides[ax]
			rem %= srcStrides[ax]
			di += coord * dstStrides[ax]
		}
		dst[di] = complex(src[i], 0)
	}
}
