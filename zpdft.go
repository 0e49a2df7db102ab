package eyepiece

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ZpDft is a zero-padded two-dimensional discrete Fourier transform over a
// square complex grid. Smaller inputs are embedded with their center at the
// grid origin (an ifftshift), so transforms of centered apertures come out
// with smooth phase. The transform is scaled by 1/n once per Process call,
// which makes a forward pass energy-preserving and a forward/inverse pair the
// identity.
type ZpDft struct {
	n       int
	side    int // current buffer side, differs from n after Resize
	inverse bool
	fft     *fourier.CmplxFFT
	buffer  []complex128
	col     []complex128
	swap    []complex128 // lazily allocated by Shift
}

// NewZpDft returns a forward transform of side n.
func NewZpDft(n int) *ZpDft {
	return &ZpDft{
		n:      n,
		side:   n,
		fft:    fourier.NewCmplxFFT(n),
		buffer: make([]complex128, n*n),
		col:    make([]complex128, n),
	}
}

// NewZpDftInverse returns an inverse transform of side n.
func NewZpDftInverse(n int) *ZpDft {
	z := NewZpDft(n)
	z.inverse = true
	return z
}

// Len returns the transform side.
func (z *ZpDft) Len() int { return z.n }

// Reset zeroes the buffer and restores it to the full transform size.
func (z *ZpDft) Reset() *ZpDft {
	if len(z.buffer) != z.n*z.n {
		z.buffer = make([]complex128, z.n*z.n)
	} else {
		for k := range z.buffer {
			z.buffer[k] = 0
		}
	}
	z.side = z.n
	return z
}

// ZeroPadding loads a square array into the transform buffer. A same-size
// array is copied as is; a smaller one is embedded with its center moved to
// the buffer origin, wrapping negative indices to the far edge.
func (z *ZpDft) ZeroPadding(data []complex128) *ZpDft {
	m := int(math.Round(math.Sqrt(float64(len(data)))))
	if m*m != len(data) {
		panic("zpdft: input is not a square array")
	}
	if m > z.n {
		panic("zpdft: input larger than the transform")
	}
	if m == z.n {
		if len(z.buffer) != z.n*z.n {
			z.buffer = make([]complex128, z.n*z.n)
		}
		copy(z.buffer, data)
		z.side = z.n
		return z
	}
	z.Reset()
	half := m / 2
	for i := 0; i < m; i++ {
		ii := mod(i-half, z.n)
		for j := 0; j < m; j++ {
			jj := mod(j-half, z.n)
			z.buffer[ii*z.n+jj] = data[i*m+j]
		}
	}
	return z
}

// Process computes the 2D transform in place, rows then columns, and applies
// the 1/n scaling.
func (z *ZpDft) Process() *ZpDft {
	if z.side != z.n {
		panic("zpdft: transform on a resized buffer")
	}
	n := z.n
	for i := 0; i < n; i++ {
		row := z.buffer[i*n : (i+1)*n]
		if z.inverse {
			z.fft.Sequence(row, row)
		} else {
			z.fft.Coefficients(row, row)
		}
	}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			z.col[i] = z.buffer[i*n+j]
		}
		if z.inverse {
			z.fft.Sequence(z.col, z.col)
		} else {
			z.fft.Coefficients(z.col, z.col)
		}
		for i := 0; i < n; i++ {
			z.buffer[i*n+j] = z.col[i]
		}
	}
	s := complex(1/float64(n), 0)
	for k := range z.buffer {
		z.buffer[k] *= s
	}
	return z
}

// Shift moves the zero frequency from the buffer origin to the center.
func (z *ZpDft) Shift() *ZpDft {
	if z.side != z.n {
		panic("zpdft: shift on a resized buffer")
	}
	n := z.n
	if z.swap == nil {
		z.swap = make([]complex128, n*n)
	}
	hh := n - n/2
	for i := 0; i < n; i++ {
		ii := (i + hh) % n
		for j := 0; j < n; j++ {
			z.swap[i*n+j] = z.buffer[ii*n+(j+hh)%n]
		}
	}
	z.buffer, z.swap = z.swap, z.buffer
	return z
}

// Filter multiplies the buffer elementwise with the kernel.
func (z *ZpDft) Filter(kernel []complex128) *ZpDft {
	for k, v := range kernel {
		z.buffer[k] *= v
	}
	return z
}

// Resize crops or pads the buffer to a new side, keeping it centered. The
// buffer is no longer transformable until the next Reset or full-size
// ZeroPadding.
func (z *ZpDft) Resize(newLen int) *ZpDft {
	old := z.side
	switch {
	case old > newLen:
		ij0 := old/2 - newLen/2
		out := make([]complex128, newLen*newLen)
		for i := 0; i < newLen; i++ {
			src := (i+ij0)*old + ij0
			copy(out[i*newLen:(i+1)*newLen], z.buffer[src:src+newLen])
		}
		z.buffer = out
	case old < newLen:
		ij0 := (newLen - old) / 2
		out := make([]complex128, newLen*newLen)
		for i := 0; i < old; i++ {
			dst := (i+ij0)*newLen + ij0
			copy(out[dst:dst+old], z.buffer[i*old:(i+1)*old])
		}
		z.buffer = out
	}
	z.side = newLen
	return z
}

// Buffer returns the live transform buffer; it is only valid until the next
// call on z. Callers keeping the data must copy it.
func (z *ZpDft) Buffer() []complex128 { return z.buffer }

// Real returns the buffer real part.
func (z *ZpDft) Real() []float64 {
	out := make([]float64, len(z.buffer))
	for k, b := range z.buffer {
		out[k] = real(b)
	}
	return out
}

// Norm returns the buffer magnitudes.
func (z *ZpDft) Norm() []float64 {
	out := make([]float64, len(z.buffer))
	for k, b := range z.buffer {
		out[k] = math.Hypot(real(b), imag(b))
	}
	return out
}

// NormSqr returns the buffer squared magnitudes.
func (z *ZpDft) NormSqr() []float64 {
	out := make([]float64, len(z.buffer))
	for k, b := range z.buffer {
		out[k] = real(b)*real(b) + imag(b)*imag(b)
	}
	return out
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
