package predictor

import (
	"math"
	"math/rand/v2"
)

// lstmLayer holds views into the model's flat parameter and gradient
// vectors. Gate blocks are ordered input, forget, cell, output; W is
// (4H x in), U is (4H x H), both row-major.
type lstmLayer struct {
	in, hidden int

	w, u, b    []float64
	dw, du, db []float64
}

// lstmStep caches one timestep for backpropagation.
type lstmStep struct {
	x, hPrev, cPrev []float64
	i, f, g, o      []float64
	c, tanhC        []float64
}

func newLSTMLayer(in, hidden int, params, grads []float64) (*lstmLayer, int) {
	l := &lstmLayer{in: in, hidden: hidden}
	off := 0
	take := func(n int) ([]float64, []float64) {
		p, g := params[off:off+n:off+n], grads[off:off+n:off+n]
		off += n
		return p, g
	}
	l.w, l.dw = take(4 * hidden * in)
	l.u, l.du = take(4 * hidden * hidden)
	l.b, l.db = take(4 * hidden)
	return l, off
}

func (l *lstmLayer) init(rng *rand.Rand) {
	glorot(rng, l.w, l.in, 4*l.hidden)
	glorot(rng, l.u, l.hidden, 4*l.hidden)
	for j := range l.b {
		l.b[j] = 0
	}
	// unit forget bias
	for j := l.hidden; j < 2*l.hidden; j++ {
		l.b[j] = 1
	}
}

// forward runs the layer over xs and returns the hidden state at every step.
// When steps is non-nil it receives the per-step cache.
func (l *lstmLayer) forward(xs [][]float64, steps *[]lstmStep) [][]float64 {
	H := l.hidden
	h := make([]float64, H)
	c := make([]float64, H)
	z := make([]float64, 4*H)
	out := make([][]float64, len(xs))

	for t, x := range xs {
		copy(z, l.b)
		for r := 0; r < 4*H; r++ {
			sum := z[r]
			wr := l.w[r*l.in : (r+1)*l.in]
			for k, v := range x {
				sum += wr[k] * v
			}
			ur := l.u[r*H : (r+1)*H]
			for k, v := range h {
				sum += ur[k] * v
			}
			z[r] = sum
		}

		st := lstmStep{
			x:     x,
			hPrev: h,
			cPrev: c,
			i:     make([]float64, H),
			f:     make([]float64, H),
			g:     make([]float64, H),
			o:     make([]float64, H),
			c:     make([]float64, H),
			tanhC: make([]float64, H),
		}
		hNext := make([]float64, H)
		for j := 0; j < H; j++ {
			st.i[j] = sigmoid(z[j])
			st.f[j] = sigmoid(z[H+j])
			st.g[j] = math.Tanh(z[2*H+j])
			st.o[j] = sigmoid(z[3*H+j])
			st.c[j] = st.f[j]*c[j] + st.i[j]*st.g[j]
			st.tanhC[j] = math.Tanh(st.c[j])
			hNext[j] = st.o[j] * st.tanhC[j]
		}
		h, c = hNext, st.c
		out[t] = hNext
		if steps != nil {
			*steps = append(*steps, st)
		}
	}
	return out
}

// backward accumulates parameter gradients given dL/dh for every step and
// returns dL/dx for every step. dhs entries may be nil.
func (l *lstmLayer) backward(steps []lstmStep, dhs [][]float64) [][]float64 {
	H := l.hidden
	dhNext := make([]float64, H)
	dcNext := make([]float64, H)
	dz := make([]float64, 4*H)
	dxs := make([][]float64, len(steps))

	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		for j := 0; j < H; j++ {
			dh := dhNext[j]
			if dhs[t] != nil {
				dh += dhs[t][j]
			}
			dc := dcNext[j] + dh*st.o[j]*(1-st.tanhC[j]*st.tanhC[j])

			dz[j] = dc * st.g[j] * st.i[j] * (1 - st.i[j])
			dz[H+j] = dc * st.cPrev[j] * st.f[j] * (1 - st.f[j])
			dz[2*H+j] = dc * st.i[j] * (1 - st.g[j]*st.g[j])
			dz[3*H+j] = dh * st.tanhC[j] * st.o[j] * (1 - st.o[j])

			dcNext[j] = dc * st.f[j]
		}

		dx := make([]float64, l.in)
		dh := make([]float64, H)
		for r := 0; r < 4*H; r++ {
			d := dz[r]
			if d == 0 {
				continue
			}
			l.db[r] += d
			wr, dwr := l.w[r*l.in:(r+1)*l.in], l.dw[r*l.in:(r+1)*l.in]
			for k, v := range st.x {
				dwr[k] += d * v
				dx[k] += wr[k] * d
			}
			ur, dur := l.u[r*H:(r+1)*H], l.du[r*H:(r+1)*H]
			for k, v := range st.hPrev {
				dur[k] += d * v
				dh[k] += ur[k] * d
			}
		}
		dxs[t] = dx
		dhNext = dh
	}
	return dxs
}

type activation int

const (
	relu activation = iota
	logistic
)

// denseLayer computes act(W x + b) with W (out x in) row-major.
type denseLayer struct {
	in, out int
	act     activation

	w, b   []float64
	dw, db []float64
}

func newDenseLayer(in, out int, act activation, params, grads []float64) (*denseLayer, int) {
	l := &denseLayer{in: in, out: out, act: act}
	n := out * in
	l.w, l.dw = params[:n:n], grads[:n:n]
	l.b, l.db = params[n:n+out:n+out], grads[n:n+out:n+out]
	return l, n + out
}

func (l *denseLayer) init(rng *rand.Rand) {
	glorot(rng, l.w, l.in, l.out)
	for j := range l.b {
		l.b[j] = 0
	}
}

func (l *denseLayer) forward(x []float64) []float64 {
	y := make([]float64, l.out)
	for r := 0; r < l.out; r++ {
		sum := l.b[r]
		wr := l.w[r*l.in : (r+1)*l.in]
		for k, v := range x {
			sum += wr[k] * v
		}
		switch l.act {
		case relu:
			sum = math.Max(0, sum)
		case logistic:
			sum = sigmoid(sum)
		}
		y[r] = sum
	}
	return y
}

// backward takes dL/dy for the activated output y and returns dL/dx.
func (l *denseLayer) backward(x, y, dy []float64) []float64 {
	dx := make([]float64, l.in)
	for r := 0; r < l.out; r++ {
		d := dy[r]
		switch l.act {
		case relu:
			if y[r] <= 0 {
				d = 0
			}
		case logistic:
			d *= y[r] * (1 - y[r])
		}
		if d == 0 {
			continue
		}
		l.db[r] += d
		wr, dwr := l.w[r*l.in:(r+1)*l.in], l.dw[r*l.in:(r+1)*l.in]
		for k, v := range x {
			dwr[k] += d * v
			dx[k] += wr[k] * d
		}
	}
	return dx
}

// dropoutMask returns an inverted-dropout mask: each entry is 0 with
// probability rate and 1/(1-rate) otherwise.
func dropoutMask(rng *rand.Rand, n int, rate float64) []float64 {
	mask := make([]float64, n)
	keep := 1 / (1 - rate)
	for i := range mask {
		if rng.Float64() >= rate {
			mask[i] = keep
		}
	}
	return mask
}

func applyMask(v, mask []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * mask[i]
	}
	return out
}

// glorot fills w with Glorot-uniform samples.
func glorot(rng *rand.Rand, w []float64, fanIn, fanOut int) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range w {
		w[i] = (2*rng.Float64() - 1) * limit
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
