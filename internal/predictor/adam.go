package predictor

import "math"

// adam is the Adam optimizer over a flat parameter vector.
type adam struct {
	lr, beta1, beta2, eps float64

	m, v []float64
	t    int
}

func newAdam(size int, cfg TrainConfig) *adam {
	return &adam{
		lr:    cfg.LearningRate,
		beta1: cfg.Beta1,
		beta2: cfg.Beta2,
		eps:   cfg.Epsilon,
		m:     make([]float64, size),
		v:     make([]float64, size),
	}
}

// step applies one update and leaves grads untouched.
func (a *adam) step(params, grads []float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	lr := a.lr * math.Sqrt(c2) / c1
	for i, g := range grads {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g
		params[i] -= lr * a.m[i] / (math.Sqrt(a.v[i]) + a.eps)
	}
}
