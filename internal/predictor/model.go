package predictor

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/features"
	"github.com/Aidin1998/mindset_analyzer/pkg/metrics"
	"github.com/Aidin1998/mindset_analyzer/pkg/validation"
)

// TrainConfig controls a Fit call.
type TrainConfig struct {
	Epochs          int     `validate:"min=1"`
	BatchSize       int     `validate:"min=1"`
	LearningRate    float64 `validate:"gt=0"`
	Beta1           float64 `validate:"gte=0,lt=1"`
	Beta2           float64 `validate:"gte=0,lt=1"`
	Epsilon         float64 `validate:"gt=0"`
	ValidationSplit float64 `validate:"gte=0,lt=1"`
	Seed            uint64
}

// DefaultTrainConfig returns the production training settings.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:          50,
		BatchSize:       32,
		LearningRate:    0.001,
		Beta1:           0.9,
		Beta2:           0.999,
		Epsilon:         1e-7,
		ValidationSplit: 0.2,
		Seed:            42,
	}
}

// History records per-epoch metrics. Validation slices are empty when no
// examples were held out.
type History struct {
	Loss    []float64 `json:"loss"`
	MAE     []float64 `json:"mae"`
	ValLoss []float64 `json:"val_loss,omitempty"`
	ValMAE  []float64 `json:"val_mae,omitempty"`

	TrainExamples      int `json:"train_examples"`
	ValidationExamples int `json:"validation_examples"`
}

// Final returns the last recorded epoch's loss, MAE, validation loss and
// validation MAE. Missing values are NaN.
func (h *History) Final() (loss, mae, valLoss, valMAE float64) {
	last := func(s []float64) float64 {
		if len(s) == 0 {
			return math.NaN()
		}
		return s[len(s)-1]
	}
	return last(h.Loss), last(h.MAE), last(h.ValLoss), last(h.ValMAE)
}

// Model is the sequence predictor. A trained model is safe for concurrent
// Predict calls; Fit and SetWeights take the write lock.
type Model struct {
	mu     sync.RWMutex
	logger *zap.SugaredLogger

	arch    Architecture
	params  []float64
	grads   []float64
	trained bool

	lstm1, lstm2 *lstmLayer
	hidden, out  *denseLayer
}

// NewModel builds an untrained model with weights initialized from seed.
func NewModel(arch Architecture, seed uint64, logger *zap.SugaredLogger) (*Model, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	n := arch.ParamCount()
	m := &Model{
		logger: logger,
		arch:   arch,
		params: make([]float64, n),
		grads:  make([]float64, n),
	}

	off := 0
	var used int
	m.lstm1, used = newLSTMLayer(arch.InputSize, arch.Hidden1, m.params[off:], m.grads[off:])
	off += used
	m.lstm2, used = newLSTMLayer(arch.Hidden1, arch.Hidden2, m.params[off:], m.grads[off:])
	off += used
	m.hidden, used = newDenseLayer(arch.Hidden2, arch.Dense, relu, m.params[off:], m.grads[off:])
	off += used
	m.out, _ = newDenseLayer(arch.Dense, arch.Outputs, logistic, m.params[off:], m.grads[off:])

	rng := rand.New(rand.NewPCG(seed, 0))
	m.lstm1.init(rng)
	m.lstm2.init(rng)
	m.hidden.init(rng)
	m.out.init(rng)
	return m, nil
}

// Architecture returns the network shape.
func (m *Model) Architecture() Architecture {
	return m.arch
}

// Trained reports whether the model has been fitted or loaded.
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trained
}

// Weights returns a copy of the flat parameter vector.
func (m *Model) Weights() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.params...)
}

// SetWeights replaces all parameters and marks the model trained.
func (m *Model) SetWeights(w []float64) error {
	if len(w) != len(m.params) {
		return apperrors.InvalidInput.Explain("weight vector has %d values, architecture needs %d", len(w), len(m.params))
	}
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.InvalidInput.Explain("weight %d is not finite", i)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.params, w)
	m.trained = true
	return nil
}

// Predict returns one row of Outputs values in [0,1] per window.
func (m *Model) Predict(X []features.Matrix) (features.Matrix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return nil, apperrors.ModelNotTrained.Explain("predict called before fit or load")
	}
	if err := m.checkWindows(X); err != nil {
		return nil, err
	}

	out := make(features.Matrix, len(X))
	for i, window := range X {
		out[i] = m.forward(window, nil, nil)
	}
	metrics.PredictionsTotal.Add(float64(len(out)))
	return out, nil
}

func (m *Model) checkWindows(X []features.Matrix) error {
	for i, window := range X {
		if len(window) != m.arch.SequenceLength {
			return apperrors.InvalidInput.Explain("window %d has %d steps, model expects %d", i, len(window), m.arch.SequenceLength)
		}
		for t, row := range window {
			if len(row) != m.arch.InputSize {
				return apperrors.InvalidInput.Explain("window %d step %d has %d features, model expects %d", i, t, len(row), m.arch.InputSize)
			}
		}
	}
	return nil
}

// pass caches one training forward pass.
type pass struct {
	steps1, steps2 []lstmStep
	mask1          [][]float64
	mask2          []float64
	in2            [][]float64
	last, dropped  []float64
	hidden, y      []float64
}

// forward evaluates one window. With a non-nil rng dropout is applied and
// the intermediate values are stored in p for backward.
func (m *Model) forward(window features.Matrix, rng *rand.Rand, p *pass) []float64 {
	var steps1, steps2 *[]lstmStep
	if p != nil {
		steps1, steps2 = &p.steps1, &p.steps2
	}

	h1 := m.lstm1.forward(window, steps1)
	if rng != nil && m.arch.Dropout > 0 {
		masks := make([][]float64, len(h1))
		for t := range h1 {
			masks[t] = dropoutMask(rng, len(h1[t]), m.arch.Dropout)
			h1[t] = applyMask(h1[t], masks[t])
		}
		if p != nil {
			p.mask1 = masks
		}
	}

	h2 := m.lstm2.forward(h1, steps2)
	last := h2[len(h2)-1]
	dropped := last
	if rng != nil && m.arch.Dropout > 0 {
		mask := dropoutMask(rng, len(last), m.arch.Dropout)
		dropped = applyMask(last, mask)
		if p != nil {
			p.mask2 = mask
		}
	}

	hidden := m.hidden.forward(dropped)
	y := m.out.forward(hidden)
	if p != nil {
		p.in2, p.last, p.dropped, p.hidden, p.y = h1, last, dropped, hidden, y
	}
	return y
}

// backward accumulates gradients for one example given dL/dy.
func (m *Model) backward(p *pass, dy []float64) {
	dHidden := m.out.backward(p.hidden, p.y, dy)
	dDropped := m.hidden.backward(p.dropped, p.hidden, dHidden)

	dLast := dDropped
	if p.mask2 != nil {
		dLast = applyMask(dDropped, p.mask2)
	}
	dh2 := make([][]float64, len(p.steps2))
	dh2[len(dh2)-1] = dLast
	dh1 := m.lstm2.backward(p.steps2, dh2)

	if p.mask1 != nil {
		for t := range dh1 {
			dh1[t] = applyMask(dh1[t], p.mask1[t])
		}
	}
	m.lstm1.backward(p.steps1, dh1)
}

// Fit trains the model on windows X with targets Y. A shuffled
// ValidationSplit share of the examples is held out for evaluation only.
// When ctx is cancelled the weights are restored to their values before
// the call.
func (m *Model) Fit(ctx context.Context, X []features.Matrix, Y features.Matrix, cfg TrainConfig) (*History, error) {
	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid training config: %w", err)
	}
	if len(X) == 0 {
		return nil, apperrors.InsufficientData.Explain("no training examples")
	}
	if len(X) != Y.Rows() {
		return nil, apperrors.InvalidInput.Explain("%d windows but %d label rows", len(X), Y.Rows())
	}
	if err := m.checkWindows(X); err != nil {
		return nil, err
	}
	for i, row := range Y {
		if len(row) != m.arch.Outputs {
			return nil, apperrors.InvalidInput.Explain("label row %d has %d values, model outputs %d", i, len(row), m.arch.Outputs)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	trainIdx, valIdx := splitIndices(rng, len(X), cfg.ValidationSplit)
	dropRng := rand.New(rand.NewPCG(cfg.Seed, 1))
	opt := newAdam(len(m.params), cfg)
	initial := append([]float64(nil), m.params...)

	history := &History{TrainExamples: len(trainIdx), ValidationExamples: len(valIdx)}
	metrics.TrainingExamples.WithLabelValues("train").Set(float64(len(trainIdx)))
	metrics.TrainingExamples.WithLabelValues("validation").Set(float64(len(valIdx)))

	m.logger.Infow("Starting model fit",
		"train_examples", len(trainIdx),
		"validation_examples", len(valIdx),
		"epochs", cfg.Epochs,
		"batch_size", cfg.BatchSize,
		"parameters", len(m.params),
	)
	started := time.Now()

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })

		var sumLoss, sumAbs float64
		for b := 0; b < len(trainIdx); b += cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				copy(m.params, initial)
				m.logger.Infow("Model fit cancelled, weights restored", "epoch", epoch+1)
				return history, err
			}
			batch := trainIdx[b:min(b+cfg.BatchSize, len(trainIdx))]
			clear(m.grads)

			scale := 1 / float64(len(batch)*m.arch.Outputs)
			for _, idx := range batch {
				var p pass
				y := m.forward(X[idx], dropRng, &p)
				dy := make([]float64, len(y))
				for k := range y {
					diff := y[k] - Y[idx][k]
					sumLoss += diff * diff
					sumAbs += math.Abs(diff)
					dy[k] = 2 * diff * scale
				}
				m.backward(&p, dy)
			}
			opt.step(m.params, m.grads)
		}

		denom := float64(len(trainIdx) * m.arch.Outputs)
		history.Loss = append(history.Loss, sumLoss/denom)
		history.MAE = append(history.MAE, sumAbs/denom)
		metrics.TrainingLoss.WithLabelValues("train").Set(sumLoss / denom)
		metrics.TrainingMAE.WithLabelValues("train").Set(sumAbs / denom)

		if len(valIdx) > 0 {
			valLoss, valMAE := m.evaluate(X, Y, valIdx)
			history.ValLoss = append(history.ValLoss, valLoss)
			history.ValMAE = append(history.ValMAE, valMAE)
			metrics.TrainingLoss.WithLabelValues("validation").Set(valLoss)
			metrics.TrainingMAE.WithLabelValues("validation").Set(valMAE)
		}
		metrics.TrainingEpochs.Inc()

		m.logger.Debugw("Epoch complete",
			"epoch", epoch+1,
			"loss", history.Loss[epoch],
			"mae", history.MAE[epoch],
		)
	}

	m.trained = true
	metrics.TrainingDuration.Observe(time.Since(started).Seconds())

	loss, mae, valLoss, valMAE := history.Final()
	m.logger.Infow("Model fit completed",
		"loss", loss,
		"mae", mae,
		"val_loss", valLoss,
		"val_mae", valMAE,
		"duration", time.Since(started),
	)
	return history, nil
}

// evaluate returns MSE and MAE over idx without dropout.
func (m *Model) evaluate(X []features.Matrix, Y features.Matrix, idx []int) (float64, float64) {
	var sumLoss, sumAbs float64
	for _, i := range idx {
		y := m.forward(X[i], nil, nil)
		for k := range y {
			diff := y[k] - Y[i][k]
			sumLoss += diff * diff
			sumAbs += math.Abs(diff)
		}
	}
	denom := float64(len(idx) * m.arch.Outputs)
	return sumLoss / denom, sumAbs / denom
}

// splitIndices shuffles 0..n-1 and holds out ceil(split*n) indices for
// validation, always leaving at least one for training.
func splitIndices(rng *rand.Rand, n int, split float64) (train, val []int) {
	perm := rng.Perm(n)
	nVal := int(math.Ceil(split * float64(n)))
	nVal = min(nVal, n-1)
	return perm[nVal:], perm[:nVal]
}
