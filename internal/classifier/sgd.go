package classifier

import "math"

// fixedSeed pins the shuffle/initialization randomness so retraining a
// profile on the same sample set reproduces the same model, per §4.5
// ("fixed seed").
const fixedSeed uint64 = 1729

// splitMix64 is a small, dependency-free deterministic PRNG. The
// ecosystem's math/rand (and rand/v2) are fine generators but none of
// the pack's examples import a third-party PRNG; math/rand's own
// top-level functions are deliberately avoided here only because a
// package-local generator keeps each Model's sequence independent of
// any other consumer of the global source, which matters for
// reproducibility across concurrent profiles (see DESIGN.md).
type splitMix64 struct{ state uint64 }

func newSplitMix64(seed uint64) *splitMix64 { return &splitMix64{state: seed} }

func (s *splitMix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func (s *splitMix64) float64() float64 {
	return float64(s.next()>>11) / (1 << 53)
}

// shuffle permutes idx in place via Fisher-Yates using the given source.
func shuffle(idx []int, rng *splitMix64) {
	for i := len(idx) - 1; i > 0; i-- {
		j := int(rng.next() % uint64(i+1))
		idx[i], idx[j] = idx[j], idx[i]
	}
}

// Model is an online logistic regression classifier trained via
// minibatch SGD on log-loss with class-balanced sample weights.
// Weights are a dense vector aligned to the Vectorizer's vocabulary
// plus a bias term.
type Model struct {
	Weights      []float64
	Bias         float64
	LearningRate float64
	L2           float64

	rng *splitMix64
}

// NewModel builds a Model sized to nFeatures with default learning
// rate and L2 penalty.
func NewModel(nFeatures int) *Model {
	return &Model{
		Weights:      make([]float64, nFeatures),
		LearningRate: 0.01,
		L2:           0.0001,
		rng:          newSplitMix64(fixedSeed),
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// predict returns the logistic probability of the positive class for x.
func (m *Model) predict(x []float64) float64 {
	z := m.Bias
	for i, w := range m.Weights {
		if i < len(x) {
			z += w * x[i]
		}
	}
	return sigmoid(z)
}

// PartialFit runs one SGD epoch over X/y, shuffled deterministically,
// with class-balanced sample weights computed per batch. Called once
// per training batch rather than run to full convergence.
func (m *Model) PartialFit(X [][]float64, y []int) {
	if len(X) == 0 {
		return
	}

	var pos, neg int
	for _, label := range y {
		if label == 1 {
			pos++
		} else {
			neg++
		}
	}
	n := float64(len(y))
	weightFor := func(label int) float64 {
		switch {
		case pos == 0 || neg == 0:
			return 1
		case label == 1:
			return n / (2 * float64(pos))
		default:
			return n / (2 * float64(neg))
		}
	}

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	shuffle(idx, m.rng)

	for _, i := range idx {
		x := X[i]
		target := float64(y[i])
		weight := weightFor(y[i])

		pred := m.predict(x)
		grad := weight * (pred - target)

		for j := range m.Weights {
			var xj float64
			if j < len(x) {
				xj = x[j]
			}
			m.Weights[j] -= m.LearningRate * (grad*xj + m.L2*m.Weights[j])
		}
		m.Bias -= m.LearningRate * grad
	}
}

// PredictProba returns P(label=1 | x).
func (m *Model) PredictProba(x []float64) float64 { return m.predict(x) }
