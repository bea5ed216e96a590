package ml

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
	probFloor   = 1e-7
)

var hiddenUnits = []int{32, 16}

type denseLayer struct {
	weights *mat.Dense
	bias    []float64

	// Adam moments
	mW, vW *mat.Dense
	mB, vB []float64
}

// network is a fully connected classifier: ReLU hidden layers and a softmax
// output, trained with categorical cross-entropy and Adam.
type network struct {
	layers       []*denseLayer
	inputSize    int
	outputSize   int
	learningRate float64
	step         int
	ws           *workspace
	rng          *rand.Rand
}

func newNetwork(inputSize, outputSize int, learningRate float64, rng *rand.Rand) *network {
	sizes := append([]int{inputSize}, hiddenUnits...)
	sizes = append(sizes, outputSize)

	n := &network{
		inputSize:    inputSize,
		outputSize:   outputSize,
		learningRate: learningRate,
		ws:           newWorkspace(),
		rng:          rng,
	}
	for i := 0; i < len(sizes)-1; i++ {
		in, out := sizes[i], sizes[i+1]
		n.layers = append(n.layers, &denseLayer{
			weights: mat.NewDense(in, out, nil),
			bias:    make([]float64, out),
			mW:      mat.NewDense(in, out, nil),
			vW:      mat.NewDense(in, out, nil),
			mB:      make([]float64, out),
			vB:      make([]float64, out),
		})
	}
	n.initWeights()
	return n
}

// initWeights applies Glorot-uniform kernels, zero biases and clears the optimizer.
func (n *network) initWeights() {
	for _, layer := range n.layers {
		in, out := layer.weights.Dims()
		limit := math.Sqrt(6 / float64(in+out))
		raw := layer.weights.RawMatrix().Data
		for i := range raw {
			raw[i] = (n.rng.Float64()*2 - 1) * limit
		}
		for j := range layer.bias {
			layer.bias[j] = 0
			layer.mB[j] = 0
			layer.vB[j] = 0
		}
		layer.mW.Zero()
		layer.vW.Zero()
	}
	n.step = 0
}

// forward returns the activations of every layer, input first. All matrices
// belong to s.
func (n *network) forward(s *scope, x *mat.Dense) []*mat.Dense {
	rows, _ := x.Dims()
	acts := make([]*mat.Dense, 0, len(n.layers)+1)
	acts = append(acts, x)
	for i, layer := range n.layers {
		_, out := layer.weights.Dims()
		z := s.dense(rows, out)
		z.Mul(acts[i], layer.weights)
		for r := 0; r < rows; r++ {
			row := z.RawRowView(r)
			for j := range row {
				row[j] += layer.bias[j]
			}
			if i == len(n.layers)-1 {
				softmax(row)
			} else {
				relu(row)
			}
		}
		acts = append(acts, z)
	}
	return acts
}

// predict returns a copy of the output distribution for one input vector.
func (n *network) predict(input []float64) []float64 {
	s := n.ws.scope()
	defer s.release()

	x := s.dense(1, n.inputSize)
	copy(x.RawRowView(0), input)
	acts := n.forward(s, x)
	out := acts[len(acts)-1].RawRowView(0)
	return append([]float64(nil), out...)
}

// fit runs full-batch gradient steps, one per epoch, and returns the loss of
// the last epoch.
func (n *network) fit(inputs [][]float64, labels []int, epochs int) (float64, error) {
	if len(inputs) == 0 || len(inputs) != len(labels) {
		return 0, errors.New("inputs and labels size mismatch")
	}

	s := n.ws.scope()
	defer s.release()

	batch := len(inputs)
	x := s.dense(batch, n.inputSize)
	y := s.dense(batch, n.outputSize)
	for i, input := range inputs {
		copy(x.RawRowView(i), input)
		copy(y.RawRowView(i), OneHot(labels[i], n.outputSize))
	}

	var loss float64
	for epoch := 0; epoch < epochs; epoch++ {
		loss = n.trainStep(x, y)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return loss, ErrTrainingDiverged
		}
	}
	return loss, nil
}

func (n *network) trainStep(x, y *mat.Dense) float64 {
	s := n.ws.scope()
	defer s.release()

	batch, _ := x.Dims()
	acts := n.forward(s, x)
	probs := acts[len(acts)-1]

	loss := 0.0
	delta := s.dense(batch, n.outputSize)
	for r := 0; r < batch; r++ {
		p := probs.RawRowView(r)
		t := y.RawRowView(r)
		d := delta.RawRowView(r)
		for j := range p {
			if t[j] > 0 {
				loss -= t[j] * math.Log(math.Max(p[j], probFloor))
			}
			d[j] = (p[j] - t[j]) / float64(batch)
		}
	}
	loss /= float64(batch)

	n.step++
	for i := len(n.layers) - 1; i >= 0; i-- {
		layer := n.layers[i]
		in, out := layer.weights.Dims()

		gradW := s.dense(in, out)
		gradW.Mul(acts[i].T(), delta)
		gradB := make([]float64, out)
		for r := 0; r < batch; r++ {
			for j, v := range delta.RawRowView(r) {
				gradB[j] += v
			}
		}

		var prev *mat.Dense
		if i > 0 {
			prev = s.dense(batch, in)
			prev.Mul(delta, layer.weights.T())
			for r := 0; r < batch; r++ {
				a := acts[i].RawRowView(r)
				d := prev.RawRowView(r)
				for j := range d {
					if a[j] <= 0 {
						d[j] = 0
					}
				}
			}
		}

		n.adam(layer.weights.RawMatrix().Data, gradW.RawMatrix().Data,
			layer.mW.RawMatrix().Data, layer.vW.RawMatrix().Data)
		n.adam(layer.bias, gradB, layer.mB, layer.vB)
		delta = prev
	}
	return loss
}

func (n *network) adam(params, grads, m, v []float64) {
	c1 := 1 - math.Pow(adamBeta1, float64(n.step))
	c2 := 1 - math.Pow(adamBeta2, float64(n.step))
	for i, g := range grads {
		m[i] = adamBeta1*m[i] + (1-adamBeta1)*g
		v[i] = adamBeta2*v[i] + (1-adamBeta2)*g*g
		mHat := m[i] / c1
		vHat := v[i] / c2
		params[i] -= n.learningRate * mHat / (math.Sqrt(vHat) + adamEpsilon)
	}
}

func relu(row []float64) {
	for i, v := range row {
		if v < 0 {
			row[i] = 0
		}
	}
}

func softmax(row []float64) {
	maxV := math.Inf(-1)
	for _, v := range row {
		if v > maxV {
			maxV = v
		}
	}
	sum := 0.0
	for i, v := range row {
		row[i] = math.Exp(v - maxV)
		sum += row[i]
	}
	for i := range row {
		row[i] /= sum
	}
}
