package policies

import (
	"math"

	"github.com/zeu5/avgrl-bench/types"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// softmaxAction samples action i with probability proportional to
// exp(Q(state, i) / temperature)
func (l *Learner) softmaxAction(step int, state types.State, actions []types.Action) types.Action {
	if len(actions) == 1 {
		return actions[0]
	}
	temperature := l.schedules.temperature.Rate(step + 1)

	weights := make([]float64, len(actions))
	max := math.Inf(-1)
	for i, a := range actions {
		weights[i] = l.qTable.Get(state, a) / temperature
		if weights[i] > max {
			max = weights[i]
		}
	}
	// shifted by the maximum so that exp does not overflow
	for i, w := range weights {
		weights[i] = math.Exp(w - max)
	}
	i, ok := sampleuv.NewWeighted(weights, l.rand).Take()
	if !ok {
		return actions[l.rand.Intn(len(actions))]
	}
	return actions[i]
}
