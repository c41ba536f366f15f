package recommendation

import (
	"math"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

// Goal is the learning objective a bundle is ranked against.
type Goal string

const (
	GoalReduceStress      Goal = "reduce_stress"
	GoalBoostProfit       Goal = "boost_rentabilite"
	GoalPreserveLiquidity Goal = "preserve_liquidity"
	GoalBalance           Goal = "balance"
)

// Goals lists every goal in display order.
var Goals = [...]Goal{GoalReduceStress, GoalBoostProfit, GoalPreserveLiquidity, GoalBalance}

// ParseGoal validates a goal string. Only the exact goal names are accepted.
func ParseGoal(s string) (Goal, error) {
	g := Goal(s)
	if !g.IsValid() {
		return "", shared.WrapError("recommendation", "ParseGoal", shared.ErrInvalidInput, "unknown goal "+s, shared.ErrInvalidGoal)
	}
	return g, nil
}

// IsValid reports whether the goal is one of the four known goals.
func (g Goal) IsValid() bool {
	for _, known := range Goals {
		if g == known {
			return true
		}
	}
	return false
}

// goalScore is the weighted dot-product of the expected impact against the goal
// weights. Stress relief is rewarded and stress increase is penalised; every
// other metric only counts when positive.
func goalScore(imp mission.Impact, w tuning.GoalWeights) float64 {
	return w.Stress*(-imp.Get(mission.MetricStress)) +
		w.Cashflow*math.Max(0, imp.Get(mission.MetricCashflow)) +
		w.Control*math.Max(0, imp.Get(mission.MetricControl)) +
		w.Profitability*math.Max(0, imp.Get(mission.MetricProfitability)) +
		w.Reputation*math.Max(0, imp.Get(mission.MetricReputation))
}
