package policy

import (
	"fmt"

	"github.com/GoSim-25-26J-441/clicksim/pkg/config"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
	"github.com/GoSim-25-26J-441/clicksim/pkg/utils"
)

// RoundCap is the hard ceiling on rounds in one episode
const RoundCap = 1000

// Criterion selects the set of stopping checks
type Criterion string

const (
	MaxIter                   Criterion = "max_iter"
	MaxIterAndProbability     Criterion = "max_iter_and_probability"
	MaxIterAndDice            Criterion = "max_iter_and_dice"
	MaxIterProbabilityAndDice Criterion = "max_iter_probability_and_dice"
	DeepgrowProbability       Criterion = "deepgrow_probability"
)

// check returns a non-empty reason when the episode must stop
type check func(state *models.StoppingState) Reason

type stoppingPolicy struct {
	criterion Criterion
	checks    []check
}

// NewStoppingPolicy composes the checks of the configured criterion in
// precedence order: iteration cap, per-round probability, dice threshold,
// dice-weighted probability and the deepgrow entry gate.
func NewStoppingPolicy(cfg config.Interaction, rng *utils.RandSource) (StoppingPolicy, error) {
	criterion := Criterion(cfg.StoppingCriterion)

	maxIter := func(st *models.StoppingState) Reason {
		if st.Iteration > cfg.MaxInteractions-1 {
			return ReasonMaxIterations
		}
		return ReasonNone
	}
	probability := func(*models.StoppingState) Reason {
		if !rng.BernoulliBool(cfg.IterationProbability) {
			return ReasonProbability
		}
		return ReasonNone
	}
	dice := func(st *models.StoppingState) Reason {
		if st.LastLoss < cfg.LossStoppingThreshold {
			return ReasonDice
		}
		return ReasonNone
	}
	diceProbability := func(st *models.StoppingState) Reason {
		if rng.BernoulliBool(1 - st.LastLoss) {
			return ReasonDiceProbability
		}
		return ReasonNone
	}
	deepgrow := func(st *models.StoppingState) Reason {
		if st.Iteration == 0 && !rng.BernoulliBool(cfg.DeepgrowProbability) {
			return ReasonDeepgrow
		}
		return ReasonNone
	}

	var checks []check
	switch criterion {
	case MaxIter:
		checks = []check{maxIter}
	case MaxIterAndProbability:
		checks = []check{maxIter, probability}
	case MaxIterAndDice:
		checks = []check{maxIter, dice}
	case MaxIterProbabilityAndDice:
		checks = []check{maxIter, diceProbability}
	case DeepgrowProbability:
		checks = []check{maxIter, deepgrow}
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownCriterion, cfg.StoppingCriterion)
	}
	return &stoppingPolicy{criterion: criterion, checks: checks}, nil
}

func (p *stoppingPolicy) Enabled() bool {
	return true
}

func (p *stoppingPolicy) Name() string {
	return "stopping:" + string(p.criterion)
}

func (p *stoppingPolicy) Check(state *models.StoppingState) (Decision, error) {
	if state.Iteration >= RoundCap {
		return Decision{State: Stop}, fmt.Errorf("round %d: %w", state.Iteration, models.ErrRoundCapExceeded)
	}
	for _, c := range p.checks {
		if reason := c(state); reason != ReasonNone {
			return Decision{State: Stop, Reason: reason}, nil
		}
	}
	return Decision{State: Continue}, nil
}
