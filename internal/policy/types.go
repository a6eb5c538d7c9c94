// Package policy holds the decision rules of an interaction episode: when
// click simulation stops, and when a failed inference call is retried.
package policy

import (
	"time"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// Policy represents a generic policy interface
type Policy interface {
	// Enabled returns whether the policy is enabled
	Enabled() bool
	// Name returns the policy name for identification
	Name() string
}

// StoppingPolicy decides before every round whether simulation continues
type StoppingPolicy interface {
	Policy
	// Check evaluates the configured criteria against the episode state
	Check(state *models.StoppingState) (Decision, error)
}

// RetryPolicy handles retry logic for failed inference calls
type RetryPolicy interface {
	Policy
	// ShouldRetry determines if a call should be retried
	ShouldRetry(attempt int, err error) bool
	// Backoff returns the wait before the given retry attempt
	Backoff(attempt int) time.Duration
	// MaxRetries returns the maximum number of retries allowed
	MaxRetries() int
}

// State is the outcome of a stopping check
type State string

const (
	Continue State = "continue"
	Stop     State = "stop"
)

// Reason names the criterion that ended an episode
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonMaxIterations   Reason = "max_iter"
	ReasonProbability     Reason = "probability"
	ReasonDice            Reason = "dice"
	ReasonDiceProbability Reason = "dice_probability"
	ReasonDeepgrow        Reason = "deepgrow_probability"
)

// Decision is the result of a stopping check
type Decision struct {
	State  State
	Reason Reason
}

// Stopped reports whether the episode ends
func (d Decision) Stopped() bool {
	return d.State == Stop
}

// FlushesHistory reports whether the episode's history is written out. Only
// the iteration cap ends an episode that way.
func (d Decision) FlushesHistory() bool {
	return d.Reason == ReasonMaxIterations
}
