package entities

import "fmt"

// ProfileName is a named ranking weight configuration.
type ProfileName string

const (
	ProfileBalanced ProfileName = "balanced"
	ProfileNearby   ProfileName = "nearby"
	ProfileQuality  ProfileName = "quality"
	ProfileBudget   ProfileName = "budget"
)

// OrderWeights is a ranking weight vector. Each weight is 0-100 and the
// vector sums to exactly 100.
type OrderWeights struct {
	Rating   int `json:"rating"`
	Reviews  int `json:"reviews"`
	Price    int `json:"price"`
	OpenNow  int `json:"open_now"`
	Distance int `json:"distance"`
}

// Sum returns the total of all weights.
func (w OrderWeights) Sum() int {
	return w.Rating + w.Reviews + w.Price + w.OpenNow + w.Distance
}

// Validate checks the weight-sum invariant.
func (w OrderWeights) Validate() error {
	if s := w.Sum(); s != 100 {
		return fmt.Errorf("order weights sum to %d, want 100", s)
	}
	return nil
}

// OrderProfile pairs a profile name with its weight vector.
type OrderProfile struct {
	Profile ProfileName  `json:"profile"`
	Weights OrderWeights `json:"weights"`
}
