package story

import (
	"fmt"
	"math"
)

// Act is one of the five narrative phases, numbered 1..5.
type Act int

const (
	ActExposition Act = iota + 1
	ActRisingAction
	ActConflict
	ActClimax
	ActResolution
)

// ActCount is the number of acts in the dramatic structure.
const ActCount = 5

var actLabels = [ActCount]struct{ korean, english string }{
	{"발단", "Exposition"},
	{"전개", "Rising Action"},
	{"위기", "Conflict"},
	{"절정", "Climax"},
	{"결말", "Resolution"},
}

// Acts lists every act in order.
func Acts() []Act {
	return []Act{ActExposition, ActRisingAction, ActConflict, ActClimax, ActResolution}
}

// Valid reports whether a is within 1..5.
func (a Act) Valid() bool {
	return a >= ActExposition && a <= ActResolution
}

// Name returns the Korean act label. Out-of-range values render as 제N막.
func (a Act) Name() string {
	if !a.Valid() {
		return fmt.Sprintf("제%d막", int(a))
	}
	return actLabels[a-1].korean
}

// EnglishName returns the English act label.
func (a Act) EnglishName() string {
	if !a.Valid() {
		return fmt.Sprintf("Act %d", int(a))
	}
	return actLabels[a-1].english
}

func (a Act) String() string { return a.Name() }

// ActDistribution holds the scene count per act.
type ActDistribution [ActCount]int

// Total sums the per-act counts.
func (d ActDistribution) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// DefaultActWeights is the conventional pacing: rising action longest, resolution shortest.
var DefaultActWeights = [ActCount]float64{0.20, 0.25, 0.20, 0.20, 0.15}

const weightTolerance = 0.01

// Distributor splits a scene count across the five acts.
type Distributor struct {
	weights [ActCount]float64
}

// NewDistributor validates weights and returns a distributor using them.
func NewDistributor(weights []float64) (*Distributor, error) {
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}
	d := &Distributor{}
	copy(d.weights[:], weights)
	return d, nil
}

// DefaultDistributor uses DefaultActWeights.
func DefaultDistributor() *Distributor {
	return &Distributor{weights: DefaultActWeights}
}

// ValidateWeights checks for five positive weights summing to 1.
func ValidateWeights(weights []float64) error {
	if len(weights) != ActCount {
		return fmt.Errorf("act weights: expected %d values, got %d", ActCount, len(weights))
	}
	sum := 0.0
	for i, w := range weights {
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("act weights: weight %d must be > 0 (got %v)", i+1, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("act weights: must sum to 1 (got %.3f)", sum)
	}
	return nil
}

// Distribute assigns total scenes to acts. Up to five scenes get one act each.
// Beyond that every act gets max(1, floor(total*w)); a surplus goes to the
// rising action and a deficit comes out of the resolution.
func (d *Distributor) Distribute(total int) ActDistribution {
	var dist ActDistribution
	if total <= 0 {
		return dist
	}
	if total <= ActCount {
		for i := 0; i < total; i++ {
			dist[i] = 1
		}
		return dist
	}
	for i, w := range d.weights {
		dist[i] = max(1, int(float64(total)*w))
	}
	diff := total - dist.Total()
	switch {
	case diff > 0:
		dist[ActRisingAction-1] += diff
	case diff < 0:
		dist[ActResolution-1] += diff
		rebalance(&dist)
	}
	return dist
}

// rebalance lifts a resolution act driven below one scene by skewed weights,
// borrowing from the largest act so the total is preserved.
func rebalance(dist *ActDistribution) {
	last := ActResolution - 1
	for dist[last] < 1 {
		largest := 0
		for i := 1; i < int(last); i++ {
			if dist[i] > dist[largest] {
				largest = i
			}
		}
		if dist[largest] <= 1 {
			return
		}
		dist[largest]--
		dist[last]++
	}
}
