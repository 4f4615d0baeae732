package rake

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// searchCandidate is one probed delay and its correlation strength.
type searchCandidate struct {
	delay int
	mag   float64
}

// SearchStats summarizes the most recent probe for observability: the
// candidate magnitude distribution doubles as a noise-floor estimate.
type SearchStats struct {
	Probes        uint64  `json:"probes"`
	Candidates    int     `json:"candidates"`
	Eligible      int     `json:"eligible"`
	Reassignments uint64  `json:"reassignments"`
	NoiseMean     float64 `json:"noise_mean"`
	NoiseStdDev   float64 `json:"noise_std_dev"`
}

// pathSearcher scans candidate delays for new multipath components and
// reassigns fingers to the strongest ones, subject to the lock and dwell
// guards. It owns no fingers; it mutates the bank it is handed.
type pathSearcher struct {
	window int // candidate delays probed: [0, window]
	mags   []float64
	stats  SearchStats
}

func newPathSearcher(window int) *pathSearcher {
	return &pathSearcher{
		window: window,
		mags:   make([]float64, 0, window+1),
	}
}

// probe scans the candidate delay range against the pattern, then applies
// the assignment policy:
//
//   - candidates above the detection threshold are eligible, strongest
//     first, earliest delay breaking ties
//   - a searching slot takes the strongest eligible candidate
//   - otherwise the weakest unlocked finger is evicted, provided its
//     smoothed magnitude is below the lock threshold, the candidate is
//     strictly stronger, and the reassignment dwell has elapsed
//   - locked fingers are never evicted by a weaker-or-equal candidate
//
// It returns one event per reassignment performed.
func (s *pathSearcher) probe(bank *FingerBank, window []complex128, pattern []complex128,
	detectionThreshold, lockThreshold float64, dwellSamples, sampleCount uint64) []FingerEvent {

	s.stats.Probes++

	eligible := make([]searchCandidate, 0, 4)
	s.mags = s.mags[:0]
	for delay := 0; delay <= s.window; delay++ {
		if delay+len(pattern) > len(window) {
			break
		}
		if bank.HasDelay(delay) {
			continue
		}
		mag := NormalizedMagnitude(Correlate(window, delay, pattern), len(pattern))
		s.mags = append(s.mags, mag)
		if mag > detectionThreshold {
			eligible = append(eligible, searchCandidate{delay: delay, mag: mag})
		}
	}

	s.stats.Candidates = len(s.mags)
	s.stats.Eligible = len(eligible)
	if len(s.mags) > 0 {
		s.stats.NoiseMean = stat.Mean(s.mags, nil)
		s.stats.NoiseStdDev = stat.StdDev(s.mags, nil)
	}

	if len(eligible) == 0 {
		return nil
	}

	// Strongest first; the earliest path wins among equals.
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].mag != eligible[j].mag {
			return eligible[i].mag > eligible[j].mag
		}
		return eligible[i].delay < eligible[j].delay
	})

	// Each slot takes at most one candidate per probe; without the mask the
	// freshly reassigned slot would be searching again and absorb every
	// remaining candidate.
	assigned := make([]bool, bank.Count())

	var events []FingerEvent
	for _, cand := range eligible {
		idx := s.assignTarget(bank, cand, assigned, lockThreshold, dwellSamples, sampleCount)
		if idx < 0 {
			continue
		}
		assigned[idx] = true
		f := bank.finger(idx)
		events = append(events, FingerEvent{
			Finger:      idx,
			Delay:       cand.delay,
			From:        f.State,
			To:          StateSearching,
			Magnitude:   cand.mag,
			SampleCount: sampleCount,
		})
		*f = Finger{
			Delay:            cand.delay,
			State:            StateSearching,
			LastReassignedAt: sampleCount,
		}
		s.stats.Reassignments++
	}
	return events
}

// assignTarget picks the finger slot a candidate should take, or -1.
func (s *pathSearcher) assignTarget(bank *FingerBank, cand searchCandidate, assigned []bool,
	lockThreshold float64, dwellSamples, sampleCount uint64) int {

	// Prefer an idle searching slot.
	for i := 0; i < bank.Count(); i++ {
		if !assigned[i] && bank.finger(i).State == StateSearching {
			return i
		}
	}

	// Otherwise consider evicting the weakest unlocked finger.
	weakest := -1
	for i := 0; i < bank.Count(); i++ {
		f := bank.finger(i)
		if assigned[i] || f.State == StateLocked {
			continue
		}
		if weakest < 0 || f.SmoothedMag < bank.finger(weakest).SmoothedMag {
			weakest = i
		}
	}
	if weakest < 0 {
		return -1
	}

	f := bank.finger(weakest)
	if f.SmoothedMag >= lockThreshold {
		return -1
	}
	if cand.mag <= f.SmoothedMag {
		return -1
	}
	if sampleCount-f.LastReassignedAt < dwellSamples {
		return -1
	}
	return weakest
}

// Stats returns a snapshot of the searcher's counters.
func (s *pathSearcher) Stats() SearchStats { return s.stats }
