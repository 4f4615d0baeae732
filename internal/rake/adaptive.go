package rake

// speedBand maps a speed interval onto linear ramps for the path search rate
// and tracking bandwidth. Faster platforms shed and acquire paths more
// quickly, so they get more frequent probes and wider loops.
type speedBand struct {
	loSpeed, hiSpeed float64 // km/h
	loRate, hiRate   float64 // probes/second
	loBW, hiBW       float64 // Hz
}

// speedBands is the two-band profile of the adaptive controller. Speeds
// below the first band clamp to its lower endpoint, speeds above the last
// band to its upper endpoint, and the bands meet continuously at 60 km/h.
var speedBands = []speedBand{
	{loSpeed: 15, hiSpeed: 60, loRate: 10, hiRate: 20, loBW: 100, hiBW: 120},
	{loSpeed: 60, hiSpeed: 120, loRate: 20, hiRate: 50, loBW: 120, hiBW: 200},
}

// AdaptiveRates maps a platform speed in km/h to the controller's path
// search rate and tracking bandwidth by piecewise-linear interpolation over
// the speed bands.
func AdaptiveRates(speedKmh float64) (searchRateHz, bandwidthHz float64) {
	first, last := speedBands[0], speedBands[len(speedBands)-1]
	if speedKmh <= first.loSpeed {
		return first.loRate, first.loBW
	}
	if speedKmh >= last.hiSpeed {
		return last.hiRate, last.hiBW
	}
	for _, b := range speedBands {
		if speedKmh <= b.hiSpeed {
			t := (speedKmh - b.loSpeed) / (b.hiSpeed - b.loSpeed)
			return lerp(b.loRate, b.hiRate, t), lerp(b.loBW, b.hiBW, t)
		}
	}
	// Unreachable: the bands cover (first.loSpeed, last.hiSpeed].
	return last.hiRate, last.hiBW
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
