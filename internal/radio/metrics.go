package radio

import "math"

// Floors keep every derived metric meaningful even for stations with a tiny
// listener base. They are configuration, not math: the earnings conditional in
// the band cascade depends on salesBoostFloor being adjustable down to zero.
const (
	listenersFloor    = 100
	hypeGainedFloor   = 1
	streamsBoostFloor = 10
	salesBoostFloor   = 5

	multiplierBase   = 0.55
	multiplierSpread = 0.35

	hypeRate    = 0.002
	streamsRate = 0.6
	salesRate   = 0.015
)

// PlayMetrics carries the derived audience figures for one airing event.
type PlayMetrics struct {
	Listeners    int64
	HypeGained   int64
	StreamsBoost int64
	SalesBoost   int64
}

// CalculateAirplayMetrics maps a station's listener base and a random draw in
// [0, 1) to the audience metrics of a single play. It is pure: the same
// (listenerBase, draw) pair always produces the same metrics.
func CalculateAirplayMetrics(listenerBase int64, draw float64) PlayMetrics {
	multiplier := multiplierBase + draw*multiplierSpread
	listeners := atLeast(listenersFloor, roundToInt64(float64(listenerBase)*multiplier))

	return PlayMetrics{
		Listeners:    listeners,
		HypeGained:   atLeast(hypeGainedFloor, roundToInt64(float64(listeners)*hypeRate)),
		StreamsBoost: atLeast(streamsBoostFloor, roundToInt64(float64(listeners)*streamsRate)),
		SalesBoost:   atLeast(salesBoostFloor, roundToInt64(float64(listeners)*salesRate)),
	}
}

func roundToInt64(value float64) int64 {
	return int64(math.Round(value))
}

func atLeast(floor, value int64) int64 {
	if value < floor {
		return floor
	}
	return value
}
