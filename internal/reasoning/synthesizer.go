// Package reasoning turns a verdict and the raw observation into short,
// human-readable justifications. The rules are fixed thresholds evaluated in a
// fixed order; every rule that fires contributes one reason, and each verdict
// has a generic fallback so the result is never empty.
package reasoning

import (
	"strings"

	"fishwatch/internal/types"
)

// Rule thresholds.
const (
	CloseProximityNM   = 2.0  // positive: proximity below this is too close
	HighSpeedKnots     = 15.0 // positive: speed above this is suspicious
	PolarLatitude      = 60.0 // positive: |lat| beyond this is polar
	SafeProximityNM    = 5.0  // negative: proximity above this is safe
	ModerateSpeedKnots = 10.0 // negative: speed below this is moderate
)

// Reason texts, in evaluation order.
const (
	ReasonTooClose = "Proximity to protected area is too close (< 2 nautical miles), violating conservation laws."
	ReasonTooFast  = "Vessel speed is excessively high (> 15 knots), suggesting potential illegal activity."
	ReasonPolar    = "Location is in a polar region (Arctic or Southern Ocean), where fishing is heavily regulated or prohibited."
	ReasonPositive = "The combination of location, speed, and proximity indicates a high likelihood of illegal fishing based on the model."

	ReasonSafeDistance  = "Safe distance from protected areas (> 5 nautical miles) suggests legal operation."
	ReasonModerateSpeed = "Moderate vessel speed (< 10 knots) is consistent with legal fishing practices."
	ReasonCommonRegion  = "Location is within a commonly fished ocean region with fewer restrictions."
	ReasonNegative      = "The combination of location, speed, and proximity indicates a low likelihood of illegal fishing based on the model."
)

// Separator joins reasons for display.
const Separator = "; "

// Synthesizer produces reasoning for a verdict. It holds no state.
type Synthesizer struct{}

// NewSynthesizer returns a Synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Explain returns every reason that applies to obs under label, in rule order.
// Any label other than VerdictPositive is explained as negative.
func (s *Synthesizer) Explain(obs types.Observation, label types.VerdictLabel) []string {
	if label.IsPositive() {
		return explainPositive(obs)
	}
	return explainNegative(obs)
}

func explainPositive(obs types.Observation) []string {
	var reasons []string
	if obs.Proximity < CloseProximityNM {
		reasons = append(reasons, ReasonTooClose)
	}
	if obs.Speed > HighSpeedKnots {
		reasons = append(reasons, ReasonTooFast)
	}
	if obs.Latitude > PolarLatitude || obs.Latitude < -PolarLatitude {
		reasons = append(reasons, ReasonPolar)
	}
	if len(reasons) == 0 {
		reasons = append(reasons, ReasonPositive)
	}
	return reasons
}

func explainNegative(obs types.Observation) []string {
	var reasons []string
	if obs.Proximity > SafeProximityNM {
		reasons = append(reasons, ReasonSafeDistance)
	}
	if obs.Speed < ModerateSpeedKnots {
		reasons = append(reasons, ReasonModerateSpeed)
	}
	if inCommonFishingRegion(obs.Latitude, obs.Longitude) {
		reasons = append(reasons, ReasonCommonRegion)
	}
	if len(reasons) == 0 {
		reasons = append(reasons, ReasonNegative)
	}
	return reasons
}

// inCommonFishingRegion covers the Atlantic and Indian boxes between the
// polar circles.
func inCommonFishingRegion(lat, lon float64) bool {
	return -PolarLatitude <= lat && lat <= PolarLatitude && -70 <= lon && lon <= 100
}

// Join renders reasons for display.
func Join(reasons []string) string {
	return strings.Join(reasons, Separator)
}
