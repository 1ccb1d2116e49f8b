package service

import "math"

// Assessment is the outcome of the v1.0 rule model for one reading.
type Assessment struct {
	Prediction       int
	NeedsMaintenance bool
	Confidence       float64
}

// Assess weighs temperature (60%) and humidity (40%) as fractions of 100 and
// adds penalties for hot or humid machines. Confidence is the clamped risk
// score; anything above 0.5 needs maintenance.
func Assess(temperature, humidity float64) Assessment {
	risk := temperature/100*0.6 + humidity/100*0.4

	switch {
	case temperature > 90:
		risk += 0.3
	case temperature > 80:
		risk += 0.15
	}
	if humidity > 70 {
		risk += 0.1
	}

	confidence := math.Min(math.Max(risk, 0), 1)
	needs := confidence > 0.5

	a := Assessment{NeedsMaintenance: needs, Confidence: round(confidence, 4)}
	if needs {
		a.Prediction = 1
	}
	return a
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
