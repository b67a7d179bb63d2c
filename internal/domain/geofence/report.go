package geofence

// Report is the full verdict for one agent/customer pair.
type Report struct {
	DistanceMeters float64       `json:"distance_meters"`
	Match          int           `json:"match_percentage"`
	Confidence     Level         `json:"confidence"`
	Accuracy       AccuracyCheck `json:"accuracy_check"`
	Quality        Quality       `json:"gps_quality"`
	AccuracyMeters float64       `json:"accuracy_meters"`
}

// Warn reports whether the UI should surface a warning banner.
func (r Report) Warn() bool {
	return r.Confidence != ConfidenceHigh || r.Accuracy != AccuracyOK
}

// Evaluate compares the agent's fix with the customer's registered point.
// Only the agent's accuracy is considered; a fix without one is treated as
// 100 m.
func Evaluate(agent, customer Point) (Report, error) {
	d, err := Distance(agent, customer)
	if err != nil {
		return Report{}, err
	}
	match, err := MatchPercentage(d)
	if err != nil {
		return Report{}, err
	}

	acc := agent.AccuracyMeters
	if acc == 0 {
		acc = defaultAccuracyMeters
	}

	return Report{
		DistanceMeters: d,
		Match:          match,
		Confidence:     Confidence(match),
		Accuracy:       CheckAccuracy(acc),
		Quality:        GPSQuality(acc),
		AccuracyMeters: acc,
	}, nil
}
