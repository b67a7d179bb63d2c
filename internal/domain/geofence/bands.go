package geofence

// Level is the confidence band of a match percentage.
type Level string

// Confidence bands.
const (
	ConfidenceHigh   Level = "high"
	ConfidenceMedium Level = "medium"
	ConfidenceLow    Level = "low"
)

// AccuracyCheck says what the UI must do with a reported GPS accuracy.
type AccuracyCheck string

// Accuracy gates. None of them rejects the position.
const (
	AccuracyOK      AccuracyCheck = "ok"
	AccuracyWarn    AccuracyCheck = "warn"
	AccuracyConfirm AccuracyCheck = "confirm"
)

// Quality is the signal-quality label shown next to the GPS fix.
type Quality string

// GPS quality labels.
const (
	QualityExcellent Quality = "excelente"
	QualityGood      Quality = "buena"
	QualityFair      Quality = "regular"
	QualityPoor      Quality = "mala"
)

const (
	highMatch   = 80
	mediumMatch = 50

	warnAccuracyMeters    = 100.0
	confirmAccuracyMeters = 1000.0

	excellentAccuracyMeters = 20.0
	goodAccuracyMeters      = 50.0
	fairAccuracyMeters      = 100.0

	// defaultAccuracyMeters stands in for a fix that reported no accuracy.
	defaultAccuracyMeters = 100.0
)

// Confidence maps a match percentage to its band.
func Confidence(match int) Level {
	switch {
	case match >= highMatch:
		return ConfidenceHigh
	case match >= mediumMatch:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// CheckAccuracy gates a fix by its reported accuracy. Above 100 m the UI
// warns; above 1000 m it must ask the user to confirm before proceeding.
func CheckAccuracy(accuracyMeters float64) AccuracyCheck {
	switch {
	case accuracyMeters > confirmAccuracyMeters:
		return AccuracyConfirm
	case accuracyMeters > warnAccuracyMeters:
		return AccuracyWarn
	default:
		return AccuracyOK
	}
}

// GPSQuality labels a fix by its reported accuracy.
func GPSQuality(accuracyMeters float64) Quality {
	switch {
	case accuracyMeters <= excellentAccuracyMeters:
		return QualityExcellent
	case accuracyMeters <= goodAccuracyMeters:
		return QualityGood
	case accuracyMeters <= fairAccuracyMeters:
		return QualityFair
	default:
		return QualityPoor
	}
}
