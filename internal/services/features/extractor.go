package features

import (
	"math"
	"time"

	"FraudGuard/internal/domain/models"
)

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// VectorSize is the fixed length of the extracted feature vector.
const VectorSize = 9

// Feature vector layout. Order is part of the model contract: a forest
// trained on one layout cannot score another.
const (
	FeatAmount = iota
	FeatHourOfDay
	FeatDayOfWeek
	FeatDaysSinceLast
	FeatMeanAmount10
	FeatStdAmount10
	FeatCountLastHour
	FeatCountLastDay
	FeatKmFromLast
)

// Extract builds the fixed-order feature vector for a transaction given its
// history window. An empty window yields zeros for the history-derived
// features, never an error.
func Extract(tx *models.Transaction, history models.HistoryWindow) []float64 {
	v := make([]float64, VectorSize)
	ts := tx.Timestamp.UTC()

	v[FeatAmount] = tx.Amount
	v[FeatHourOfDay] = float64(ts.Hour())
	v[FeatDayOfWeek] = float64(ts.Weekday())

	if last := history.Latest(); last != nil {
		v[FeatDaysSinceLast] = ts.Sub(last.Timestamp).Hours() / 24
		v[FeatKmFromLast] = DistanceKm(tx, last)
	}

	amounts := history.Amounts(10)
	v[FeatMeanAmount10] = Mean(amounts)
	v[FeatStdAmount10] = Std(amounts)

	v[FeatCountLastHour] = float64(len(history.Since(ts.Add(-time.Hour))))
	v[FeatCountLastDay] = float64(len(history.Since(ts.Add(-24 * time.Hour))))
	return v
}

// DistanceKm is the haversine distance between two transactions, 0 when
// either lacks coordinates.
func DistanceKm(a, b *models.Transaction) float64 {
	if !a.HasLocation() || !b.HasLocation() {
		return 0
	}
	return Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Haversine computes the great-circle distance in kilometers between two
// latitude/longitude points on a sphere of mean Earth radius.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Std returns the population standard deviation, 0 for fewer than 2 values.
func Std(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(xs)))
}

// ZScore standardizes x against mean/std, 0 when std is zero.
func ZScore(x, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (x - mean) / std
}
