// internal/analytics/analytics.go
package analytics

import (
	"math"
	"sort"

	"github.com/wordrelay/relay/internal/models"
)

// HistogramBuckets is the fixed progress distribution: width-20 ranges
// [0,20) [20,40) [40,60) [60,80) [80,100], last bucket inclusive.
const HistogramBuckets = 5

// Thresholds for the derived roster counters.
const (
	strugglingLives = 1 // lives <= 1 counts as struggling
)

// RosterStats is recomputed from scratch on every roster snapshot; each
// store delivery is a full replacement, never a patch.
type RosterStats struct {
	Count       int                   `json:"count"`
	AvgProgress int                   `json:"avgProgress"`
	AvgScore    int                   `json:"avgScore"`
	Struggling  int                   `json:"struggling"`
	Completed   int                   `json:"completed"`
	Histogram   [HistogramBuckets]int `json:"histogram"`
}

// TeamProgress is the rounded mean of all participants' progress.
// An empty roster is defined as 0.
func TeamProgress(roster []models.Participant) int {
	if len(roster) == 0 {
		return 0
	}
	total := 0
	for _, p := range roster {
		total += p.Progress
	}
	return int(math.Round(float64(total) / float64(len(roster))))
}

// TeamComplete is true iff every participant has progress >= 100. An empty
// roster is explicitly false, not vacuously true.
func TeamComplete(roster []models.Participant) bool {
	if len(roster) == 0 {
		return false
	}
	for _, p := range roster {
		if p.Progress < models.MaxProgress {
			return false
		}
	}
	return true
}

// Compute derives the full roster statistics from one snapshot.
func Compute(roster []models.Participant) RosterStats {
	stats := RosterStats{Count: len(roster)}
	if len(roster) == 0 {
		return stats
	}

	totalProgress, totalScore := 0, 0
	for _, p := range roster {
		totalProgress += p.Progress
		totalScore += p.Score
		if p.Lives <= strugglingLives {
			stats.Struggling++
		}
		if p.Progress >= models.MaxProgress {
			stats.Completed++
		}
		stats.Histogram[bucket(p.Progress)]++
	}
	n := float64(len(roster))
	stats.AvgProgress = int(math.Round(float64(totalProgress) / n))
	stats.AvgScore = int(math.Round(float64(totalScore) / n))
	return stats
}

// Standings orders a roster by score, highest first. Ties keep their
// relative roster order.
func Standings(roster []models.Participant) []models.Participant {
	out := make([]models.Participant, len(roster))
	copy(out, roster)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func bucket(progress int) int {
	if progress < 0 {
		return 0
	}
	b := progress / 20
	if b >= HistogramBuckets {
		return HistogramBuckets - 1 // 100 lands in [80,100]
	}
	return b
}
