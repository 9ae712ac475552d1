// internal/analytics/analytics_test.go
package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wordrelay/relay/internal/models"
)

func roster(progress ...int) []models.Participant {
	out := make([]models.Participant, len(progress))
	for i, p := range progress {
		out[i] = models.Participant{Progress: p, Lives: 3}
	}
	return out
}

func TestTeamProgress(t *testing.T) {
	assert.Equal(t, 0, TeamProgress(nil))
	assert.Equal(t, 0, TeamProgress([]models.Participant{}))
	assert.Equal(t, 75, TeamProgress(roster(50, 100)))
	assert.Equal(t, 33, TeamProgress(roster(0, 40, 60)))
}

func TestTeamComplete(t *testing.T) {
	assert.False(t, TeamComplete(nil), "an empty roster is not a finished team")
	assert.False(t, TeamComplete(roster(100, 80)))
	assert.True(t, TeamComplete(roster(100, 100)))
}

func TestComputeCounters(t *testing.T) {
	rs := []models.Participant{
		{Progress: 100, Score: 800, Lives: 4},
		{Progress: 40, Score: 200, Lives: 1},
		{Progress: 0, Score: 0, Lives: 0},
	}
	stats := Compute(rs)

	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 47, stats.AvgProgress)
	assert.Equal(t, 333, stats.AvgScore)
	assert.Equal(t, 2, stats.Struggling, "lives <= 1 counts as struggling")
	assert.Equal(t, 1, stats.Completed)
}

func TestComputeEmpty(t *testing.T) {
	stats := Compute(nil)
	assert.Equal(t, 0, stats.Count)
	assert.Equal(t, 0, stats.AvgProgress)
	assert.Equal(t, [HistogramBuckets]int{}, stats.Histogram)
}

func TestHistogramBucketsEdges(t *testing.T) {
	stats := Compute(roster(0, 19, 20, 59, 80, 99, 100))
	assert.Equal(t, [HistogramBuckets]int{2, 1, 1, 0, 3}, stats.Histogram,
		"full progress belongs in the last bucket, not out of range")
}

func TestStandingsOrderedByScore(t *testing.T) {
	rs := []models.Participant{
		{ID: "a", Score: 100},
		{ID: "b", Score: 500},
		{ID: "c", Score: 100},
	}
	got := Standings(rs)

	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID, "ties keep roster order")
	assert.Equal(t, "c", got[2].ID)
	assert.Equal(t, "a", rs[0].ID, "input roster is untouched")
}
