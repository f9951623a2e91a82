package mastery

import (
	"sort"
	"time"
)

type (
	// TopicOverall is one topic line in a student summary.
	TopicOverall struct {
		TopicID        string         `json:"topic_id"`
		Overall        float64        `json:"overall"`
		Classification Classification `json:"classification"`
	}

	// StudentSummary rolls a student's topic records up into one view.
	StudentSummary struct {
		StudentID string                 `json:"student_id"`
		Topics    []TopicOverall         `json:"topics"`
		Average   float64                `json:"average"`
		Strongest *TopicOverall          `json:"strongest,omitempty"`
		Weakest   *TopicOverall          `json:"weakest,omitempty"`
		Counts    map[Classification]int `json:"counts"`
	}

	// TopicAggregate is the class-wide view of a single topic.
	TopicAggregate struct {
		TopicID     string            `json:"topic_id"`
		Students    int               `json:"students"`
		MeanOverall float64           `json:"mean_overall"`
		LevelMeans  map[Level]float64 `json:"level_means"`
	}

	LeaderboardEntry struct {
		StudentID string  `json:"student_id"`
		Overall   float64 `json:"overall"`
		Rank      int     `json:"rank"`
	}
)

// BuildStudentSummary aggregates a student's mastery records, decayed as of
// the given instant. Topic order follows descending overall score.
func BuildStudentSummary(studentID string, records []TopicMastery, asOf time.Time, cfg Config) StudentSummary {
	sum := StudentSummary{
		StudentID: studentID,
		Topics:    make([]TopicOverall, 0, len(records)),
		Counts:    make(map[Classification]int),
	}

	var total float64
	for _, m := range records {
		overall := Overall(Decayed(m, asOf, cfg), cfg)
		to := TopicOverall{
			TopicID:        m.TopicID,
			Overall:        overall,
			Classification: Classify(overall, cfg),
		}
		sum.Topics = append(sum.Topics, to)
		sum.Counts[to.Classification]++
		total += overall
	}
	if len(sum.Topics) == 0 {
		return sum
	}

	sort.SliceStable(sum.Topics, func(i, j int) bool {
		if sum.Topics[i].Overall != sum.Topics[j].Overall {
			return sum.Topics[i].Overall > sum.Topics[j].Overall
		}
		return sum.Topics[i].TopicID < sum.Topics[j].TopicID
	})

	sum.Average = total / float64(len(sum.Topics))
	strongest, weakest := sum.Topics[0], sum.Topics[len(sum.Topics)-1]
	sum.Strongest = &strongest
	sum.Weakest = &weakest
	return sum
}

// BuildTopicAggregate computes class-wide means for one topic across the
// given per-student records, decayed as of the given instant.
func BuildTopicAggregate(topicID string, records []TopicMastery, asOf time.Time, cfg Config) TopicAggregate {
	agg := TopicAggregate{
		TopicID:    topicID,
		LevelMeans: make(map[Level]float64, len(Levels)),
	}
	if len(records) == 0 {
		return agg
	}

	var overallSum float64
	levelSums := make(map[Level]float64, len(Levels))
	for _, m := range records {
		d := Decayed(m, asOf, cfg)
		overallSum += Overall(d, cfg)
		for _, lvl := range Levels {
			levelSums[lvl] += d.Levels[lvl].Score
		}
	}

	n := float64(len(records))
	agg.Students = len(records)
	agg.MeanOverall = overallSum / n
	for _, lvl := range Levels {
		agg.LevelMeans[lvl] = levelSums[lvl] / n
	}
	return agg
}

// BuildLeaderboard ranks students by overall score, descending. Ties share a
// rank (competition style); equal scores order by student ID for stability.
// topN <= 0 returns the whole board.
func BuildLeaderboard(overalls map[string]float64, topN int) []LeaderboardEntry {
	board := make([]LeaderboardEntry, 0, len(overalls))
	for id, overall := range overalls {
		board = append(board, LeaderboardEntry{StudentID: id, Overall: overall})
	}
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].Overall != board[j].Overall {
			return board[i].Overall > board[j].Overall
		}
		return board[i].StudentID < board[j].StudentID
	})

	for i := range board {
		if i > 0 && board[i].Overall == board[i-1].Overall {
			board[i].Rank = board[i-1].Rank
		} else {
			board[i].Rank = i + 1
		}
	}

	if topN > 0 && len(board) > topN {
		board = board[:topN]
	}
	return board
}
