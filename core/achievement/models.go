package achievement

import (
	"sort"
	"time"

	"github.com/trezcool/shule/core"
)

type (
	// Achievement is a badge definition; students collect it via awards.
	Achievement struct {
		ID          string    `json:"id"`
		Code        string    `json:"code"` // unique, stable identifier e.g. "perfect_attendance"
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Points      int       `json:"points"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at"` // UTC
	}

	// Award grants an achievement to a student; at most one per
	// (achievement, student).
	Award struct {
		ID            string    `json:"id"`
		AchievementID string    `json:"achievement_id"`
		StudentID     string    `json:"student_id"`
		AwardedBy     string    `json:"awarded_by"`
		Note          string    `json:"note,omitempty"`
		AwardedAt     time.Time `json:"awarded_at"` // UTC
	}

	AwardDetail struct {
		Award       Award       `json:"award"`
		Achievement Achievement `json:"achievement"`
	}

	StudentAchievements struct {
		StudentID   string        `json:"student_id"`
		Awards      []AwardDetail `json:"awards"`
		TotalPoints int           `json:"total_points"`
	}

	LeaderboardEntry struct {
		StudentID string `json:"student_id"`
		Points    int    `json:"points"`
		Rank      int    `json:"rank"`
	}
)

type NewAchievement struct {
	Code        string `json:"code" validate:"required,alphanum_,max=64"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Points      int    `json:"points" validate:"gte=0"`
}

func (na *NewAchievement) Validate() error {
	na.Code = core.CleanString(na.Code, true)
	na.Name = core.CleanString(na.Name)
	na.Description = core.CleanString(na.Description)
	return core.Validate.Struct(na)
}

type NewAward struct {
	AchievementID string `json:"achievement_id" validate:"required"`
	StudentID     string `json:"student_id" validate:"required"`
	Note          string `json:"note"`
	AwardedBy     string `json:"-"`
}

func (na *NewAward) Validate() error {
	na.AchievementID = core.CleanString(na.AchievementID)
	na.StudentID = core.CleanString(na.StudentID)
	na.Note = core.CleanString(na.Note)
	return core.Validate.Struct(na)
}

// BuildLeaderboard ranks students by total points, competition style:
// ties share a rank and the next rank skips accordingly.
func BuildLeaderboard(points map[string]int, topN int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(points))
	for studentID, pts := range points {
		entries = append(entries, LeaderboardEntry{StudentID: studentID, Points: pts})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].StudentID < entries[j].StudentID
	})

	for i := range entries {
		if i > 0 && entries[i].Points == entries[i-1].Points {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}
