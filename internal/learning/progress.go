package learning

import (
	"encoding/json"
	"math"
	"slices"
)

// Progress tracks one course. CompletedLessons holds each lesson id once.
type Progress struct {
	CompletedLessons   []string `json:"completed_lessons"`
	TotalLessons       int      `json:"total_lessons"`
	LastAccessedLesson string   `json:"last_accessed_lesson,omitempty"`
}

// Percentage is round(100 × completed / total), 0 while the total is
// unknown and never above 100.
func (p Progress) Percentage() int {
	if p.TotalLessons <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(len(p.CompletedLessons)) / float64(p.TotalLessons)))
	return min(pct, 100)
}

func (p Progress) Completed(lessonID string) bool {
	return slices.Contains(p.CompletedLessons, lessonID)
}

// MarshalJSON adds the derived completion_percentage. It is ignored on the
// way back in.
func (p Progress) MarshalJSON() ([]byte, error) {
	type plain Progress
	return json.Marshal(struct {
		plain
		CompletionPercentage int `json:"completion_percentage"`
	}{plain(p), p.Percentage()})
}

func (p Progress) clone() Progress {
	p.CompletedLessons = slices.Clone(p.CompletedLessons)
	return p
}
