package domain

// ReviewDueRatio is the share of a collection reported as due for review.
// No scheduling algorithm exists; this is a dashboard placeholder.
const ReviewDueRatio = 0.3

// FlashcardStats summarizes a user's collection for the dashboard.
type FlashcardStats struct {
	Total       int `json:"total"`
	AIGenerated int `json:"ai_generated"`
	Manual      int `json:"manual"`
	ToReview    int `json:"to_review"`
}

// NewFlashcardStats derives stats from per-source counts.
func NewFlashcardStats(bySource map[Source]int) FlashcardStats {
	s := FlashcardStats{
		Manual:      bySource[SourceManual],
		AIGenerated: bySource[SourceAIFull] + bySource[SourceAIEdited],
	}
	s.Total = s.Manual + s.AIGenerated
	s.ToReview = int(float64(s.Total) * ReviewDueRatio)
	return s
}
