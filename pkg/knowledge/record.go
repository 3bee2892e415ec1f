package knowledge

import (
	"strings"
	"time"
)

// Status of a learning record.
type Status string

const (
	StatusUnknown Status = "unknown"
	// StatusLearning is declared for store compatibility but no transition
	// currently produces it; records go straight from unknown to learned.
	StatusLearning Status = "learning"
	StatusLearned  Status = "learned"
)

// LearningRecord tracks one distinct task the assistant has been asked to
// perform. The task text is the unique, immutable key.
type LearningRecord struct {
	Task      string     `json:"task"`
	Status    Status     `json:"status"`
	FirstSeen time.Time  `json:"first_seen"`
	LearnedAt *time.Time `json:"learned_at,omitempty"`
	// Attempts counts repeated submissions of the same unresolved task.
	// It only ever grows.
	Attempts int    `json:"attempts"`
	Solution string `json:"solution,omitempty"`
}

// Learned reports whether a usable solution is stored. The status and the
// solution field move together: learned iff the solution is non-empty.
func (r LearningRecord) Learned() bool {
	return r.Status == StatusLearned && r.Solution != ""
}

// Normalize produces the store key for a command: lowercased with runs of
// whitespace collapsed. Matching the same spoken task across transcription
// runs depends on this being stable.
func Normalize(task string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(task))), " ")
}
