package interview

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is one turn in the interview conversation. Messages are append-only
// and strictly chronological; they are persisted verbatim inside the vision
// record.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Phase is one of the ordered stages of the vision interview.
type Phase string

const (
	PhasePersonalization Phase = "personalization"
	PhaseNarrative       Phase = "narrative"
	PhaseClustering      Phase = "clustering"
	PhaseHardening       Phase = "hardening"
	PhaseComplete        Phase = "complete"
)

// rank orders phases so transitions can be kept monotonic.
func (p Phase) rank() int {
	switch p {
	case PhasePersonalization:
		return 0
	case PhaseNarrative:
		return 1
	case PhaseClustering:
		return 2
	case PhaseHardening:
		return 3
	case PhaseComplete:
		return 4
	default:
		return -1
	}
}

// Tile is one life/work domain extracted from the final vision output: a
// present-tense snapshot, a handful of measurable actions, and the recurring
// routine that supports them.
type Tile struct {
	Name     string   `json:"name"`
	Snapshot string   `json:"snapshot"`
	Actions  []string `json:"actions"`
	Routine  string   `json:"routine"`
}

// Output is the structured result of a completed interview.
type Output struct {
	Narrative string `json:"narrative"`
	Tiles     []Tile `json:"tiles"`
}

// Gender selects the grammatical second-person forms used throughout the
// Hebrew interview.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Progress maps phase and message count to a presentational 0-100 value.
// It carries no correctness meaning.
func Progress(phase Phase, messageCount int) int {
	switch phase {
	case PhasePersonalization:
		return 5
	case PhaseNarrative:
		p := 10 + messageCount*5
		if p > 50 {
			p = 50
		}
		return p
	case PhaseClustering:
		return 60
	case PhaseHardening:
		return 80
	case PhaseComplete:
		return 100
	default:
		return 0
	}
}
