package confidence

import "strings"

// Level is a coarse confidence tier attached to detections.
type Level string

const (
	High   Level = "high"
	Medium Level = "medium"
	Low    Level = "low"
	// None marks a detection that produced no result.
	None Level = ""
)

// Rank orders levels so they can be compared: None < Low < Medium < High.
func (l Level) Rank() int {
	switch l {
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l is as confident as min.
func (l Level) AtLeast(min Level) bool {
	return l.Rank() >= min.Rank()
}

// Parse converts a string into a Level. Unknown values map to None.
func Parse(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case High:
		return High
	case Medium:
		return Medium
	case Low:
		return Low
	default:
		return None
	}
}

func (l Level) String() string {
	if l == None {
		return "none"
	}
	return string(l)
}
