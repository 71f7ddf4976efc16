package post

// Status of a scheduled post. Published and failed are terminal; the only
// recovery path out of failed is an explicit reschedule, which resets
// attempts and re-arms the post as scheduled.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

var transitions = map[Status][]Status{
	StatusDraft:     {StatusScheduled},
	StatusScheduled: {StatusScheduled, StatusPublished, StatusFailed},
	StatusPublished: {},
	StatusFailed:    {StatusScheduled}, // manual reschedule only
}

// CanTransition reports whether moving from one status to another is legal.
// scheduled -> scheduled is the full-failure retry re-arm.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the pipeline will never touch the post again.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusFailed
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPublished, StatusFailed:
		return true
	}
	return false
}
