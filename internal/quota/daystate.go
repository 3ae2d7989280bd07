package quota

// State is a user's quota window: the day-key it belongs to and how many
// sends remain within it.
type State struct {
	Day       string
	Remaining int
}

// Advance rolls the state forward to today's day-key. When the stored day
// differs from today the counter is reset to the allowance; calling Advance
// again within the same day is a no-op, so the reset happens at most once
// per day-key. The second return value reports whether a reset occurred.
func Advance(s State, today string, allowance int) (State, bool) {
	if s.Day == today {
		return s, false
	}
	return State{Day: today, Remaining: allowance}, true
}
