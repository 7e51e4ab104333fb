package savvycal

import "slices"

// ResolveDuration picks a duration the link accepts. The requested value
// (or the link default when zero) is kept unless the link has an
// allow-list that does not contain it, in which case the link default, or
// else the first allowed duration, is used. fallback applies when nothing
// positive can be derived.
func (l *Link) ResolveDuration(requested, fallback int) int {
	candidate := requested
	if candidate <= 0 {
		candidate = l.DefaultDuration
	}

	if len(l.Durations) > 0 && !slices.Contains(l.Durations, candidate) {
		candidate = l.DefaultDuration
		if candidate <= 0 {
			candidate = l.Durations[0]
		}
	}

	if candidate <= 0 {
		return fallback
	}
	return candidate
}
