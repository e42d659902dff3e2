package attendance

import (
	"fmt"
	"time"
)

// InvalidLabel marks a closed record whose out time precedes its in time.
// Such rows stay visible in listings; they are zeroed out of totals but never
// deleted or rewritten.
const InvalidLabel = "Invalid Timestamps"

// ElapsedMinutes returns the whole minutes between start and end, floored.
// The result is negative when end precedes start.
func ElapsedMinutes(start, end time.Time) int {
	d := end.Sub(start)
	mins := int(d / time.Minute)
	if d < 0 && d%time.Minute != 0 {
		mins--
	}
	return mins
}

// DurationLabel renders the human-readable duration stored on records. A nil
// end means the session is still open and is measured against now.
func DurationLabel(start time.Time, end *time.Time, now time.Time) string {
	if end == nil {
		mins := ElapsedMinutes(start, now)
		if mins < 1 {
			return "Just Now (Active)"
		}
		return fmt.Sprintf("%dh %dm (Active)", mins/60, mins%60)
	}
	mins := ElapsedMinutes(start, *end)
	if mins < 0 {
		return InvalidLabel
	}
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}

// CreditMinutes is a record's contribution to aggregate totals. Open records
// are measured against now; negative spans count as zero so one anomalous row
// cannot drag a day's numbers below reality.
func CreditMinutes(r Record, now time.Time) int {
	end := now
	if r.OutTime != nil {
		end = *r.OutTime
	}
	mins := ElapsedMinutes(r.InTime, end)
	if mins < 0 {
		return 0
	}
	return mins
}
