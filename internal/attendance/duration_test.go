package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationLabel(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   *time.Time
		now   time.Time
		want  string
	}{
		{
			name:  "closed ninety minutes",
			start: base,
			end:   ptr(base.Add(90 * time.Minute)),
			now:   base.Add(3 * time.Hour),
			want:  "1h 30m",
		},
		{
			name:  "closed zero minutes",
			start: base,
			end:   ptr(base.Add(30 * time.Second)),
			now:   base.Add(time.Hour),
			want:  "0h 0m",
		},
		{
			name:  "open just now",
			start: base,
			end:   nil,
			now:   base.Add(30 * time.Second),
			want:  "Just Now (Active)",
		},
		{
			name:  "open two and a half hours",
			start: base,
			end:   nil,
			now:   base.Add(150 * time.Minute),
			want:  "2h 30m (Active)",
		},
		{
			name:  "out before in",
			start: base,
			end:   ptr(base.Add(-5 * time.Minute)),
			now:   base.Add(time.Hour),
			want:  "Invalid Timestamps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationLabel(tt.start, tt.end, tt.now))
		})
	}
}

func TestElapsedMinutes(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, ElapsedMinutes(base, base.Add(59*time.Second)))
	assert.Equal(t, 1, ElapsedMinutes(base, base.Add(61*time.Second)))
	assert.Equal(t, 90, ElapsedMinutes(base, base.Add(90*time.Minute)))
	// floors toward negative infinity, matching floor((end-start)/60s)
	assert.Equal(t, -1, ElapsedMinutes(base, base.Add(-30*time.Second)))
	assert.Equal(t, -5, ElapsedMinutes(base, base.Add(-5*time.Minute)))
}

func TestCreditMinutes(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	now := base.Add(2 * time.Hour)

	closed := Record{InTime: base, OutTime: ptr(base.Add(45 * time.Minute))}
	assert.Equal(t, 45, CreditMinutes(closed, now))

	open := Record{InTime: base}
	assert.Equal(t, 120, CreditMinutes(open, now))

	// anomalous rows stay visible elsewhere but count as zero here
	invalid := Record{InTime: base, OutTime: ptr(base.Add(-5 * time.Minute))}
	assert.Equal(t, 0, CreditMinutes(invalid, now))
}

func TestDateKeyFor(t *testing.T) {
	in := time.Date(2025, 3, 10, 23, 55, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-10", DateKeyFor(in))
}

func ptr(t time.Time) *time.Time { return &t }
