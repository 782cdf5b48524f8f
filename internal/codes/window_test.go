package codes

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowProgressBoundedAndMonotonic(t *testing.T) {
	for _, w := range []int{1, 30, 60} {
		prev := -1.0
		for r := w; r >= 0; r-- {
			s := Window(r, w)
			if s.Progress < 0 || s.Progress > 1 {
				t.Fatalf("Window(%d, %d).Progress = %v, want within [0,1]", r, w, s.Progress)
			}
			if s.Progress < prev {
				t.Fatalf("Window(%d, %d).Progress = %v decreased from %v", r, w, s.Progress, prev)
			}
			prev = s.Progress
		}
	}
}

func TestWindowProgressEndpoints(t *testing.T) {
	assert.Equal(t, 0.0, Window(30, 30).Progress)
	assert.Equal(t, 1.0, Window(0, 30).Progress)
	assert.InDelta(t, 0.1, Window(27, 30).Progress, 1e-9)
}

func TestWindowUrgencyBoundaries(t *testing.T) {
	tests := []struct {
		remaining int
		want      Urgency
	}{
		{0, UrgencyCritical},
		{5, UrgencyCritical},
		{6, UrgencyWarning},
		{10, UrgencyWarning},
		{11, UrgencyNormal},
		{30, UrgencyNormal},
	}
	for _, tt := range tests {
		if got := Window(tt.remaining, 30).Urgency; got != tt.want {
			t.Errorf("Window(%d, 30).Urgency = %v, want %v", tt.remaining, got, tt.want)
		}
	}
}

func TestWindowClampsInputs(t *testing.T) {
	s := Window(-3, 30)
	assert.Equal(t, 0, s.Remaining)
	assert.Equal(t, "0", s.Display)

	s = Window(45, 30)
	assert.Equal(t, 30, s.Remaining)
	assert.Equal(t, 0.0, s.Progress)

	s = Window(10, 0)
	assert.Equal(t, DefaultWindowSeconds, s.Window)
}

func TestWindowDashOffset(t *testing.T) {
	c := 2 * math.Pi * 16
	assert.InDelta(t, 0, Window(30, 30).DashOffset(c), 1e-9)
	assert.InDelta(t, c/2, Window(15, 30).DashOffset(c), 1e-9)
	assert.InDelta(t, c, Window(0, 30).DashOffset(c), 1e-9)
}

func TestWindowElapse(t *testing.T) {
	s := Window(12, 30)
	assert.Equal(t, 12, s.Elapse(0).Remaining)
	assert.Equal(t, 10, s.Elapse(2500*time.Millisecond).Remaining)
	assert.Equal(t, UrgencyCritical, s.Elapse(7*time.Second).Urgency)
	assert.Equal(t, 0, s.Elapse(time.Minute).Remaining)
}

func TestCodeStateAtCountsDownLocally(t *testing.T) {
	c := Code{Value: "123456", Remaining: 20, Window: 30, FetchedAt: t0}
	assert.Equal(t, 20, c.StateAt(t0).Remaining)
	assert.Equal(t, 15, c.StateAt(t0.Add(5*time.Second)).Remaining)
	assert.Equal(t, 20, Code{Remaining: 20, Window: 30}.StateAt(t0.Add(time.Hour)).Remaining)
}

func TestUrgencyString(t *testing.T) {
	assert.Equal(t, "normal", UrgencyNormal.String())
	assert.Equal(t, "warning", UrgencyWarning.String())
	assert.Equal(t, "critical", UrgencyCritical.String())
}
