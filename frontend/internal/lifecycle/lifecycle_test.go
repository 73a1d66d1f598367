package lifecycle

import (
	"testing"
	"time"

	"github.com/studcollab/looped/shared/domain"
	"github.com/stretchr/testify/assert"
)

var created = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestResolveState(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want domain.PostState
	}{
		{"just created", 0, domain.PostActive},
		{"one hour", time.Hour, domain.PostActive},
		{"just under 20h", 20*time.Hour - time.Nanosecond, domain.PostActive},
		{"exactly 20h", 20 * time.Hour, domain.PostReview},
		{"22h", 22 * time.Hour, domain.PostReview},
		{"just under 24h", 24*time.Hour - time.Nanosecond, domain.PostReview},
		{"exactly 24h", 24 * time.Hour, domain.PostExpired},
		{"a week", 7 * 24 * time.Hour, domain.PostExpired},
		{"clock skew, created in the future", -time.Hour, domain.PostActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveState(created, created.Add(tt.age)))
		})
	}
}

// Property sweep over ages in 7 minute steps across three days.
func TestResolveStateProperties(t *testing.T) {
	for age := time.Duration(0); age < 72*time.Hour; age += 7 * time.Minute {
		got := ResolveState(created, created.Add(age))
		switch {
		case age < 20*time.Hour:
			assert.Equal(t, domain.PostActive, got, "age %v", age)
		case age < 24*time.Hour:
			assert.Equal(t, domain.PostReview, got, "age %v", age)
		default:
			assert.Equal(t, domain.PostExpired, got, "age %v", age)
		}
	}
}

// A missing createdAt fails open. This is a tolerance for bad data, not a
// business rule: if it changes, this test should be updated deliberately.
func TestResolveStateZeroCreatedAtFailsOpen(t *testing.T) {
	assert.Equal(t, domain.PostActive, ResolveState(time.Time{}, created))
	assert.Equal(t, 0.0, HoursElapsed(time.Time{}, created))
}

func TestCustomWindows(t *testing.T) {
	w := Windows{Active: time.Hour, Review: 2 * time.Hour}
	assert.Equal(t, domain.PostActive, w.ResolveState(created, created.Add(59*time.Minute)))
	assert.Equal(t, domain.PostReview, w.ResolveState(created, created.Add(time.Hour)))
	assert.Equal(t, domain.PostExpired, w.ResolveState(created, created.Add(2*time.Hour)))

	inverted := Windows{Active: 3 * time.Hour, Review: time.Hour}
	assert.Equal(t, domain.PostExpired, inverted.ResolveState(created, created.Add(3*time.Hour)))
	assert.Equal(t, domain.PostActive, Windows{}.ResolveState(created, created.Add(19*time.Hour)))
}

func TestHours(t *testing.T) {
	assert.InDelta(t, 5.5, HoursElapsed(created, created.Add(5*time.Hour+30*time.Minute)), 1e-9)
	assert.Equal(t, 0.0, HoursElapsed(created, created.Add(-time.Hour)))

	w := DefaultWindows()
	assert.InDelta(t, 4.0, w.HoursRemaining(created, created.Add(20*time.Hour)), 1e-9)
	assert.Equal(t, 0.0, w.HoursRemaining(created, created.Add(30*time.Hour)))
	assert.Equal(t, 24.0, w.HoursRemaining(time.Time{}, created))
}

func TestButton(t *testing.T) {
	states := []domain.PostState{domain.PostActive, domain.PostReview, domain.PostExpired}
	tests := []struct {
		name       string
		hasApplied bool
		state      domain.PostState
		isOwn      bool
		want       ButtonState
	}{
		{"active, not applied", false, domain.PostActive, false, ButtonState{Label: "Apply", Enabled: true}},
		{"review blocks applications", false, domain.PostReview, false, ButtonState{Label: "Reviewing"}},
		{"expired is hidden", false, domain.PostExpired, false, ButtonState{Label: "Expired", Hidden: true}},
		{"own active post", false, domain.PostActive, true, ButtonState{Label: "Manage", Enabled: true}},
		{"own expired post", false, domain.PostExpired, true, ButtonState{Label: "Manage", Enabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Button(tt.hasApplied, tt.state, tt.isOwn))
		})
	}

	t.Run("applied wins in every state", func(t *testing.T) {
		for _, s := range states {
			for _, own := range []bool{false, true} {
				assert.Equal(t, ButtonState{Label: "Applied"}, Button(true, s, own))
			}
		}
	})

	assert.True(t, CanApply(false, domain.PostActive, false))
	assert.False(t, CanApply(false, domain.PostActive, true))
	assert.False(t, CanApply(false, domain.PostReview, false))
	assert.False(t, CanApply(true, domain.PostActive, false))
}

func TestFixedClock(t *testing.T) {
	assert.Equal(t, created, FixedClock(created).Now())
}
