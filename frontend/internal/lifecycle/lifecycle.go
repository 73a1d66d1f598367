// Package lifecycle derives a team post's state and action button from its
// age. Everything here is pure and safe to call on every render.
package lifecycle

import (
	"time"

	"github.com/studcollab/looped/shared/domain"
)

const (
	DefaultActiveWindow = 20 * time.Hour
	DefaultReviewWindow = 24 * time.Hour
)

// Windows are measured from createdAt: ACTIVE below Active, REVIEW below
// Review, EXPIRED from Review on.
type Windows struct {
	Active time.Duration
	Review time.Duration
}

func DefaultWindows() Windows {
	return Windows{Active: DefaultActiveWindow, Review: DefaultReviewWindow}
}

// normalized falls back to the defaults for unset or inverted windows.
func (w Windows) normalized() Windows {
	if w.Active <= 0 {
		w.Active = DefaultActiveWindow
	}
	if w.Review <= 0 {
		w.Review = DefaultReviewWindow
	}
	if w.Review < w.Active {
		w.Review = w.Active
	}
	return w
}

// ResolveState uses the default windows.
func ResolveState(createdAt, now time.Time) domain.PostState {
	return DefaultWindows().ResolveState(createdAt, now)
}

// ResolveState maps the age of a post to its state. A zero createdAt
// resolves to ACTIVE: content with a broken timestamp stays visible. A
// createdAt in the future counts as age zero.
func (w Windows) ResolveState(createdAt, now time.Time) domain.PostState {
	if createdAt.IsZero() {
		return domain.PostActive
	}
	w = w.normalized()
	age := now.Sub(createdAt)
	switch {
	case age < w.Active:
		return domain.PostActive
	case age < w.Review:
		return domain.PostReview
	default:
		return domain.PostExpired
	}
}

// HoursElapsed is never negative; zero createdAt yields 0.
func HoursElapsed(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	h := now.Sub(createdAt).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// HoursRemaining counts down to the end of the review window, clamped at 0.
func (w Windows) HoursRemaining(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return w.normalized().Review.Hours()
	}
	left := w.normalized().Review.Hours() - HoursElapsed(createdAt, now)
	if left < 0 {
		return 0
	}
	return left
}

type ButtonState struct {
	Label   string
	Enabled bool
	Hidden  bool
}

const (
	LabelApply     = "Apply"
	LabelApplied   = "Applied"
	LabelReviewing = "Reviewing"
	LabelExpired   = "Expired"
	LabelManage    = "Manage"
)

// Button derives the action button. Precedence: an existing application,
// then ownership, then the post state.
func Button(hasApplied bool, state domain.PostState, isOwnPost bool) ButtonState {
	switch {
	case hasApplied:
		return ButtonState{Label: LabelApplied}
	case isOwnPost:
		return ButtonState{Label: LabelManage, Enabled: true}
	case state == domain.PostReview:
		return ButtonState{Label: LabelReviewing}
	case state == domain.PostExpired:
		return ButtonState{Label: LabelExpired, Hidden: true}
	default:
		return ButtonState{Label: LabelApply, Enabled: true}
	}
}

// CanApply reports whether a new application is allowed right now.
func CanApply(hasApplied bool, state domain.PostState, isOwnPost bool) bool {
	b := Button(hasApplied, state, isOwnPost)
	return b.Enabled && b.Label == LabelApply
}

// Clock is injected wherever "now" matters so tests can pin time.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
