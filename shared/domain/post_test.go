package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamPostUnmarshal(t *testing.T) {
	t.Run("canonical fields", func(t *testing.T) {
		var p TeamPost
		raw := `{"id":"p1","eventId":"e1","title":"AI Project","teamSize":4,
			"createdAt":"2024-03-01T10:00:00","currentTeamMembers":["u1","u2"],
			"applicants":[{"id":"a1","applicantId":"u3","status":"PENDING"}]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &p))
		assert.Equal(t, "p1", p.Id)
		assert.Equal(t, "AI Project", p.Title)
		assert.Equal(t, 4, p.TeamSize)
		assert.Equal(t, Members{{Id: "u1"}, {Id: "u2"}}, p.CurrentTeamMembers)
		require.Len(t, p.Applicants, 1)
		assert.Equal(t, ApplicationPending, p.Applicants[0].Status)
		assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), p.CreatedAt.Time)
	})

	t.Run("alternative names are folded", func(t *testing.T) {
		var p TeamPost
		raw := `{"postId":"p2","eventName":"Hack Night","maxTeamSize":5,
			"currentTeamMembers":[{"id":"u1","name":"Asha"}]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &p))
		assert.Equal(t, "p2", p.Id)
		assert.Equal(t, "Hack Night", p.Title)
		assert.Equal(t, 5, p.TeamSize)
		assert.Equal(t, Members{{Id: "u1", Name: "Asha"}}, p.CurrentTeamMembers)
	})

	t.Run("canonical wins over alternative", func(t *testing.T) {
		var p TeamPost
		require.NoError(t, json.Unmarshal([]byte(`{"id":"p3","postId":"x","title":"A","eventName":"B"}`), &p))
		assert.Equal(t, "p3", p.Id)
		assert.Equal(t, "A", p.Title)
	})

	t.Run("bad createdAt does not fail the post", func(t *testing.T) {
		var p TeamPost
		require.NoError(t, json.Unmarshal([]byte(`{"id":"p4","createdAt":"soon"}`), &p))
		assert.True(t, p.CreatedAt.IsZero())
	})
}

func TestTeamPostHelpers(t *testing.T) {
	p := TeamPost{
		Id:             NewLocalId(time.UnixMilli(1700000000000)),
		RequiredSkills: Skills{"Go", "SQL"},
		ExtraSkills:    Skills{"SQL", "Figma"},
		Applicants:     []Application{{Id: "a1", ApplicantId: "u9"}},
	}
	assert.Equal(t, "local-1700000000000", p.Id)
	assert.True(t, p.IsProvisional())
	assert.Equal(t, Skills{"Go", "SQL", "Figma"}, p.Skills())
	assert.Equal(t, 1, p.FilledSpots())
	assert.True(t, p.HasApplicant("u9"))
	assert.False(t, p.HasApplicant("u1"))

	a, ok := p.Application("a1")
	assert.True(t, ok)
	assert.Equal(t, "u9", a.ApplicantId)

	p.CurrentTeamMembers = Members{{Id: "u1"}, {Id: "u2"}, {Id: "u3"}}
	assert.Equal(t, 3, p.FilledSpots())
	assert.False(t, TeamPost{Id: "srv-1"}.IsProvisional())
}

func TestDedupKey(t *testing.T) {
	day := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	a := TeamPost{Title: " AI Project ", CreatedAt: NewTimestamp(day)}
	b := TeamPost{Title: "ai project", CreatedAt: NewTimestamp(day.Add(-10 * time.Hour))}
	c := TeamPost{Title: "ai project", CreatedAt: NewTimestamp(day.Add(time.Hour))}

	assert.Equal(t, a.DedupKey(), b.DedupKey())
	assert.NotEqual(t, a.DedupKey(), c.DedupKey(), "different UTC day")
	assert.Equal(t, DedupKey{Title: "ai project", Date: "2024-03-01"}, a.DedupKey())
	assert.False(t, TeamPost{}.DedupKey().Usable())

	e := Event{Title: "Hack Night", Date: "2024-04-10"}
	assert.Equal(t, DedupKey{Title: "hack night", Date: "2024-04-10"}, e.DedupKey())
}

func TestApplicationStatusTransitions(t *testing.T) {
	assert.True(t, ApplicationPending.CanTransitionTo(ApplicationAccepted))
	assert.True(t, ApplicationPending.CanTransitionTo(ApplicationRejected))
	assert.False(t, ApplicationPending.CanTransitionTo(ApplicationPending))
	assert.False(t, ApplicationAccepted.CanTransitionTo(ApplicationRejected))
	assert.False(t, ApplicationRejected.CanTransitionTo(ApplicationAccepted))
}

func TestParseRejectionReason(t *testing.T) {
	tests := []struct {
		input string
		want  RejectionReason
		ok    bool
	}{
		{"TEAM_FULL", ReasonTeamFull, true},
		{"Skill mismatch", ReasonNotAGoodFit, true},
		{"Applied too late", ReasonLateApplication, true},
		{"", "", false},
		{"team_full", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseRejectionReason(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, RejectionReasons(), 4)
}

func TestCategoryFromFilter(t *testing.T) {
	assert.Equal(t, CategoryHackathon, CategoryFromFilter("hackathons"))
	assert.Equal(t, CategoryWorkshop, CategoryFromFilter("Workshop"))
	assert.Equal(t, CategoryOthers, CategoryFromFilter("others"))
	assert.Equal(t, "", CategoryFromFilter("all"))
	assert.Equal(t, "", CategoryFromFilter(" "))
	assert.Equal(t, "", CategoryFromFilter("s"))
}

func TestCollabPod(t *testing.T) {
	p := CollabPod{Id: "pod1", MaxCapacity: 2, MemberIds: []UserId{"u1"}}
	assert.False(t, p.IsFull())
	p2 := p.WithMember("u2").WithMember("u2")
	assert.Equal(t, []UserId{"u1", "u2"}, p2.MemberIds)
	assert.True(t, p2.IsFull())
	assert.Equal(t, []UserId{"u1"}, p.MemberIds)
	assert.False(t, CollabPod{MemberIds: []UserId{"a", "b"}}.IsFull())
	assert.Equal(t, "/topic/pod.pod1.chat", PodChatTopic(p.Id))
	assert.Equal(t, "/app/post.p1.comments", PostCommentsDestination("p1"))
}

func TestPendingItem(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	item, err := NewPendingItem(PendingTeamPosts, map[string]any{"title": "AI Project", "eventId": "e1"}, "key-1", now)
	require.NoError(t, err)
	assert.Equal(t, NewLocalId(now), item.LocalId)

	post, err := item.TeamPost(Author{Id: "u1", Name: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, item.LocalId, post.Id)
	assert.Equal(t, "u1", post.Author.Id)
	assert.True(t, post.IsProvisional())
	assert.Equal(t, DedupKey{Title: "ai project", Date: "2024-03-01"}, item.DedupKey())

	ev, err := NewPendingItem(PendingEvents, Event{Title: "Fest", Date: "2024-05-01"}, "key-2", now)
	require.NoError(t, err)
	assert.Equal(t, DedupKey{Title: "fest", Date: "2024-05-01"}, ev.DedupKey())

	kind, err := ParsePendingKind("posts")
	require.NoError(t, err)
	assert.Equal(t, PendingTeamPosts, kind)
	_, err = ParsePendingKind("comments")
	assert.Error(t, err)
}
