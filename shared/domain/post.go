package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const LocalIdPrefix = "local-"

// PostState is the lifecycle state of a team post, derived from its age.
type PostState string

const (
	PostActive  PostState = "ACTIVE"
	PostReview  PostState = "REVIEW"
	PostExpired PostState = "EXPIRED"
)

// TeamPost is a request for teammates attached to an Event.
type TeamPost struct {
	Id                 PostId        `json:"id"`
	EventId            EventId       `json:"eventId"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	RequiredSkills     Skills        `json:"requiredSkills,omitempty"`
	ExtraSkills        Skills        `json:"extraSkills,omitempty"`
	Author             Author        `json:"author"`
	CreatedAt          Timestamp     `json:"createdAt"`
	Applicants         []Application `json:"applicants,omitempty"`
	CurrentTeamMembers Members       `json:"currentTeamMembers,omitempty"`
	TeamSize           int           `json:"teamSize,omitempty"`
	LinkedPodId        *PodId        `json:"linkedPodId,omitempty"`
}

// UnmarshalJSON folds the backend's alternative field names (postId,
// eventName, maxTeamSize) into the canonical ones.
func (p *TeamPost) UnmarshalJSON(data []byte) error {
	type plain TeamPost
	var aux struct {
		plain
		PostId      PostId `json:"postId"`
		EventName   string `json:"eventName"`
		MaxTeamSize int    `json:"maxTeamSize"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = TeamPost(aux.plain)
	if p.Id == "" {
		p.Id = aux.PostId
	}
	if p.Title == "" {
		p.Title = aux.EventName
	}
	if p.TeamSize == 0 {
		p.TeamSize = aux.MaxTeamSize
	}
	return nil
}

// IsProvisional reports whether the post only exists locally and has not
// been confirmed by the backend yet.
func (p TeamPost) IsProvisional() bool {
	return IsLocalId(p.Id)
}

// Skills returns required then extra skills, de-duplicated.
func (p TeamPost) Skills() Skills {
	return NewSkills(append(append([]string{}, p.RequiredSkills...), p.ExtraSkills...)...)
}

// FilledSpots counts the host as a member when the backend sends no members.
func (p TeamPost) FilledSpots() int {
	if len(p.CurrentTeamMembers) == 0 {
		return 1
	}
	return len(p.CurrentTeamMembers)
}

func (p TeamPost) DedupKey() DedupKey {
	return NewDedupKey(p.Title, p.CreatedAt.Time)
}

func (p *TeamPost) String() string {
	return fmt.Sprintf("[id:%s, event:%s, title:%s, author:%s, created:%s, applicants:%d]",
		p.Id, p.EventId, p.Title, p.Author.Name, p.CreatedAt.Format(time.RFC3339), len(p.Applicants))
}

func IsLocalId(id string) bool {
	return strings.HasPrefix(id, LocalIdPrefix)
}

// NewLocalId returns a placeholder id of the form local-<unix millis>.
func NewLocalId(now time.Time) LocalId {
	return fmt.Sprintf("%s%d", LocalIdPrefix, now.UnixMilli())
}

// Member is an entry of a post's current team.
type Member struct {
	Id   UserId `json:"id"`
	Name string `json:"name,omitempty"`
}

// Members accepts either a list of ids or a list of member objects.
type Members []Member

func (m *Members) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		out := make(Members, 0, len(ids))
		for _, id := range ids {
			out = append(out, Member{Id: id})
		}
		*m = out
		return nil
	}
	var members []Member
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	*m = members
	return nil
}

// DedupKey is the heuristic identity shared by a pending item and its server
// copy: they have no common id before the first successful sync. Two distinct
// posts with the same title on the same day collide; that is a known
// limitation until the backend echoes an idempotency key.
type DedupKey struct {
	Title string
	Date  string
}

func NewDedupKey(title string, at time.Time) DedupKey {
	date := ""
	if !at.IsZero() {
		date = at.UTC().Format(time.DateOnly)
	}
	return NewDedupKeyFromDate(title, date)
}

func NewDedupKeyFromDate(title, date string) DedupKey {
	return DedupKey{
		Title: strings.ToLower(strings.TrimSpace(title)),
		Date:  strings.TrimSpace(date),
	}
}

// Usable is false when there is nothing to match on.
func (k DedupKey) Usable() bool {
	return k.Title != ""
}
