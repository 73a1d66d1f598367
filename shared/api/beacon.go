package api

import (
	"bytes"
	"encoding/json"

	"github.com/studcollab/looped/shared/domain"
)

// Backend wire types

// FeedEntry is one element of /api/beacon/feed. My-posts responses use the
// same envelope, but older backends send bare posts there; both decode.
type FeedEntry struct {
	Post         domain.TeamPost `json:"post"`
	HasApplied   bool            `json:"hasApplied"`
	Status       string          `json:"status,omitempty"`
	HoursElapsed float64         `json:"hoursElapsed"`
	HostId       domain.UserId   `json:"hostId,omitempty"`
}

func (e *FeedEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if _, ok := fields["post"]; !ok {
		*e = FeedEntry{}
		return json.Unmarshal(data, &e.Post)
	}
	type plain FeedEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = FeedEntry(p)
	return nil
}

// AppliedPost is one element of /api/beacon/applied-posts.
type AppliedPost struct {
	ApplicationId     domain.ApplicationId     `json:"applicationId,omitempty"`
	Post              domain.TeamPost          `json:"post"`
	ApplicationStatus domain.ApplicationStatus `json:"applicationStatus,omitempty"`
	Application       *domain.Application      `json:"application,omitempty"`
}

// Status prefers the embedded application when the backend sends one.
func (a AppliedPost) Status() domain.ApplicationStatus {
	if a.Application != nil && a.Application.Status != "" {
		return a.Application.Status
	}
	if a.ApplicationStatus == "" {
		return domain.ApplicationPending
	}
	return a.ApplicationStatus
}

// Request DTOs

type CreateTeamPostRequest struct {
	EventId        domain.EventId `json:"eventId" validate:"required"`
	Title          string         `json:"title" validate:"required,max=120"`
	Description    string         `json:"description" validate:"required,max=2000"`
	RequiredSkills domain.Skills  `json:"requiredSkills,omitempty" validate:"max=20,dive,max=40"`
	ExtraSkills    domain.Skills  `json:"extraSkills,omitempty" validate:"max=20,dive,max=40"`
	TeamSize       int            `json:"teamSize,omitempty" validate:"omitempty,min=2,max=20"`
	Author         *domain.Author `json:"author,omitempty"`
}

type ApplyRequest struct {
	Message        string        `json:"message" validate:"required,max=300"`
	RelevantSkills domain.Skills `json:"relevantSkills,omitempty" validate:"max=20,dive,max=40"`
}

type AcceptRequest struct {
	PostId domain.PostId `json:"postId" validate:"required"`
}

type RejectRequest struct {
	PostId domain.PostId `json:"postId" validate:"required"`
	Reason string        `json:"reason" validate:"required,oneof=NOT_A_GOOD_FIT TEAM_FULL LATE_APPLICATION OTHER"`
	Note   string        `json:"note,omitempty" validate:"max=500"`
}

// Response DTOs

type ButtonResponse struct {
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Hidden  bool   `json:"hidden"`
}

// DisplayEntry is a reconciled feed item as served to renderers.
type DisplayEntry struct {
	Post              domain.TeamPost  `json:"post"`
	DescriptionHTML   string           `json:"descriptionHtml,omitempty"`
	HasApplied        bool             `json:"hasApplied"`
	HostId            domain.UserId    `json:"hostId"`
	HoursElapsed      float64          `json:"hoursElapsed"`
	HoursRemaining    float64          `json:"hoursRemaining"`
	State             domain.PostState `json:"state"`
	Button            ButtonResponse   `json:"button"`
	Pending           bool             `json:"pending"`
	ApplicationId     string           `json:"applicationId,omitempty"`
	ApplicationStatus string           `json:"applicationStatus,omitempty"`
}

type BeaconResponse struct {
	Tab     string         `json:"tab"`
	Query   string         `json:"query,omitempty"`
	Entries []DisplayEntry `json:"entries"`
	Counts  map[string]int `json:"counts"`
	Errors  []string       `json:"errors,omitempty"`
}

// OutcomeResponse reports a create that either reached the backend or was
// saved locally.
type OutcomeResponse struct {
	Pending bool   `json:"pending"`
	LocalId string `json:"localId,omitempty"`
	Id      string `json:"id,omitempty"`
	Notice  string `json:"notice,omitempty"`
}

func DecodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type NoticeResponse struct {
	Notice string `json:"notice"`
}

type ApplyResponse struct {
	Application domain.Application `json:"application"`
	Notice      string             `json:"notice"`
}
