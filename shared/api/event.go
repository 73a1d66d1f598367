package api

import "github.com/studcollab/looped/shared/domain"

type CreateEventRequest struct {
	Title          string               `json:"title" validate:"required,max=120"`
	Category       domain.EventCategory `json:"category" validate:"required,oneof=Hackathon Fest Competition Workshop Others"`
	Date           string               `json:"date" validate:"required,datetime=2006-01-02"`
	Time           string               `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
	Description    string               `json:"description" validate:"max=4000"`
	RequiredSkills domain.Skills        `json:"requiredSkills,omitempty" validate:"max=20,dive,max=40"`
	MaxTeamSize    int                  `json:"maxTeamSize,omitempty" validate:"omitempty,min=1,max=50"`
	ExternalLink   string               `json:"externalLink,omitempty" validate:"omitempty,url"`
	Organizer      string               `json:"organizer,omitempty" validate:"max=120"`
}

// Event renders the request the way the backend would echo it back.
func (r CreateEventRequest) Event() domain.Event {
	e := domain.Event{
		Title:          r.Title,
		Category:       r.Category,
		Date:           r.Date,
		Time:           r.Time,
		Description:    r.Description,
		RequiredSkills: r.RequiredSkills,
		MaxTeamSize:    r.MaxTeamSize,
		ExternalLink:   r.ExternalLink,
		Organizer:      r.Organizer,
	}
	if r.Time != "" {
		e.DateTime = r.Date + "T" + r.Time + ":00"
	}
	return e
}

type EventDisplay struct {
	domain.Event
	DescriptionHTML string `json:"descriptionHtml,omitempty"`
	Pending         bool   `json:"pending"`
}

type EventsResponse struct {
	Category string         `json:"category,omitempty"`
	Events   []EventDisplay `json:"events"`
	Errors   []string       `json:"errors,omitempty"`
}
