package domain

import "strings"

type EventCategory = string

const (
	CategoryHackathon   EventCategory = "Hackathon"
	CategoryFest        EventCategory = "Fest"
	CategoryCompetition EventCategory = "Competition"
	CategoryWorkshop    EventCategory = "Workshop"
	CategoryOthers      EventCategory = "Others"
)

func EventCategories() []EventCategory {
	return []EventCategory{CategoryHackathon, CategoryFest, CategoryCompetition, CategoryWorkshop, CategoryOthers}
}

// CategoryFromFilter maps a plural, lower-case tab id ("hackathons") to the
// backend category ("Hackathon"). "all" and "" mean no filter.
func CategoryFromFilter(filter string) EventCategory {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, "all") {
		return ""
	}
	singular := strings.TrimSuffix(strings.ToLower(filter), "s")
	if singular == "" {
		return ""
	}
	for _, c := range EventCategories() {
		if strings.ToLower(c) == singular || strings.EqualFold(c, filter) {
			return c
		}
	}
	return strings.ToUpper(singular[:1]) + singular[1:]
}

type Event struct {
	Id             EventId       `json:"id"`
	Title          string        `json:"title"`
	Category       EventCategory `json:"category"`
	Date           string        `json:"date"`
	Time           string        `json:"time"`
	DateTime       string        `json:"dateTime,omitempty"`
	Description    string        `json:"description"`
	RequiredSkills Skills        `json:"requiredSkills,omitempty"`
	MaxTeamSize    int           `json:"maxTeamSize,omitempty"`
	ExternalLink   string        `json:"externalLink,omitempty"`
	Organizer      string        `json:"organizer,omitempty"`
}

func (e Event) IsProvisional() bool {
	return IsLocalId(e.Id)
}

func (e Event) DedupKey() DedupKey {
	return NewDedupKeyFromDate(e.Title, e.Date)
}
