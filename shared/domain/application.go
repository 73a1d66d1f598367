package domain

// ApplicationStatus is terminal once it leaves PENDING.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationAccepted ApplicationStatus = "ACCEPTED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// CanTransitionTo allows exactly one decision per application.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	return s == ApplicationPending && next.IsTerminal()
}

type RejectionReason string

const (
	ReasonNotAGoodFit     RejectionReason = "NOT_A_GOOD_FIT"
	ReasonTeamFull        RejectionReason = "TEAM_FULL"
	ReasonLateApplication RejectionReason = "LATE_APPLICATION"
	ReasonOther           RejectionReason = "OTHER"
)

var rejectionLabels = map[RejectionReason]string{
	ReasonNotAGoodFit:     "Skill mismatch",
	ReasonTeamFull:        "Team is full",
	ReasonLateApplication: "Applied too late",
	ReasonOther:           "Other",
}

// RejectionReasons lists the reasons in the order they are offered.
func RejectionReasons() []RejectionReason {
	return []RejectionReason{ReasonNotAGoodFit, ReasonTeamFull, ReasonLateApplication, ReasonOther}
}

func (r RejectionReason) Valid() bool {
	_, ok := rejectionLabels[r]
	return ok
}

func (r RejectionReason) Label() string {
	return rejectionLabels[r]
}

// ParseRejectionReason accepts the enum value or its label.
func ParseRejectionReason(s string) (RejectionReason, bool) {
	if r := RejectionReason(s); r.Valid() {
		return r, true
	}
	for r, label := range rejectionLabels {
		if label == s {
			return r, true
		}
	}
	return "", false
}

type Application struct {
	Id              ApplicationId     `json:"id"`
	PostId          PostId            `json:"postId"`
	ApplicantId     UserId            `json:"applicantId"`
	ApplicantName   string            `json:"applicantName,omitempty"`
	Message         string            `json:"message"`
	RelevantSkills  Skills            `json:"relevantSkills,omitempty"`
	Status          ApplicationStatus `json:"status"`
	RejectionReason RejectionReason   `json:"rejectionReason,omitempty"`
	RejectionNote   string            `json:"rejectionNote,omitempty"`
	CreatedAt       Timestamp         `json:"createdAt"`
}
