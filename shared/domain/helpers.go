package domain

import (
	"fmt"
	"time"
)

// for debug
func (a *Application) String() string {
	return fmt.Sprintf("[id:%s, post:%s, applicant:%s, status:%s, reason:%s, created:%s]",
		a.Id, a.PostId, a.ApplicantId, a.Status, a.RejectionReason, a.CreatedAt.Format(time.StampMilli))
}

func (e *Event) String() string {
	return fmt.Sprintf("[id:%s, title:%s, category:%s, date:%s %s]", e.Id, e.Title, e.Category, e.Date, e.Time)
}

// HasApplicant reports whether userId already applied to the post, in any
// status.
func (p TeamPost) HasApplicant(userId UserId) bool {
	for _, a := range p.Applicants {
		if a.ApplicantId == userId {
			return true
		}
	}
	return false
}

// Application looks up an application by id.
func (p TeamPost) Application(id ApplicationId) (Application, bool) {
	for _, a := range p.Applicants {
		if a.Id == id {
			return a, true
		}
	}
	return Application{}, false
}
