package domain

// CollabPod is a persistent collaboration room. Pods are created by the
// backend, either on explicit request or when a team post gathers accepted
// applicants; the client only ever learns their ids.
type CollabPod struct {
	Id          PodId    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MemberIds   []UserId `json:"memberIds,omitempty"`
	MaxCapacity int      `json:"maxCapacity,omitempty"`
	Status      string   `json:"status,omitempty"`
}

func (p CollabPod) HasMember(id UserId) bool {
	for _, m := range p.MemberIds {
		if m == id {
			return true
		}
	}
	return false
}

// IsFull is false for pods without a capacity limit.
func (p CollabPod) IsFull() bool {
	return p.MaxCapacity > 0 && len(p.MemberIds) >= p.MaxCapacity
}

// WithMember returns a copy with id added; membership stays a set.
func (p CollabPod) WithMember(id UserId) CollabPod {
	if p.HasMember(id) {
		return p
	}
	p.MemberIds = append(append([]UserId{}, p.MemberIds...), id)
	return p
}
