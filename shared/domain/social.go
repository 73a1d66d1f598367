package domain

type SocialPostType = string

const (
	SocialLookingFor SocialPostType = "LOOKING_FOR"
	SocialPoll       SocialPostType = "POLL"
	SocialDiscussion SocialPostType = "DISCUSSION"
	SocialAnnounce   SocialPostType = "ANNOUNCEMENT"
)

type PollOption struct {
	Id    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// SocialPost is a campus or inter-college feed item. A LOOKING_FOR post may
// get a pod attached by the backend; the client only reads LinkedPodId.
type SocialPost struct {
	Id           string         `json:"id"`
	Type         SocialPostType `json:"type"`
	Title        string         `json:"title,omitempty"`
	Content      string         `json:"content"`
	Author       Author         `json:"author"`
	CreatedAt    Timestamp      `json:"createdAt"`
	Tags         Skills         `json:"tags,omitempty"`
	PollOptions  []PollOption   `json:"pollOptions,omitempty"`
	CommentCount int            `json:"commentCount,omitempty"`
	LinkedPodId  *PodId         `json:"linkedPodId,omitempty"`
}
