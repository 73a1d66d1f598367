package domain

import "fmt"

// ChatMessage is the envelope published on pod chat, post comment and
// conversation topics.
type ChatMessage struct {
	Content    string  `json:"content"`
	ParentId   *string `json:"parentId,omitempty"`
	AuthorName string  `json:"authorName"`
}

func PodChatTopic(id PodId) string {
	return fmt.Sprintf("/topic/pod.%s.chat", id)
}

func PostCommentsTopic(id string) string {
	return fmt.Sprintf("/topic/post.%s.comments", id)
}

func ConversationTopic(id string) string {
	return fmt.Sprintf("/topic/conversation.%s", id)
}

func PodChatDestination(id PodId) string {
	return fmt.Sprintf("/app/pod.%s.chat", id)
}

func PostCommentsDestination(id string) string {
	return fmt.Sprintf("/app/post.%s.comments", id)
}
