package api

import "github.com/studcollab/looped/shared/domain"

type SessionRequest struct {
	Token string `json:"token,omitempty"`
}

type SessionResponse struct {
	User   domain.User   `json:"user"`
	Synced int           `json:"synced"`
	Report *SyncResponse `json:"report,omitempty"`
}

type KindReport struct {
	Kind      domain.PendingKind `json:"kind"`
	Attempted int                `json:"attempted"`
	Synced    int                `json:"synced"`
	Failed    int                `json:"failed"`
	Skipped   int                `json:"skipped,omitempty"`
	Remaining int                `json:"remaining"`
}

type SyncResponse struct {
	Kinds      []KindReport `json:"kinds"`
	DurationMs int64        `json:"durationMs"`
}

type PendingResponse struct {
	Events    []domain.PendingItem `json:"pendingEvents"`
	TeamPosts []domain.PendingItem `json:"pendingTeamPosts"`
}
