package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// PendingKind names a pending list. The values double as storage keys.
type PendingKind string

const (
	PendingEvents    PendingKind = "pendingEvents"
	PendingTeamPosts PendingKind = "pendingTeamPosts"
)

// PendingKinds is the order a sync pass walks the lists in: events first so
// that posts referencing a freshly synced event find it on the server.
func PendingKinds() []PendingKind {
	return []PendingKind{PendingEvents, PendingTeamPosts}
}

func (k PendingKind) Valid() bool {
	return k == PendingEvents || k == PendingTeamPosts
}

func ParsePendingKind(s string) (PendingKind, error) {
	switch s {
	case string(PendingEvents), "events", "event":
		return PendingEvents, nil
	case string(PendingTeamPosts), "posts", "post", "teamPosts":
		return PendingTeamPosts, nil
	}
	return "", fmt.Errorf("unknown pending kind %q", s)
}

// PendingItem is a creation the backend has not confirmed yet. Payload is the
// original request body and is replayed as-is on sync.
type PendingItem struct {
	LocalId        LocalId         `json:"localId"`
	Kind           PendingKind     `json:"kind"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      Timestamp       `json:"createdAt"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Attempts       int             `json:"attempts,omitempty"`
	LastError      string          `json:"lastError,omitempty"`
	// ClaimedBy names the sync engine currently pushing the item.
	ClaimedBy string    `json:"claimedBy,omitempty"`
	ClaimedAt Timestamp `json:"claimedAt"`
}

func NewPendingItem(kind PendingKind, payload any, idempotencyKey string, now time.Time) (PendingItem, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return PendingItem{}, fmt.Errorf("marshal pending payload: %w", err)
	}
	return PendingItem{
		LocalId:        NewLocalId(now),
		Kind:           kind,
		Payload:        raw,
		CreatedAt:      NewTimestamp(now.UTC()),
		IdempotencyKey: idempotencyKey,
	}, nil
}

// TeamPost renders the item as a provisional post authored by author.
func (it PendingItem) TeamPost(author Author) (TeamPost, error) {
	var p TeamPost
	if err := json.Unmarshal(it.Payload, &p); err != nil {
		return TeamPost{}, fmt.Errorf("decode pending post %s: %w", it.LocalId, err)
	}
	p.Id = it.LocalId
	p.CreatedAt = it.CreatedAt
	if p.Author.Id == "" {
		p.Author = author
	}
	return p, nil
}

// Event renders the item as a provisional event.
func (it PendingItem) Event() (Event, error) {
	var e Event
	if err := json.Unmarshal(it.Payload, &e); err != nil {
		return Event{}, fmt.Errorf("decode pending event %s: %w", it.LocalId, err)
	}
	e.Id = it.LocalId
	return e, nil
}

// DedupKey matches the item against its eventual server copy.
func (it PendingItem) DedupKey() DedupKey {
	switch it.Kind {
	case PendingEvents:
		if e, err := it.Event(); err == nil {
			return e.DedupKey()
		}
	case PendingTeamPosts:
		if p, err := it.TeamPost(Author{}); err == nil {
			return p.DedupKey()
		}
	}
	return DedupKey{}
}
