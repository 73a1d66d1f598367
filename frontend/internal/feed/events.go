package feed

import (
	"github.com/studcollab/looped/shared/domain"
	"github.com/studcollab/looped/shared/logger"
)

const MsgEventsUnavailable = "Could not fetch events."

type EventEntry struct {
	Event   domain.Event
	Pending bool
}

type EventsResult struct {
	Events   []EventEntry
	Absorbed []domain.LocalId
	Errors   []string
}

// ReconcileEvents is the events-hub variant of Reconcile: pending events
// first, absorbed by title and date once the server lists them. Pending
// events outside category are hidden but not absorbed.
func ReconcileEvents(server []domain.Event, pending []domain.PendingItem, serverErr error, category domain.EventCategory) EventsResult {
	var res EventsResult
	if serverErr != nil {
		server = nil
		res.Errors = append(res.Errors, MsgEventsUnavailable)
	}

	keys := make(map[domain.DedupKey]struct{}, len(server))
	for _, e := range server {
		if e.IsProvisional() {
			continue
		}
		if k := e.DedupKey(); k.Usable() {
			keys[k] = struct{}{}
		}
	}

	for _, it := range pending {
		if it.Kind != domain.PendingEvents {
			continue
		}
		ev, err := it.Event()
		if err != nil {
			logger.Log.Warn("skipping undecodable pending event", "component", "feed", "local_id", it.LocalId, "error", err)
			continue
		}
		if _, ok := keys[ev.DedupKey()]; ok {
			res.Absorbed = append(res.Absorbed, it.LocalId)
			continue
		}
		if category != "" && ev.Category != category {
			continue
		}
		res.Events = append(res.Events, EventEntry{Event: ev, Pending: true})
	}

	seen := make(map[domain.EventId]struct{}, len(server))
	for _, e := range server {
		if _, dup := seen[e.Id]; dup && e.Id != "" {
			continue
		}
		seen[e.Id] = struct{}{}
		res.Events = append(res.Events, EventEntry{Event: e})
	}
	return res
}
