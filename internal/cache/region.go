package cache

import "time"

// Region is a named partition of cached reads sharing one TTL and one
// invalidation scope.
type Region string

const (
	RegionEventDetail         Region = "event_detail"
	RegionEventList           Region = "event_list"
	RegionManagedEvents       Region = "managed_events"
	RegionParticipantsByEvent Region = "participants_by_event"
	RegionQRImage             Region = "qr_image"
	RegionPollDetail          Region = "poll_detail"
	RegionPollsByEvent        Region = "polls_by_event"
	RegionPollStats           Region = "poll_stats"
)

// DefaultTTL applies to regions without an explicit entry.
const DefaultTTL = 60 * time.Minute

func DefaultTTLs() map[Region]time.Duration {
	return map[Region]time.Duration{
		RegionEventDetail:         5 * time.Minute,
		RegionEventList:           60 * time.Second,
		RegionManagedEvents:       90 * time.Second,
		RegionParticipantsByEvent: 20 * time.Second,
		RegionQRImage:             20 * time.Minute,
		RegionPollDetail:          30 * time.Second,
		RegionPollsByEvent:        60 * time.Second,
		RegionPollStats:           20 * time.Second,
	}
}

// TTLsFromConfig overlays configured TTLs, keyed by region name, on the defaults.
// Non-positive values are ignored.
func TTLsFromConfig(conf map[string]time.Duration) map[Region]time.Duration {
	ttls := DefaultTTLs()
	for name, ttl := range conf {
		if ttl <= 0 {
			continue
		}
		ttls[Region(name)] = ttl
	}

	return ttls
}

// Regions touched by participation changes (join, add, remove, self-cancel, check-in).
var ParticipationRegions = []Region{
	RegionParticipantsByEvent,
	RegionEventDetail,
	RegionEventList,
	RegionManagedEvents,
}

// Regions touched by event catalog changes.
var EventRegions = []Region{
	RegionEventDetail,
	RegionEventList,
	RegionManagedEvents,
}

// Regions touched by votes and poll updates.
var PollRegions = []Region{
	RegionPollDetail,
	RegionPollsByEvent,
	RegionPollStats,
}
