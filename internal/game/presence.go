package game

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Presence tracks when each datagram player was last heard from. Stream
// players signal liveness through their connection, but datagram players
// have nothing to close, so each inbound datagram refreshes a TTL entry here
// and expiry deregisters the player.
type Presence struct {
	cacheInstance *gocache.Cache
}

// NewPresence returns a Presence that invokes onExpire with the player's
// name once that player has been silent for ttl. onExpire also fires for
// players dropped explicitly through Forget.
func NewPresence(ttl time.Duration, onExpire func(name string)) *Presence {
	sweep := ttl / 2
	if sweep <= 0 {
		sweep = 10 * time.Second
	}

	c := gocache.New(ttl, sweep)
	c.OnEvicted(func(name string, _ interface{}) {
		onExpire(name)
	})
	return &Presence{cacheInstance: c}
}

// Touch marks name as just heard from, restarting its TTL.
func (p *Presence) Touch(name string) {
	p.cacheInstance.Set(name, time.Now(), 0)
}

// Forget drops name without waiting for its TTL to lapse.
func (p *Presence) Forget(name string) {
	p.cacheInstance.Delete(name)
}
