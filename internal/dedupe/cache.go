package dedupe

import (
	"sync"
	"time"

	"newsforge/internal/domain"
)

// fingerprintCache owns every registered fingerprint and its group
// membership. One engine instance is the single writer; the mutex only
// guards against concurrent readers from parallel batches.
//
// A fingerprint, once registered, never moves to a different group.
type fingerprintCache struct {
	mu           sync.RWMutex
	fingerprints map[string]*domain.ContentFingerprint
	groups       map[string]map[string]struct{}
	lastSweep    time.Time
}

func newFingerprintCache() *fingerprintCache {
	return &fingerprintCache{
		fingerprints: make(map[string]*domain.ContentFingerprint),
		groups:       make(map[string]map[string]struct{}),
	}
}

// lookup returns the fingerprint for id if present and unexpired.
func (c *fingerprintCache) lookup(id string, now time.Time) (*domain.ContentFingerprint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fp, ok := c.fingerprints[id]
	if !ok || fp.Expired(now) {
		return nil, false
	}
	return fp, true
}

// register stores fp and records its group membership. Registration of
// an id that already exists keeps the original entry, preserving the
// never-reassigned invariant.
func (c *fingerprintCache) register(fp *domain.ContentFingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.fingerprints[fp.FingerprintID]; exists {
		return
	}
	c.fingerprints[fp.FingerprintID] = fp

	members, ok := c.groups[fp.GroupID]
	if !ok {
		members = make(map[string]struct{})
		c.groups[fp.GroupID] = members
	}
	members[fp.ArticleID] = struct{}{}
}

// addMember records articleID under groupID without touching any
// fingerprint entry. Exact rehits reuse the registered fingerprint, so
// their article ids arrive through this path.
func (c *fingerprintCache) addMember(groupID, articleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	members, ok := c.groups[groupID]
	if !ok {
		members = make(map[string]struct{})
		c.groups[groupID] = members
	}
	members[articleID] = struct{}{}
}

// groupMembers returns a copy of the member set for groupID.
func (c *fingerprintCache) groupMembers(groupID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	members := make([]string, 0, len(c.groups[groupID]))
	for id := range c.groups[groupID] {
		members = append(members, id)
	}
	return members
}

// sweep drops expired fingerprints, at most once per interval. An
// interval of zero forces the sweep.
func (c *fingerprintCache) sweep(now time.Time, interval time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) < interval {
		return 0
	}
	c.lastSweep = now

	removed := 0
	for id, fp := range c.fingerprints {
		if !fp.Expired(now) {
			continue
		}
		delete(c.fingerprints, id)
		if members, ok := c.groups[fp.GroupID]; ok {
			delete(members, fp.ArticleID)
			if len(members) == 0 {
				delete(c.groups, fp.GroupID)
			}
		}
		removed++
	}
	return removed
}

func (c *fingerprintCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.fingerprints)
}
