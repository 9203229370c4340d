package store

import (
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDGenerator issues lexicographically sortable submission ids. IDs created
// within the same millisecond still sort in creation order.
type IDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDGenerator creates a generator backed by crypto/rand.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewID returns an id stamped with t.
func (g *IDGenerator) NewID(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

// SortNewestFirst orders submissions by timestamp, newest first; equal
// timestamps fall back to id, highest first.
func SortNewestFirst(subs []Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].Timestamp.Equal(subs[j].Timestamp) {
			return subs[i].ID > subs[j].ID
		}
		return subs[i].Timestamp.After(subs[j].Timestamp)
	})
}
