package lexicon

import (
	"sync"
	"time"
)

// versionClock hands out version strings in the §4.5 "YYYYMMDD_HHMMSS"
// format, guaranteed strictly increasing per lemma even when two commits
// for the same lemma land within the same second (serialized by
// keyedMutex, so this only needs to break ties, not coordinate concurrency).
type versionClock struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func newVersionClock() *versionClock {
	return &versionClock{last: make(map[string]time.Time)}
}

func (v *versionClock) next(lemma string, now time.Time) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if last, ok := v.last[lemma]; ok && !now.After(last) {
		now = last.Add(time.Second)
	}
	v.last[lemma] = now
	return now.Format("20060102_150405")
}
