// Package store holds the single shared telemetry record.
//
// Every mutation replaces one field group under the lock and never blocks
// while holding it, so a Snapshot observes each group either fully before or
// fully after an update.
package store

import (
	"sync"
	"unicode/utf8"

	"powermon-go/types"
)

const (
	DefaultRxCapacity = 64
	MaxRxCapacity     = 512
)

type Store struct {
	mu    sync.Mutex
	rec   types.TelemetryRecord
	rxCap int
}

// New returns an empty store. rxCap <= 0 selects DefaultRxCapacity.
func New(rxCap int) *Store {
	if rxCap <= 0 {
		rxCap = DefaultRxCapacity
	}
	if rxCap > MaxRxCapacity {
		rxCap = MaxRxCapacity
	}
	return &Store{rxCap: rxCap}
}

func (s *Store) RxCapacity() int { return s.rxCap }

// UpdateSensor replaces all numeric fields.
func (s *Store) UpdateSensor(r types.Reading) {
	s.mu.Lock()
	s.rec.Reading = r
	s.mu.Unlock()
}

// UpdateRxText stores the sanitised, truncated text and returns it.
func (s *Store) UpdateRxText(text string) string {
	v := Truncate(text, s.rxCap)
	s.mu.Lock()
	s.rec.RxText = v
	s.mu.Unlock()
	return v
}

// Snapshot returns a copy of the record as of one instant.
func (s *Store) Snapshot() types.TelemetryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// Truncate drops invalid UTF-8 sequences and cuts the result to at most n
// bytes, backing off to the last complete rune. ASCII input yields exactly
// the first n bytes.
func Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(text) <= n && utf8.ValidString(text) {
		return text
	}
	out := make([]byte, 0, min(len(text), n))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size <= 1 {
			i++
			continue
		}
		if len(out)+size > n {
			break
		}
		out = append(out, text[i:i+size]...)
		i += size
	}
	return string(out)
}
