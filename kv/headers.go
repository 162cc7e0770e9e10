// Package kv is the ordered, case-insensitive (key, value) storage backing request headers,
// trailers and response headers. Grounded on the teacher's internal/datastruct.KeyValue and
// kv.Storage: linear search over a flat slice beats a map at the header-list sizes HTTP
// messages actually have, and preserves insertion order the way spec §3 requires
// ("original order preserved").
package kv

import (
	"iter"

	"github.com/indigo-web/utils/strcomp"
)

type Pair struct {
	Key, Value string
}

// Headers is an ordered multimap of header fields. Duplicate keys are allowed and preserved
// in arrival order (spec §3: "repeat-allowed; original order preserved").
type Headers struct {
	pairs      []Pair
	uniqueBuff []string
	valuesBuff []string
}

func New() *Headers {
	return NewPrealloc(0)
}

func NewPrealloc(n int) *Headers {
	return &Headers{pairs: make([]Pair, 0, n)}
}

// Add appends a new pair, never overwriting an existing one with the same key.
func (h *Headers) Add(key, value string) *Headers {
	h.pairs = append(h.pairs, Pair{Key: key, Value: value})
	return h
}

// Value returns the first value for key, or "" if absent.
func (h *Headers) Value(key string) string {
	return h.ValueOr(key, "")
}

func (h *Headers) ValueOr(key, or string) string {
	if v, ok := h.Get(key); ok {
		return v
	}

	return or
}

// Get returns the first value for key, case-insensitively, per spec §3
// ("case-insensitive names").
func (h *Headers) Get(key string) (string, bool) {
	for _, pair := range h.pairs {
		if strcomp.EqualFold(key, pair.Key) {
			return pair.Value, true
		}
	}

	return "", false
}

// Values returns every value stored under key, in arrival order.
//
// WARNING: the returned slice is reused across calls; copy it before it can outlive the next
// Values/Keys call.
func (h *Headers) Values(key string) []string {
	h.valuesBuff = h.valuesBuff[:0]

	for _, pair := range h.pairs {
		if strcomp.EqualFold(pair.Key, key) {
			h.valuesBuff = append(h.valuesBuff, pair.Value)
		}
	}

	if len(h.valuesBuff) == 0 {
		return nil
	}

	return h.valuesBuff
}

// Keys returns every distinct key, in first-appearance order.
//
// WARNING: the returned slice is reused across calls.
func (h *Headers) Keys() []string {
	h.uniqueBuff = h.uniqueBuff[:0]

	for _, pair := range h.pairs {
		if contains(h.uniqueBuff, pair.Key) {
			continue
		}

		h.uniqueBuff = append(h.uniqueBuff, pair.Key)
	}

	return h.uniqueBuff
}

// Iter walks the pairs in insertion order as (key, value), the same shape as the teacher's
// kv.Storage.Iter, letting the response serializer write headers and trailers with a plain
// range-over-func loop instead of allocating an intermediate slice.
func (h *Headers) Iter() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, pair := range h.pairs {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Has reports whether key is present.
func (h *Headers) Has(key string) bool {
	_, ok := h.Get(key)
	return ok
}

// Len returns the number of stored pairs.
func (h *Headers) Len() int {
	return len(h.pairs)
}

func (h *Headers) Empty() bool {
	return h.Len() == 0
}

// Expose reveals the underlying pairs slice, e.g. for a round-trip test comparing the sorted
// multiset of headers (spec §8 "Round-trip").
func (h *Headers) Expose() []Pair {
	return h.pairs
}

// Clear resets the storage for reuse across pipelined requests without releasing capacity.
func (h *Headers) Clear() *Headers {
	h.pairs = h.pairs[:0]
	return h
}

func contains(collection []string, key string) bool {
	for _, element := range collection {
		if strcomp.EqualFold(element, key) {
			return true
		}
	}

	return false
}
