package clnetspec

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Tag is a single key/value pair.
type Tag struct {
	Key   string
	Value string
}

// TagSet is an immutable, key-ordered set of tags. It is passed explicitly into the construction of
// every entity. The zero value is an empty set.
type TagSet struct {
	tags []Tag
}

// NewTagSet inits a tag set from a map.
func NewTagSet(m map[string]string) TagSet {
	tags := lo.MapToSlice(m, func(k, v string) Tag { return Tag{Key: k, Value: v} })
	slices.SortFunc(tags, func(a, b Tag) int { return strings.Compare(a.Key, b.Key) })

	return TagSet{tags: tags}
}

// With returns a new set with the key set to value, the receiver is not changed.
func (ts TagSet) With(key, value string) TagSet {
	m := ts.Map()
	m[key] = value

	return NewTagSet(m)
}

// Get returns the value of a key.
func (ts TagSet) Get(key string) (string, bool) {
	tag, ok := lo.Find(ts.tags, func(t Tag) bool { return t.Key == key })

	return tag.Value, ok
}

// Len returns the number of tags.
func (ts TagSet) Len() int { return len(ts.tags) }

// All returns a copy of the tags in key order.
func (ts TagSet) All() []Tag { return slices.Clone(ts.tags) }

// Map returns the tags as a new map.
func (ts TagSet) Map() map[string]string {
	return lo.Associate(ts.tags, func(t Tag) (string, string) { return t.Key, t.Value })
}

// String renders the set in key order, it is stable and used for fingerprinting.
func (ts TagSet) String() string {
	return strings.Join(lo.Map(ts.tags, func(t Tag, _ int) string { return t.Key + "=" + t.Value }), ",")
}
