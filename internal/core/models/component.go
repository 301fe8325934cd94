package models

import (
	"iter"
	"slices"
	"sort"

	"github.com/zeusync/dominari/pkg/encoding"
)

// ComponentKey is the stable identifier a schema name resolves to.
type ComponentKey uint64

// SerializedComponent is one component slot of an entity. Data never grows past MaxSize.
type SerializedComponent struct {
	MaxSize uint64 `json:"max_size"`
	Data    []byte `json:"data"`
}

// Serialize packs v into a slot sized for its type.
func Serialize(v encoding.Serializable) SerializedComponent {
	return SerializedComponent{MaxSize: v.MaxSize(), Data: v.Encode()}
}

func (c SerializedComponent) Fits() bool {
	return uint64(len(c.Data)) <= c.MaxSize
}

func (c SerializedComponent) Clone() SerializedComponent {
	return SerializedComponent{MaxSize: c.MaxSize, Data: slices.Clone(c.Data)}
}

type componentEntry struct {
	key       ComponentKey
	component SerializedComponent
}

// ComponentSet is an ordered map from key to slot. Iteration is in ascending key order.
// The zero value is an empty set.
type ComponentSet struct {
	entries []componentEntry
}

func NewComponentSet() *ComponentSet {
	return &ComponentSet{}
}

func (s *ComponentSet) search(key ComponentKey) (int, bool) {
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].key >= key })
	return i, i < len(s.entries) && s.entries[i].key == key
}

// Set inserts or replaces the slot for key.
func (s *ComponentSet) Set(key ComponentKey, c SerializedComponent) {
	i, found := s.search(key)
	if found {
		s.entries[i].component = c
		return
	}
	s.entries = slices.Insert(s.entries, i, componentEntry{key: key, component: c})
}

func (s *ComponentSet) Get(key ComponentKey) (SerializedComponent, bool) {
	if s == nil {
		return SerializedComponent{}, false
	}
	i, found := s.search(key)
	if !found {
		return SerializedComponent{}, false
	}
	return s.entries[i].component, true
}

func (s *ComponentSet) Has(key ComponentKey) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *ComponentSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

func (s *ComponentSet) Keys() []ComponentKey {
	keys := make([]ComponentKey, 0, s.Len())
	for k := range s.All() {
		keys = append(keys, k)
	}
	return keys
}

func (s *ComponentSet) All() iter.Seq2[ComponentKey, SerializedComponent] {
	return func(yield func(ComponentKey, SerializedComponent) bool) {
		if s == nil {
			return
		}
		for _, e := range s.entries {
			if !yield(e.key, e.component) {
				return
			}
		}
	}
}

func (s *ComponentSet) Clone() *ComponentSet {
	out := &ComponentSet{entries: make([]componentEntry, 0, s.Len())}
	for k, c := range s.All() {
		out.entries = append(out.entries, componentEntry{key: k, component: c.Clone()})
	}
	return out
}

// Merge copies every slot of other into s; slots of other win.
func (s *ComponentSet) Merge(other *ComponentSet) {
	for k, c := range other.All() {
		s.Set(k, c.Clone())
	}
}
