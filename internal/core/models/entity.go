package models

import (
	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/pkg/encoding"
)

type (
	EntityID   uint64
	InstanceID uint64
)

// Byte overheads of an entity record on top of its component max sizes.
const (
	EntityOverhead    = encoding.SizeU64 + encoding.SizeU64 + encoding.SizeLen
	ComponentOverhead = encoding.SizeU64 + encoding.SizeU64 + encoding.SizeLen
)

// Entity is the stored record of one game object inside a world instance.
type Entity struct {
	ID         EntityID
	Instance   InstanceID
	Components *ComponentSet
}

// CapacityFor returns the account size an entity holding components needs.
// It depends only on max sizes, never on the current payloads.
func CapacityFor(components *ComponentSet) uint64 {
	total := uint64(EntityOverhead)
	for _, c := range components.All() {
		total += ComponentOverhead + c.MaxSize
	}
	return total
}

func (e *Entity) Capacity() uint64 {
	return CapacityFor(e.Components)
}

// Marshal encodes the record. The result is never longer than Capacity
// as long as every slot fits.
func (e *Entity) Marshal() []byte {
	w := encoding.NewWriter(int(e.Capacity()))
	w.U64(uint64(e.ID)).U64(uint64(e.Instance)).U32(uint32(e.Components.Len()))
	for k, c := range e.Components.All() {
		w.U64(uint64(k)).U64(c.MaxSize).Blob(c.Data)
	}
	return w.Bytes()
}

func UnmarshalEntity(b []byte) (*Entity, error) {
	r := encoding.NewReader(b)
	e := &Entity{
		ID:         EntityID(r.U64()),
		Instance:   InstanceID(r.U64()),
		Components: NewComponentSet(),
	}
	n := r.U32()
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		key := ComponentKey(r.U64())
		c := SerializedComponent{MaxSize: r.U64(), Data: r.Blob()}
		if r.Err() == nil && !c.Fits() {
			return nil, errs.ErrCorrupt.With("component", uint64(key)).With("reason", "payload exceeds max size")
		}
		e.Components.Set(key, c)
	}
	if err := r.Finish(); err != nil {
		return nil, errs.ErrCorrupt.Wrap(err)
	}
	return e, nil
}
