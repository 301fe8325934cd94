package encoding

// Serializable is implemented by every value that is persisted as a component payload.
// MaxSize is the upper bound of len(Encode()) for any valid value of the type.
type Serializable interface {
	MaxSize() uint64
	Encode() []byte
}

// Deserializable is the pointer-receiver counterpart of Serializable.
type Deserializable[T any] interface {
	*T
	Decode(data []byte) error
}
