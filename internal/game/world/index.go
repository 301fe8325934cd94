// Package world holds the per-instance index: the instance's configuration,
// its play phase and the append-only membership lists of its entities.
package world

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/pkg/encoding"
)

// ProgramAddress owns every index account.
var ProgramAddress = models.DeriveAddress([]byte("world"))

func IndexAddress(instance models.InstanceID) models.Address {
	return models.DeriveAddress([]byte("instance_index"), models.U64Seed(uint64(instance)))
}

type Index struct {
	Instance  models.InstanceID `json:"instance"`
	Authority models.Address    `json:"authority"`
	Config    GameConfig        `json:"config"`
	Map       *models.EntityID  `json:"map"`
	Tiles     []models.EntityID `json:"tiles"`
	Features  []models.EntityID `json:"features"`
	Units     []models.EntityID `json:"units"`
	Players   []models.EntityID `json:"players"`
	PlayPhase PlayPhase         `json:"play_phase"`
}

// baseSize is the size of an index with empty lists.
func baseSize(c GameConfig) uint64 {
	return encoding.SizeU64 + encoding.SizeAddress + c.MaxSize() + encoding.SizeOption + encoding.SizeU64 + 4*encoding.SizeLen + 1
}

func (x *Index) HasPlayer(id models.EntityID) bool { return slices.Contains(x.Players, id) }
func (x *Index) HasTile(id models.EntityID) bool   { return slices.Contains(x.Tiles, id) }
func (x *Index) HasUnit(id models.EntityID) bool   { return slices.Contains(x.Units, id) }

// Full reports whether no more players may join.
func (x *Index) Full() bool {
	return len(x.Players) >= int(x.Config.MaxPlayers)
}

func (x *Index) encode() []byte {
	w := encoding.NewWriter(int(baseSize(x.Config)))
	w.U64(uint64(x.Instance)).Raw(x.Authority[:])
	x.Config.encode(w)
	w.OptionU64((*uint64)(x.Map))
	for _, list := range [][]models.EntityID{x.Tiles, x.Features, x.Units, x.Players} {
		w.U32(uint32(len(list)))
		for _, id := range list {
			w.U64(uint64(id))
		}
	}
	w.U8(uint8(x.PlayPhase))
	return w.Bytes()
}

func decode(data []byte) (*Index, error) {
	r := encoding.NewReader(data)
	x := &Index{Instance: models.InstanceID(r.U64())}
	copy(x.Authority[:], r.Raw(models.AddressSize))
	x.Config = decodeConfig(r)
	x.Map = (*models.EntityID)(r.OptionU64())
	lists := []*[]models.EntityID{&x.Tiles, &x.Features, &x.Units, &x.Players}
	for _, list := range lists {
		n := r.U32()
		for i := uint32(0); i < n && r.Err() == nil; i++ {
			*list = append(*list, models.EntityID(r.U64()))
		}
	}
	x.PlayPhase = PlayPhase(r.U8())
	if err := r.Finish(); err != nil {
		return nil, errs.ErrCorrupt.Wrap(err)
	}
	return x, nil
}

// Create allocates the index of a new instance, sized for its configuration.
func Create(tx storage.Tx, x *Index) error {
	addr := IndexAddress(x.Instance)
	data := x.encode()
	capacity := max(baseSize(x.Config), uint64(len(data)))
	if err := tx.Allocate(addr, ProgramAddress, capacity); err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			return errs.ErrDuplicateInstance.With("instance", uint64(x.Instance))
		}
		return fmt.Errorf("allocate index: %w", err)
	}
	return tx.Write(addr, data)
}

func Load(tx storage.Tx, instance models.InstanceID) (*Index, error) {
	a, err := tx.Read(IndexAddress(instance))
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, errs.ErrInstanceNotFound.With("instance", uint64(instance))
	}
	if err != nil {
		return nil, err
	}
	return decode(a.Data)
}

func Exists(tx storage.Tx, instance models.InstanceID) (bool, error) {
	return tx.Exists(IndexAddress(instance))
}

// Save writes x back, growing the account when appended ids no longer fit.
func Save(tx storage.Tx, x *Index) error {
	addr := IndexAddress(x.Instance)
	a, err := tx.Read(addr)
	if err != nil {
		return err
	}
	data := x.encode()
	if uint64(len(data)) > a.Capacity {
		if err := tx.Resize(addr, uint64(len(data))); err != nil {
			return fmt.Errorf("grow index: %w", err)
		}
	}
	return tx.Write(addr, data)
}
