package components

import (
	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/pkg/encoding"
)

type Metadata struct {
	Name       string            `yaml:"name" json:"name"`
	EntityType EntityType        `yaml:"entity_type" json:"entity_type"`
	Instance   models.InstanceID `yaml:"-" json:"instance"`
}

func (Metadata) Schema() string  { return NameMetadata }
func (Metadata) MaxSize() uint64 { return StringMaxSize + StringMaxSize + 32 }

func (m Metadata) Encode() []byte {
	return encoding.NewWriter(64).String(m.Name).U8(uint8(m.EntityType)).U64(uint64(m.Instance)).Bytes()
}

func (m *Metadata) Decode(data []byte) error {
	r := encoding.NewReader(data)
	m.Name = r.String()
	m.EntityType = EntityType(r.U8())
	m.Instance = models.InstanceID(r.U64())
	return finish(r)
}

func (m Metadata) Validate() error {
	if len(m.Name) > StringMaxSize {
		return errs.ErrStringTooLong.With("field", "metadata.name")
	}
	return nil
}

type MapMeta struct {
	MaxX uint8 `yaml:"max_x" json:"max_x"`
	MaxY uint8 `yaml:"max_y" json:"max_y"`
}

func (MapMeta) Schema() string  { return NameMapMeta }
func (MapMeta) MaxSize() uint64 { return 2 }

func (m MapMeta) Encode() []byte {
	return encoding.NewWriter(2).U8(m.MaxX).U8(m.MaxY).Bytes()
}

func (m *MapMeta) Decode(data []byte) error {
	r := encoding.NewReader(data)
	m.MaxX, m.MaxY = r.U8(), r.U8()
	return finish(r)
}

type Location struct {
	X uint8 `yaml:"x" json:"x"`
	Y uint8 `yaml:"y" json:"y"`
}

func (Location) Schema() string  { return NameLocation }
func (Location) MaxSize() uint64 { return 2 }

func (l Location) Encode() []byte {
	return encoding.NewWriter(2).U8(l.X).U8(l.Y).Bytes()
}

func (l *Location) Decode(data []byte) error {
	r := encoding.NewReader(data)
	l.X, l.Y = r.U8(), r.U8()
	return finish(r)
}

// Feature links a tile to the feature entity built on it.
type Feature struct {
	FeatureID *models.EntityID `yaml:"-" json:"feature_id"`
}

func (Feature) Schema() string  { return NameFeature }
func (Feature) MaxSize() uint64 { return 1 + 8 }

func (f Feature) Encode() []byte {
	return encoding.NewWriter(9).OptionU64((*uint64)(f.FeatureID)).Bytes()
}

func (f *Feature) Decode(data []byte) error {
	r := encoding.NewReader(data)
	f.FeatureID = (*models.EntityID)(r.OptionU64())
	return finish(r)
}

type Owner struct {
	Owner  *models.Address  `yaml:"-" json:"owner"`
	Player *models.EntityID `yaml:"-" json:"player"`
}

func (Owner) Schema() string  { return NameOwner }
func (Owner) MaxSize() uint64 { return 1 + 32 + 1 + 8 }

func (o Owner) Encode() []byte {
	w := encoding.NewWriter(42)
	if o.Owner == nil {
		w.None()
	} else {
		w.Some().Raw(o.Owner[:])
	}
	return w.OptionU64((*uint64)(o.Player)).Bytes()
}

func (o *Owner) Decode(data []byte) error {
	r := encoding.NewReader(data)
	o.Owner = nil
	if r.Option() {
		var a models.Address
		copy(a[:], r.Raw(models.AddressSize))
		o.Owner = &a
	}
	o.Player = (*models.EntityID)(r.OptionU64())
	return finish(r)
}

// IsOwner reports whether addr is the owning address.
func (o Owner) IsOwner(addr models.Address) bool {
	return o.Owner != nil && *o.Owner == addr
}

// SamePlayer compares the player links; two absent links are equal.
func (o Owner) SamePlayer(other Owner) bool {
	if o.Player == nil || other.Player == nil {
		return o.Player == nil && other.Player == nil
	}
	return *o.Player == *other.Player
}

type Value struct {
	Value uint64 `yaml:"value" json:"value"`
}

func (Value) Schema() string  { return NameValue }
func (Value) MaxSize() uint64 { return 8 }

func (v Value) Encode() []byte { return encoding.NewWriter(8).U64(v.Value).Bytes() }

func (v *Value) Decode(data []byte) error {
	r := encoding.NewReader(data)
	v.Value = r.U64()
	return finish(r)
}

type Occupant struct {
	OccupantID *models.EntityID `yaml:"-" json:"occupant_id"`
}

func (Occupant) Schema() string  { return NameOccupant }
func (Occupant) MaxSize() uint64 { return 1 + 8 }

func (o Occupant) Encode() []byte {
	return encoding.NewWriter(9).OptionU64((*uint64)(o.OccupantID)).Bytes()
}

func (o *Occupant) Decode(data []byte) error {
	r := encoding.NewReader(data)
	o.OccupantID = (*models.EntityID)(r.OptionU64())
	return finish(r)
}

type PlayerStats struct {
	Name  string           `yaml:"name" json:"name"`
	Image string           `yaml:"image" json:"image"`
	Key   models.Address   `yaml:"-" json:"key"`
	Score uint64           `yaml:"score" json:"score"`
	Kills uint64           `yaml:"kills" json:"kills"`
	Cards []models.Address `yaml:"-" json:"cards"`
}

func (PlayerStats) Schema() string { return NamePlayerStats }

func (PlayerStats) MaxSize() uint64 {
	return 2*StringMaxSize + 32 + 8 + 8 + encoding.SizeLen + 32*PlayerMaxCards
}

func (p PlayerStats) Encode() []byte {
	w := encoding.NewWriter(128).String(p.Name).String(p.Image).Raw(p.Key[:]).U64(p.Score).U64(p.Kills)
	w.U32(uint32(len(p.Cards)))
	for _, c := range p.Cards {
		w.Raw(c[:])
	}
	return w.Bytes()
}

func (p *PlayerStats) Decode(data []byte) error {
	r := encoding.NewReader(data)
	p.Name = r.String()
	p.Image = r.String()
	copy(p.Key[:], r.Raw(models.AddressSize))
	p.Score = r.U64()
	p.Kills = r.U64()
	n := r.U32()
	p.Cards = nil
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		var c models.Address
		copy(c[:], r.Raw(models.AddressSize))
		p.Cards = append(p.Cards, c)
	}
	return finish(r)
}

func (p PlayerStats) Validate() error {
	if len(p.Name) > StringMaxSize {
		return errs.ErrStringTooLong.With("field", "player_stats.name")
	}
	if len(p.Image) > StringMaxSize {
		return errs.ErrStringTooLong.With("field", "player_stats.image")
	}
	if len(p.Cards) > PlayerMaxCards {
		return errs.ErrCapacityExceeded.With("field", "player_stats.cards").With("max", PlayerMaxCards)
	}
	return nil
}

// LastUsed tracks when an entity acted and how many ticks it must rest.
type LastUsed struct {
	LastUsed uint64 `yaml:"last_used" json:"last_used"`
	Recovery uint64 `yaml:"recovery" json:"recovery"`
}

func (LastUsed) Schema() string  { return NameLastUsed }
func (LastUsed) MaxSize() uint64 { return 16 }

func (l LastUsed) Encode() []byte {
	return encoding.NewWriter(16).U64(l.LastUsed).U64(l.Recovery).Bytes()
}

func (l *LastUsed) Decode(data []byte) error {
	r := encoding.NewReader(data)
	l.LastUsed, l.Recovery = r.U64(), r.U64()
	return finish(r)
}

// Ready reports whether the entity may act at tick now. A never-used entity is always ready.
func (l LastUsed) Ready(now uint64) bool {
	return l.LastUsed == 0 || l.LastUsed+l.Recovery < now
}

type FeatureRank struct {
	Rank                uint8    `yaml:"rank" json:"rank"`
	MaxRank             uint8    `yaml:"max_rank" json:"max_rank"`
	CostForUseLadder    []uint64 `yaml:"cost_for_use_ladder" json:"cost_for_use_ladder"`
	LinkRankLadder      []string `yaml:"link_rank_ladder" json:"link_rank_ladder"`
	NameRankLadder      []string `yaml:"name_rank_ladder" json:"name_rank_ladder"`
	PerRankStatIncrease uint64   `yaml:"per_rank_stat_increase" json:"per_rank_stat_increase"`
}

func (FeatureRank) Schema() string { return NameFeatureRank }

func (FeatureRank) MaxSize() uint64 {
	ladder := uint64(encoding.SizeLen + FeatureMaxString*FeatureMaxRank)
	return 1 + 1 + encoding.SizeLen + 8*FeatureMaxRank + 2*ladder + 8
}

func (f FeatureRank) Encode() []byte {
	w := encoding.NewWriter(128).U8(f.Rank).U8(f.MaxRank)
	w.U32(uint32(len(f.CostForUseLadder)))
	for _, c := range f.CostForUseLadder {
		w.U64(c)
	}
	for _, ladder := range [][]string{f.LinkRankLadder, f.NameRankLadder} {
		w.U32(uint32(len(ladder)))
		for _, s := range ladder {
			w.String(s)
		}
	}
	return w.U64(f.PerRankStatIncrease).Bytes()
}

func (f *FeatureRank) Decode(data []byte) error {
	r := encoding.NewReader(data)
	f.Rank, f.MaxRank = r.U8(), r.U8()
	f.CostForUseLadder = nil
	n := r.U32()
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		f.CostForUseLadder = append(f.CostForUseLadder, r.U64())
	}
	f.LinkRankLadder = readStrings(r)
	f.NameRankLadder = readStrings(r)
	f.PerRankStatIncrease = r.U64()
	return finish(r)
}

func (f FeatureRank) Validate() error {
	for _, n := range []int{len(f.CostForUseLadder), len(f.LinkRankLadder), len(f.NameRankLadder)} {
		if n > FeatureMaxRank {
			return errs.ErrCapacityExceeded.With("field", "feature_rank").With("max", FeatureMaxRank)
		}
	}
	for _, ladder := range [][]string{f.LinkRankLadder, f.NameRankLadder} {
		for _, s := range ladder {
			if len(s) > FeatureMaxString {
				return errs.ErrStringTooLong.With("field", "feature_rank").With("value", s)
			}
		}
	}
	return nil
}

func readStrings(r *encoding.Reader) []string {
	var out []string
	n := r.U32()
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		out = append(out, r.String())
	}
	return out
}

type Range struct {
	Movement    uint8 `yaml:"movement" json:"movement"`
	AttackRange uint8 `yaml:"attack_range" json:"attack_range"`
}

func (Range) Schema() string  { return NameRange }
func (Range) MaxSize() uint64 { return 2 }

func (rg Range) Encode() []byte {
	return encoding.NewWriter(2).U8(rg.Movement).U8(rg.AttackRange).Bytes()
}

func (rg *Range) Decode(data []byte) error {
	r := encoding.NewReader(data)
	rg.Movement, rg.AttackRange = r.U8(), r.U8()
	return finish(r)
}

// DropTable lists blueprint keys dropped when the entity is destroyed.
type DropTable struct {
	Blueprints []models.Address `yaml:"-" json:"drop_table"`
}

func (DropTable) Schema() string  { return NameDropTable }
func (DropTable) MaxSize() uint64 { return encoding.SizeLen + 32*DropTableMaxSize }

func (d DropTable) Encode() []byte {
	w := encoding.NewWriter(encoding.SizeLen + 32*len(d.Blueprints)).U32(uint32(len(d.Blueprints)))
	for _, b := range d.Blueprints {
		w.Raw(b[:])
	}
	return w.Bytes()
}

func (d *DropTable) Decode(data []byte) error {
	r := encoding.NewReader(data)
	d.Blueprints = nil
	n := r.U32()
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		var b models.Address
		copy(b[:], r.Raw(models.AddressSize))
		d.Blueprints = append(d.Blueprints, b)
	}
	return finish(r)
}

func (d DropTable) Validate() error {
	if len(d.Blueprints) > DropTableMaxSize {
		return errs.ErrCapacityExceeded.With("field", "drop_table").With("max", DropTableMaxSize)
	}
	return nil
}

type Uses struct {
	UsesLeft uint64 `yaml:"uses_left" json:"uses_left"`
	MaxUses  uint64 `yaml:"max_uses" json:"max_uses"`
}

func (Uses) Schema() string  { return NameUses }
func (Uses) MaxSize() uint64 { return 16 }

func (u Uses) Encode() []byte { return encoding.NewWriter(16).U64(u.UsesLeft).U64(u.MaxUses).Bytes() }

func (u *Uses) Decode(data []byte) error {
	r := encoding.NewReader(data)
	u.UsesLeft, u.MaxUses = r.U64(), r.U64()
	return finish(r)
}

type HealingPower struct {
	Heals uint64 `yaml:"heals" json:"heals"`
}

func (HealingPower) Schema() string  { return NameHealingPower }
func (HealingPower) MaxSize() uint64 { return 8 }

func (h HealingPower) Encode() []byte { return encoding.NewWriter(8).U64(h.Heals).Bytes() }

func (h *HealingPower) Decode(data []byte) error {
	r := encoding.NewReader(data)
	h.Heals = r.U64()
	return finish(r)
}

type Health struct {
	Health uint64 `yaml:"health" json:"health"`
}

func (Health) Schema() string  { return NameHealth }
func (Health) MaxSize() uint64 { return 8 }

func (h Health) Encode() []byte { return encoding.NewWriter(8).U64(h.Health).Bytes() }

func (h *Health) Decode(data []byte) error {
	r := encoding.NewReader(data)
	h.Health = r.U64()
	return finish(r)
}

type Damage struct {
	MinDamage     uint64 `yaml:"min_damage" json:"min_damage"`
	MaxDamage     uint64 `yaml:"max_damage" json:"max_damage"`
	BonusInfantry uint32 `yaml:"bonus_infantry" json:"bonus_infantry"`
	BonusArmor    uint32 `yaml:"bonus_armor" json:"bonus_armor"`
	BonusAircraft uint32 `yaml:"bonus_aircraft" json:"bonus_aircraft"`
	BonusFeature  uint32 `yaml:"bonus_feature" json:"bonus_feature"`
}

func (Damage) Schema() string  { return NameDamage }
func (Damage) MaxSize() uint64 { return 8 + 8 + 4 + 4 + 4 + 4 }

func (d Damage) Encode() []byte {
	return encoding.NewWriter(32).
		U64(d.MinDamage).U64(d.MaxDamage).
		U32(d.BonusInfantry).U32(d.BonusArmor).U32(d.BonusAircraft).U32(d.BonusFeature).
		Bytes()
}

func (d *Damage) Decode(data []byte) error {
	r := encoding.NewReader(data)
	d.MinDamage, d.MaxDamage = r.U64(), r.U64()
	d.BonusInfantry, d.BonusArmor, d.BonusAircraft, d.BonusFeature = r.U32(), r.U32(), r.U32(), r.U32()
	return finish(r)
}

// Bonus returns the extra damage dealt to a defender of the given type. Units
// without a troop class get no bonus.
func (d Damage) Bonus(defender EntityType, class *TroopClassKind) uint64 {
	if defender == EntityFeature {
		return uint64(d.BonusFeature)
	}
	if class == nil {
		return 0
	}
	switch *class {
	case Infantry:
		return uint64(d.BonusInfantry)
	case Armor:
		return uint64(d.BonusArmor)
	case Aircraft:
		return uint64(d.BonusAircraft)
	default:
		return 0
	}
}

type TroopClass struct {
	Class TroopClassKind `yaml:"class" json:"class"`
}

func (TroopClass) Schema() string  { return NameTroopClass }
func (TroopClass) MaxSize() uint64 { return 1 + 1 }

func (t TroopClass) Encode() []byte { return encoding.NewWriter(1).U8(uint8(t.Class)).Bytes() }

func (t *TroopClass) Decode(data []byte) error {
	r := encoding.NewReader(data)
	t.Class = TroopClassKind(r.U8())
	return finish(r)
}

type Active struct {
	Active bool `yaml:"active" json:"active"`
}

func (Active) Schema() string  { return NameActive }
func (Active) MaxSize() uint64 { return 1 }

func (a Active) Encode() []byte { return encoding.NewWriter(1).Bool(a.Active).Bytes() }

func (a *Active) Decode(data []byte) error {
	r := encoding.NewReader(data)
	a.Active = r.Bool()
	return finish(r)
}

type Cost struct {
	Lamports uint64 `yaml:"lamports" json:"lamports"`
}

func (Cost) Schema() string  { return NameCost }
func (Cost) MaxSize() uint64 { return 8 }

func (c Cost) Encode() []byte { return encoding.NewWriter(8).U64(c.Lamports).Bytes() }

func (c *Cost) Decode(data []byte) error {
	r := encoding.NewReader(data)
	c.Lamports = r.U64()
	return finish(r)
}

type OffchainMetadata struct {
	Link string `yaml:"link" json:"link"`
}

func (OffchainMetadata) Schema() string  { return NameOffchainMetadata }
func (OffchainMetadata) MaxSize() uint64 { return 2 * StringMaxSize }

func (o OffchainMetadata) Encode() []byte {
	return encoding.NewWriter(encoding.SizeLen + len(o.Link)).String(o.Link).Bytes()
}

func (o *OffchainMetadata) Decode(data []byte) error {
	r := encoding.NewReader(data)
	o.Link = r.String()
	return finish(r)
}

func (o OffchainMetadata) Validate() error {
	if len(o.Link) > OffchainLinkMaxSize {
		return errs.ErrStringTooLong.With("field", "offchain_metadata.link")
	}
	return nil
}

// Validator is implemented by components with bounded strings or lists.
type Validator interface {
	Validate() error
}
