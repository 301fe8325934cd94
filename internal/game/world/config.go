package world

import (
	"fmt"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/game/components"
	"github.com/zeusync/dominari/pkg/encoding"
)

type ModeKind uint8

const (
	ModeSandbox ModeKind = iota
	ModeKOTH
	ModeMaxScore
	ModeArtifact
)

func (k ModeKind) String() string {
	switch k {
	case ModeSandbox:
		return "sandbox"
	case ModeKOTH:
		return "koth"
	case ModeMaxScore:
		return "max_score"
	case ModeArtifact:
		return "artifact"
	default:
		return fmt.Sprintf("mode(%d)", uint8(k))
	}
}

// KOTH awards PointsPerGrant to whoever holds the hill tile, at most once per IntervalTicks.
type KOTH struct {
	HillX          uint8  `yaml:"hill_x" json:"hill_x"`
	HillY          uint8  `yaml:"hill_y" json:"hill_y"`
	PointsPerGrant uint64 `yaml:"points_per_grant" json:"points_per_grant"`
	IntervalTicks  uint64 `yaml:"interval_ticks" json:"interval_ticks"`
	LastScoreGrant uint64 `yaml:"-" json:"last_score_grant"`
}

// GameMode is a tagged union; only the field matching Kind is meaningful.
type GameMode struct {
	Kind        ModeKind `yaml:"kind" json:"kind"`
	KOTH        KOTH     `yaml:"koth" json:"koth"`
	TargetScore uint64   `yaml:"target_score" json:"target_score"`
}

const modeSize = 1 + 1 + 1 + 8 + 8 + 8

func (m GameMode) encode(w *encoding.Writer) {
	w.U8(uint8(m.Kind))
	switch m.Kind {
	case ModeKOTH:
		w.U8(m.KOTH.HillX).U8(m.KOTH.HillY).U64(m.KOTH.PointsPerGrant).U64(m.KOTH.IntervalTicks).U64(m.KOTH.LastScoreGrant)
	case ModeMaxScore:
		w.U64(m.TargetScore)
	}
}

func decodeMode(r *encoding.Reader) GameMode {
	m := GameMode{Kind: ModeKind(r.U8())}
	switch m.Kind {
	case ModeKOTH:
		m.KOTH = KOTH{HillX: r.U8(), HillY: r.U8(), PointsPerGrant: r.U64(), IntervalTicks: r.U64(), LastScoreGrant: r.U64()}
	case ModeMaxScore:
		m.TargetScore = r.U64()
	}
	return m
}

type GameConfig struct {
	MaxPlayers    uint16           `yaml:"max_players" json:"max_players"`
	StartingCards []models.Address `yaml:"starting_cards" json:"starting_cards"`
	Mode          GameMode         `yaml:"mode" json:"mode"`
}

// MaxSize depends on the number of starting cards.
func (c GameConfig) MaxSize() uint64 {
	return encoding.SizeU16 + encoding.SizeLen + encoding.SizeAddress*uint64(len(c.StartingCards)) + modeSize
}

func (c GameConfig) Validate() error {
	if c.MaxPlayers == 0 {
		return errs.ErrInvalidArgument.With("reason", "max_players must be positive")
	}
	// Every player is dealt the full starting hand.
	if len(c.StartingCards) > components.PlayerMaxCards {
		return errs.ErrCapacityExceeded.With("field", "starting_cards").With("max", components.PlayerMaxCards)
	}
	if c.Mode.Kind > ModeArtifact {
		return errs.ErrInvalidArgument.With("reason", "unknown game mode")
	}
	if c.Mode.Kind == ModeKOTH && c.Mode.KOTH.IntervalTicks == 0 {
		return errs.ErrInvalidArgument.With("reason", "koth interval must be positive")
	}
	return nil
}

func (c GameConfig) encode(w *encoding.Writer) {
	w.U16(c.MaxPlayers).U32(uint32(len(c.StartingCards)))
	for _, card := range c.StartingCards {
		w.Raw(card[:])
	}
	c.Mode.encode(w)
}

func decodeConfig(r *encoding.Reader) GameConfig {
	c := GameConfig{MaxPlayers: r.U16()}
	n := r.U32()
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		var card models.Address
		copy(card[:], r.Raw(models.AddressSize))
		c.StartingCards = append(c.StartingCards, card)
	}
	c.Mode = decodeMode(r)
	return c
}
