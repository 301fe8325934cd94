package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/zeusync/dominari/internal/game/components"
)

// Roll draws a value in [0, maxValue] from tick. The same tick always yields
// the same value; it is not suitable where players can choose the tick.
func Roll(tick, maxValue uint64) uint64 {
	if maxValue == 0 {
		return 0
	}
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], tick)
	sum := sha256.Sum256(seed[:])
	n := binary.BigEndian.Uint64(sum[:8])
	return min(n/(math.MaxUint64/maxValue), maxValue)
}

// Distance is the straight-line distance between two tiles, floored.
func Distance(a, b components.Location) uint64 {
	dx := float64(a.X) - float64(b.X)
	dy := float64(a.Y) - float64(b.Y)
	return uint64(math.Floor(math.Sqrt(dx*dx + dy*dy)))
}

// damage is the roll plus the defender-specific bonus, raised to the minimum.
func damage(tick uint64, d components.Damage, defender components.EntityType, class *components.TroopClassKind) uint64 {
	return max(Roll(tick, d.MaxDamage)+d.Bonus(defender, class), d.MinDamage)
}
