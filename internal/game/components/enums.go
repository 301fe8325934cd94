package components

import (
	"fmt"
	"strings"
)

type EntityType uint8

const (
	EntityMap EntityType = iota
	EntityUnit
	EntityFeature
	EntityTile
	EntityPlayer
)

var entityTypeNames = [...]string{"map", "unit", "feature", "tile", "player"}

func (t EntityType) String() string {
	if int(t) < len(entityTypeNames) {
		return entityTypeNames[t]
	}
	return fmt.Sprintf("entity_type(%d)", uint8(t))
}

func (t EntityType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EntityType) UnmarshalText(text []byte) error {
	for i, name := range entityTypeNames {
		if strings.EqualFold(name, string(text)) {
			*t = EntityType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown entity type %q", text)
}

type TroopClassKind uint8

const (
	Infantry TroopClassKind = iota
	Armor
	Aircraft
)

var troopClassNames = [...]string{"infantry", "armor", "aircraft"}

func (c TroopClassKind) String() string {
	if int(c) < len(troopClassNames) {
		return troopClassNames[c]
	}
	return fmt.Sprintf("troop_class(%d)", uint8(c))
}

func (c TroopClassKind) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *TroopClassKind) UnmarshalText(text []byte) error {
	for i, name := range troopClassNames {
		if strings.EqualFold(name, string(text)) {
			*c = TroopClassKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown troop class %q", text)
}
