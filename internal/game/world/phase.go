package world

import (
	"fmt"
	"strings"
)

type PlayPhase uint8

const (
	Lobby PlayPhase = iota
	Build
	Play
	Paused
	Finished
)

var phaseNames = [...]string{"lobby", "build", "play", "paused", "finished"}

func (p PlayPhase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

func (p PlayPhase) Valid() bool {
	return int(p) < len(phaseNames)
}

func (p PlayPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PlayPhase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if strings.EqualFold(name, string(text)) {
			*p = PlayPhase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown play phase %q", text)
}
