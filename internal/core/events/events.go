// Package events defines the domain events the engine emits and the
// publisher that carries them onto the bus. Delivery is fire-and-forget:
// a failing consumer is logged and never fails the operation that emitted.
package events

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/dominari/internal/core/events/bus"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
)

const (
	TypeNewWorldInstance       = "NewWorldInstance"
	TypeNewComponentRegistered = "NewComponentRegistered"
	TypeNewSystemRegistration  = "NewSystemRegistration"
	TypeNewBlueprintRegistered = "NewBlueprintRegistered"
	TypeNewUnitSpawned         = "NewUnitSpawned"
	TypeTroopMovement          = "TroopMovement"
	TypeTileAttacked           = "TileAttacked"
	TypeGameStateChanged       = "GameStateChanged"
	TypeScoreChanged           = "ScoreChanged"
)

type NewWorldInstance struct {
	Instance  models.InstanceID `json:"instance"`
	Authority models.Address    `json:"authority"`
}

type NewComponentRegistered struct {
	Key  models.ComponentKey `json:"key"`
	Name string              `json:"name"`
}

type NewSystemRegistration struct {
	Authority models.Address        `json:"authority"`
	Keys      []models.ComponentKey `json:"keys"`
}

type NewBlueprintRegistered struct {
	Name string         `json:"name"`
	Key  models.Address `json:"key"`
}

type NewUnitSpawned struct {
	Instance models.InstanceID `json:"instance"`
	Tile     models.EntityID   `json:"tile"`
	Player   models.EntityID   `json:"player"`
	Unit     models.EntityID   `json:"unit"`
}

type TroopMovement struct {
	Instance models.InstanceID `json:"instance"`
	From     models.EntityID   `json:"from"`
	To       models.EntityID   `json:"to"`
	Unit     models.EntityID   `json:"unit"`
}

type TileAttacked struct {
	Instance      models.InstanceID `json:"instance"`
	Attacker      models.EntityID   `json:"attacker"`
	Defender      models.EntityID   `json:"defender"`
	DefendingTile models.EntityID   `json:"defending_tile"`
	Damage        uint64            `json:"damage"`
}

type GameStateChanged struct {
	Instance models.InstanceID `json:"instance"`
	Player   models.EntityID   `json:"player"`
	NewState string            `json:"new_state"`
}

type ScoreChanged struct {
	Instance models.InstanceID `json:"instance"`
	Player   models.EntityID   `json:"player"`
	Score    uint64            `json:"score"`
	Delta    uint64            `json:"delta"`
	Reason   string            `json:"reason"`
}

func (NewWorldInstance) Type() string       { return TypeNewWorldInstance }
func (NewComponentRegistered) Type() string { return TypeNewComponentRegistered }
func (NewSystemRegistration) Type() string  { return TypeNewSystemRegistration }
func (NewBlueprintRegistered) Type() string { return TypeNewBlueprintRegistered }
func (NewUnitSpawned) Type() string         { return TypeNewUnitSpawned }
func (TroopMovement) Type() string          { return TypeTroopMovement }
func (TileAttacked) Type() string           { return TypeTileAttacked }
func (GameStateChanged) Type() string       { return TypeGameStateChanged }
func (ScoreChanged) Type() string           { return TypeScoreChanged }

func (e NewWorldInstance) InstanceID() models.InstanceID { return e.Instance }
func (e NewUnitSpawned) InstanceID() models.InstanceID   { return e.Instance }
func (e TroopMovement) InstanceID() models.InstanceID    { return e.Instance }
func (e TileAttacked) InstanceID() models.InstanceID     { return e.Instance }
func (e GameStateChanged) InstanceID() models.InstanceID { return e.Instance }
func (e ScoreChanged) InstanceID() models.InstanceID     { return e.Instance }

// Scoped events belong to one world instance and are also routed to its topic.
type Scoped interface {
	bus.Event
	InstanceID() models.InstanceID
}

func InstanceTopic(id models.InstanceID) string {
	return "instance:" + strconv.FormatUint(uint64(id), 10)
}

// Publisher accepts events after the emitting transaction committed.
type Publisher interface {
	Publish(ctx context.Context, event bus.Event)
}

// Envelope is the wire form handed to external consumers.
type Envelope struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Instance  *models.InstanceID `json:"instance,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Payload   bus.Event          `json:"payload"`
}

func Wrap(event bus.Event) Envelope {
	env := Envelope{
		ID:        uuid.NewString(),
		Type:      event.Type(),
		Timestamp: time.Now().UTC(),
		Payload:   event,
	}
	if scoped, ok := event.(Scoped); ok {
		id := scoped.InstanceID()
		env.Instance = &id
	}
	return env
}

var _ Publisher = (*BusPublisher)(nil)

// BusPublisher fans every event out on the default topic, and scoped events
// on their instance topic as well.
type BusPublisher struct {
	bus    bus.EventBus
	logger log.Log
}

func NewBusPublisher(b bus.EventBus, logger log.Log) *BusPublisher {
	return &BusPublisher{bus: b, logger: logger.With(log.String("component", "events"))}
}

func (p *BusPublisher) Publish(_ context.Context, event bus.Event) {
	if err := p.bus.Publish(event); err != nil {
		p.logger.Warn("Event consumer failed", log.String("type", event.Type()), log.Error(err))
	}
	scoped, ok := event.(Scoped)
	if !ok {
		return
	}
	if err := p.bus.PublishToTopic(InstanceTopic(scoped.InstanceID()), event); err != nil {
		p.logger.Warn("Event consumer failed",
			log.String("type", event.Type()),
			log.Uint64("instance", uint64(scoped.InstanceID())),
			log.Error(err),
		)
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, bus.Event) {}

// Recorder keeps every published event in order.
type Recorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *Recorder) Publish(_ context.Context, event bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []bus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bus.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// OfType returns the recorded events of concrete type T.
func OfType[T bus.Event](r *Recorder) []T {
	var out []T
	for _, e := range r.Events() {
		if t, ok := e.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
