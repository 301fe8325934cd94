package bus

// EventBus is a thread-safe, in-process pub/sub bus.
//
// Handlers subscribe by event type inside a topic. The wildcard type "*"
// receives every event published to the topic. Delivery is synchronous in the
// publisher goroutine; handler errors are joined and returned from Publish.
type EventBus interface {
	// Publish delivers event to the default topic "".
	Publish(event Event) error
	// PublishToTopic delivers event to subscribers of topic.
	PublishToTopic(topic string, event Event) error

	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. A nil sub is ignored.
	Unsubscribe(sub Subscription) error

	GetMetrics() Metrics
	GetTopics() []TopicInfo
}

// Wildcard subscribes to every event type of a topic.
const Wildcard = "*"

// Event is anything with a routing type.
type Event interface {
	Type() string
}

type EventHandler func(event Event) error

// Subscription is a registered handler. Cancel is safe to call more than once.
type Subscription interface {
	ID() string
	Topic() string
	EventType() string
	IsActive() bool
	Cancel() error
}

type Metrics struct {
	Published         uint64 `json:"published"`
	DeliveredHandlers uint64 `json:"delivered_handlers"`
	Errors            uint64 `json:"errors"`
	SubscribersActive uint64 `json:"subscribers_active"`
	Topics            uint64 `json:"topics"`
}

type TopicInfo struct {
	Name       string `json:"name"`
	EventTypes int    `json:"event_types"`
	Subs       int    `json:"subs"`
}
