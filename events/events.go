package events

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

const shutdownPollInterval = 200 * time.Millisecond

// Topics emitted by the entity manager. Gameplay systems may publish their
// own topics through the same hub.
const (
	TopicEntityCreated         = "entity_created"
	TopicEntityDestroyed       = "entity_destroyed"
	TopicComponentAdded        = "component_added"
	TopicComponentRemoved      = "component_removed"
	TopicComponentUpdated      = "component_updated"
	TopicEntityManagerShutdown = "entity_manager_shutdown"
)

// TopicAll subscribes a handler to every topic.
const TopicAll = "*"

// Priority orders queued events at flush time. Higher priorities are
// dispatched first; events of equal priority keep publish order.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	}
	return "unknown"
}

// Event is one published notification.
type Event struct {
	Topic     string
	Payload   map[string]any
	Priority  Priority
	Source    string
	Timestamp time.Time
}

// Handler consumes dispatched events. Handlers run on the hub goroutine
// during FlushEvents and must not block.
type Handler func(Event)

// subscriptionAndDoneChan carries a subscription into the hub loop along
// with a channel to signal the caller once it has been recorded.
type subscriptionAndDoneChan struct {
	topic    string
	handler  Handler
	doneChan chan bool
}

// Hub is an in-process publish/subscribe bus. Publishing enqueues; nothing
// is delivered until FlushEvents, which the simulation driver calls once
// per tick after all systems have run. All hub state is owned by the Run
// loop goroutine and accessed through channels.
type Hub struct {
	handlers            map[string][]Handler
	publish             chan Event
	subscribe           chan subscriptionAndDoneChan
	flush               chan chan int
	getEventQueueLength chan chan int
	shutdown            chan bool
	eventQueue          []Event
	isRunning           atomic.Bool
}

func NewHub() *Hub {
	res := Hub{
		handlers:            map[string][]Handler{},
		publish:             make(chan Event),
		subscribe:           make(chan subscriptionAndDoneChan),
		flush:               make(chan chan int),
		getEventQueueLength: make(chan chan int),
		shutdown:            make(chan bool),
		eventQueue:          make([]Event, 0),
		isRunning:           atomic.Bool{},
	}
	res.isRunning.Store(false)
	go func() {
		res.Run()
	}()
	return &res
}

// EventQueueLength returns the number of events waiting for the next flush.
func (eh *Hub) EventQueueLength() int {
	lengthChan := make(chan int)
	eh.getEventQueueLength <- lengthChan
	return <-lengthChan
}

// Publish enqueues an event for the next flush. The payload is retained
// as-is; publishers must not mutate it afterwards.
func (eh *Hub) Publish(topic string, payload map[string]any, priority Priority, source string) error {
	if topic == "" {
		return eris.New("event topic must not be empty")
	}
	eh.publish <- Event{
		Topic:     topic,
		Payload:   payload,
		Priority:  priority,
		Source:    source,
		Timestamp: time.Now(),
	}
	return nil
}

// Subscribe registers a handler for the given topic (or TopicAll). It
// returns once the hub has recorded the subscription.
func (eh *Hub) Subscribe(topic string, handler Handler) {
	doneChan := make(chan bool)
	eh.subscribe <- subscriptionAndDoneChan{
		topic:    topic,
		handler:  handler,
		doneChan: doneChan,
	}
	<-doneChan
}

// FlushEvents dispatches every queued event, highest priority first, and
// returns the number of events dispatched.
func (eh *Hub) FlushEvents() int {
	countChan := make(chan int)
	eh.flush <- countChan
	return <-countChan
}

// Shutdown stops the run loop. Pending events are dropped.
func (eh *Hub) Shutdown() {
	eh.shutdown <- true
	// block until the loop fully exits.
	for eh.isRunning.Load() {
		time.Sleep(shutdownPollInterval)
	}
}

func (eh *Hub) Run() {
	if eh.isRunning.Load() {
		return
	}
	eh.isRunning.Store(true)
Loop:
	for eh.isRunning.Load() {
		select {
		case lengthChan := <-eh.getEventQueueLength:
			lengthChan <- len(eh.eventQueue)
		case sub := <-eh.subscribe:
			eh.handlers[sub.topic] = append(eh.handlers[sub.topic], sub.handler)
			sub.doneChan <- true
		case event := <-eh.publish:
			eh.eventQueue = append(eh.eventQueue, event)
		case countChan := <-eh.flush:
			countChan <- eh.dispatchQueue()
		case <-eh.shutdown:
			go func() {
				for range eh.shutdown { //nolint:revive // This pattern drains the channel until closed
				}
			}()
			if dropped := len(eh.eventQueue); dropped > 0 {
				log.Warn().Int("dropped_events", dropped).Msg("event hub shut down with undelivered events")
			}
			break Loop
		}
	}
	eh.isRunning.Store(false)
}

// dispatchQueue runs on the hub goroutine. Events are delivered highest
// priority first; within one priority class publish order is preserved.
func (eh *Hub) dispatchQueue() int {
	sort.SliceStable(eh.eventQueue, func(i, j int) bool {
		return eh.eventQueue[i].Priority > eh.eventQueue[j].Priority
	})
	dispatched := 0
	for _, event := range eh.eventQueue {
		for _, handler := range eh.handlers[event.Topic] {
			handler(event)
		}
		for _, handler := range eh.handlers[TopicAll] {
			handler(event)
		}
		dispatched++
	}
	eh.eventQueue = eh.eventQueue[:0]
	return dispatched
}
