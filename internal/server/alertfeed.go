package server

import (
	"context"
	"sync"
	"time"
)

const alertFeedEventCreated = "alert-created"

// AlertEvent is pushed to instructors watching a classroom's live feed when
// a new help alert lands.
type AlertEvent struct {
	ClassroomSessionID string    `json:"classroom_session_id"`
	AlertID            string    `json:"alert_id"`
	BreakoutRoomName   string    `json:"breakout_room_name,omitempty"`
	Topic              string    `json:"topic"`
	Urgency            string    `json:"urgency"`
	DetectedAt         time.Time `json:"detected_at"`
}

// AlertFeedDispatcher fans newly created alerts out to per-classroom
// subscribers. Slow subscribers drop events rather than block writers.
type AlertFeedDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*alertFeedSubscriber
	nextID      int64
	bufferSize  int
}

type alertFeedSubscriber struct {
	id     int64
	stream chan AlertEvent
}

// NewAlertFeedDispatcher constructs an empty dispatcher.
func NewAlertFeedDispatcher() *AlertFeedDispatcher {
	return &AlertFeedDispatcher{
		subscribers: make(map[string]map[int64]*alertFeedSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a watcher for the classroom and returns its stream
// plus a cleanup function. The subscription is also torn down when the
// context ends.
func (d *AlertFeedDispatcher) Subscribe(ctx context.Context, classroomSessionID string) (<-chan AlertEvent, func()) {
	if classroomSessionID == "" {
		closed := make(chan AlertEvent)
		close(closed)
		return closed, func() {}
	}
	subscriber := &alertFeedSubscriber{
		id:     d.nextSequence(),
		stream: make(chan AlertEvent, d.bufferSize),
	}
	d.register(classroomSessionID, subscriber)
	cleanup := func() {
		d.unregister(classroomSessionID, subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers the event to every subscriber of its classroom.
func (d *AlertFeedDispatcher) Publish(event AlertEvent) {
	if event.ClassroomSessionID == "" || event.AlertID == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[event.ClassroomSessionID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*alertFeedSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- event:
		default:
		}
	}
}

func (d *AlertFeedDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *AlertFeedDispatcher) register(classroomSessionID string, subscriber *alertFeedSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[classroomSessionID]; !ok {
		d.subscribers[classroomSessionID] = make(map[int64]*alertFeedSubscriber)
	}
	d.subscribers[classroomSessionID][subscriber.id] = subscriber
}

func (d *AlertFeedDispatcher) unregister(classroomSessionID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[classroomSessionID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, classroomSessionID)
		}
	}
	d.mu.Unlock()
}
