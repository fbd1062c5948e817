package events

import (
	"context"
	"sync"
	"time"

	pkgredis "github.com/formvoice/core/internal/pkg/redis"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const redisChannel = "formvoice:events"

const (
	FormCreated       = "form.created"
	FormUpdated       = "form.updated"
	FormDeleted       = "form.deleted"
	FieldChanged      = "form.field_changed"
	SubmissionCreated = "submission.created"
	SubmissionUpdated = "submission.updated"
	TemplateUploaded  = "template.uploaded"
	TemplateDeleted   = "template.deleted"
	InvoiceCreated    = "invoice.created"
	InvoiceUpdated    = "invoice.updated"
	InvoiceDeleted    = "invoice.deleted"
)

// Message is the envelope for local delivery and Redis fan-out.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Origin  string          `json:"origin"`
	At      time.Time       `json:"at"`
}

// Hub delivers change events to in-process subscribers and mirrors them to
// other instances over Redis pub/sub. A nil Redis client keeps it local.
type Hub struct {
	id     string
	rc     *pkgredis.Client
	logger *zap.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Message)

	outbound chan Message
}

func NewHub(rc *pkgredis.Client, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		id:       uuid.NewString(),
		rc:       rc,
		logger:   logger,
		subs:     make(map[int]func(Message)),
		outbound: make(chan Message, 256),
	}
}

// Subscribe registers fn for every event and returns its cancel func.
func (h *Hub) Subscribe(fn func(Message)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish delivers locally and queues the event for Redis. It never blocks:
// when the queue is full the remote copy is dropped.
func (h *Hub) Publish(event string, payload interface{}) {
	if h == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("event encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg := Message{Event: event, Payload: raw, Origin: h.id, At: time.Now()}
	h.deliver(msg)

	if h.rc == nil {
		return
	}
	select {
	case h.outbound <- msg:
	default:
		h.logger.Warn("event queue full, dropping remote publish", zap.String("event", event))
	}
}

func (h *Hub) deliver(msg Message) {
	h.mu.RLock()
	fns := make([]func(Message), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
}

// Run pumps queued events to Redis and delivers events published by other
// instances. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rc == nil {
		<-ctx.Done()
		return
	}
	go h.subscribeRedis(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.outbound:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := h.rc.Publish(ctx, redisChannel, string(data)); err != nil {
				h.logger.Warn("event publish failed", zap.String("event", msg.Event), zap.Error(err))
			}
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rc.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				continue
			}
			if msg.Origin == h.id {
				continue
			}
			h.deliver(msg)
		}
	}
}
