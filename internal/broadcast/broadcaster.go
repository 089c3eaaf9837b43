package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"code.cloudfoundry.org/workpool"
	natsadapter "github.com/Abdurahmanit/GroupProject/auction-service/internal/adapter/nats"
	redisadapter "github.com/Abdurahmanit/GroupProject/auction-service/internal/adapter/redis"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/platform/logger"
	"github.com/google/uuid"
)

// SubscriberTransport is the pub/sub collaborator events are delivered over.
type SubscriberTransport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	PublishToUser(ctx context.Context, userID string, payload []byte) error
}

// EventBroadcaster fans auction events out to subscribers. Every call is
// fire-and-forget: delivery failure never reaches the state-changing
// operation that produced the event.
type EventBroadcaster interface {
	BroadcastBidUpdate(itemID string, currentPrice float64, bidderID string, at time.Time)
	BroadcastAuctionStatus(itemID string, status entity.ItemStatus, at time.Time)
	SendError(userID, code, message string)
	SendConnectionStatus(userID, connectionID string, status entity.ConnectionStatus)
}

type topicMessage struct {
	topic   string
	payload []byte
}

// Dispatcher implements EventBroadcaster over a bounded queue and a fixed
// worker pool. Topic messages drain through a single goroutine so events for
// one auction keep their commit order; user-directed messages carry no
// ordering guarantee and go through the pool.
type Dispatcher struct {
	transport SubscriberTransport
	events    natsadapter.MessagePublisher
	pool      *workpool.WorkPool
	queue     chan topicMessage
	log       logger.Logger

	stopOnce sync.Once
	done     chan struct{}
	drained  sync.WaitGroup
}

func NewDispatcher(transport SubscriberTransport, events natsadapter.MessagePublisher, queueSize, workers int, log logger.Logger) (*Dispatcher, error) {
	pool, err := workpool.NewWorkPool(workers)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		transport: transport,
		events:    events,
		pool:      pool,
		queue:     make(chan topicMessage, queueSize),
		log:       log,
		done:      make(chan struct{}),
	}

	d.drained.Add(1)
	go d.dispatchLoop()
	return d, nil
}

func (d *Dispatcher) dispatchLoop() {
	defer d.drained.Done()
	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		case <-d.done:
			// Drain what producers queued before the stop signal. The queue
			// channel itself is never closed, so a producer racing Stop can
			// at worst have its message dropped, never panic.
			for {
				select {
				case msg := <-d.queue:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg topicMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.transport.Publish(ctx, msg.topic, msg.payload); err != nil {
		d.log.Warnf("Failed to deliver event to topic %s: %v", msg.topic, err)
	}
}

// Stop drains queued topic messages and stops the workers.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		d.drained.Wait()
		d.pool.Stop()
	})
}

func (d *Dispatcher) enqueue(topic string, payload []byte) {
	select {
	case <-d.done:
		return
	default:
	}
	select {
	case d.queue <- topicMessage{topic: topic, payload: payload}:
	default:
		d.log.Warnf("Broadcast queue full, dropping event for topic %s", topic)
	}
}

func (d *Dispatcher) submitToUser(userID string, payload []byte) {
	select {
	case <-d.done:
		return
	default:
	}
	d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.transport.PublishToUser(ctx, userID, payload); err != nil {
			d.log.Warnf("Failed to deliver event to user %s: %v", userID, err)
		}
	})
}

// mirror forwards a committed event to NATS for downstream consumers.
func (d *Dispatcher) mirror(subject string, payload []byte) {
	if d.events == nil {
		return
	}
	d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.events.PublishRaw(ctx, subject, payload); err != nil {
			d.log.Warnf("Failed to mirror event to NATS subject %s: %v", subject, err)
		}
	})
}

func (d *Dispatcher) BroadcastBidUpdate(itemID string, currentPrice float64, bidderID string, at time.Time) {
	event := entity.BidUpdateEvent{
		Type:         entity.EventTypeBidUpdate,
		EventID:      uuid.New().String(),
		ItemID:       itemID,
		CurrentPrice: currentPrice,
		BidderID:     bidderID,
		Timestamp:    at.UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Errorf("Failed to marshal bid update for item %s: %v", itemID, err)
		return
	}
	d.enqueue(redisadapter.AuctionTopic(itemID), payload)
	d.mirror(natsadapter.SubjectBidPlaced, payload)
}

func (d *Dispatcher) BroadcastAuctionStatus(itemID string, status entity.ItemStatus, at time.Time) {
	event := entity.AuctionStatusEvent{
		Type:      entity.EventTypeAuctionStatus,
		EventID:   uuid.New().String(),
		ItemID:    itemID,
		Status:    status,
		Timestamp: at.UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Errorf("Failed to marshal status event for item %s: %v", itemID, err)
		return
	}
	d.enqueue(redisadapter.AuctionTopic(itemID), payload)
	d.mirror(natsadapter.SubjectStatusUpdated, payload)
}

func (d *Dispatcher) SendError(userID, code, message string) {
	event := entity.ErrorEvent{
		Type:      entity.EventTypeError,
		EventID:   uuid.New().String(),
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Errorf("Failed to marshal error event for user %s: %v", userID, err)
		return
	}
	d.submitToUser(userID, payload)
}

func (d *Dispatcher) SendConnectionStatus(userID, connectionID string, status entity.ConnectionStatus) {
	event := entity.ConnectionStatusEvent{
		Type:         entity.EventTypeConnectionStatus,
		EventID:      uuid.New().String(),
		Status:       string(status),
		ConnectionID: connectionID,
		Timestamp:    time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Errorf("Failed to marshal connection status for %s: %v", connectionID, err)
		return
	}
	d.submitToUser(userID, payload)
}
