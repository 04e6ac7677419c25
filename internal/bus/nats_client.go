package bus

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
)

// NatsClient is the production Client, backed by a single shared NATS
// connection. Reconnection is handled by nats.go's own capped-attempt
// reconnect logic (spec.md §4.2 "auto-reconnect with capped attempts");
// this wrapper only exposes IsConnected and routes subscriptions into Go
// channels so the rest of the fabric never touches *nats.Conn directly.
type NatsClient struct {
	conn *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Dial connects to url with a bounded reconnect budget. On failure it
// returns a BusUnavailable error; callers (public/fabric) use that to flip
// useOffChainMessaging to false for the process lifetime, per spec.md §4.2.
func Dial(url string, debug bool) (*NatsClient, error) {
	opts := []nats.Option{
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if debug && err != nil {
				log.Printf("bus: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if debug {
				log.Printf("bus: reconnected")
			}
		}),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindBusUnavailable, "connect to bus", err)
	}
	return &NatsClient{conn: conn}, nil
}

func (c *NatsClient) Publish(subject string, payload []byte) error {
	if !c.IsConnected() {
		return ErrBusUnavailable()
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		return envelope.Wrap(envelope.KindBusUnavailable, "publish", err)
	}
	return nil
}

func (c *NatsClient) Subscribe(ctx context.Context, subject string) (<-chan []byte, error) {
	out := make(chan []byte, 64)
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		select {
		case out <- msg.Data:
		default:
			// Slow consumer: drop rather than block the NATS dispatch
			// goroutine, matching the bus's fire-and-forget delivery
			// contract (spec.md §4.2).
		}
	})
	if err != nil {
		close(out)
		return nil, envelope.Wrap(envelope.KindBusUnavailable, "subscribe", err)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
		close(out)
	}()

	return out, nil
}

func (c *NatsClient) IsConnected() bool {
	return c.conn != nil && c.conn.Status() == nats.CONNECTED
}

func (c *NatsClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
