package bus

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/nats-io/nats.go"
)

// Connect opens a NATS connection tuned the way every process in this
// service uses it: patient reconnects, small keepalive traffic, and
// logging on state changes. name shows up in server monitoring and in
// log lines, so give each process a distinct one.
func Connect(uri, authToken, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(uri,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.PingInterval(60*5*time.Second),
		nats.MaxPingsOutstanding(5),
		nats.ReconnectBufSize(5*1024*1024),
		nats.SetCustomDialer(&net.Dialer{
			KeepAlive: -1,
		}),
		nats.Token(authToken),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ErrorHandler(func(_ *nats.Conn,
			sub *nats.Subscription, err error) {
			var subject string
			if sub != nil {
				subject = sub.Subject
			}
			log.Printf("%v NATS client error, sub: %v, err: %s\n", name, subject, err)
		}),
		nats.CustomReconnectDelay(func(attempts int) time.Duration {
			log.Printf("%v NATS client reconnect attempt #%v\n", name, attempts)
			return time.Millisecond * 250
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println(name, "NATS client: reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Println(name, "NATS client: closed")
		}),
	)
	return nc, err
}

// PublishJSON publishes v to subject as JSON.
func PublishJSON(nc *nats.Conn, subject string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("Error encoding %v payload: %w", subject, err)
	}
	return nc.Publish(subject, b)
}

// RequestJSON sends req to subject as JSON and decodes the reply into
// resp. resp may be nil when the reply body does not matter.
func RequestJSON(nc *nats.Conn, subject string, req, resp interface{}, timeout time.Duration) error {
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("Error encoding %v request: %w", subject, err)
	}
	msg, err := nc.Request(subject, b, timeout)
	if err != nil {
		return fmt.Errorf("Error in request to %v: %w", subject, err)
	}
	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(msg.Data, resp); err != nil {
		return fmt.Errorf("Error decoding %v reply: %w", subject, err)
	}
	return nil
}

// RespondJSON answers a request message with v as JSON.
func RespondJSON(msg *nats.Msg, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("Error encoding %v reply: %w", msg.Subject, err)
	}
	return msg.Respond(b)
}

// LastToken returns the last dot-separated token of a subject, used to
// recover the platform or ID a wildcard subscription matched.
func LastToken(subject string) string {
	for i := len(subject) - 1; i >= 0; i-- {
		if subject[i] == '.' {
			return subject[i+1:]
		}
	}
	return subject
}
