package mqtt

import "log"

// outboxMsg is a serialized MQTT message held for replay after reconnection.
type outboxMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO that keeps the newest messages while the
// broker is unreachable. Not safe for concurrent use; the caller must
// synchronize.
type outbox struct {
	msgs    []outboxMsg
	next    int // next write position
	count   int
	dropped int // messages overwritten since the last drain
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{msgs: make([]outboxMsg, capacity)}
}

// push appends msg, overwriting the oldest message when full.
func (o *outbox) push(msg outboxMsg) {
	size := len(o.msgs)
	if o.count == size {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", size)
		}
		o.dropped++
	} else {
		o.count++
	}
	o.msgs[o.next] = msg
	o.next = (o.next + 1) % size
}

// drain returns the held messages oldest first and empties the outbox,
// along with how many were lost to overflow.
func (o *outbox) drain() ([]outboxMsg, int) {
	if o.count == 0 {
		return nil, 0
	}
	size := len(o.msgs)
	out := make([]outboxMsg, o.count)
	first := (o.next - o.count + size) % size
	for i := range out {
		out[i] = o.msgs[(first+i)%size]
	}
	dropped := o.dropped
	o.count, o.next, o.dropped = 0, 0, 0
	return out, dropped
}

func (o *outbox) len() int {
	return o.count
}
