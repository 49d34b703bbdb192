package mqtt

// pendingMsg is a serialized message held for replay after reconnection.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a fixed-capacity FIFO of messages published while the broker
// was unreachable. When full, the oldest message is overwritten.
// Not safe for concurrent use; the caller synchronizes.
type backlog struct {
	slots   []pendingMsg
	next    int // slot the next push writes to
	size    int
	dropped int // messages overwritten since the last drain
}

func newBacklog(capacity int) *backlog {
	if capacity < 1 {
		capacity = 1
	}
	return &backlog{slots: make([]pendingMsg, capacity)}
}

// push stores msg and reports whether an older message was dropped to make room.
func (b *backlog) push(msg pendingMsg) bool {
	overwrote := b.size == len(b.slots)
	b.slots[b.next] = msg
	b.next = (b.next + 1) % len(b.slots)
	if overwrote {
		b.dropped++
	} else {
		b.size++
	}
	return overwrote
}

// drain returns all held messages oldest-first and empties the backlog,
// along with how many were dropped while it was full.
func (b *backlog) drain() ([]pendingMsg, int) {
	if b.size == 0 {
		return nil, 0
	}

	capacity := len(b.slots)
	first := (b.next - b.size + capacity) % capacity
	out := make([]pendingMsg, b.size)
	for i := range out {
		out[i] = b.slots[(first+i)%capacity]
		b.slots[(first+i)%capacity] = pendingMsg{}
	}
	dropped := b.dropped

	b.next = 0
	b.size = 0
	b.dropped = 0
	return out, dropped
}

func (b *backlog) len() int {
	return b.size
}
