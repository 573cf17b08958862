package link

import (
	"sync/atomic"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/internal/metrics"
)

// MinPduBuf is the smallest buffer size that can hold any data channel PDU
// this stack produces: a 2-byte header plus MinPayloadBuf bytes of payload.
const MinPduBuf = 2 + MinPayloadBuf

// MinPayloadBuf is the largest payload this queue implementation accepts.
// Bluetooth 4.2's maximum data channel PDU payload is 251 bytes; this stack
// only needs to carry small LLCP and ATT PDUs through the queue, so a much
// smaller conservative bound is used.
const MinPayloadBuf = 64

// Consume bundles a result together with whether the queue slot that
// produced it should be freed. Returning false lets the same packet be
// consumed again later — the backpressure mechanism used when a
// downstream queue has no room to forward the packet.
type Consume[T any] struct {
	DoConsume bool
	Result    T
	Err       error
}

// ConsumeAlways always frees the slot.
func ConsumeAlways[T any](result T, err error) Consume[T] {
	return Consume[T]{DoConsume: true, Result: result, Err: err}
}

// ConsumeNever never frees the slot; the next consume call sees the same
// packet again.
func ConsumeNever[T any](result T, err error) Consume[T] {
	return Consume[T]{DoConsume: false, Result: result, Err: err}
}

// ConsumeOnSuccess frees the slot only if err is nil.
func ConsumeOnSuccess[T any](result T, err error) Consume[T] {
	return Consume[T]{DoConsume: err == nil, Result: result, Err: err}
}

// PacketQueue is a capacity-1 single-producer/single-consumer queue for
// data channel PDUs. It is accessed from exactly two call sites — a
// real-time producer/consumer and a non-real-time consumer/producer on the
// other side — with no locking beyond a single atomic flag, so it never
// blocks or suspends either side.
type PacketQueue struct {
	full atomic.Bool
	buf  [MinPduBuf]byte
}

// NewPacketQueue creates an empty queue.
func NewPacketQueue() *PacketQueue {
	return &PacketQueue{}
}

// Producer returns the producing half of the queue.
func (q *PacketQueue) Producer() *Producer {
	return &Producer{q: q}
}

// Consumer returns the consuming half of the queue.
func (q *PacketQueue) Consumer() *Consumer {
	return &Consumer{q: q}
}

// Producer is the writing half of a PacketQueue.
type Producer struct {
	q *PacketQueue
}

// FreeSpace returns the largest payload size that can currently be
// enqueued. This is a conservative snapshot: the consumer might free the
// slot immediately after this call returns.
func (p *Producer) FreeSpace() uint8 {
	if p.q.full.Load() {
		return 0
	}
	return MinPayloadBuf
}

// ProduceWith enqueues a PDU built by f, which is given a Writer over the
// payload region and must return the LLID to store in the header. If the
// queue is full, f is not called and ErrEof is returned. If f fails, the
// queue is left unchanged.
func (p *Producer) ProduceWith(f func(w *bytes.Writer) (Llid, error)) error {
	if p.q.full.Load() {
		metrics.QueueDropsTotal.Inc()
		return bytes.ErrEof
	}

	w := bytes.NewWriter(p.q.buf[2:])
	free := w.SpaceLeft()
	llid, err := f(w)
	if err != nil {
		return err
	}
	used := free - w.SpaceLeft()

	header := NewHeader(llid).WithPayloadLength(uint8(used))
	p.q.buf[0] = byte(header.ToU16())
	p.q.buf[1] = byte(header.ToU16() >> 8)

	p.q.full.Store(true)
	metrics.QueueCommitsTotal.Inc()
	return nil
}

// Consumer is the reading half of a PacketQueue.
type Consumer struct {
	q *PacketQueue
}

// HasData reports whether a packet is waiting to be consumed.
func (c *Consumer) HasData() bool {
	return c.q.full.Load()
}

// ConsumeRawWith passes the next queued packet's header and raw payload to
// f, which decides via the returned Consume whether to free the slot.
func ConsumeRawWith[R any](c *Consumer, f func(header Header, payload []byte) Consume[R]) (R, error) {
	var zero R
	if !c.q.full.Load() {
		return zero, bytes.ErrEof
	}

	r := bytes.NewReader(c.q.buf[:])
	rawHeader, err := r.ReadSlice(2)
	if err != nil {
		return zero, err
	}
	header := ParseHeader(rawHeader)
	payload, err := r.ReadSlice(int(header.PayloadLength()))
	if err != nil {
		return zero, err
	}

	res := f(header, payload)
	if res.DoConsume {
		c.q.full.Store(false)
	}
	return res.Result, res.Err
}

// ConsumePDUWith parses the next queued packet into a Pdu before handing it
// to f.
func ConsumePDUWith[R any](c *Consumer, f func(header Header, pdu Pdu) Consume[R]) (R, error) {
	return ConsumeRawWith(c, func(header Header, raw []byte) Consume[R] {
		pdu, err := ParsePdu(header, raw)
		if err != nil {
			var zero R
			return ConsumeAlways(zero, err)
		}
		return f(header, pdu)
	})
}
