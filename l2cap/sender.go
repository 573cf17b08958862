package l2cap

import (
	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/link"
)

// Sender lets a ProtocolObj enqueue a response with preallocated TX space,
// either while handling an incoming message or on its own initiative (e.g. a
// GATT notification). The L2CAP header is added automatically; the protocol
// only ever writes its own payload.
type Sender struct {
	pdu     uint8
	tx      *link.Producer
	channel Channel
}

// newSender prepares a Sender for chdata if the TX queue currently has
// enough free space to guarantee the protocol's largest PDU fits; returns
// false otherwise, in which case the caller must not forward the message (it
// will be retried once the queue drains).
func newSender(chdata ChannelData, tx *link.Producer) (*Sender, bool) {
	free := tx.FreeSpace()
	needed := chdata.PduSize + HeaderSize
	if free < needed {
		return nil, false
	}
	return &Sender{pdu: chdata.PduSize, tx: tx, channel: chdata.ResponseChannel}, true
}

// Send enqueues payload, encoded via its ToBytes method, as an L2CAP message
// addressed to the channel this Sender responds on.
func (s *Sender) Send(payload bytes.ToBytes) error {
	return s.SendWith(payload.ToBytes)
}

// SendWith enqueues an L2CAP message built by f, which is given a Writer
// bounded to exactly the protocol's declared PDU size. The L2CAP header
// (with the correct length, computed from how much of that space f actually
// used) is written automatically once f returns.
func (s *Sender) SendWith(f func(w *bytes.Writer) error) error {
	channel := s.channel
	pdu := s.pdu

	return s.tx.ProduceWith(func(w *bytes.Writer) (link.Llid, error) {
		headerWriter, err := w.SplitOff(HeaderSize)
		if err != nil {
			return 0, err
		}
		if w.SpaceLeft() < int(pdu) {
			return 0, bytes.ErrEof
		}

		payloadWriter := bytes.NewWriter(w.Rest()[:pdu])
		left := payloadWriter.SpaceLeft()
		if err := f(payloadWriter); err != nil {
			return 0, err
		}
		used := left - payloadWriter.SpaceLeft()

		if err := w.Skip(used); err != nil {
			return 0, err
		}
		if err := (Header{Length: uint16(used), Channel: channel}).ToBytes(headerWriter); err != nil {
			return 0, err
		}
		return link.LlidDataStart, nil
	})
}
