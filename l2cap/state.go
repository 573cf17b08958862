package l2cap

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/link"
)

// L2CAPState holds the channel configuration for one connection. It has no
// ability to transmit on its own; call Tx to bind it to the connection's TX
// queue before processing or sending anything.
type L2CAPState struct {
	mapper ChannelMapper
	log    *logrus.Entry
}

// NewL2CAPState creates an L2CAPState using the given channel configuration.
func NewL2CAPState(mapper ChannelMapper) *L2CAPState {
	return &L2CAPState{mapper: mapper, log: logrus.WithField("component", "l2cap")}
}

// Tx gives this instance the ability to transmit packets over tx.
func (s *L2CAPState) Tx(tx *link.Producer) *L2CAPStateTx {
	return &L2CAPStateTx{L2CAPState: s, tx: tx}
}

// L2CAPStateTx is an L2CAPState bound to a TX queue.
type L2CAPStateTx struct {
	*L2CAPState
	tx *link.Producer
}

// ProcessStart handles the start of a new L2CAP message (or a complete,
// unfragmented one, which is the only kind currently supported). If the
// message is addressed to a bound channel, it is forwarded to that channel's
// protocol, which may enqueue a response via Sender.
func (s *L2CAPStateTx) ProcessStart(message []byte) link.Consume[struct{}] {
	r := bytes.NewReader(message)
	header, err := ParseHeader(r)
	if err != nil {
		return link.ConsumeAlways(struct{}{}, err)
	}
	payload := r.ReadRest()

	if int(header.Length) != len(payload) {
		return link.ConsumeAlways(struct{}{}, fmt.Errorf("l2cap: message spans multiple data channel PDUs (reassembly not implemented): want %d bytes, have %d", header.Length, len(payload)))
	}

	return s.dispatch(header.Channel, payload)
}

// ProcessCont handles continuation of a fragmented L2CAP message. Always
// fails: this stack only accepts single-fragment messages.
func (s *L2CAPStateTx) ProcessCont(_ []byte) link.Consume[struct{}] {
	return link.ConsumeAlways(struct{}{}, fmt.Errorf("l2cap: PDU reassembly not implemented"))
}

func (s *L2CAPStateTx) dispatch(channel Channel, payload []byte) link.Consume[struct{}] {
	chdata, ok := s.mapper.Lookup(channel)
	if !ok {
		s.log.WithField("channel", channel).Debug("dropping message sent to unconnected channel")
		return link.ConsumeAlways(struct{}{}, nil)
	}

	sender, ok := newSender(chdata, s.tx)
	if !ok {
		// No room to guarantee a response fits; leave the packet queued
		// and retry once the TX queue drains.
		return link.ConsumeNever(struct{}{}, nil)
	}

	return link.ConsumeAlways(struct{}{}, chdata.ProtocolObj.ProcessMessage(payload, sender))
}

// Att prepares a Sender addressed at the fixed ATT channel, for use by
// device-initiated ATT traffic (GATT notifications and indications) rather
// than as a response to an incoming request.
func (s *L2CAPStateTx) Att() (*Sender, bool) {
	chdata, ok := s.mapper.Lookup(ChannelATT)
	if !ok {
		return nil, false
	}
	return newSender(chdata, s.tx)
}
