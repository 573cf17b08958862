package l2cap

// ProtocolObj is implemented by a protocol that sits on top of L2CAP and is
// bound to a channel via a ChannelMapper (the Attribute Protocol server and
// the Security Manager both implement it).
//
// ProcessMessage should only return an error for an unrecoverable parsing
// failure that cannot be reported back to the peer using the protocol
// itself; everything else should be handled by sending an error response
// through sender.
type ProtocolObj interface {
	ProcessMessage(message []byte, sender *Sender) error
}

// Protocol extends ProtocolObj with the information L2CAP needs to reserve
// outgoing buffer space before a message is ever dispatched to it.
type Protocol interface {
	ProtocolObj

	// RspPduSize is the minimum number of bytes that must be free in the
	// TX buffer for this protocol's responses to be guaranteed to fit.
	// Incoming messages are only forwarded once this much space is free.
	RspPduSize() uint8
}
