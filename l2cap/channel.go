// Package l2cap implements the Logical Link Control and Adaptation Protocol
// channel demultiplexer sitting on top of the Link-Layer's data channel PDU
// queues. Only the LE bits of L2CAP are implemented: fixed channels for ATT,
// the LE Security Manager, and the (currently unhandled) LE signaling
// channel. Connection-oriented dynamic channels and Basic Mode fragmentation
// beyond a single PDU are not implemented.
package l2cap

import (
	"fmt"

	"github.com/nrfperiph/blestack/bytes"
)

// Channel is an L2CAP channel identifier (CID). Channels are addressed like
// TCP ports: a Protocol listens on one and is connected to a CID on the peer
// to which responses are addressed.
type Channel uint16

// Reserved and fixed channel identifiers relevant to BLE.
const (
	// ChannelNull must never be used as a destination endpoint.
	ChannelNull Channel = 0x0000
	// ChannelATT carries the Attribute Protocol.
	ChannelATT Channel = 0x0004
	// ChannelLESignaling is the LE L2CAP signaling channel.
	ChannelLESignaling Channel = 0x0005
	// ChannelLESecurityManager carries the LE Security Manager protocol.
	ChannelLESecurityManager Channel = 0x0006
)

// IsConnectionOriented reports whether PDUs on this channel are B/S/I-frames
// (the opposite of IsConnectionless).
func (c Channel) IsConnectionOriented() bool {
	return !c.IsConnectionless()
}

// IsConnectionless reports whether PDUs on this channel are G-frames.
func (c Channel) IsConnectionless() bool {
	switch c {
	case 0x0001, 0x0002, ChannelLESignaling:
		return true
	default:
		return false
	}
}

func (c Channel) String() string {
	return fmt.Sprintf("%#04x", uint16(c))
}

// ToBytes encodes the channel as a little-endian uint16.
func (c Channel) ToBytes(w *bytes.Writer) error {
	return w.WriteU16LE(uint16(c))
}

// ParseChannel decodes a channel from its little-endian wire form.
func ParseChannel(r *bytes.Reader) (Channel, error) {
	v, err := r.ReadU16LE()
	if err != nil {
		return 0, err
	}
	return Channel(v), nil
}
