package l2cap

import (
	"fmt"

	"github.com/nrfperiph/blestack/link"
)

// ChannelData is the information a ChannelMapper returns about a connected
// channel: who to address responses to, which protocol handles incoming
// messages, and how much TX space that protocol needs.
type ChannelData struct {
	ResponseChannel Channel
	ProtocolObj     ProtocolObj
	PduSize         uint8
}

// ChannelMapper looks up what is listening on an L2CAP channel.
type ChannelMapper interface {
	Lookup(channel Channel) (ChannelData, bool)
}

// StaticChannelMap is a ChannelMapper over a fixed set of channel bindings
// established at construction time; it does not support the dynamic channel
// allocation used by connection-oriented L2CAP modes, which this stack does
// not implement.
type StaticChannelMap struct {
	channels map[Channel]ChannelData
}

// NewStaticChannelMap creates a channel map with no bindings.
func NewStaticChannelMap() *StaticChannelMap {
	return &StaticChannelMap{channels: make(map[Channel]ChannelData)}
}

// Bind connects protocol to channel, responding on the same channel it was
// addressed on. It fails if the protocol's PDU size would not fit any data
// channel PDU this stack can produce (see link.MinPayloadBuf); L2CAP
// fragmentation of outgoing PDUs is not implemented.
func (m *StaticChannelMap) Bind(channel Channel, protocol ProtocolObj, pduSize uint8) error {
	if int(pduSize)+HeaderSize > link.MinPayloadBuf {
		return fmt.Errorf("l2cap: protocol PDU size %d on channel %s exceeds data channel capacity (reassembly not implemented)", pduSize, channel)
	}
	m.channels[channel] = ChannelData{ResponseChannel: channel, ProtocolObj: protocol, PduSize: pduSize}
	return nil
}

// Lookup implements ChannelMapper.
func (m *StaticChannelMap) Lookup(channel Channel) (ChannelData, bool) {
	cd, ok := m.channels[channel]
	return cd, ok
}

// NewBleChannelMap builds the fixed BLE channel map this stack supports: ATT
// on 0x0004 and the Security Manager on 0x0006. The LE signaling channel
// (0x0005) is intentionally left unbound — this stack never initiates or
// accepts dynamic channel or connection parameter signaling procedures.
func NewBleChannelMap(att Protocol, sm Protocol) (*StaticChannelMap, error) {
	m := NewStaticChannelMap()
	if err := m.Bind(ChannelATT, att, att.RspPduSize()); err != nil {
		return nil, err
	}
	if err := m.Bind(ChannelLESecurityManager, sm, sm.RspPduSize()); err != nil {
		return nil, err
	}
	return m, nil
}
