package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrfperiph/blestack/phy"
)

func TestAllowAllMatchesEverything(t *testing.T) {
	addr := NewDeviceAddress([6]byte{1, 2, 3, 4, 5, 6}, AddressPublic)
	assert.True(t, AllowAll{}.Matches(addr))
}

func TestWhitelistFilterMatchesOnlyListedAddresses(t *testing.T) {
	allowed := NewDeviceAddress([6]byte{1, 1, 1, 1, 1, 1}, AddressPublic)
	other := NewDeviceAddress([6]byte{2, 2, 2, 2, 2, 2}, AddressPublic)
	f := NewWhitelistFilter([]DeviceAddress{allowed})

	assert.True(t, f.Matches(allowed))
	assert.False(t, f.Matches(other))
}

func TestAdvFilterAppliesScanAndConnectIndependently(t *testing.T) {
	scanner := NewDeviceAddress([6]byte{1, 1, 1, 1, 1, 1}, AddressPublic)
	initiator := NewDeviceAddress([6]byte{2, 2, 2, 2, 2, 2}, AddressPublic)

	f := NewAdvFilter(NewSingleAddressFilter(scanner), NewSingleAddressFilter(initiator))

	assert.True(t, f.MayScan(scanner))
	assert.False(t, f.MayScan(initiator))
	assert.True(t, f.MayConnect(initiator))
	assert.False(t, f.MayConnect(scanner))
}

// connectReqPayload builds a raw CONNECT_REQ payload: InitA, AdvA, then a
// fixed LLData block, matching the byte layout ParseAdvPdu decodes.
func connectReqPayload(initiator, advertiser DeviceAddress) []byte {
	buf := make([]byte, 34)
	initBytes := initiator.Bytes()
	advBytes := advertiser.Bytes()
	copy(buf[0:6], initBytes[:])
	copy(buf[6:12], advBytes[:])
	// AA
	buf[12], buf[13], buf[14], buf[15] = 0x78, 0x56, 0x34, 0x12
	// CRCInit
	buf[16], buf[17], buf[18] = 0x55, 0x55, 0x55
	// WinSize
	buf[19] = 2
	// WinOffset
	buf[20], buf[21] = 3, 0
	// Interval
	buf[22], buf[23] = 36, 0
	// Latency
	buf[24], buf[25] = 0, 0
	// Timeout
	buf[26], buf[27] = 200, 0
	// ChannelMap: all 37 data channels used.
	chMap := phy.AllChannelsUsed().Raw()
	copy(buf[28:33], chMap[:])
	// Hop (bits 0-4) | SCA (bits 5-7)
	buf[33] = 7
	return buf
}

func TestLinkLayerAcceptsConnectReqFromAllowedInitiator(t *testing.T) {
	devAddr := NewDeviceAddress([6]byte{9, 9, 9, 9, 9, 9}, AddressPublic)
	initiator := NewDeviceAddress([6]byte{2, 2, 2, 2, 2, 2}, AddressPublic)
	timer := &fakeTimer{now: Instant(0)}
	ll := NewLinkLayer(devAddr, timer)

	q1, q2 := NewPacketQueue(), NewPacketQueue()
	xmit := &fakeTransmitter{}
	_, err := ll.StartAdvertise(DurationFromMicros(20000), []AdStructure{NewFlagsAd(DiscoverableFlags())}, xmit, q1.Consumer(), q2.Producer())
	require.NoError(t, err)

	header := NewAdvHeader(ConnectReqType).WithTxAdd(false).WithRxAdd(false)
	payload := connectReqPayload(initiator, devAddr)
	header = header.WithPayloadLength(uint8(len(payload)))

	ll.ProcessAdvPacket(Instant(1000), xmit, header, payload, true)
	assert.False(t, ll.IsAdvertising())
	assert.True(t, ll.IsConnected())
}

func TestLinkLayerRejectsConnectReqFromDisallowedInitiator(t *testing.T) {
	devAddr := NewDeviceAddress([6]byte{9, 9, 9, 9, 9, 9}, AddressPublic)
	initiator := NewDeviceAddress([6]byte{2, 2, 2, 2, 2, 2}, AddressPublic)
	otherAllowed := NewDeviceAddress([6]byte{3, 3, 3, 3, 3, 3}, AddressPublic)
	timer := &fakeTimer{now: Instant(0)}
	ll := NewLinkLayer(devAddr, timer)
	ll.SetFilter(NewAdvFilter(AllowAll{}, NewSingleAddressFilter(otherAllowed)))

	q1, q2 := NewPacketQueue(), NewPacketQueue()
	xmit := &fakeTransmitter{}
	_, err := ll.StartAdvertise(DurationFromMicros(20000), []AdStructure{NewFlagsAd(DiscoverableFlags())}, xmit, q1.Consumer(), q2.Producer())
	require.NoError(t, err)

	header := NewAdvHeader(ConnectReqType).WithTxAdd(false).WithRxAdd(false)
	payload := connectReqPayload(initiator, devAddr)
	header = header.WithPayloadLength(uint8(len(payload)))

	ll.ProcessAdvPacket(Instant(1000), xmit, header, payload, true)
	assert.True(t, ll.IsAdvertising())
	assert.False(t, ll.IsConnected())
}
