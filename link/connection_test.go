package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/phy"
)

type fakeTransmitter struct {
	buf       [MinPayloadBuf]byte
	lastKind  string
	lastHdr   Header
	lastAdvHdr AdvHeader
	channel   phy.DataChannel
}

func (f *fakeTransmitter) TxPayloadBuf() []byte { return f.buf[:] }

func (f *fakeTransmitter) TransmitAdvertising(header AdvHeader, channel phy.AdvertisingChannel) {
	f.lastKind = "adv"
	f.lastAdvHdr = header
}

func (f *fakeTransmitter) TransmitData(accessAddress, crcInit uint32, header Header, channel phy.DataChannel) {
	f.lastKind = "data"
	f.lastHdr = header
	f.channel = channel
}

type fakeTimer struct {
	now Instant
}

func (f *fakeTimer) Now() Instant                            { return f.now }
func (f *fakeTimer) ConfigureInterrupt(upd NextUpdate)        {}
func (f *fakeTimer) IsInterruptPending() bool                 { return false }
func (f *fakeTimer) ClearInterrupt()                          {}

func freshLLData() LLData {
	return LLData{
		AccessAddress: 0x12345678,
		CRCInit:       0x555555,
		WinSize:       2,
		WinOffset:     3,
		Interval:      36, // 45ms
		Latency:       0,
		Timeout:       200,
		ChannelMap:    phy.AllChannelsUsed(),
		Hop:           7,
	}
}

func TestCreateConnectionInitialHop(t *testing.T) {
	q := NewPacketQueue()
	tx, rx := q.Consumer(), q.Producer()

	conn, cmd := CreateConnection(freshLLData(), Instant(1000), tx, rx)
	require.NotNil(t, conn)
	assert.Equal(t, RadioListenData, cmd.Radio.Kind)
	assert.Equal(t, uint32(0x12345678), cmd.Radio.AccessAddress)
	// Hop 7 from channel 0 with every channel used lands on channel 7.
	assert.Equal(t, uint8(7), cmd.Radio.DataChannel.Index())
}

func TestProcessDataPacketAckAndEmptyResponse(t *testing.T) {
	q := NewPacketQueue()
	tx, rx := q.Consumer(), q.Producer()
	conn, _ := CreateConnection(freshLLData(), Instant(0), tx, rx)

	xmit := &fakeTransmitter{}
	timer := &fakeTimer{now: Instant(1000)}

	// Peer's first packet: empty DataCont, NESN=1 (acking our implicit first
	// send), SN=0 (new).
	header := NewHeader(LlidDataCont).WithNesn(SeqOne).WithSn(SeqZero)
	cmd, err := conn.ProcessDataPacket(Instant(1000), xmit, timer, header, nil, true)
	require.NoError(t, err)

	assert.Equal(t, "data", xmit.lastKind)
	assert.Equal(t, SeqOne, conn.nextExpectedSeqNum)
	assert.Equal(t, SeqOne, conn.transmitSeqNum)
	assert.Equal(t, RadioListenData, cmd.Radio.Kind)
}

func TestProcessDataPacketRetransmitsOnNoAck(t *testing.T) {
	q := NewPacketQueue()
	tx, rx := q.Consumer(), q.Producer()
	conn, _ := CreateConnection(freshLLData(), Instant(0), tx, rx)

	xmit := &fakeTransmitter{}
	timer := &fakeTimer{now: Instant(1000)}

	// First packet establishes receivedPacket=true.
	header := NewHeader(LlidDataCont).WithNesn(SeqOne).WithSn(SeqZero)
	_, err := conn.ProcessDataPacket(Instant(1000), xmit, timer, header, nil, true)
	require.NoError(t, err)

	savedHeader := conn.lastHeader

	// Second packet: NESN does not advance past our current transmitSeqNum,
	// so our previous transmission was not acknowledged and must be resent.
	header2 := NewHeader(LlidDataCont).WithNesn(SeqOne).WithSn(SeqOne)
	_, err = conn.ProcessDataPacket(Instant(2000), xmit, timer, header2, nil, true)
	require.NoError(t, err)

	assert.Equal(t, savedHeader.Llid(), xmit.lastHdr.Llid())
	assert.Equal(t, savedHeader.Sn(), xmit.lastHdr.Sn())
}

func TestProcessDataPacketTerminateIndEndsConnection(t *testing.T) {
	q := NewPacketQueue()
	tx, rx := q.Consumer(), q.Producer()
	conn, _ := CreateConnection(freshLLData(), Instant(0), tx, rx)

	xmit := &fakeTransmitter{}
	timer := &fakeTimer{now: Instant(1000)}

	// First packet acks our implicit send so the connection can respond.
	header := NewHeader(LlidDataCont).WithNesn(SeqOne).WithSn(SeqZero)
	_, err := conn.ProcessDataPacket(Instant(1000), xmit, timer, header, nil, true)
	require.NoError(t, err)

	term := NewTerminateInd(0x13)
	var raw [8]byte
	w := bytes.NewWriter(raw[:])
	require.NoError(t, term.ToBytes(w))
	payload := raw[:len(raw)-w.SpaceLeft()]

	ctrlHeader := NewHeader(LlidControl).WithPayloadLength(uint8(len(payload))).WithNesn(SeqZero).WithSn(SeqOne)
	_, err = conn.ProcessDataPacket(Instant(2000), xmit, timer, ctrlHeader, payload, true)
	assert.Error(t, err)
}

func TestTimerUpdateNoPacketEverReceivedDropsConnection(t *testing.T) {
	q := NewPacketQueue()
	tx, rx := q.Consumer(), q.Producer()
	conn, _ := CreateConnection(freshLLData(), Instant(0), tx, rx)

	timer := &fakeTimer{now: Instant(50000)}
	_, err := conn.TimerUpdate(timer)
	assert.Error(t, err)
}

func TestLinkLayerStartAdvertise(t *testing.T) {
	addr := NewDeviceAddress([6]byte{1, 2, 3, 4, 5, 6}, AddressPublic)
	timer := &fakeTimer{now: Instant(0)}
	ll := NewLinkLayer(addr, timer)

	q1, q2 := NewPacketQueue(), NewPacketQueue()
	txConsumer, rxProducer := q1.Consumer(), q2.Producer()

	xmit := &fakeTransmitter{}
	_, err := ll.StartAdvertise(DurationFromMicros(20000), []AdStructure{NewFlagsAd(DiscoverableFlags())}, xmit, txConsumer, rxProducer)
	require.NoError(t, err)
	assert.True(t, ll.IsAdvertising())
	assert.Equal(t, "adv", xmit.lastKind)
}
