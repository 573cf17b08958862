package l2cap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/link"
)

type echoProtocol struct {
	pduSize   uint8
	lastMsg   []byte
	callCount int
}

func (e *echoProtocol) RspPduSize() uint8 { return e.pduSize }

func (e *echoProtocol) ProcessMessage(message []byte, sender *Sender) error {
	e.callCount++
	e.lastMsg = append([]byte(nil), message...)
	return sender.SendWith(func(w *bytes.Writer) error {
		return w.WriteSlice(message)
	})
}

func buildMessage(channel Channel, payload []byte) []byte {
	var raw [64]byte
	w := bytes.NewWriter(raw[:])
	header := Header{Length: uint16(len(payload)), Channel: channel}
	if err := header.ToBytes(w); err != nil {
		panic(err)
	}
	if err := w.WriteSlice(payload); err != nil {
		panic(err)
	}
	return raw[:len(raw)-w.SpaceLeft()]
}

func TestDispatchForwardsToBoundProtocol(t *testing.T) {
	proto := &echoProtocol{pduSize: 20}
	m, err := NewBleChannelMap(proto, &echoProtocol{pduSize: 20})
	require.NoError(t, err)

	q := link.NewPacketQueue()
	tx := q.Producer()

	state := NewL2CAPState(m).Tx(tx)
	res := state.ProcessStart(buildMessage(ChannelATT, []byte{0x01, 0x02, 0x03}))

	require.NoError(t, res.Err)
	assert.True(t, res.DoConsume)
	assert.Equal(t, 1, proto.callCount)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, proto.lastMsg)
	assert.Equal(t, uint8(0), tx.FreeSpace(), "response should have been enqueued")
}

func TestDispatchUnconnectedChannelIsIgnored(t *testing.T) {
	m := NewStaticChannelMap()
	q := link.NewPacketQueue()
	state := NewL2CAPState(m).Tx(q.Producer())

	res := state.ProcessStart(buildMessage(Channel(0x0099), []byte{0xAA}))
	assert.NoError(t, res.Err)
	assert.True(t, res.DoConsume)
}

func TestDispatchBackpressureWhenQueueFull(t *testing.T) {
	proto := &echoProtocol{pduSize: 20}
	m, err := NewBleChannelMap(proto, &echoProtocol{pduSize: 20})
	require.NoError(t, err)

	q := link.NewPacketQueue()
	tx := q.Producer()
	// Fill the queue so there is no room to guarantee the protocol's
	// response will fit.
	require.NoError(t, tx.ProduceWith(func(w *bytes.Writer) (link.Llid, error) {
		return link.LlidDataCont, w.WriteSlice([]byte{0x00})
	}))

	state := NewL2CAPState(m).Tx(tx)
	res := state.ProcessStart(buildMessage(ChannelATT, []byte{0x01}))

	assert.NoError(t, res.Err)
	assert.False(t, res.DoConsume, "message must stay queued until TX drains")
	assert.Equal(t, 0, proto.callCount)
}

func TestBindRejectsOversizedProtocol(t *testing.T) {
	m := NewStaticChannelMap()
	err := m.Bind(ChannelATT, &echoProtocol{pduSize: 250}, 250)
	assert.Error(t, err)
}
