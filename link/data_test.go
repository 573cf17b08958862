package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrfperiph/blestack/bytes"
)

func TestSeqNumXorGroup(t *testing.T) {
	assert.Equal(t, SeqOne, SeqZero.Add(SeqOne))
	assert.Equal(t, SeqZero, SeqOne.Add(SeqOne))
	assert.Equal(t, SeqZero, SeqZero.Add(SeqZero))
}

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader(LlidControl).WithPayloadLength(12).WithNesn(SeqOne).WithSn(SeqZero).WithMd(true)

	raw := []byte{byte(h.ToU16()), byte(h.ToU16() >> 8)}
	parsed := ParseHeader(raw)

	assert.Equal(t, LlidControl, parsed.Llid())
	assert.Equal(t, uint8(12), parsed.PayloadLength())
	assert.Equal(t, SeqOne, parsed.Nesn())
	assert.Equal(t, SeqZero, parsed.Sn())
	assert.True(t, parsed.Md())
}

func TestParsePduControl(t *testing.T) {
	ctrl := NewTerminateInd(0x13)
	var raw [20]byte
	w := bytes.NewWriter(raw[:])
	require.NoError(t, ctrl.ToBytes(w))

	header := NewHeader(LlidControl).WithPayloadLength(uint8(len(raw) - w.SpaceLeft()))
	payload := raw[:header.PayloadLength()]

	pdu, err := ParsePdu(header, payload)
	require.NoError(t, err)
	require.NotNil(t, pdu.Control)
	assert.Equal(t, OpTerminateInd, pdu.Control.Opcode)
	assert.Equal(t, uint8(0x13), pdu.Control.TerminateErrorCode)
}

func TestParseControlPduConnectionUpdateReq(t *testing.T) {
	data := ConnectionUpdateData{WinSize: 2, WinOffset: 3, Interval: 36, Latency: 0, Timeout: 200, Instant: 6}
	req := NewConnectionUpdateReq(data)

	var raw [20]byte
	w := bytes.NewWriter(raw[:])
	require.NoError(t, req.ToBytes(w))

	parsed, err := ParseControlPdu(raw[:len(raw)-w.SpaceLeft()])
	require.NoError(t, err)
	require.NotNil(t, parsed.ConnectionUpdateReq)
	assert.Equal(t, data, *parsed.ConnectionUpdateReq)
}

func TestDeviceAddressString(t *testing.T) {
	addr := NewDeviceAddress([6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}, AddressRandom)
	assert.Contains(t, addr.String(), "random")
	assert.Equal(t, "06:05:04:03:02:01 (random)", addr.String())
}
