package att

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/l2cap"
	"github.com/nrfperiph/blestack/link"
)

func TestHandleRangeCheckRejectsInverted(t *testing.T) {
	_, err := RawHandleRange{Start: 0x0010, End: 0x0001}.Check()
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidHandle, err.Code)
}

func TestHandleRangeCheckRejectsNullStart(t *testing.T) {
	_, err := RawHandleRange{Start: HandleNull, End: 0x0001}.Check()
	require.Error(t, err)
}

func TestHandleRangeCheckAccepts(t *testing.T) {
	r, err := RawHandleRange{Start: 0x0001, End: 0x0010}.Check()
	require.Nil(t, err)
	assert.True(t, r.Contains(0x0001))
	assert.True(t, r.Contains(0x0010))
	assert.False(t, r.Contains(0x0011))
}

func TestUUID16EqualsExpandedUUID128(t *testing.T) {
	short := UUID16(0x1801)
	long := UUID128(uuid.MustParse("00001801-0000-1000-8000-00805F9B34FB"))
	assert.True(t, short.Equal(long))
	assert.True(t, long.Equal(short))
}

func TestUUID16NotEqualDifferentValue(t *testing.T) {
	assert.False(t, UUID16(0x1801).Equal(UUID16(0x1802)))
}

func TestParseAttMsgReadByTypeReqRoundTrip(t *testing.T) {
	msg := AttMsg{
		Opcode:        OpcodeReadByTypeReq,
		HandleRange:   RawHandleRange{Start: 0x0001, End: 0xFFFF},
		AttributeType: UUID16(0x2803),
	}
	var buf [32]byte
	w := bytes.NewWriter(buf[:])
	require.NoError(t, msg.ToBytes(w))
	encoded := buf[:len(buf)-w.SpaceLeft()]

	r := bytes.NewReader(encoded)
	opByte, err := r.ReadU8()
	require.NoError(t, err)
	parsed, err := ParseAttMsg(Opcode(opByte), r)
	require.NoError(t, err)
	assert.Equal(t, msg.HandleRange, parsed.HandleRange)
	assert.True(t, msg.AttributeType.Equal(parsed.AttributeType))
}

func TestOpcodeBitFlags(t *testing.T) {
	assert.True(t, OpcodeWriteCommand.IsCommand())
	assert.False(t, OpcodeWriteReq.IsCommand())
	assert.True(t, OpcodeSignedWriteCommand.IsAuthenticated())
	assert.False(t, OpcodeWriteCommand.IsAuthenticated())
}

// fakeProvider hosts a tiny one-service attribute table for server tests:
// a primary service declaration (grouping attribute), one characteristic
// declaration, and that characteristic's value.
type fakeProvider struct {
	attrs []Attribute
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{attrs: []Attribute{
		{Type: UUID16(0x2800), Handle: 0x0001, Value: []byte{0x0F, 0x18}},
		{Type: UUID16(0x2803), Handle: 0x0002, Value: []byte{0x02, 0x03, 0x00, 0x2A, 0x00}},
		{Type: UUID16(0x2A00), Handle: 0x0003, Value: []byte("device")},
	}}
}

func (p *fakeProvider) ForAttrsInRange(r HandleRange, f func(Attribute) error) error {
	for _, a := range p.attrs {
		if r.Contains(a.Handle) {
			if err := f(a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *fakeProvider) IsGroupingAttr(u UUID) bool {
	return u.Equal(UUID16(0x2800))
}

func (p *fakeProvider) GroupEnd(handle Handle) (Attribute, bool) {
	if handle != 0x0001 {
		return Attribute{}, false
	}
	return p.attrs[len(p.attrs)-1], true
}

// noopProtocol fills the Security Manager channel slot in tests that only
// exercise ATT.
type noopProtocol struct{}

func (noopProtocol) RspPduSize() uint8                          { return 23 }
func (noopProtocol) ProcessMessage([]byte, *l2cap.Sender) error { return nil }

func newHarness(t *testing.T, attrs AttributeProvider) (*l2cap.L2CAPStateTx, *link.Consumer) {
	t.Helper()
	srv := NewAttributeServer(attrs)
	m, err := l2cap.NewBleChannelMap(srv, noopProtocol{})
	require.NoError(t, err)

	q := link.NewPacketQueue()
	tx := l2cap.NewL2CAPState(m).Tx(q.Producer())
	return tx, q.Consumer()
}

func buildL2CAPMessage(channel l2cap.Channel, pdu AttMsg) []byte {
	var payload [64]byte
	pw := bytes.NewWriter(payload[:])
	if err := pdu.ToBytes(pw); err != nil {
		panic(err)
	}
	used := payload[:len(payload)-pw.SpaceLeft()]

	var raw [64]byte
	w := bytes.NewWriter(raw[:])
	header := l2cap.Header{Length: uint16(len(used)), Channel: channel}
	if err := header.ToBytes(w); err != nil {
		panic(err)
	}
	if err := w.WriteSlice(used); err != nil {
		panic(err)
	}
	return raw[:len(raw)-w.SpaceLeft()]
}

func readResponse(t *testing.T, c *link.Consumer) AttMsg {
	t.Helper()
	msg, err := link.ConsumeRawWith(c, func(_ link.Header, payload []byte) link.Consume[AttMsg] {
		r := bytes.NewReader(payload)
		if _, err := l2cap.ParseHeader(r); err != nil {
			return link.ConsumeAlways(AttMsg{}, err)
		}
		opByte, err := r.ReadU8()
		if err != nil {
			return link.ConsumeAlways(AttMsg{}, err)
		}
		m, err := ParseAttMsg(Opcode(opByte), r)
		return link.ConsumeAlways(m, err)
	})
	require.NoError(t, err)
	return msg
}

func TestAttributeServerExchangeMtu(t *testing.T) {
	tx, rx := newHarness(t, NoAttributes{})
	res := tx.ProcessStart(buildL2CAPMessage(l2cap.ChannelATT, AttMsg{Opcode: OpcodeExchangeMtuReq, Mtu: 185}))
	require.NoError(t, res.Err)

	rsp := readResponse(t, rx)
	assert.Equal(t, OpcodeExchangeMtuRsp, rsp.Opcode)
	assert.Equal(t, uint16(23), rsp.Mtu)
}

func TestAttributeServerReadReqFound(t *testing.T) {
	tx, rx := newHarness(t, newFakeProvider())
	res := tx.ProcessStart(buildL2CAPMessage(l2cap.ChannelATT, AttMsg{Opcode: OpcodeReadReq, Handle: 0x0003}))
	require.NoError(t, res.Err)

	rsp := readResponse(t, rx)
	assert.Equal(t, OpcodeReadRsp, rsp.Opcode)
	assert.Equal(t, []byte("device"), rsp.Value)
}

func TestAttributeServerReadReqNotFound(t *testing.T) {
	tx, rx := newHarness(t, newFakeProvider())
	res := tx.ProcessStart(buildL2CAPMessage(l2cap.ChannelATT, AttMsg{Opcode: OpcodeReadReq, Handle: 0x00FF}))
	require.NoError(t, res.Err)

	rsp := readResponse(t, rx)
	assert.Equal(t, OpcodeErrorRsp, rsp.Opcode)
	assert.Equal(t, ErrorCodeAttributeNotFound, rsp.ErrorCode)
	assert.Equal(t, OpcodeReadReq, rsp.ErrorOpcode)
}

func TestAttributeServerReadByTypeReq(t *testing.T) {
	tx, rx := newHarness(t, newFakeProvider())
	res := tx.ProcessStart(buildL2CAPMessage(l2cap.ChannelATT, AttMsg{
		Opcode:        OpcodeReadByTypeReq,
		HandleRange:   RawHandleRange{Start: 0x0001, End: 0xFFFF},
		AttributeType: UUID16(0x2803),
	}))
	require.NoError(t, res.Err)

	rsp := readResponse(t, rx)
	require.Equal(t, OpcodeReadByTypeRsp, rsp.Opcode)
	assert.NotZero(t, rsp.Length)
	assert.NotEmpty(t, rsp.DataList)
}

func TestAttributeServerReadByGroupReqUsesRealGroupEnd(t *testing.T) {
	tx, rx := newHarness(t, newFakeProvider())
	res := tx.ProcessStart(buildL2CAPMessage(l2cap.ChannelATT, AttMsg{
		Opcode:        OpcodeReadByGroupReq,
		HandleRange:   RawHandleRange{Start: 0x0001, End: 0xFFFF},
		AttributeType: UUID16(0x2800),
	}))
	require.NoError(t, res.Err)

	rsp := readResponse(t, rx)
	require.Equal(t, OpcodeReadByGroupRsp, rsp.Opcode)
	// handle (2) + group end handle (2) + 2-byte value == 6; the group end
	// must be the provider's real last-member handle (0x0003), not a
	// hardcoded placeholder.
	require.Len(t, rsp.DataList, 6)
	groupEnd := uint16(rsp.DataList[2]) | uint16(rsp.DataList[3])<<8
	assert.Equal(t, uint16(0x0003), groupEnd)
}

func TestAttributeServerReadByGroupReqRejectsNonGroupingType(t *testing.T) {
	tx, rx := newHarness(t, newFakeProvider())
	res := tx.ProcessStart(buildL2CAPMessage(l2cap.ChannelATT, AttMsg{
		Opcode:        OpcodeReadByGroupReq,
		HandleRange:   RawHandleRange{Start: 0x0001, End: 0xFFFF},
		AttributeType: UUID16(0x2A00),
	}))
	require.NoError(t, res.Err)

	rsp := readResponse(t, rx)
	assert.Equal(t, OpcodeErrorRsp, rsp.Opcode)
	assert.Equal(t, ErrorCodeUnsupportedGroupType, rsp.ErrorCode)
}

func TestAttributeServerUnsupportedRequestErrors(t *testing.T) {
	tx, rx := newHarness(t, NoAttributes{})
	res := tx.ProcessStart(buildL2CAPMessage(l2cap.ChannelATT, AttMsg{Opcode: OpcodeFindInformationReq, HandleRange: RawHandleRange{Start: 1, End: 2}}))
	require.NoError(t, res.Err)

	rsp := readResponse(t, rx)
	assert.Equal(t, OpcodeErrorRsp, rsp.Opcode)
	assert.Equal(t, ErrorCodeRequestNotSupported, rsp.ErrorCode)
}

func TestAttributeServerUnknownCommandIgnored(t *testing.T) {
	tx, _ := newHarness(t, NoAttributes{})
	res := tx.ProcessStart(buildL2CAPMessage(l2cap.ChannelATT, AttMsg{Opcode: OpcodeWriteCommand, Handle: 1, Value: []byte{0x01}}))
	require.NoError(t, res.Err)
	// A Write Command is unhandled but must be silently ignored: no
	// response enqueued, so the TX slot stays free.
	assert.True(t, res.DoConsume)
}

func TestBaseUUIDExpansionPlacesShortFormInFirstFourBytes(t *testing.T) {
	full := UUID16(0x1234).Full()
	assert.Equal(t, "00001234-0000-1000-8000-00805f9b34fb", full.String())
}
