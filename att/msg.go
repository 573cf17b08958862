package att

import (
	"github.com/nrfperiph/blestack/bytes"
)

// Opcode identifies the kind of an ATT PDU. The top two bits carry
// additional information: bit 7 (Signature) marks an authenticated write,
// bit 6 (Command) marks a PDU that gets no server response.
type Opcode uint8

// ATT opcodes.
const (
	OpcodeErrorRsp                Opcode = 0x01
	OpcodeExchangeMtuReq          Opcode = 0x02
	OpcodeExchangeMtuRsp          Opcode = 0x03
	OpcodeFindInformationReq      Opcode = 0x04
	OpcodeFindInformationRsp      Opcode = 0x05
	OpcodeFindByTypeValueReq      Opcode = 0x06
	OpcodeFindByTypeValueRsp      Opcode = 0x07
	OpcodeReadByTypeReq           Opcode = 0x08
	OpcodeReadByTypeRsp           Opcode = 0x09
	OpcodeReadReq                 Opcode = 0x0A
	OpcodeReadRsp                 Opcode = 0x0B
	OpcodeReadBlobReq             Opcode = 0x0C
	OpcodeReadBlobRsp             Opcode = 0x0D
	OpcodeReadMultipleReq         Opcode = 0x0E
	OpcodeReadMultipleRsp         Opcode = 0x0F
	OpcodeReadByGroupReq          Opcode = 0x10
	OpcodeReadByGroupRsp          Opcode = 0x11
	OpcodeWriteReq                Opcode = 0x12
	OpcodeWriteRsp                Opcode = 0x13
	OpcodePrepareWriteReq         Opcode = 0x16
	OpcodePrepareWriteRsp         Opcode = 0x17
	OpcodeExecuteWriteReq         Opcode = 0x18
	OpcodeExecuteWriteRsp         Opcode = 0x19
	OpcodeHandleValueNotification Opcode = 0x1B
	OpcodeHandleValueIndication   Opcode = 0x1D
	OpcodeHandleValueConfirmation Opcode = 0x1E
	OpcodeWriteCommand            Opcode = 0x52
	OpcodeSignedWriteCommand      Opcode = 0xD2
)

// IsAuthenticated reports whether the Signature bit is set: the PDU's
// parameters are followed by a 12-byte authentication signature.
func (o Opcode) IsAuthenticated() bool { return o&0x80 != 0 }

// IsCommand reports whether the Command bit is set: the peer expects no
// response, and an unrecognized command must simply be ignored rather than
// rejected.
func (o Opcode) IsCommand() bool { return o&0x40 != 0 }

// AttMsg is a structured ATT PDU (request, response, or command). Not every
// field is meaningful for every Opcode; see the ATT spec section for the
// corresponding PDU.
type AttMsg struct {
	Opcode Opcode

	// ErrorRsp
	ErrorOpcode Opcode
	ErrorHandle Handle
	ErrorCode   ErrorCode

	// ExchangeMtuReq / ExchangeMtuRsp
	Mtu uint16

	// FindInformationReq / ReadByTypeReq / ReadByGroupReq
	HandleRange RawHandleRange
	// ReadByTypeReq.attribute_type or ReadByGroupReq.group_type
	AttributeType UUID

	// FindInformationRsp
	Format uint8
	Data   []byte

	// FindByTypeValueReq
	AttributeType16 uint16
	AttributeValue  []byte
	// FindByTypeValueRsp
	HandlesInfo []byte

	// ReadByTypeRsp / ReadByGroupRsp
	Length   uint8
	DataList []byte

	// ReadReq / ReadBlobReq / WriteReq / WriteCommand / SignedWriteCommand /
	// PrepareWriteReq / PrepareWriteRsp / HandleValueNotification /
	// HandleValueIndication
	Handle Handle
	Value  []byte
	Offset uint16

	// SignedWriteCommand
	Signature [12]byte

	// ReadMultipleReq
	Handles []byte
	// ReadMultipleRsp
	Values []byte

	// ExecuteWriteReq
	Flags uint8

	// Unknown
	RawParams []byte
}

// ParseAttMsg decodes an ATT PDU's parameters (opcode already consumed).
func ParseAttMsg(opcode Opcode, r *bytes.Reader) (AttMsg, error) {
	m := AttMsg{Opcode: opcode}

	switch opcode {
	case OpcodeErrorRsp:
		op, err := r.ReadU8()
		if err != nil {
			return m, err
		}
		m.ErrorOpcode = Opcode(op)
		if m.ErrorHandle, err = ParseHandle(r); err != nil {
			return m, err
		}
		code, err := r.ReadU8()
		if err != nil {
			return m, err
		}
		m.ErrorCode = ErrorCode(code)

	case OpcodeExchangeMtuReq, OpcodeExchangeMtuRsp:
		mtu, err := r.ReadU16LE()
		if err != nil {
			return m, err
		}
		m.Mtu = mtu

	case OpcodeFindInformationReq:
		hr, err := ParseRawHandleRange(r)
		if err != nil {
			return m, err
		}
		m.HandleRange = hr

	case OpcodeFindInformationRsp:
		format, err := r.ReadU8()
		if err != nil {
			return m, err
		}
		m.Format = format
		m.Data = r.ReadRest()

	case OpcodeFindByTypeValueReq:
		hr, err := ParseRawHandleRange(r)
		if err != nil {
			return m, err
		}
		m.HandleRange = hr
		at, err := r.ReadU16LE()
		if err != nil {
			return m, err
		}
		m.AttributeType16 = at
		m.AttributeValue = r.ReadRest()

	case OpcodeFindByTypeValueRsp:
		m.HandlesInfo = r.ReadRest()

	case OpcodeReadByTypeReq:
		hr, err := ParseRawHandleRange(r)
		if err != nil {
			return m, err
		}
		m.HandleRange = hr
		at, err := ParseUUID(r)
		if err != nil {
			return m, err
		}
		m.AttributeType = at

	case OpcodeReadByTypeRsp:
		length, err := r.ReadU8()
		if err != nil {
			return m, err
		}
		m.Length = length
		m.DataList = r.ReadRest()

	case OpcodeReadReq:
		h, err := ParseHandle(r)
		if err != nil {
			return m, err
		}
		m.Handle = h

	case OpcodeReadRsp:
		m.Value = r.ReadRest()

	case OpcodeReadBlobReq:
		h, err := ParseHandle(r)
		if err != nil {
			return m, err
		}
		m.Handle = h
		off, err := r.ReadU16LE()
		if err != nil {
			return m, err
		}
		m.Offset = off

	case OpcodeReadBlobRsp:
		m.Value = r.ReadRest()

	case OpcodeReadMultipleReq:
		m.Handles = r.ReadRest()

	case OpcodeReadMultipleRsp:
		m.Values = r.ReadRest()

	case OpcodeReadByGroupReq:
		hr, err := ParseRawHandleRange(r)
		if err != nil {
			return m, err
		}
		m.HandleRange = hr
		gt, err := ParseUUID(r)
		if err != nil {
			return m, err
		}
		m.AttributeType = gt

	case OpcodeReadByGroupRsp:
		length, err := r.ReadU8()
		if err != nil {
			return m, err
		}
		m.Length = length
		m.DataList = r.ReadRest()

	case OpcodeWriteReq, OpcodeWriteCommand:
		h, err := ParseHandle(r)
		if err != nil {
			return m, err
		}
		m.Handle = h
		m.Value = r.ReadRest()

	case OpcodeWriteRsp:
		// No parameters.

	case OpcodeSignedWriteCommand:
		h, err := ParseHandle(r)
		if err != nil {
			return m, err
		}
		m.Handle = h
		if r.BytesLeft() < 12 {
			return m, bytes.ErrInvalidLength
		}
		valueLen := r.BytesLeft() - 12
		value, err := r.ReadSlice(valueLen)
		if err != nil {
			return m, err
		}
		m.Value = value
		sig, err := r.ReadSlice(12)
		if err != nil {
			return m, err
		}
		copy(m.Signature[:], sig)

	case OpcodePrepareWriteReq, OpcodePrepareWriteRsp:
		h, err := ParseHandle(r)
		if err != nil {
			return m, err
		}
		m.Handle = h
		off, err := r.ReadU16LE()
		if err != nil {
			return m, err
		}
		m.Offset = off
		m.Value = r.ReadRest()

	case OpcodeExecuteWriteReq:
		flags, err := r.ReadU8()
		if err != nil {
			return m, err
		}
		m.Flags = flags

	case OpcodeExecuteWriteRsp, OpcodeHandleValueConfirmation:
		// No parameters.

	case OpcodeHandleValueNotification, OpcodeHandleValueIndication:
		h, err := ParseHandle(r)
		if err != nil {
			return m, err
		}
		m.Handle = h
		m.Value = r.ReadRest()

	default:
		m.RawParams = r.ReadRest()
	}

	return m, nil
}

// ToBytes encodes the full PDU: the opcode byte followed by its parameters.
// This satisfies bytes.ToBytes, so an AttMsg can be passed directly to
// l2cap.Sender.Send.
func (m AttMsg) ToBytes(w *bytes.Writer) error {
	if err := w.WriteU8(uint8(m.Opcode)); err != nil {
		return err
	}
	return m.writeParams(w)
}

// writeParams encodes everything but the opcode byte.
func (m AttMsg) writeParams(w *bytes.Writer) error {
	switch m.Opcode {
	case OpcodeErrorRsp:
		if err := w.WriteU8(uint8(m.ErrorOpcode)); err != nil {
			return err
		}
		if err := m.ErrorHandle.ToBytes(w); err != nil {
			return err
		}
		return w.WriteU8(uint8(m.ErrorCode))

	case OpcodeExchangeMtuReq, OpcodeExchangeMtuRsp:
		return w.WriteU16LE(m.Mtu)

	case OpcodeFindInformationReq:
		return m.HandleRange.ToBytes(w)

	case OpcodeFindInformationRsp:
		if err := w.WriteU8(m.Format); err != nil {
			return err
		}
		return w.WriteSlice(m.Data)

	case OpcodeFindByTypeValueReq:
		if err := m.HandleRange.ToBytes(w); err != nil {
			return err
		}
		if err := w.WriteU16LE(m.AttributeType16); err != nil {
			return err
		}
		return w.WriteSlice(m.AttributeValue)

	case OpcodeFindByTypeValueRsp:
		return w.WriteSlice(m.HandlesInfo)

	case OpcodeReadByTypeReq:
		if err := m.HandleRange.ToBytes(w); err != nil {
			return err
		}
		return m.AttributeType.ToBytes(w)

	case OpcodeReadByTypeRsp:
		if err := w.WriteU8(m.Length); err != nil {
			return err
		}
		return w.WriteSlice(m.DataList)

	case OpcodeReadReq:
		return m.Handle.ToBytes(w)

	case OpcodeReadRsp, OpcodeReadBlobRsp:
		return w.WriteSlice(m.Value)

	case OpcodeReadBlobReq:
		if err := m.Handle.ToBytes(w); err != nil {
			return err
		}
		return w.WriteU16LE(m.Offset)

	case OpcodeReadMultipleReq:
		return w.WriteSlice(m.Handles)

	case OpcodeReadMultipleRsp:
		return w.WriteSlice(m.Values)

	case OpcodeReadByGroupReq:
		if err := m.HandleRange.ToBytes(w); err != nil {
			return err
		}
		return m.AttributeType.ToBytes(w)

	case OpcodeReadByGroupRsp:
		if err := w.WriteU8(m.Length); err != nil {
			return err
		}
		return w.WriteSlice(m.DataList)

	case OpcodeWriteReq, OpcodeWriteCommand:
		if err := m.Handle.ToBytes(w); err != nil {
			return err
		}
		return w.WriteSlice(m.Value)

	case OpcodeWriteRsp, OpcodeExecuteWriteRsp, OpcodeHandleValueConfirmation:
		return nil

	case OpcodeSignedWriteCommand:
		if err := m.Handle.ToBytes(w); err != nil {
			return err
		}
		if err := w.WriteSlice(m.Value); err != nil {
			return err
		}
		return w.WriteSlice(m.Signature[:])

	case OpcodePrepareWriteReq, OpcodePrepareWriteRsp:
		if err := m.Handle.ToBytes(w); err != nil {
			return err
		}
		if err := w.WriteU16LE(m.Offset); err != nil {
			return err
		}
		return w.WriteSlice(m.Value)

	case OpcodeExecuteWriteReq:
		return w.WriteU8(m.Flags)

	case OpcodeHandleValueNotification, OpcodeHandleValueIndication:
		if err := m.Handle.ToBytes(w); err != nil {
			return err
		}
		return w.WriteSlice(m.Value)

	default:
		return w.WriteSlice(m.RawParams)
	}
}
