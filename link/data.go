package link

import (
	"fmt"

	"github.com/nrfperiph/blestack/bytes"
)

// Llid is the 2-bit LLID field of a data channel PDU header, identifying
// the kind of payload carried.
type Llid uint8

// LLID values.
const (
	LlidReserved  Llid = 0b00
	LlidDataCont  Llid = 0b01
	LlidDataStart Llid = 0b10
	LlidControl   Llid = 0b11
)

// Header is the 16-bit header preceding a data channel PDU's payload:
//
//	LSB                                                                MSB
//	+----------+---------+---------+---------+------------+--------------+
//	|   LLID   |  NESN   |   SN    |   MD    |     -      |    Length    |
//	| (2 bits) | (1 bit) | (1 bit) | (1 bit) |  (3 bits)  |   (8 bits)   |
//	+----------+---------+---------+---------+------------+--------------+
//
// The Length field occupies the upper byte of the 16-bit value.
type Header uint16

// NewHeader creates a header with the given LLID and all other fields
// (including payload length) zeroed.
func NewHeader(llid Llid) Header {
	return Header(llid)
}

// ParseHeader decodes a header from its little-endian 2-byte wire form.
func ParseHeader(raw []byte) Header {
	return Header(uint16(raw[0]) | uint16(raw[1])<<8)
}

// ToU16 returns the raw 16-bit value, transmitted LSB and LSb first as the
// PDU's first two octets.
func (h Header) ToU16() uint16 {
	return uint16(h)
}

// PayloadLength returns the Length field.
func (h Header) PayloadLength() uint8 {
	return uint8(h >> 8)
}

// WithPayloadLength returns h with the Length field set to len.
func (h Header) WithPayloadLength(length uint8) Header {
	return Header(uint16(length)<<8) | (h & 0x00ff)
}

// Llid returns the LLID field.
func (h Header) Llid() Llid {
	return Llid(h & 0b11)
}

// Nesn returns the NESN field.
func (h Header) Nesn() SeqNum {
	return SeqNumFromBit(h&0b0100 != 0)
}

// WithNesn returns h with the NESN field set.
func (h Header) WithNesn(nesn SeqNum) Header {
	if nesn {
		return h | 0b0100
	}
	return h &^ 0b0100
}

// Sn returns the SN field.
func (h Header) Sn() SeqNum {
	return SeqNumFromBit(h&0b1000 != 0)
}

// WithSn returns h with the SN field set.
func (h Header) WithSn(sn SeqNum) Header {
	if sn {
		return h | 0b1000
	}
	return h &^ 0b1000
}

// Md reports whether the More Data field is set.
func (h Header) Md() bool {
	return h&0b1_0000 != 0
}

// WithMd returns h with the More Data field set.
func (h Header) WithMd(md bool) Header {
	if md {
		return h | 0b1_0000
	}
	return h &^ 0b1_0000
}

func (h Header) String() string {
	return fmt.Sprintf("Header{LLID:%02b NESN:%d SN:%d MD:%t Length:%d}",
		h.Llid(), h.Nesn().Bit(), h.Sn().Bit(), h.Md(), h.PayloadLength())
}

// Pdu is a data channel PDU: either a fragment of an L2CAP message
// (DataCont/DataStart) or an LL Control PDU.
type Pdu struct {
	Llid    Llid
	Message []byte      // valid for DataCont/DataStart
	Control *ControlPdu // valid for Control
}

// EmptyPdu returns an empty PDU (DataCont with no payload), sent whenever
// there's nothing to transfer.
func EmptyPdu() Pdu {
	return Pdu{Llid: LlidDataCont, Message: nil}
}

// ParsePdu decodes a Pdu from a header and raw payload.
func ParsePdu(header Header, payload []byte) (Pdu, error) {
	switch header.Llid() {
	case LlidDataCont:
		return Pdu{Llid: LlidDataCont, Message: payload}, nil
	case LlidDataStart:
		return Pdu{Llid: LlidDataStart, Message: payload}, nil
	case LlidControl:
		ctrl, err := ParseControlPdu(payload)
		if err != nil {
			return Pdu{}, err
		}
		return Pdu{Llid: LlidControl, Control: ctrl}, nil
	default:
		return Pdu{}, bytes.ErrInvalidValue
	}
}

// ToBytes encodes the PDU's payload (not its header) into w.
func (p Pdu) ToBytes(w *bytes.Writer) error {
	switch p.Llid {
	case LlidDataCont, LlidDataStart:
		return w.WriteSlice(p.Message)
	case LlidControl:
		return p.Control.ToBytes(w)
	default:
		return bytes.ErrInvalidValue
	}
}

// ConnectionUpdateData carries the new connection parameters of an
// LL_CONNECTION_UPDATE_REQ control PDU. Durations are expressed in the
// units defined for each field (1.25ms units for most, 10ms for timeout);
// callers that need a time.Duration should multiply accordingly.
type ConnectionUpdateData struct {
	WinSize   uint8
	WinOffset uint16
	Interval  uint16
	Latency   uint16
	Timeout   uint16
	Instant   uint16
}
