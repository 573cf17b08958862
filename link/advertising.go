package link

import (
	"fmt"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/phy"
)

// AdvertisingAccessAddress and AdvertisingCRCInit are the fixed parameters
// used for every advertising channel PDU.
const (
	AdvertisingAccessAddress = phy.AdvertisingAccessAddress
	AdvertisingCRCInit       = phy.AdvertisingCRCInit
)

// AdvPduType identifies an advertising channel PDU's 4-bit type field.
type AdvPduType uint8

// Advertising PDU types this stack recognizes. Others decode with an empty
// body and are otherwise ignored (there is no Central role, so PDU types
// only another peripheral or observer would send are out of scope).
const (
	AdvIndType        AdvPduType = 0x0
	AdvDirectIndType  AdvPduType = 0x1
	AdvNonconnIndType AdvPduType = 0x2
	ScanReqType       AdvPduType = 0x3
	ScanRspType       AdvPduType = 0x4
	ConnectReqType    AdvPduType = 0x5
	AdvScanIndType    AdvPduType = 0x6
)

// AdvHeader is the 16-bit header preceding an advertising channel PDU's
// payload.
//
//	LSB                                                                     MSB
//	+------------+------------+---------+---------+--------------+------------+
//	|  PDU Type  |     -      |  TxAdd  |  RxAdd  |    Length    |     -      |
//	|  (4 bits)  |  (2 bits)  | (1 bit) | (1 bit) |   (6 bits)   |  (2 bits)  |
//	+------------+------------+---------+---------+--------------+------------+
type AdvHeader uint16

// NewAdvHeader builds a header of the given type with TxAdd/RxAdd clear and
// payload length 0.
func NewAdvHeader(ty AdvPduType) AdvHeader {
	return AdvHeader(ty & 0xf)
}

// ParseAdvHeader decodes a header from its little-endian 2-byte wire form.
func ParseAdvHeader(raw []byte) AdvHeader {
	return AdvHeader(uint16(raw[0]) | uint16(raw[1])<<8)
}

// ToU16 returns the raw 16-bit value.
func (h AdvHeader) ToU16() uint16 { return uint16(h) }

// Type returns the PDU type field.
func (h AdvHeader) Type() AdvPduType { return AdvPduType(h & 0xf) }

// TxAdd reports whether the advertiser address is random.
func (h AdvHeader) TxAdd() bool { return h&(1<<6) != 0 }

// WithTxAdd returns h with TxAdd set.
func (h AdvHeader) WithTxAdd(v bool) AdvHeader {
	if v {
		return h | (1 << 6)
	}
	return h &^ (1 << 6)
}

// RxAdd reports whether the target/scanner address (when present) is
// random.
func (h AdvHeader) RxAdd() bool { return h&(1<<7) != 0 }

// WithRxAdd returns h with RxAdd set.
func (h AdvHeader) WithRxAdd(v bool) AdvHeader {
	if v {
		return h | (1 << 7)
	}
	return h &^ (1 << 7)
}

// PayloadLength returns the 6-bit Length field.
func (h AdvHeader) PayloadLength() uint8 { return uint8(h>>8) & 0x3f }

// WithPayloadLength returns h with the Length field set. length must be
// <= 37 (the pre-4.2 compatibility maximum).
func (h AdvHeader) WithPayloadLength(length uint8) AdvHeader {
	return (h &^ (0x3f << 8)) | AdvHeader(uint16(length&0x3f)<<8)
}

func (h AdvHeader) String() string {
	return fmt.Sprintf("AdvHeader{Type:%#x TxAdd:%t RxAdd:%t Length:%d}",
		h.Type(), h.TxAdd(), h.RxAdd(), h.PayloadLength())
}

// LLData carries the connection parameters conveyed by a CONNECT_REQ
// advertising PDU's LLData field.
type LLData struct {
	AccessAddress  uint32
	CRCInit        uint32
	WinSize        uint8
	WinOffset      uint16
	Interval       uint16
	Latency        uint16
	Timeout        uint16
	ChannelMap     phy.ChannelMap
	Hop            uint8
	SleepClockAcc  uint8
}

// EndOfTxWindow returns the Duration from the CONNECT_REQ's reception to the
// end of the transmit window the peer reserved, in units of 1.25ms per the
// WinOffset/WinSize fields.
func (d LLData) EndOfTxWindow() Duration {
	unitsUs := uint32(1250)
	return DurationFromMicros(uint32(d.WinOffset+uint16(d.WinSize)) * unitsUs)
}

// Interval1_25ms returns the connection interval as a Duration.
func (d LLData) Interval1_25ms() Duration {
	return DurationFromMicros(uint32(d.Interval) * 1250)
}

// AdvPdu is a decoded advertising channel PDU.
type AdvPdu struct {
	Type       AdvPduType
	Header     AdvHeader
	Advertiser DeviceAddress

	// Target is set for ADV_DIRECT_IND (the address being paged) and
	// CONNECT_REQ/SCAN_REQ (the address of the initiator/scanner).
	Target *DeviceAddress

	// AdvData holds undecoded AD structure bytes for ADV_IND/ADV_NONCONN_IND/
	// ADV_SCAN_IND/SCAN_RSP payloads, following the advertiser address.
	// Decode lazily via ParseAdStructures.
	AdvData []byte

	// LLData is set for CONNECT_REQ.
	LLData *LLData
}

// Receiver returns the address this PDU is directed at, if any: nil for
// broadcast PDUs (ADV_IND/ADV_NONCONN_IND/ADV_SCAN_IND/SCAN_RSP), the paged
// address for ADV_DIRECT_IND, and the advertiser's own address (carried in
// RxAdd, parsed into the Advertiser field) for SCAN_REQ/CONNECT_REQ.
func (p AdvPdu) Receiver() *DeviceAddress {
	switch p.Type {
	case ScanReqType, ConnectReqType:
		return &p.Advertiser
	default:
		return p.Target
	}
}

// Sender returns the address of the device that originated this PDU, for
// the request types where that differs from Advertiser: the scanner for
// SCAN_REQ, the initiator for CONNECT_REQ. Returns nil for PDU types whose
// sender is already exposed as Advertiser.
func (p AdvPdu) Sender() *DeviceAddress {
	switch p.Type {
	case ScanReqType, ConnectReqType:
		return p.Target
	default:
		return nil
	}
}

// ParseAdvPdu decodes an advertising channel PDU from its header and raw
// payload.
func ParseAdvPdu(header AdvHeader, payload []byte) (AdvPdu, error) {
	if int(header.PayloadLength()) != len(payload) {
		return AdvPdu{}, bytes.ErrInvalidLength
	}
	r := bytes.NewReader(payload)

	readAddr := func(random bool) (DeviceAddress, error) {
		raw, err := r.ReadSlice(6)
		if err != nil {
			return DeviceAddress{}, err
		}
		var arr [6]byte
		copy(arr[:], raw)
		kind := AddressPublic
		if random {
			kind = AddressRandom
		}
		return NewDeviceAddress(arr, kind), nil
	}

	ty := header.Type()
	switch ty {
	case AdvIndType, AdvNonconnIndType, AdvScanIndType, ScanRspType:
		adv, err := readAddr(header.TxAdd())
		if err != nil {
			return AdvPdu{}, err
		}
		return AdvPdu{Type: ty, Header: header, Advertiser: adv, AdvData: r.ReadRest()}, nil

	case AdvDirectIndType:
		adv, err := readAddr(header.TxAdd())
		if err != nil {
			return AdvPdu{}, err
		}
		target, err := readAddr(header.RxAdd())
		if err != nil {
			return AdvPdu{}, err
		}
		return AdvPdu{Type: ty, Header: header, Advertiser: adv, Target: &target}, nil

	case ScanReqType:
		scanner, err := readAddr(header.TxAdd())
		if err != nil {
			return AdvPdu{}, err
		}
		adv, err := readAddr(header.RxAdd())
		if err != nil {
			return AdvPdu{}, err
		}
		return AdvPdu{Type: ty, Header: header, Advertiser: adv, Target: &scanner}, nil

	case ConnectReqType:
		initiator, err := readAddr(header.TxAdd())
		if err != nil {
			return AdvPdu{}, err
		}
		adv, err := readAddr(header.RxAdd())
		if err != nil {
			return AdvPdu{}, err
		}
		aa, err := r.ReadU32LE()
		if err != nil {
			return AdvPdu{}, err
		}
		crcRaw, err := r.ReadSlice(3)
		if err != nil {
			return AdvPdu{}, err
		}
		crcInit := uint32(crcRaw[0]) | uint32(crcRaw[1])<<8 | uint32(crcRaw[2])<<16
		winSize, err := r.ReadU8()
		if err != nil {
			return AdvPdu{}, err
		}
		winOffset, err := r.ReadU16LE()
		if err != nil {
			return AdvPdu{}, err
		}
		interval, err := r.ReadU16LE()
		if err != nil {
			return AdvPdu{}, err
		}
		latency, err := r.ReadU16LE()
		if err != nil {
			return AdvPdu{}, err
		}
		timeout, err := r.ReadU16LE()
		if err != nil {
			return AdvPdu{}, err
		}
		mapRaw, err := r.ReadSlice(5)
		if err != nil {
			return AdvPdu{}, err
		}
		var mapArr [5]byte
		copy(mapArr[:], mapRaw)
		hopAndSca, err := r.ReadU8()
		if err != nil {
			return AdvPdu{}, err
		}

		lldata := &LLData{
			AccessAddress: aa,
			CRCInit:       crcInit,
			WinSize:       winSize,
			WinOffset:     winOffset,
			Interval:      interval,
			Latency:       latency,
			Timeout:       timeout,
			ChannelMap:    phy.ChannelMapFromRaw(mapArr),
			Hop:           hopAndSca & 0x1f,
			SleepClockAcc: hopAndSca >> 5,
		}
		return AdvPdu{Type: ty, Header: header, Advertiser: adv, Target: &initiator, LLData: lldata}, nil

	default:
		return AdvPdu{Type: ty, Header: header}, nil
	}
}

// AdvPduBuf is a fully assembled advertising PDU ready for repeated
// broadcast: the header plus a pre-rendered payload, built once at
// advertise-start and copied into the transmitter's buffer every interval.
type AdvPduBuf struct {
	header  AdvHeader
	payload []byte
}

// Header returns the PDU's header.
func (b AdvPduBuf) Header() AdvHeader { return b.header }

// Payload returns the PDU's rendered payload bytes.
func (b AdvPduBuf) Payload() []byte { return b.payload }

// DiscoverableAdvPdu assembles an ADV_IND PDU advertising addr with the
// given AD structures.
func DiscoverableAdvPdu(addr DeviceAddress, ads []AdStructure) (AdvPduBuf, error) {
	buf := make([]byte, 6, 31)
	writeAddr(buf[:6], addr)

	w := bytes.NewWriter(buf[6:cap(buf)])
	for _, ad := range ads {
		if err := ad.ToBytes(w); err != nil {
			return AdvPduBuf{}, err
		}
	}
	used := 6 + (cap(buf) - 6 - w.SpaceLeft())
	payload := buf[:used]

	header := NewAdvHeader(AdvIndType).WithTxAdd(addr.IsRandom()).WithPayloadLength(uint8(len(payload)))
	return AdvPduBuf{header: header, payload: payload}, nil
}

// ScanResponseAdvPdu assembles a SCAN_RSP PDU for addr carrying scanData as
// a single opaque AD structure payload (already TLV-encoded by the caller,
// or empty).
func ScanResponseAdvPdu(addr DeviceAddress, scanData []byte) (AdvPduBuf, error) {
	buf := make([]byte, 6+len(scanData))
	writeAddr(buf[:6], addr)
	copy(buf[6:], scanData)

	header := NewAdvHeader(ScanRspType).WithTxAdd(addr.IsRandom()).WithPayloadLength(uint8(len(buf)))
	return AdvPduBuf{header: header, payload: buf}, nil
}

func writeAddr(dst []byte, addr DeviceAddress) {
	b := addr.Bytes()
	copy(dst, b[:])
}
