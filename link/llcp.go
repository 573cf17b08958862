package link

import (
	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/phy"
)

// ControlOpcode identifies the kind of an LL Control PDU.
type ControlOpcode uint8

// Known LLCP opcodes. Most are recognized but not implemented; only the
// ones this stack acts on (ConnectionUpdateReq, ChannelMapReq,
// TerminateInd, FeatureReq, VersionInd) carry real behavior in Connection.
const (
	OpConnectionUpdateReq ControlOpcode = 0x00
	OpChannelMapReq       ControlOpcode = 0x01
	OpTerminateInd        ControlOpcode = 0x02
	OpEncReq              ControlOpcode = 0x03
	OpEncRsp              ControlOpcode = 0x04
	OpStartEncReq         ControlOpcode = 0x05
	OpStartEncRsp         ControlOpcode = 0x06
	OpUnknownRsp          ControlOpcode = 0x07
	OpFeatureReq          ControlOpcode = 0x08
	OpFeatureRsp          ControlOpcode = 0x09
	OpPauseEncReq         ControlOpcode = 0x0A
	OpPauseEncRsp         ControlOpcode = 0x0B
	OpVersionInd          ControlOpcode = 0x0C
	OpRejectInd           ControlOpcode = 0x0D
	OpSlaveFeatureReq     ControlOpcode = 0x0E
	OpConnectionParamReq  ControlOpcode = 0x0F
	OpConnectionParamRsp  ControlOpcode = 0x10
	OpRejectIndExt        ControlOpcode = 0x11
	OpPingReq             ControlOpcode = 0x12
	OpPingRsp             ControlOpcode = 0x13
	OpLengthReq           ControlOpcode = 0x14
	OpLengthRsp           ControlOpcode = 0x15
)

// VersionNumber is a Bluetooth Core Specification version, as used in
// LL_VERSION_IND.
type VersionNumber uint8

// Known core specification versions.
const (
	Version4_0 VersionNumber = 6
	Version4_1 VersionNumber = 7
	Version4_2 VersionNumber = 8
	Version5_0 VersionNumber = 9
	Version5_1 VersionNumber = 10
)

// CompanyId is a Bluetooth SIG-assigned company identifier, as used in
// LL_VERSION_IND.
type CompanyId uint16

// AsU16 returns the raw company identifier.
func (c CompanyId) AsU16() uint16 { return uint16(c) }

// FeatureSet is the 64-bit set of optional Link-Layer features exchanged
// via LL_FEATURE_REQ/LL_FEATURE_RSP. This stack declares no optional
// features (no encryption, no connection parameter request procedure, no
// LE Privacy, no packet length extension) — see spec Non-goals.
type FeatureSet uint64

// Feature bits.
const (
	FeatureLEEncryption           FeatureSet = 1 << 0
	FeatureConnParamReq           FeatureSet = 1 << 1
	FeatureExtendedRejectInd      FeatureSet = 1 << 2
	FeatureSlaveFeatureExchange   FeatureSet = 1 << 3
	FeatureLEPing                 FeatureSet = 1 << 4
	FeatureLEPacketLengthExt      FeatureSet = 1 << 5
	FeatureLLPrivacy              FeatureSet = 1 << 6
	FeatureExtScannerFilterPolicy FeatureSet = 1 << 7
)

// SupportedFeatures returns the feature set this stack implements: none.
func SupportedFeatures() FeatureSet {
	return 0
}

// ControlPdu is a structured LL Control PDU (the payload of a data channel
// PDU with LLID == Control).
type ControlPdu struct {
	Opcode ControlOpcode

	ConnectionUpdateReq *ConnectionUpdateData
	ChannelMapReq        *channelMapReqData
	TerminateErrorCode   uint8
	UnknownRspType       ControlOpcode
	FeatureReqMaster     FeatureSet
	FeatureRspUsed       FeatureSet
	VersionNr            VersionNumber
	CompId                CompanyId
	SubVersNr            uint16

	// Raw holds the undecoded parameter bytes for any opcode this stack
	// does not structurally model.
	Raw []byte
}

type channelMapReqData struct {
	Map     phy.ChannelMap
	Instant uint16
}

// NewConnectionUpdateReq builds a ControlPdu for LL_CONNECTION_UPDATE_REQ.
func NewConnectionUpdateReq(data ConnectionUpdateData) *ControlPdu {
	return &ControlPdu{Opcode: OpConnectionUpdateReq, ConnectionUpdateReq: &data}
}

// NewChannelMapReq builds a ControlPdu for LL_CHANNEL_MAP_REQ.
func NewChannelMapReq(m phy.ChannelMap, instant uint16) *ControlPdu {
	return &ControlPdu{Opcode: OpChannelMapReq, ChannelMapReq: &channelMapReqData{Map: m, Instant: instant}}
}

// NewTerminateInd builds a ControlPdu for LL_TERMINATE_IND.
func NewTerminateInd(errorCode uint8) *ControlPdu {
	return &ControlPdu{Opcode: OpTerminateInd, TerminateErrorCode: errorCode}
}

// NewUnknownRsp builds a ControlPdu for LL_UNKNOWN_RSP, referencing the
// opcode that wasn't understood.
func NewUnknownRsp(unknownType ControlOpcode) *ControlPdu {
	return &ControlPdu{Opcode: OpUnknownRsp, UnknownRspType: unknownType}
}

// NewFeatureReq builds a ControlPdu for LL_FEATURE_REQ.
func NewFeatureReq(features FeatureSet) *ControlPdu {
	return &ControlPdu{Opcode: OpFeatureReq, FeatureReqMaster: features}
}

// NewFeatureRsp builds a ControlPdu for LL_FEATURE_RSP.
func NewFeatureRsp(used FeatureSet) *ControlPdu {
	return &ControlPdu{Opcode: OpFeatureRsp, FeatureRspUsed: used}
}

// NewVersionInd builds a ControlPdu for LL_VERSION_IND.
func NewVersionInd(vers VersionNumber, comp CompanyId, subVers uint16) *ControlPdu {
	return &ControlPdu{Opcode: OpVersionInd, VersionNr: vers, CompId: comp, SubVersNr: subVers}
}

// ParseControlPdu decodes an LL Control PDU from its payload bytes.
func ParseControlPdu(payload []byte) (*ControlPdu, error) {
	r := bytes.NewReader(payload)
	opByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	op := ControlOpcode(opByte)

	switch op {
	case OpConnectionUpdateReq:
		winSize, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		winOffset, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		interval, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		latency, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		timeout, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		instant, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		return NewConnectionUpdateReq(ConnectionUpdateData{
			WinSize: winSize, WinOffset: winOffset, Interval: interval,
			Latency: latency, Timeout: timeout, Instant: instant,
		}), nil

	case OpChannelMapReq:
		raw, err := r.ReadSlice(5)
		if err != nil {
			return nil, err
		}
		var arr [5]byte
		copy(arr[:], raw)
		instant, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		return NewChannelMapReq(phy.ChannelMapFromRaw(arr), instant), nil

	case OpTerminateInd:
		code, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		return NewTerminateInd(code), nil

	case OpUnknownRsp:
		unk, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		return NewUnknownRsp(ControlOpcode(unk)), nil

	case OpFeatureReq:
		raw, err := r.ReadU64LE()
		if err != nil {
			return nil, err
		}
		return NewFeatureReq(FeatureSet(raw)), nil

	case OpFeatureRsp:
		raw, err := r.ReadU64LE()
		if err != nil {
			return nil, err
		}
		return NewFeatureRsp(FeatureSet(raw)), nil

	case OpVersionInd:
		vers, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		comp, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		subVers, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		return NewVersionInd(VersionNumber(vers), CompanyId(comp), subVers), nil

	default:
		return &ControlPdu{Opcode: op, Raw: r.ReadRest()}, nil
	}
}

// ToBytes encodes the control PDU (opcode + parameters) into w.
func (c *ControlPdu) ToBytes(w *bytes.Writer) error {
	if err := w.WriteU8(uint8(c.Opcode)); err != nil {
		return err
	}
	switch c.Opcode {
	case OpConnectionUpdateReq:
		d := c.ConnectionUpdateReq
		if err := w.WriteU8(d.WinSize); err != nil {
			return err
		}
		if err := w.WriteU16LE(d.WinOffset); err != nil {
			return err
		}
		if err := w.WriteU16LE(d.Interval); err != nil {
			return err
		}
		if err := w.WriteU16LE(d.Latency); err != nil {
			return err
		}
		if err := w.WriteU16LE(d.Timeout); err != nil {
			return err
		}
		return w.WriteU16LE(d.Instant)

	case OpChannelMapReq:
		raw := c.ChannelMapReq.Map.Raw()
		if err := w.WriteSlice(raw[:]); err != nil {
			return err
		}
		return w.WriteU16LE(c.ChannelMapReq.Instant)

	case OpTerminateInd:
		return w.WriteU8(c.TerminateErrorCode)

	case OpUnknownRsp:
		return w.WriteU8(uint8(c.UnknownRspType))

	case OpFeatureReq:
		return w.WriteU64LE(uint64(c.FeatureReqMaster))

	case OpFeatureRsp:
		return w.WriteU64LE(uint64(c.FeatureRspUsed))

	case OpVersionInd:
		if err := w.WriteU8(uint8(c.VersionNr)); err != nil {
			return err
		}
		if err := w.WriteU16LE(c.CompId.AsU16()); err != nil {
			return err
		}
		return w.WriteU16LE(c.SubVersNr)

	default:
		return w.WriteSlice(c.Raw)
	}
}
