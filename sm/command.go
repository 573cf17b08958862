// Package sm implements the LE Security Manager protocol's command framing.
// It parses and logs Security Manager PDUs on L2CAP channel 0x0006 but does
// not perform pairing: no key exchange, no cryptography. A peer that starts
// pairing gets a log message, not an encrypted connection.
package sm

import (
	"github.com/nrfperiph/blestack/bytes"
)

// CommandCode identifies the kind of an SMP PDU.
type CommandCode uint8

// SMP command codes.
const (
	CommandCodePairingRequest             CommandCode = 0x01
	CommandCodePairingResponse            CommandCode = 0x02
	CommandCodePairingConfirm             CommandCode = 0x03
	CommandCodePairingRandom              CommandCode = 0x04
	CommandCodePairingFailed              CommandCode = 0x05
	CommandCodeEncryptionInformation      CommandCode = 0x06
	CommandCodeMasterIdentification       CommandCode = 0x07
	CommandCodeIdentityInformation        CommandCode = 0x08
	CommandCodeIdentityAddressInformation CommandCode = 0x09
	CommandCodeSigningInformation         CommandCode = 0x0A
	CommandCodeSecurityRequest            CommandCode = 0x0B
	CommandCodePairingPublicKey           CommandCode = 0x0C
	CommandCodePairingDhKeyCheck          CommandCode = 0x0D
	CommandCodePairingKeypressNotification CommandCode = 0x0E
)

func (c CommandCode) String() string {
	switch c {
	case CommandCodePairingRequest:
		return "PairingRequest"
	case CommandCodePairingResponse:
		return "PairingResponse"
	case CommandCodePairingConfirm:
		return "PairingConfirm"
	case CommandCodePairingRandom:
		return "PairingRandom"
	case CommandCodePairingFailed:
		return "PairingFailed"
	case CommandCodeEncryptionInformation:
		return "EncryptionInformation"
	case CommandCodeMasterIdentification:
		return "MasterIdentification"
	case CommandCodeIdentityInformation:
		return "IdentityInformation"
	case CommandCodeIdentityAddressInformation:
		return "IdentityAddressInformation"
	case CommandCodeSigningInformation:
		return "SigningInformation"
	case CommandCodeSecurityRequest:
		return "SecurityRequest"
	case CommandCodePairingPublicKey:
		return "PairingPublicKey"
	case CommandCodePairingDhKeyCheck:
		return "PairingDhKeyCheck"
	case CommandCodePairingKeypressNotification:
		return "PairingKeypressNotification"
	default:
		return "Unknown"
	}
}

// IoCapabilities describes a device's pairing I/O capabilities.
type IoCapabilities uint8

// I/O capability values.
const (
	IoCapabilitiesDisplayOnly      IoCapabilities = 0x00
	IoCapabilitiesDisplayYesNo     IoCapabilities = 0x01
	IoCapabilitiesKeyboardOnly     IoCapabilities = 0x02
	IoCapabilitiesNoInputNoOutput  IoCapabilities = 0x03
	IoCapabilitiesKeyboardDisplay  IoCapabilities = 0x04
)

// BondingType says whether pairing keys should be permanently stored.
type BondingType uint8

// Bonding type values, carried in the low 2 bits of AuthReq.
const (
	BondingTypeNoBonding BondingType = 0b00
	BondingTypeBonding   BondingType = 0b01
)

const (
	authReqBitsBonding  uint8 = 0b0000_0011
	authReqBitsMitm     uint8 = 0b0000_0100
	authReqBitsSC       uint8 = 0b0000_1000
	authReqBitsKeypress uint8 = 0b0001_0000
)

// AuthReq is the authentication-requirements bitfield exchanged during a
// pairing request.
type AuthReq uint8

// BondingType returns the requested bonding behavior.
func (a AuthReq) BondingType() BondingType { return BondingType(uint8(a) & authReqBitsBonding) }

// Mitm reports whether man-in-the-middle protection is requested.
func (a AuthReq) Mitm() bool { return uint8(a)&authReqBitsMitm != 0 }

// SecureConnection reports whether LE Secure Connections pairing is
// requested. If false, the peer wants LE Legacy Pairing, which this stack
// does not support.
func (a AuthReq) SecureConnection() bool { return uint8(a)&authReqBitsSC != 0 }

// Keypress reports whether keypress notifications were requested.
func (a AuthReq) Keypress() bool { return uint8(a)&authReqBitsKeypress != 0 }

// KeyDistribution is a bitmask of key types a device requests distributed
// during pairing.
type KeyDistribution uint8

// Key distribution flags.
const (
	KeyDistributionEncKey  KeyDistribution = 1 << 0
	KeyDistributionIDKey   KeyDistribution = 1 << 1
	KeyDistributionSignKey KeyDistribution = 1 << 2
	KeyDistributionLinkKey KeyDistribution = 1 << 3
)

// PairingRequest is the body of a Pairing Request command.
type PairingRequest struct {
	IO             IoCapabilities
	OOB            bool
	AuthReq        AuthReq
	MaxKeySize     uint8
	InitiatorDist  KeyDistribution
	ResponderDist  KeyDistribution
}

// Command is a parsed SMP PDU. Only PairingRequest is structured; every
// other command is carried as raw bytes, since this stack logs but never
// acts on them.
type Command struct {
	Code    CommandCode
	Pairing PairingRequest
	Data    []byte
}

// ParseCommand decodes a single SMP command from r (the 1-byte command code
// has already been consumed into code).
func ParseCommand(code CommandCode, r *bytes.Reader) (Command, error) {
	cmd := Command{Code: code}
	if code != CommandCodePairingRequest {
		cmd.Data = r.ReadRest()
		return cmd, nil
	}

	io, err := r.ReadU8()
	if err != nil {
		return cmd, err
	}
	oob, err := r.ReadU8()
	if err != nil {
		return cmd, err
	}
	auth, err := r.ReadU8()
	if err != nil {
		return cmd, err
	}
	maxKeySize, err := r.ReadU8()
	if err != nil {
		return cmd, err
	}
	initDist, err := r.ReadU8()
	if err != nil {
		return cmd, err
	}
	rspDist, err := r.ReadU8()
	if err != nil {
		return cmd, err
	}

	cmd.Pairing = PairingRequest{
		IO:            IoCapabilities(io),
		OOB:           oob == 0x01,
		AuthReq:       AuthReq(auth),
		MaxKeySize:    maxKeySize,
		InitiatorDist: KeyDistribution(initDist),
		ResponderDist: KeyDistribution(rspDist),
	}
	return cmd, nil
}
