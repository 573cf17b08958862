package sm

import (
	"github.com/sirupsen/logrus"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/l2cap"
)

// SecurityLevel determines the L2CAP response PDU size a Manager reserves,
// which in turn signals to the peer what pairing features it can expect.
type SecurityLevel interface {
	// Mtu is the L2CAP MTU this security level requires.
	Mtu() uint8
}

// NoSecurity means LE Secure Connections pairing will never be established;
// every pairing attempt is logged and otherwise ignored.
type NoSecurity struct{}

// Mtu implements SecurityLevel.
func (NoSecurity) Mtu() uint8 { return 23 }

// Manager is the LE Security Manager endpoint bound to L2CAP channel
// 0x0006. It implements l2cap.Protocol so it can be bound directly into a
// ChannelMapper, but it never completes pairing: no TK/STK/LTK derivation,
// no ECDH, no encryption key exchange.
type Manager struct {
	level SecurityLevel
	log   *logrus.Entry
}

// NewManager creates a Manager reserving the L2CAP MTU level requires.
func NewManager(level SecurityLevel) *Manager {
	return &Manager{level: level, log: logrus.WithField("component", "sm")}
}

// NoSecurityManager creates a Manager that never attempts LE Secure
// Connections pairing.
func NoSecurityManager() *Manager {
	return NewManager(NoSecurity{})
}

// RspPduSize implements l2cap.Protocol.
func (m *Manager) RspPduSize() uint8 { return m.level.Mtu() }

// ProcessMessage implements l2cap.ProtocolObj. It never uses sender: every
// SMP command is terminal here, logged at whatever level fits and then
// dropped.
func (m *Manager) ProcessMessage(message []byte, _ *l2cap.Sender) error {
	r := bytes.NewReader(message)
	codeByte, err := r.ReadU8()
	if err != nil {
		return err
	}
	code := CommandCode(codeByte)

	cmd, err := ParseCommand(code, r)
	if err != nil {
		return err
	}

	switch {
	case code == CommandCodePairingRequest:
		m.log.WithFields(logrus.Fields{
			"io":               cmd.Pairing.IO,
			"oob":              cmd.Pairing.OOB,
			"max_key_size":     cmd.Pairing.MaxKeySize,
			"secure_conn_req":  cmd.Pairing.AuthReq.SecureConnection(),
			"mitm_req":         cmd.Pairing.AuthReq.Mitm(),
		}).Warn("pairing request received, pairing is not implemented")
	default:
		m.log.WithFields(logrus.Fields{
			"code": code,
			"data": cmd.Data,
		}).Debug("unhandled SMP command")
	}

	return nil
}
