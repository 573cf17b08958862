package sm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrfperiph/blestack/bytes"
)

func TestParseCommandPairingRequest(t *testing.T) {
	raw := []byte{
		0x01, // IoCapabilitiesDisplayYesNo
		0x00, // no OOB data
		0b0000_1101, // bonding + mitm + secure connection
		16,
		byte(KeyDistributionEncKey | KeyDistributionIDKey),
		byte(KeyDistributionSignKey),
	}
	r := bytes.NewReader(raw)
	cmd, err := ParseCommand(CommandCodePairingRequest, r)
	require.NoError(t, err)

	assert.Equal(t, IoCapabilities(0x01), cmd.Pairing.IO)
	assert.False(t, cmd.Pairing.OOB)
	assert.True(t, cmd.Pairing.AuthReq.Mitm())
	assert.True(t, cmd.Pairing.AuthReq.SecureConnection())
	assert.Equal(t, BondingTypeBonding, cmd.Pairing.AuthReq.BondingType())
	assert.Equal(t, uint8(16), cmd.Pairing.MaxKeySize)
	assert.Equal(t, KeyDistributionEncKey|KeyDistributionIDKey, cmd.Pairing.InitiatorDist)
	assert.Equal(t, KeyDistributionSignKey, cmd.Pairing.ResponderDist)
}

func TestParseCommandUnknownKeepsRawData(t *testing.T) {
	raw := []byte{0xAA, 0xBB, 0xCC}
	r := bytes.NewReader(raw)
	cmd, err := ParseCommand(CommandCodeSecurityRequest, r)
	require.NoError(t, err)
	assert.Equal(t, raw, cmd.Data)
}

func TestManagerProcessMessagePairingRequestNeverErrors(t *testing.T) {
	m := NoSecurityManager()
	message := append([]byte{byte(CommandCodePairingRequest)},
		byte(IoCapabilitiesNoInputNoOutput), 0x00, 0x00, 16, 0x00, 0x00)
	err := m.ProcessMessage(message, nil)
	require.NoError(t, err)
}

func TestManagerProcessMessageUnknownCommandIsIgnored(t *testing.T) {
	m := NoSecurityManager()
	message := []byte{byte(CommandCodePairingFailed), 0x05}
	err := m.ProcessMessage(message, nil)
	require.NoError(t, err)
}

func TestManagerRspPduSizeMatchesSecurityLevel(t *testing.T) {
	m := NoSecurityManager()
	assert.Equal(t, uint8(23), m.RspPduSize())
}
