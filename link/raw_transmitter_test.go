package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrfperiph/blestack/phy"
)

func TestRawTransmitterAdvertisingRoundTrip(t *testing.T) {
	tx := NewRawTransmitter()
	payload := []byte("hello, air")
	copy(tx.TxPayloadBuf(), payload)

	header := NewAdvHeader(AdvIndType).WithPayloadLength(uint8(len(payload)))
	channel := phy.FirstAdvertisingChannel()

	tx.TransmitAdvertising(header, channel)
	require.NotNil(t, tx.LastFrame)

	rawHeader, decoded, crcOk := DecodeFrame(tx.LastFrame, phy.AdvertisingCRCInit, channel.WhiteningIV())
	assert.True(t, crcOk)
	assert.Equal(t, header.ToU16(), rawHeader)
	assert.Equal(t, payload, decoded)
}

func TestRawTransmitterDataRoundTrip(t *testing.T) {
	tx := NewRawTransmitter()
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	copy(tx.TxPayloadBuf(), payload)

	header := NewHeader(LlidDataStart).WithPayloadLength(uint8(len(payload)))
	channel := phy.NewDataChannel(7)
	const crcInit = uint32(0x123456)

	tx.TransmitData(phy.AdvertisingAccessAddress, crcInit, header, channel)

	rawHeader, decoded, crcOk := DecodeFrame(tx.LastFrame, crcInit, channel.WhiteningIV())
	assert.True(t, crcOk)
	assert.Equal(t, header.ToU16(), rawHeader)
	assert.Equal(t, payload, decoded)
}

func TestDecodeFrameDetectsCorruption(t *testing.T) {
	tx := NewRawTransmitter()
	copy(tx.TxPayloadBuf(), []byte{0x01, 0x02, 0x03})
	header := NewAdvHeader(AdvIndType).WithPayloadLength(3)
	channel := phy.FirstAdvertisingChannel()
	tx.TransmitAdvertising(header, channel)

	corrupt := append([]byte(nil), tx.LastFrame...)
	corrupt[0] ^= 0xff

	_, _, crcOk := DecodeFrame(corrupt, phy.AdvertisingCRCInit, channel.WhiteningIV())
	assert.False(t, crcOk)
}

func TestDecodeFrameRejectsShortFrames(t *testing.T) {
	_, _, crcOk := DecodeFrame([]byte{0x01, 0x02}, phy.AdvertisingCRCInit, 0)
	assert.False(t, crcOk)
}
