package link

import "github.com/nrfperiph/blestack/phy"

// RawTransmitter is a reference Transmitter that performs the real on-air
// encoding described in §6.3 — CRC24 followed by whitening — instead of
// handing packets to radio hardware. Nothing in the real-time core depends
// on it; it exists so tests and small standalone demos can exercise actual
// on-air bytes without a serial-attached coprocessor.
type RawTransmitter struct {
	buf [MinPayloadBuf]byte

	// LastFrame holds the most recently encoded on-air frame (header,
	// payload, and CRC24, whitened), set by the most recent
	// TransmitAdvertising/TransmitData call.
	LastFrame []byte
}

// NewRawTransmitter creates a RawTransmitter with an empty TX buffer.
func NewRawTransmitter() *RawTransmitter {
	return &RawTransmitter{}
}

// TxPayloadBuf implements Transmitter.
func (t *RawTransmitter) TxPayloadBuf() []byte { return t.buf[:] }

// TransmitAdvertising implements Transmitter.
func (t *RawTransmitter) TransmitAdvertising(header AdvHeader, channel phy.AdvertisingChannel) {
	t.LastFrame = encodeFrame(header.ToU16(), header.PayloadLength(), t.buf[:], phy.AdvertisingCRCInit, channel.WhiteningIV())
}

// TransmitData implements Transmitter.
func (t *RawTransmitter) TransmitData(_, crcInit uint32, header Header, channel phy.DataChannel) {
	t.LastFrame = encodeFrame(header.ToU16(), header.PayloadLength(), t.buf[:], crcInit, channel.WhiteningIV())
}

// encodeFrame assembles a header + payload + CRC24 frame and whitens it in
// place, mirroring exactly what a real radio does to the bits it puts on
// air (minus the preamble and access address, which aren't whitened).
func encodeFrame(rawHeader uint16, payloadLen uint8, payload []byte, crcInit uint32, iv uint8) []byte {
	n := int(payloadLen)
	frame := make([]byte, 2+n+3)
	frame[0] = byte(rawHeader)
	frame[1] = byte(rawHeader >> 8)
	copy(frame[2:2+n], payload[:n])

	crc := phy.CRC24(frame[:2+n], crcInit)
	frame[2+n] = byte(crc)
	frame[2+n+1] = byte(crc >> 8)
	frame[2+n+2] = byte(crc >> 16)

	phy.Whiten(frame, iv)
	return frame
}

// DecodeFrame reverses encodeFrame: given a frame exactly as it arrived
// over the air (already stripped of preamble and access address), it
// dewhitens, splits off the header and payload, and reports whether the
// trailing CRC24 matches.
func DecodeFrame(frame []byte, crcInit uint32, iv uint8) (rawHeader uint16, payload []byte, crcOk bool) {
	if len(frame) < 5 {
		return 0, nil, false
	}

	buf := make([]byte, len(frame))
	copy(buf, frame)
	phy.Whiten(buf, iv) // whitening is its own inverse

	pduLen := len(buf) - 3
	rawHeader = uint16(buf[0]) | uint16(buf[1])<<8
	payload = buf[2:pduLen]

	want := phy.CRC24(buf[:pduLen], crcInit)
	got := uint32(buf[pduLen]) | uint32(buf[pduLen+1])<<8 | uint32(buf[pduLen+2])<<16
	return rawHeader, payload, want == got
}
