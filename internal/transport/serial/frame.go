// Package serial implements link.Transmitter over a UART-attached radio
// coprocessor: a second MCU that owns the actual 2.4 GHz radio, whitening,
// and CRC24 hardware, and speaks a small length-prefixed frame protocol to
// the host running the rest of this stack.
package serial

import (
	"github.com/nrfperiph/blestack/bytes"
)

// frameKind identifies a frame exchanged with the coprocessor.
type frameKind uint8

const (
	// Host -> coprocessor: radio control.
	frameRadioOff             frameKind = 0x01
	frameListenAdvertising    frameKind = 0x02
	frameListenData           frameKind = 0x03
	frameTxAdvertising        frameKind = 0x04
	frameTxData               frameKind = 0x05

	// Coprocessor -> host: received packets.
	frameRxAdvertising frameKind = 0x81
	frameRxData        frameKind = 0x82
)

// maxFrameBody bounds a frame's body (kind + length-prefixed fields) to
// what a data channel PDU plus framing overhead needs.
const maxFrameBody = 1 + 2 + 1 + 4 + 4 + 2 + 64

// writeFrame encodes kind followed by body's bytes as a length-prefixed
// frame: 1-byte kind, 2-byte little-endian length, body.
func writeFrame(w *bytes.Writer, kind frameKind, body []byte) error {
	if err := w.WriteU8(uint8(kind)); err != nil {
		return err
	}
	if err := w.WriteU16LE(uint16(len(body))); err != nil {
		return err
	}
	return w.WriteSlice(body)
}

// readFrameHeader decodes the kind and body length from the start of a
// frame. The caller reads exactly that many further bytes as the body.
func readFrameHeader(r *bytes.Reader) (frameKind, int, error) {
	kindByte, err := r.ReadU8()
	if err != nil {
		return 0, 0, err
	}
	length, err := r.ReadU16LE()
	if err != nil {
		return 0, 0, err
	}
	return frameKind(kindByte), int(length), nil
}
