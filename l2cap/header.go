package l2cap

import "github.com/nrfperiph/blestack/bytes"

// HeaderSize is the size in bytes of the L2CAP header preceding every PDU.
const HeaderSize = 4

// Header precedes every L2CAP PDU (the Length and Channel fields of the
// "Basic L2CAP header").
type Header struct {
	// Length is the payload length following this header, after
	// reassembly (reassembly across multiple data channel PDUs is not
	// implemented; every PDU handled here is a single fragment).
	Length uint16
	// Channel is the destination endpoint of the PDU.
	Channel Channel
}

// ParseHeader decodes a Header from r.
func ParseHeader(r *bytes.Reader) (Header, error) {
	length, err := r.ReadU16LE()
	if err != nil {
		return Header{}, err
	}
	channel, err := ParseChannel(r)
	if err != nil {
		return Header{}, err
	}
	return Header{Length: length, Channel: channel}, nil
}

// ToBytes encodes the header into w.
func (h Header) ToBytes(w *bytes.Writer) error {
	if err := w.WriteU16LE(h.Length); err != nil {
		return err
	}
	return h.Channel.ToBytes(w)
}
