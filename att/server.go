package att

import (
	"github.com/sirupsen/logrus"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/l2cap"
)

// rspPduSize is the largest ATT response this server ever has to send,
// driving how much TX space L2CAP reserves before forwarding a message to
// it. 23 bytes covers the default ATT_MTU minus the opcode, which bounds
// every response this server builds.
const rspPduSize uint8 = 23

// AttributeServer answers ATT requests against a fixed AttributeProvider.
// It implements l2cap.Protocol, so it can be bound directly into an
// l2cap.ChannelMapper.
type AttributeServer struct {
	attrs AttributeProvider
	log   *logrus.Entry
}

// NewAttributeServer creates a server hosting attrs.
func NewAttributeServer(attrs AttributeProvider) *AttributeServer {
	return &AttributeServer{attrs: attrs, log: logrus.WithField("component", "att")}
}

// RspPduSize implements l2cap.Protocol.
func (s *AttributeServer) RspPduSize() uint8 { return rspPduSize }

// ProcessMessage implements l2cap.ProtocolObj.
func (s *AttributeServer) ProcessMessage(message []byte, sender *l2cap.Sender) error {
	r := bytes.NewReader(message)
	opByte, err := r.ReadU8()
	if err != nil {
		return err
	}
	opcode := Opcode(opByte)

	msg, err := ParseAttMsg(opcode, r)
	if err != nil {
		return err
	}
	s.log.WithField("opcode", opcode).Debug("att message received")

	if attErr := s.processRequest(msg, sender); attErr != nil {
		s.log.WithField("code", attErr.Code).Debug("att error response")
		return sender.Send(AttMsg{
			Opcode:      OpcodeErrorRsp,
			ErrorOpcode: opcode,
			ErrorHandle: attErr.Handle,
			ErrorCode:   attErr.Code,
		})
	}
	return nil
}

// processRequest dispatches msg and either sends a response through sender
// directly (for requests whose response is built incrementally) or returns
// an AttError for the caller to turn into an ErrorRsp.
func (s *AttributeServer) processRequest(msg AttMsg, sender *l2cap.Sender) *AttError {
	switch msg.Opcode {
	case OpcodeExchangeMtuReq:
		return toAttError(sender.Send(AttMsg{Opcode: OpcodeExchangeMtuRsp, Mtu: uint16(rspPduSize)}))

	case OpcodeReadByTypeReq:
		return s.readByType(msg, sender)

	case OpcodeReadByGroupReq:
		return s.readByGroup(msg, sender)

	case OpcodeReadReq:
		return s.read(msg, sender)

	case OpcodeErrorRsp, OpcodeExchangeMtuRsp, OpcodeFindInformationRsp,
		OpcodeFindByTypeValueRsp, OpcodeReadByTypeRsp, OpcodeReadRsp,
		OpcodeReadBlobRsp, OpcodeReadMultipleRsp, OpcodeReadByGroupRsp,
		OpcodeWriteRsp, OpcodePrepareWriteRsp, OpcodeExecuteWriteRsp,
		OpcodeHandleValueNotification, OpcodeHandleValueIndication:
		// A server never receives responses or server-initiated PDUs.
		return NewAttError(ErrorCodeInvalidPdu, HandleNull)

	default:
		if msg.Opcode.IsCommand() {
			// Unknown commands are silently ignored per the spec.
			return nil
		}
		return NewAttError(ErrorCodeRequestNotSupported, HandleNull)
	}
}

func toAttError(err error) *AttError {
	if err == nil {
		return nil
	}
	// Sender failures (e.g. ran out of reserved space mid-encode) are a
	// local bug, not something the peer caused; surface as "unlikely".
	return NewAttError(ErrorCodeUnlikelyError, HandleNull)
}

func (s *AttributeServer) readByType(msg AttMsg, sender *l2cap.Sender) *AttError {
	r, rangeErr := msg.HandleRange.Check()
	if rangeErr != nil {
		return rangeErr
	}

	var matches []Attribute
	_ = s.attrs.ForAttrsInRange(r, func(a Attribute) error {
		if a.Type.Equal(msg.AttributeType) {
			matches = append(matches, a)
		}
		return nil
	})
	if len(matches) == 0 {
		return ErrAttributeNotFound()
	}

	err := sender.SendWith(func(w *bytes.Writer) error {
		if err := w.WriteU8(uint8(OpcodeReadByTypeRsp)); err != nil {
			return err
		}
		return encodeByTypePairs(w, matches)
	})
	return toAttError(err)
}

func (s *AttributeServer) readByGroup(msg AttMsg, sender *l2cap.Sender) *AttError {
	if !s.attrs.IsGroupingAttr(msg.AttributeType) {
		r, rangeErr := msg.HandleRange.Check()
		if rangeErr != nil {
			return rangeErr
		}
		return NewAttError(ErrorCodeUnsupportedGroupType, r.Start())
	}

	r, rangeErr := msg.HandleRange.Check()
	if rangeErr != nil {
		return rangeErr
	}

	var matches []Attribute
	var groupEnds []Handle
	_ = s.attrs.ForAttrsInRange(r, func(a Attribute) error {
		if a.Type.Equal(msg.AttributeType) {
			end := a.Handle
			if ga, ok := s.attrs.GroupEnd(a.Handle); ok {
				end = ga.Handle
			}
			matches = append(matches, a)
			groupEnds = append(groupEnds, end)
		}
		return nil
	})
	if len(matches) == 0 {
		return ErrAttributeNotFound()
	}

	err := sender.SendWith(func(w *bytes.Writer) error {
		if err := w.WriteU8(uint8(OpcodeReadByGroupRsp)); err != nil {
			return err
		}
		return encodeByGroupPairs(w, matches, groupEnds)
	})
	return toAttError(err)
}

func (s *AttributeServer) read(msg AttMsg, sender *l2cap.Sender) *AttError {
	var found bool
	_ = s.attrs.ForAttrsInRange(HandleRange{start: HandleNull + 1, end: 0xFFFF}, func(a Attribute) error {
		if a.Handle == msg.Handle {
			found = true
			_ = sender.Send(AttMsg{Opcode: OpcodeReadRsp, Value: a.Value})
		}
		return nil
	})
	if !found {
		return ErrAttributeNotFound()
	}
	return nil
}

// encodeByTypePairs writes a Read By Type response's data list: consecutive
// (handle, value) pairs, stopping before an entry whose encoded size differs
// from the first or once space runs out.
func encodeByTypePairs(w *bytes.Writer, attrs []Attribute) error {
	lengthWriter, err := w.SplitOff(1)
	if err != nil {
		return err
	}

	size := -1
	for _, a := range attrs {
		entrySize := min(w.SpaceLeft(), 2+len(a.Value))
		if size != -1 && entrySize != size {
			break
		}
		entryWriter, err := w.SplitOff(entrySize)
		if err != nil {
			break
		}
		if err := a.Handle.ToBytes(entryWriter); err != nil {
			break
		}
		entryWriter.WriteSliceTruncate(a.Value)
		size = entrySize
	}
	if size < 0 {
		return bytes.ErrInvalidLength
	}
	return lengthWriter.WriteU8(uint8(size))
}

// encodeByGroupPairs writes a Read By Group Type response's data list:
// consecutive (handle, group end handle, value) triples, stopping before an
// entry whose encoded size differs from the first or once space runs out.
func encodeByGroupPairs(w *bytes.Writer, attrs []Attribute, groupEnds []Handle) error {
	lengthWriter, err := w.SplitOff(1)
	if err != nil {
		return err
	}

	size := -1
	for i, a := range attrs {
		entrySize := min(w.SpaceLeft(), 4+len(a.Value))
		if size != -1 && entrySize != size {
			break
		}
		entryWriter, err := w.SplitOff(entrySize)
		if err != nil {
			break
		}
		if err := a.Handle.ToBytes(entryWriter); err != nil {
			break
		}
		if err := groupEnds[i].ToBytes(entryWriter); err != nil {
			break
		}
		entryWriter.WriteSliceTruncate(a.Value)
		size = entrySize
	}
	if size < 0 {
		return bytes.ErrInvalidLength
	}
	return lengthWriter.WriteU8(uint8(size))
}
