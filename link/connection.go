package link

import (
	"github.com/sirupsen/logrus"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/internal/metrics"
	"github.com/nrfperiph/blestack/phy"
)

// connectionLost is returned internally by the methods below to signal that
// the connection should be torn down; it carries no payload because the
// Link-Layer only cares that the connection ended, never why, once it has
// been logged.
type connectionLost struct{}

func (connectionLost) Error() string { return "link: connection lost" }

// llcpError distinguishes "couldn't fit a response, retry later" from
// "protocol violation, drop the connection" outcomes of processControlPdu.
type llcpError int

const (
	llcpNone llcpError = iota
	llcpNoSpace
	llcpConnectionLost
)

// pendingLlcpUpdate is a deferred Link-Layer state change bound to the
// connection event counter value at which it takes effect.
type pendingLlcpUpdate struct {
	connUpdate *ConnectionUpdateData
	chanMap    *phy.ChannelMap
	instant    uint16
}

// Connection holds all per-connection Link-Layer state: sequence numbers,
// channel map and hop state, the event counter, and the packet queues. Its
// methods are called exclusively from the high-priority radio/timer context
// and never block.
type Connection struct {
	accessAddress uint32
	crcInit       uint32
	channelMap    phy.ChannelMap
	hop           uint8
	connInterval  Duration
	connEventCount uint16

	unmappedChannel phy.DataChannel
	channel         phy.DataChannel

	transmitSeqNum     SeqNum
	nextExpectedSeqNum SeqNum

	lastHeader     Header
	receivedPacket bool

	tx *Consumer
	rx *Producer

	updateData *pendingLlcpUpdate

	log *logrus.Entry
}

// CreateConnection initializes connection state from a CONNECT_REQ's LLData,
// returning the Connection and the Cmd the driver should apply immediately.
func CreateConnection(lldata LLData, rxEnd Instant, tx *Consumer, rx *Producer) (*Connection, Cmd) {
	c := &Connection{
		accessAddress: lldata.AccessAddress,
		crcInit:       lldata.CRCInit,
		channelMap:    lldata.ChannelMap,
		hop:           lldata.Hop,
		connInterval:  lldata.Interval1_25ms(),

		unmappedChannel: phy.NewDataChannel(0),
		channel:         phy.NewDataChannel(0),

		transmitSeqNum:     SeqZero,
		nextExpectedSeqNum: SeqZero,
		lastHeader:         NewHeader(LlidDataCont),

		tx: tx,
		rx: rx,

		log: logrus.WithField("component", "connection"),
	}
	c.hopChannel()

	cmd := Cmd{
		NextUpdate: NextUpdateAt(rxEnd.Add(lldata.EndOfTxWindow()).Add(DurationFromMicros(500))),
		Radio:      ListenDataCmd(c.channel, c.accessAddress, c.crcInit),
	}
	metrics.ConnectionEventsTotal.Inc()
	return c, cmd
}

// ConnectionInterval returns the configured connection event interval.
func (c *Connection) ConnectionInterval() Duration { return c.connInterval }

// ProcessDataPacket implements the seven-step per-event algorithm of §4.5:
// acknowledgement/novelty detection, LLID dispatch, transmission or
// retransmission, channel hop, and deferred LLCP application. Returns
// connectionLost when the connection should end.
func (c *Connection) ProcessDataPacket(rxEnd Instant, tx Transmitter, timer Timer, header Header, payload []byte, crcOk bool) (Cmd, error) {
	isNew := header.Sn() == c.nextExpectedSeqNum && crcOk
	acknowledged := header.Nesn() == c.transmitSeqNum.Add(SeqOne) && crcOk
	isEmpty := header.Llid() == LlidDataCont && len(payload) == 0

	if acknowledged {
		c.receivedPacket = true
		c.transmitSeqNum = c.transmitSeqNum.Add(SeqOne)
	}

	responded := false
	queuedWork := false

	if isNew {
		switch {
		case isEmpty:
			c.nextExpectedSeqNum = c.nextExpectedSeqNum.Add(SeqOne)

		case header.Llid() == LlidControl:
			pdu, err := ParseControlPdu(payload)
			if err != nil {
				// Couldn't parse; CRC might be bad after all. NACK.
				break
			}

			response, lerr := c.processControlPdu(pdu, acknowledged)
			switch {
			case lerr == llcpConnectionLost:
				return Cmd{}, connectionLost{}
			case lerr == llcpNoSpace:
				// Do not acknowledge the PDU.
			case response != nil:
				c.nextExpectedSeqNum = c.nextExpectedSeqNum.Add(SeqOne)

				w := bytes.NewWriter(tx.TxPayloadBuf())
				left := w.SpaceLeft()
				if err := response.ToBytes(w); err == nil {
					plLen := uint8(left - w.SpaceLeft())
					h := NewHeader(LlidControl).WithPayloadLength(plLen)
					c.send(h, tx)
					responded = true
				}
				c.log.WithField("opcode", pdu.Opcode).Trace("llcp response sent")
			default:
				c.nextExpectedSeqNum = c.nextExpectedSeqNum.Add(SeqOne)
				c.log.WithField("opcode", pdu.Opcode).Trace("llcp processed, no response")
			}

		default:
			payloadLen := header.PayloadLength()
			err := c.rx.ProduceWith(func(w *bytes.Writer) (Llid, error) {
				if err := w.WriteSlice(payload[:payloadLen]); err != nil {
					return 0, err
				}
				return header.Llid(), nil
			})
			if err == nil {
				c.nextExpectedSeqNum = c.nextExpectedSeqNum.Add(SeqOne)
				queuedWork = true
			}
		}
	}

	if acknowledged {
		if !responded {
			w := bytes.NewWriter(tx.TxPayloadBuf())
			h, err := ConsumeRawWith(c.tx, func(header Header, pl []byte) Consume[Header] {
				if werr := w.WriteSlice(pl); werr != nil {
					return ConsumeNever(Header(0), werr)
				}
				return ConsumeAlways(header, nil)
			})
			if err != nil {
				h = NewHeader(LlidDataCont)
			}
			c.send(h, tx)
		}
	} else {
		if c.receivedPacket {
			c.lastHeader = c.lastHeader.WithNesn(c.nextExpectedSeqNum)
			tx.TransmitData(c.accessAddress, c.crcInit, c.lastHeader, c.channel)
			metrics.RetransmitsTotal.Inc()
		} else {
			c.receivedPacket = true
			w := bytes.NewWriter(tx.TxPayloadBuf())
			empty := EmptyPdu()
			_ = empty.ToBytes(w)
			c.send(NewHeader(empty.Llid), tx)
		}
	}

	c.connEventCount++

	if c.updateData != nil {
		update := c.updateData
		if update.instant == c.connEventCount {
			c.updateData = nil
			if cmd, applied := c.applyLlcpUpdate(*update, rxEnd); applied {
				cmd.QueuedWork = queuedWork
				return cmd, nil
			}
		}
	}

	c.hopChannel()
	metrics.ConnectionEventsTotal.Inc()

	return Cmd{
		NextUpdate: NextUpdateAt(timer.Now().Add(c.connEventTimeout())),
		Radio:      ListenDataCmd(c.channel, c.accessAddress, c.crcInit),
		QueuedWork: queuedWork,
	}, nil
}

// TimerUpdate is called when the configured timer fires without a data
// packet having been processed first.
func (c *Connection) TimerUpdate(timer Timer) (Cmd, error) {
	if c.receivedPacket {
		c.hopChannel()
		c.connEventCount++
		return Cmd{
			NextUpdate: NextUpdateAt(timer.Now().Add(c.connEventTimeout())),
			Radio:      ListenDataCmd(c.channel, c.accessAddress, c.crcInit),
		}, nil
	}

	c.connEventCount++
	return Cmd{}, connectionLost{}
}

func (c *Connection) connEventTimeout() Duration {
	return DurationFromMicros(c.connInterval.Micros() + 500)
}

func (c *Connection) hopChannel() {
	unmapped := phy.NewDataChannel((c.unmappedChannel.Index() + c.hop) % 37)
	c.unmappedChannel = unmapped

	if c.channelMap.IsUsed(unmapped) {
		c.channel = unmapped
	} else {
		remap := unmapped.Index() % c.channelMap.NumUsedChannels()
		c.channel = c.channelMap.ByIndex(remap)
	}
}

func (c *Connection) send(header Header, tx Transmitter) {
	header = header.WithMd(false).WithNesn(c.nextExpectedSeqNum).WithSn(c.transmitSeqNum)
	c.lastHeader = header
	tx.TransmitData(c.accessAddress, c.crcInit, header, c.channel)
}

// processControlPdu implements the opcode table of §4.5.1. It returns
// llcpNoSpace when a response is warranted but canRespond is false.
func (c *Connection) processControlPdu(pdu *ControlPdu, canRespond bool) (*ControlPdu, llcpError) {
	var response *ControlPdu

	switch pdu.Opcode {
	case OpConnectionUpdateReq:
		if err := c.prepareLlcpUpdate(pendingLlcpUpdate{connUpdate: pdu.ConnectionUpdateReq, instant: pdu.ConnectionUpdateReq.Instant}); err != nil {
			return nil, llcpConnectionLost
		}
		return nil, llcpNone

	case OpChannelMapReq:
		m := pdu.ChannelMapReq.Map
		if err := c.prepareLlcpUpdate(pendingLlcpUpdate{chanMap: &m, instant: pdu.ChannelMapReq.Instant}); err != nil {
			return nil, llcpConnectionLost
		}
		return nil, llcpNone

	case OpTerminateInd:
		c.log.WithField("code", pdu.TerminateErrorCode).Info("closing connection due to termination request")
		return nil, llcpConnectionLost

	case OpFeatureReq:
		response = NewFeatureRsp(pdu.FeatureReqMaster & SupportedFeatures())

	case OpVersionInd:
		response = NewVersionInd(bluetoothVersion, ourCompanyId, 0)

	default:
		response = NewUnknownRsp(pdu.Opcode)
	}

	if canRespond {
		return response, llcpNone
	}
	return nil, llcpNoSpace
}

func (c *Connection) prepareLlcpUpdate(update pendingLlcpUpdate) error {
	if c.updateData != nil {
		c.log.WithField("new", update).WithField("pending", *c.updateData).Error("llcp update already pending")
		return connectionLost{}
	}
	c.updateData = &update
	return nil
}

func (c *Connection) applyLlcpUpdate(update pendingLlcpUpdate, rxEnd Instant) (Cmd, bool) {
	switch {
	case update.connUpdate != nil:
		old := c.connInterval
		d := update.connUpdate
		c.connInterval = DurationFromMicros(uint32(d.Interval) * 1250)
		c.hopChannel()

		winOffsetUs := DurationFromMicros(uint32(d.WinOffset) * 1250)
		winSizeUs := DurationFromMicros(uint32(d.WinSize) * 1250)
		return Cmd{
			NextUpdate: NextUpdateAt(rxEnd.Add(old).Add(winOffsetUs).Add(winSizeUs)),
			Radio:      ListenDataCmd(c.channel, c.accessAddress, c.crcInit),
		}, true

	case update.chanMap != nil:
		c.channelMap = *update.chanMap
		return Cmd{}, false

	default:
		return Cmd{}, false
	}
}

// bluetoothVersion and ourCompanyId are the values this stack reports in
// LL_VERSION_IND. 0xFFFF is the SIG-reserved "no company" identifier; a real
// deployment should set this to its assigned company ID.
const bluetoothVersion = Version4_2

var ourCompanyId = CompanyId(0xFFFF)
