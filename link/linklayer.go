package link

import (
	"github.com/sirupsen/logrus"

	"github.com/nrfperiph/blestack/phy"
)

// Cmd is returned by LinkLayer and Connection methods to tell the driver how
// to reconfigure the radio and when to call Update next.
type Cmd struct {
	Radio      RadioCmd
	NextUpdate NextUpdate

	// QueuedWork reports whether a packet was placed into the RX queue
	// during this call, so the idle loop knows to run.
	QueuedWork bool
}

// RadioCmdKind discriminates the variants of RadioCmd.
type RadioCmdKind uint8

// RadioCmd variants.
const (
	RadioOff RadioCmdKind = iota
	RadioListenAdvertising
	RadioListenData
)

// RadioCmd tells the driver whether and how to listen for incoming packets.
type RadioCmd struct {
	Kind RadioCmdKind

	AdvChannel phy.AdvertisingChannel

	DataChannel   phy.DataChannel
	AccessAddress uint32
	CRCInit       uint32
}

// ListenAdvertisingCmd builds a RadioCmd that listens on an advertising
// channel.
func ListenAdvertisingCmd(ch phy.AdvertisingChannel) RadioCmd {
	return RadioCmd{Kind: RadioListenAdvertising, AdvChannel: ch}
}

// ListenDataCmd builds a RadioCmd that listens on a data channel for the
// given access address, validating CRCs with crcInit.
func ListenDataCmd(ch phy.DataChannel, accessAddress, crcInit uint32) RadioCmd {
	return RadioCmd{Kind: RadioListenData, DataChannel: ch, AccessAddress: accessAddress, CRCInit: crcInit}
}

// OffCmd builds a RadioCmd that turns the radio off.
func OffCmd() RadioCmd { return RadioCmd{Kind: RadioOff} }

// Transmitter is implemented by the hosting application's radio driver.
type Transmitter interface {
	// TxPayloadBuf returns the persistent TX payload buffer (at least
	// MinPayloadBuf bytes). Contents must survive across calls so the
	// Link-Layer can retransmit by re-stamping only the header.
	TxPayloadBuf() []byte

	// TransmitAdvertising sends an advertising channel PDU with the given
	// header (whose payload is already in TxPayloadBuf) on channel, using
	// the fixed advertising access address and CRC preset.
	TransmitAdvertising(header AdvHeader, channel phy.AdvertisingChannel)

	// TransmitData sends a data channel PDU with the given header on
	// channel, using accessAddress and crcInit, applying whitening and
	// CRC24.
	TransmitData(accessAddress, crcInit uint32, header Header, channel phy.DataChannel)
}

type linkState uint8

const (
	stateStandby linkState = iota
	stateAdvertising
	stateConnection
)

type advertisingState struct {
	nextAdv  Instant
	interval Duration
	pdu      AdvPduBuf
	channel  phy.AdvertisingChannel

	txConsumer *Consumer
	rxProducer *Producer
}

// LinkLayer drives the Standby -> Advertising -> Connection state machine.
// It is the real-time entry point the radio ISR and timer interrupt call
// into; none of its methods block.
type LinkLayer struct {
	devAddr DeviceAddress
	timer   Timer

	state  linkState
	adv    *advertisingState
	conn   *Connection
	filter AdvFilter

	log *logrus.Entry
}

// NewLinkLayer creates a Link-Layer in Standby state, broadcasting as
// devAddr. Scan and connect requests are allowed from any peer until
// SetFilter is called.
func NewLinkLayer(devAddr DeviceAddress, timer Timer) *LinkLayer {
	return &LinkLayer{
		devAddr: devAddr,
		timer:   timer,
		state:   stateStandby,
		filter:  NewAdvFilter(AllowAll{}, AllowAll{}),
		log:     logrus.WithField("component", "link_layer"),
	}
}

// SetFilter installs an AdvFilter governing which peer devices may scan or
// connect to this Link-Layer while it is advertising.
func (l *LinkLayer) SetFilter(filter AdvFilter) { l.filter = filter }

// Timer returns the Timer this Link-Layer was constructed with.
func (l *LinkLayer) Timer() Timer { return l.timer }

// IsAdvertising reports whether the Link-Layer is currently in Advertising
// state.
func (l *LinkLayer) IsAdvertising() bool { return l.state == stateAdvertising }

// IsConnected reports whether the Link-Layer currently has an active
// Connection.
func (l *LinkLayer) IsConnected() bool { return l.state == stateConnection }

// StateName reports the current top-level state ("standby", "advertising",
// or "connected"), for diagnostics/status display.
func (l *LinkLayer) StateName() string {
	switch l.state {
	case stateAdvertising:
		return "advertising"
	case stateConnection:
		return "connected"
	default:
		return "standby"
	}
}

// ConnectionInterval returns the active connection's interval and true, or
// (0, false) when not connected.
func (l *LinkLayer) ConnectionInterval() (Duration, bool) {
	if l.state != stateConnection || l.conn == nil {
		return 0, false
	}
	return l.conn.ConnectionInterval(), true
}

// StartAdvertise transitions from any state into Advertising, building a
// discoverable ADV_IND PDU from ads and stashing the queue halves for the
// eventual CONNECT_REQ. The returned Cmd must be applied to the radio the
// same way a Cmd from Update/ProcessAdvPacket/ProcessDataPacket is.
func (l *LinkLayer) StartAdvertise(interval Duration, ads []AdStructure, tx Transmitter, txConsumer *Consumer, rxProducer *Producer) (Cmd, error) {
	pdu, err := DiscoverableAdvPdu(l.devAddr, ads)
	if err != nil {
		return Cmd{}, err
	}

	l.log.WithField("ad_count", len(ads)).Debug("start_advertise")

	l.conn = nil
	l.adv = &advertisingState{
		nextAdv:    l.timer.Now(),
		interval:   interval,
		pdu:        pdu,
		channel:    phy.FirstAdvertisingChannel(),
		txConsumer: txConsumer,
		rxProducer: rxProducer,
	}
	l.state = stateAdvertising

	return l.Update(tx), nil
}

// ProcessAdvPacket handles a packet received while listening on an
// advertising channel.
func (l *LinkLayer) ProcessAdvPacket(rxEnd Instant, tx Transmitter, header AdvHeader, payload []byte, crcOk bool) Cmd {
	pdu, parseErr := ParseAdvPdu(header, payload)

	if parseErr == nil && l.state == stateAdvertising && crcOk {
		recv := pdu.Receiver()
		if recv != nil && addressEqual(*recv, l.devAddr) {
			sender := pdu.Sender()
			switch pdu.Type {
			case ScanReqType:
				if sender != nil && !l.filter.MayScan(*sender) {
					l.log.Debug("SCAN_REQ rejected by filter")
					break
				}
				resp, err := ScanResponseAdvPdu(l.devAddr, nil)
				if err == nil {
					copy(tx.TxPayloadBuf(), resp.Payload())
					tx.TransmitAdvertising(resp.Header(), l.adv.channel)
					l.log.Debug("-> SCAN_RSP")
				}

			case ConnectReqType:
				if sender != nil && !l.filter.MayConnect(*sender) {
					l.log.Debug("CONNECT_REQ rejected by filter")
					break
				}
				l.log.Trace("ADV<- CONN!")
				txConsumer, rxProducer := l.adv.txConsumer, l.adv.rxProducer
				conn, cmd := CreateConnection(*pdu.LLData, rxEnd, txConsumer, rxProducer)
				l.conn = conn
				l.adv = nil
				l.state = stateConnection
				return cmd
			}
		}
	}

	switch l.state {
	case stateAdvertising:
		return Cmd{Radio: ListenAdvertisingCmd(l.adv.channel), NextUpdate: NextUpdateKeep()}
	default:
		// Standby shouldn't be receiving; Connection uses ProcessDataPacket.
		return Cmd{Radio: OffCmd(), NextUpdate: NextUpdateDisable()}
	}
}

// ProcessDataPacket handles a packet received while listening on a data
// channel, delegating to the active Connection.
func (l *LinkLayer) ProcessDataPacket(rxEnd Instant, tx Transmitter, header Header, payload []byte, crcOk bool) Cmd {
	if l.conn == nil {
		return Cmd{Radio: OffCmd(), NextUpdate: NextUpdateDisable()}
	}

	cmd, err := l.conn.ProcessDataPacket(rxEnd, tx, l.timer, header, payload, crcOk)
	if err != nil {
		l.log.Debug("connection ended, standby")
		l.conn = nil
		l.state = stateStandby
		return Cmd{Radio: OffCmd(), NextUpdate: NextUpdateDisable()}
	}
	return cmd
}

// Update must be called whenever the configured timer interrupt fires.
func (l *LinkLayer) Update(tx Transmitter) Cmd {
	switch l.state {
	case stateAdvertising:
		a := l.adv
		a.channel = a.channel.Cycle()

		buf := tx.TxPayloadBuf()
		copy(buf, a.pdu.Payload())
		tx.TransmitAdvertising(a.pdu.Header(), a.channel)

		a.nextAdv = a.nextAdv.Add(a.interval)
		return Cmd{Radio: ListenAdvertisingCmd(a.channel), NextUpdate: NextUpdateAt(a.nextAdv)}

	case stateConnection:
		cmd, err := l.conn.TimerUpdate(l.timer)
		if err != nil {
			l.log.Debug("connection ended (timer), standby")
			l.conn = nil
			l.state = stateStandby
			return Cmd{Radio: OffCmd(), NextUpdate: NextUpdateDisable()}
		}
		return cmd

	default:
		return Cmd{Radio: OffCmd(), NextUpdate: NextUpdateDisable()}
	}
}

func addressEqual(a, b DeviceAddress) bool {
	return a.Bytes() == b.Bytes() && a.Kind() == b.Kind()
}
