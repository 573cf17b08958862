// Package phy implements the physical-layer framing concerns that sit below
// the link layer: RF channel arithmetic, the channel map, data whitening,
// and CRC24. Most of the actual physical layer is hardware; this package
// only covers the parts a software stack needs to compute.
package phy

import "fmt"

// rfChannelFreq returns the center frequency in MHz for an RF channel.
func rfChannelFreq(rf uint8) uint16 {
	return 2402 + uint16(rf)*2
}

// whiteningIV calculates the 7-bit data-whitening LFSR seed for a channel
// index: the MSb is 0, the next bit is fixed at 1, and the low 6 bits carry
// the channel index.
func whiteningIV(channelIdx uint8) uint8 {
	return 0b0100_0000 | channelIdx
}

// AdvertisingChannel is one of the three advertising channel indices
// (37, 38, 39).
type AdvertisingChannel struct {
	idx uint8
}

// FirstAdvertisingChannel returns the first (lowest-numbered) advertising
// channel.
func FirstAdvertisingChannel() AdvertisingChannel {
	return AdvertisingChannel{37}
}

// AllAdvertisingChannels returns all three advertising channels in
// ascending order.
func AllAdvertisingChannels() []AdvertisingChannel {
	return []AdvertisingChannel{{37}, {38}, {39}}
}

// Cycle returns the next advertising channel, wrapping back to the first
// after the last.
func (c AdvertisingChannel) Cycle() AdvertisingChannel {
	if c.idx == 39 {
		return AdvertisingChannel{37}
	}
	return AdvertisingChannel{c.idx + 1}
}

// Index returns the raw channel index (37, 38, or 39).
func (c AdvertisingChannel) Index() uint8 {
	return c.idx
}

// RFChannel returns the RF channel number used for advertising on this
// channel index. RF channels 0, 12 and 39 are reserved for advertising.
func (c AdvertisingChannel) RFChannel() uint8 {
	switch c.idx {
	case 37:
		return 0
	case 38:
		return 12
	case 39:
		return 39
	default:
		panic(fmt.Sprintf("invalid advertising channel index %d", c.idx))
	}
}

// Freq returns the center frequency of this channel in MHz.
func (c AdvertisingChannel) Freq() uint16 {
	return rfChannelFreq(c.RFChannel())
}

// WhiteningIV returns the data-whitening LFSR seed for this channel.
func (c AdvertisingChannel) WhiteningIV() uint8 {
	return whiteningIV(c.idx)
}

// DataChannel is one of the 37 data channel indices (0..=36) used for data
// channel PDUs on an established connection.
type DataChannel struct {
	idx uint8
}

// NewDataChannel creates a DataChannel from a raw index. Panics if index is
// not in 0..=36.
func NewDataChannel(index uint8) DataChannel {
	if index > 36 {
		panic(fmt.Sprintf("invalid data channel index %d", index))
	}
	return DataChannel{index}
}

// Index returns the raw data channel index, always in 0..=36.
func (c DataChannel) Index() uint8 {
	return c.idx
}

// RFChannel returns the RF channel used for data transmission on this
// channel index. RF channels 1-11 and 13-38 are used for data.
func (c DataChannel) RFChannel() uint8 {
	switch {
	case c.idx <= 10:
		return c.idx + 1
	case c.idx <= 36:
		return c.idx + 2
	default:
		panic(fmt.Sprintf("invalid data channel index %d", c.idx))
	}
}

// Freq returns the center frequency of this channel in MHz.
func (c DataChannel) Freq() uint16 {
	return rfChannelFreq(c.RFChannel())
}

// WhiteningIV returns the data-whitening LFSR seed for this channel.
func (c DataChannel) WhiteningIV() uint8 {
	return whiteningIV(c.idx)
}
