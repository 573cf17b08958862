package phy

import (
	"fmt"
	"math/bits"
)

// ChannelMap marks each of the 37 data channels as used or unused. A valid
// map marks at least 2 channels as used (enforced by callers that accept a
// ChannelMap from a peer; this type itself just stores the bitmap).
type ChannelMap struct {
	raw            [5]byte
	numUsedChannels uint8
}

// ChannelMapFromRaw builds a ChannelMap from the 5-byte `ChM` field of a
// CONNECT_IND PDU. Byte 0's LSb is channel 0; the top 3 bits of byte 4 are
// reserved for future use and are masked off.
func ChannelMapFromRaw(raw [5]byte) ChannelMap {
	raw[4] &= 0b0001_1111
	var used uint8
	for _, b := range raw {
		used += uint8(bits.OnesCount8(b))
	}
	return ChannelMap{raw: raw, numUsedChannels: used}
}

// AllChannelsUsed returns a ChannelMap marking every data channel as used.
func AllChannelsUsed() ChannelMap {
	return ChannelMap{raw: [5]byte{0xff, 0xff, 0xff, 0xff, 0b0001_1111}, numUsedChannels: 37}
}

// NumUsedChannels returns how many data channels are marked used.
func (m ChannelMap) NumUsedChannels() uint8 {
	return m.numUsedChannels
}

// Raw returns the underlying 5-byte bitmap, RFU bits already masked.
func (m ChannelMap) Raw() [5]byte {
	return m.raw
}

// IsUsed reports whether the given data channel is marked used.
func (m ChannelMap) IsUsed(ch DataChannel) bool {
	b := m.raw[ch.Index()/8]
	bit := ch.Index() % 8
	return b&(1<<bit) != 0
}

// IterUsed calls f for every data channel marked used, in ascending index
// order, until f returns false.
func (m ChannelMap) IterUsed(f func(DataChannel) bool) {
	for byteIdx, b := range m.raw {
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			if b&(1<<uint(bitIdx)) == 0 {
				continue
			}
			idx := byteIdx*8 + bitIdx
			if idx > 36 {
				continue
			}
			if !f(NewDataChannel(uint8(idx))) {
				return
			}
		}
	}
}

// ByIndex returns the n-th channel (0-based) marked as used. Panics if
// n >= NumUsedChannels().
func (m ChannelMap) ByIndex(n uint8) DataChannel {
	var seen uint8
	var result DataChannel
	found := false
	m.IterUsed(func(ch DataChannel) bool {
		if seen == n {
			result = ch
			found = true
			return false
		}
		seen++
		return true
	})
	if !found {
		panic(fmt.Sprintf("ByIndex: index %d out of bounds (only %d used channels)", n, m.numUsedChannels))
	}
	return result
}

func (m ChannelMap) String() string {
	s := ""
	for _, b := range m.raw[:4] {
		s += fmt.Sprintf("%08b", bits.Reverse8(b))
	}
	s += fmt.Sprintf("%05b", bits.Reverse8(m.raw[4])>>3)
	return s
}
