package phy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvertisingChannelRFMapping(t *testing.T) {
	cases := []struct {
		idx uint8
		rf  uint8
	}{{37, 0}, {38, 12}, {39, 39}}
	for _, c := range cases {
		ch := AdvertisingChannel{idx: c.idx}
		assert.Equal(t, c.rf, ch.RFChannel())
	}
}

func TestDataChannelRFMapping(t *testing.T) {
	assert.Equal(t, uint8(1), NewDataChannel(0).RFChannel())
	assert.Equal(t, uint8(11), NewDataChannel(10).RFChannel())
	assert.Equal(t, uint8(13), NewDataChannel(11).RFChannel())
	assert.Equal(t, uint8(38), NewDataChannel(36).RFChannel())
}

func TestAdvertisingChannelCycle(t *testing.T) {
	c := FirstAdvertisingChannel()
	assert.Equal(t, uint8(37), c.Index())
	c = c.Cycle()
	assert.Equal(t, uint8(38), c.Index())
	c = c.Cycle()
	assert.Equal(t, uint8(39), c.Index())
	c = c.Cycle()
	assert.Equal(t, uint8(37), c.Index())
}

func TestChannelMapMasksRFUBits(t *testing.T) {
	m := ChannelMapFromRaw([5]byte{0xff, 0xff, 0xff, 0xff, 0xff})
	assert.Equal(t, uint8(37), m.NumUsedChannels())
	assert.Equal(t, AllChannelsUsed(), m)
}

func TestChannelMapIterUsedAscending(t *testing.T) {
	m := ChannelMapFromRaw([5]byte{0b0000_0101, 0, 0, 0, 0})
	var got []uint8
	m.IterUsed(func(ch DataChannel) bool {
		got = append(got, ch.Index())
		return true
	})
	assert.Equal(t, []uint8{0, 2}, got)
	assert.Equal(t, uint8(2), m.NumUsedChannels())
	assert.Equal(t, DataChannel{idx: 0}, m.ByIndex(0))
	assert.Equal(t, DataChannel{idx: 2}, m.ByIndex(1))
}

func TestChannelMapByIndexPanicsOutOfBounds(t *testing.T) {
	m := ChannelMapFromRaw([5]byte{0b1, 0, 0, 0, 0})
	require.Panics(t, func() { m.ByIndex(1) })
}

func TestWhitenIsSelfInverse(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03}
	orig := append([]byte(nil), data...)
	iv := FirstAdvertisingChannel().WhiteningIV()
	Whiten(data, iv)
	assert.NotEqual(t, orig, data)
	Whiten(data, iv)
	assert.Equal(t, orig, data)
}

func TestCRC24DeterministicForSameInput(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	a := CRC24(data, AdvertisingCRCInit)
	b := CRC24(data, AdvertisingCRCInit)
	assert.Equal(t, a, b)
	assert.LessOrEqual(t, a, uint32(0xFFFFFF))

	c := CRC24(data, 0x123456)
	assert.NotEqual(t, a, c)
}
