package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrfperiph/blestack/att"
)

func TestDemoAttributeProviderForAttrsInRangeFiltersAndFillsCounter(t *testing.T) {
	p := newDemoAttributeProvider()
	p.Tick()
	p.Tick()

	r, err := att.RawHandleRange{Start: handleCharValue, End: handleCharValue}.Check()
	require.Nil(t, err)

	var got []att.Attribute
	require.NoError(t, p.ForAttrsInRange(r, func(a att.Attribute) error {
		got = append(got, a)
		return nil
	}))

	require.Len(t, got, 1)
	assert.Equal(t, handleCharValue, got[0].Handle)
	assert.Equal(t, "2", string(got[0].Value))
}

func TestDemoAttributeProviderForAttrsInRangeCoversWholeTable(t *testing.T) {
	p := newDemoAttributeProvider()

	r, err := att.RawHandleRange{Start: 0x0001, End: 0xFFFF}.Check()
	require.Nil(t, err)

	var handles []att.Handle
	require.NoError(t, p.ForAttrsInRange(r, func(a att.Attribute) error {
		handles = append(handles, a.Handle)
		return nil
	}))

	assert.Equal(t, []att.Handle{handleService, handleCharacteristic, handleCharValue}, handles)
}

func TestDemoAttributeProviderIsGroupingAttr(t *testing.T) {
	p := newDemoAttributeProvider()
	assert.True(t, p.IsGroupingAttr(uuidServiceDecl))
	assert.False(t, p.IsGroupingAttr(uuidCharDecl))
}

func TestDemoAttributeProviderGroupEnd(t *testing.T) {
	p := newDemoAttributeProvider()

	end, ok := p.GroupEnd(handleService)
	require.True(t, ok)
	assert.Equal(t, handleCharValue, end.Handle)

	_, ok = p.GroupEnd(handleCharacteristic)
	assert.False(t, ok)
}
