package main

import (
	"fmt"
	"sync/atomic"

	"github.com/nrfperiph/blestack/att"
	"github.com/nrfperiph/blestack/bytes"
)

// demoAttributeProvider hosts a single GATT service with one readable
// characteristic whose value is a monotonically increasing counter, the
// same "count" example paypal-gatt's own sample.go demonstrates. It exists
// to give the demo something to Read By Type/Read over; nothing here
// attempts to be a general-purpose GATT database (no full attribute
// database is in scope).
type demoAttributeProvider struct {
	attrs   []att.Attribute
	counter atomic.Uint32
}

const (
	handleService        att.Handle = 0x0001
	handleCharacteristic att.Handle = 0x0002
	handleCharValue      att.Handle = 0x0003
)

var (
	uuidServiceDecl    = att.UUID16(0x2800)
	uuidCharDecl       = att.UUID16(0x2803)
	uuidCounterService = att.UUID16(0xFFF0)
	uuidCounterValue   = att.UUID16(0xFFF1)
)

func newDemoAttributeProvider() *demoAttributeProvider {
	p := &demoAttributeProvider{}
	p.attrs = []att.Attribute{
		{Handle: handleService, Type: uuidServiceDecl, Value: p.serviceDeclValue()},
		{Handle: handleCharacteristic, Type: uuidCharDecl, Value: p.charDeclValue()},
		{Handle: handleCharValue, Type: uuidCounterValue, Value: nil},
	}
	return p
}

func (p *demoAttributeProvider) serviceDeclValue() []byte {
	var buf [16]byte
	w := bytes.NewWriter(buf[:])
	_ = uuidCounterService.ToBytes(w)
	return buf[:len(buf)-w.SpaceLeft()]
}

func (p *demoAttributeProvider) charDeclValue() []byte {
	var buf [19]byte
	w := bytes.NewWriter(buf[:])
	_ = w.WriteU8(0x02) // read-only
	_ = w.WriteU16LE(uint16(handleCharValue))
	_ = uuidCounterValue.ToBytes(w)
	return buf[:len(buf)-w.SpaceLeft()]
}

// ForAttrsInRange implements att.AttributeProvider.
func (p *demoAttributeProvider) ForAttrsInRange(r att.HandleRange, f func(att.Attribute) error) error {
	for _, a := range p.attrs {
		if !r.Contains(a.Handle) {
			continue
		}
		out := a
		if a.Handle == handleCharValue {
			out.Value = []byte(fmt.Sprintf("%d", p.counter.Load()))
		}
		if err := f(out); err != nil {
			return err
		}
	}
	return nil
}

// IsGroupingAttr implements att.AttributeProvider.
func (p *demoAttributeProvider) IsGroupingAttr(uuid att.UUID) bool {
	return uuid.Equal(uuidServiceDecl)
}

// GroupEnd implements att.AttributeProvider.
func (p *demoAttributeProvider) GroupEnd(handle att.Handle) (att.Attribute, bool) {
	if handle != handleService {
		return att.Attribute{}, false
	}
	return p.attrs[len(p.attrs)-1], true
}

// Tick advances the demo counter; the responder loop calls this on every
// responder tick so a connected central watching the characteristic via
// repeated reads sees it change.
func (p *demoAttributeProvider) Tick() {
	p.counter.Add(1)
}
