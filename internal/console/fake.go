package console

import "os"

// Fake is a capability record backed by memory, for tests. It records
// every attribute set in order and serves a fixed current attribute.
type Fake struct {
	// Current is the attribute served by sampling calls.
	Current Attr

	// Sets is the sequence of attributes applied through the record.
	Sets []Attr
}

// NewFake returns a Fake whose console reports the given attribute.
func NewFake(current Attr) *Fake {
	return &Fake{Current: current}
}

// Capability returns a capability record wired to the fake.
func (f *Fake) Capability() *Capability {
	return &Capability{
		SetTextAttribute: func(_ *os.File, attr Attr) error {
			f.Sets = append(f.Sets, attr)
			f.Current = attr
			return nil
		},
		TextAttributes: func(_ *os.File) (Attr, error) {
			return f.Current, nil
		},
	}
}
