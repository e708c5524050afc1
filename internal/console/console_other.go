//go:build !windows

package console

// platformCapability returns an empty record: no attribute API exists
// here, so attribute calls report ErrUnsupportedPlatform and output
// paths fall back to emitting VT sequences.
func platformCapability() *Capability {
	return &Capability{}
}
