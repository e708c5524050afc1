// Package console models the native console: 16-colour text attributes,
// the process default colour, and the capability record through which
// attribute changes are issued.
//
// On Windows the capability record is backed by the console API via
// golang.org/x/sys/windows. Elsewhere attribute calls report
// ErrUnsupportedPlatform and callers are expected to emit VT sequences
// instead; the attribute arithmetic itself is portable and fully
// testable everywhere.
package console

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

// ErrUnsupportedPlatform is returned by capability calls that have no
// backing API on this platform. Callers must check rather than skip.
var ErrUnsupportedPlatform = errors.New("console: operation not supported on this platform")

// Attr is a native console text attribute: a foreground nibble, a
// background nibble, and control rows above them.
type Attr uint16

// Native attribute bits. The low nibble is the foreground, the next
// nibble the background.
const (
	FgBlue      Attr = 0x0001
	FgGreen     Attr = 0x0002
	FgRed       Attr = 0x0004
	FgIntensity Attr = 0x0008
	BgBlue      Attr = 0x0010
	BgGreen     Attr = 0x0020
	BgRed       Attr = 0x0040
	BgIntensity Attr = 0x0080

	// Underscore is the common-LVB underline row.
	Underscore Attr = 0x8000

	// FgMask and BgMask select the colour nibbles.
	FgMask Attr = 0x000f
	BgMask Attr = 0x00f0
)

// FallbackDefault is the default colour used when the process has no
// console to sample: grey on black.
const FallbackDefault Attr = 0x0007

// Swap returns the attribute with foreground and background nibbles
// exchanged, preserving all other bits.
func (a Attr) Swap() Attr {
	return (a &^ (FgMask | BgMask)) | (a&FgMask)<<4 | (a&BgMask)>>4
}

// Foreground returns just the foreground nibble.
func (a Attr) Foreground() Attr { return a & FgMask }

// Background returns just the background nibble.
func (a Attr) Background() Attr { return a & BgMask }

// Capability is the record of console operations available to the
// process, populated once at start-up. The zero value has no console.
type Capability struct {
	// SetTextAttribute applies a text attribute to the console attached
	// to f. Nil when the platform has no attribute API.
	SetTextAttribute func(f *os.File, attr Attr) error

	// TextAttributes samples the current attribute of the console
	// attached to f. Nil when the platform has no attribute API.
	TextAttributes func(f *os.File) (Attr, error)
}

// Detect returns the capability record for this platform.
func Detect() *Capability {
	return platformCapability()
}

// IsConsole reports whether f is attached to an interactive console
// rather than a file or pipe.
func IsConsole(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Set applies attr through the capability, or reports
// ErrUnsupportedPlatform when the capability is absent.
func (c *Capability) Set(f *os.File, attr Attr) error {
	if c == nil || c.SetTextAttribute == nil {
		return ErrUnsupportedPlatform
	}
	return c.SetTextAttribute(f, attr)
}

// Current samples the console attribute through the capability.
func (c *Capability) Current(f *os.File) (Attr, error) {
	if c == nil || c.TextAttributes == nil {
		return 0, ErrUnsupportedPlatform
	}
	return c.TextAttributes(f)
}

// defaultColor packs an Attr plus a "sampled" bit into one atomic word.
// The first writer wins; concurrent first samplers converge because
// they all read the same console attribute.
var defaultColor atomic.Uint32

const defaultColorValid = 1 << 16

// DefaultColor returns the process default colour. On first use it is
// sampled from the console attached to stdout; without a console the
// fallback of grey on black is used.
func DefaultColor() Attr {
	if v := defaultColor.Load(); v&defaultColorValid != 0 {
		return Attr(v)
	}
	attr := FallbackDefault
	if capability := Detect(); capability != nil {
		if sampled, err := capability.Current(os.Stdout); err == nil {
			attr = sampled
		}
	}
	defaultColor.CompareAndSwap(0, uint32(attr)|defaultColorValid)
	return Attr(defaultColor.Load())
}

// SetDefaultColor overrides the process default colour.
func SetDefaultColor(attr Attr) {
	defaultColor.Store(uint32(attr) | defaultColorValid)
}

// ResetDefaultColorForTest clears the holder so tests can exercise the
// lazy sampling path.
func ResetDefaultColorForTest() {
	defaultColor.Store(0)
}

// Ctrl carries the control bits of a composed Color: which halves track
// the window colour, whether evaluation continues past this rule, and
// whether the nibbles are inverted on resolution.
type Ctrl uint8

const (
	// CtrlWindowBg means the background half follows the window colour.
	CtrlWindowBg Ctrl = 0x01

	// CtrlWindowFg means the foreground half follows the window colour.
	CtrlWindowFg Ctrl = 0x02

	// CtrlInvert swaps foreground and background when the colour is
	// resolved.
	CtrlInvert Ctrl = 0x04

	// CtrlContinue keeps rule evaluation going after a match instead of
	// terminating with this colour.
	CtrlContinue Ctrl = 0x08

	// CtrlTerminateMask selects the bits that make a colour "real":
	// anything outside CtrlContinue.
	CtrlTerminateMask Ctrl = CtrlWindowBg | CtrlWindowFg | CtrlInvert
)

// Color is a console attribute extended with control bits, as produced
// by colour rules.
type Color struct {
	Ctrl Ctrl
	Attr Attr
}

// WindowDefault is the starting accumulator for colour-rule
// evaluation: both halves track the window, no attribute bits.
func WindowDefault() Color {
	return Color{Ctrl: CtrlWindowBg | CtrlWindowFg}
}

// Combine overlays other onto c: halves that other takes from the
// window keep c's contribution, others are replaced.
func (c Color) Combine(other Color) Color {
	out := Color{Ctrl: other.Ctrl, Attr: other.Attr}
	if other.Ctrl&CtrlWindowFg != 0 {
		out.Attr = (out.Attr &^ FgMask) | c.Attr&FgMask
		out.Ctrl &^= CtrlWindowFg
		out.Ctrl |= c.Ctrl & CtrlWindowFg
	}
	if other.Ctrl&CtrlWindowBg != 0 {
		out.Attr = (out.Attr &^ BgMask) | c.Attr&BgMask
		out.Ctrl &^= CtrlWindowBg
		out.Ctrl |= c.Ctrl & CtrlWindowBg
	}
	return out
}

// Resolve produces the final attribute, taking window halves from
// window and honouring CtrlInvert.
func (c Color) Resolve(window Attr) Attr {
	attr := c.Attr
	if c.Ctrl&CtrlWindowFg != 0 {
		attr = (attr &^ FgMask) | window&FgMask
	}
	if c.Ctrl&CtrlWindowBg != 0 {
		attr = (attr &^ BgMask) | window&BgMask
	}
	if c.Ctrl&CtrlInvert != 0 {
		attr = attr.Swap()
	}
	return attr
}

// colorNames maps colour names to foreground nibble values.
var colorNames = map[string]Attr{
	"black":   0,
	"blue":    FgBlue,
	"green":   FgGreen,
	"cyan":    FgBlue | FgGreen,
	"red":     FgRed,
	"magenta": FgBlue | FgRed,
	"brown":   FgGreen | FgRed,
	"yellow":  FgGreen | FgRed | FgIntensity,
	"gray":    FgBlue | FgGreen | FgRed,
	"grey":    FgBlue | FgGreen | FgRed,
	"white":   FgMask,
}

// ParseColor parses a colour specification: '+'-separated terms drawn
// from colour names ("blue", "bg_red"), "bright", "bg_bright",
// "invert", "continue", "window_fg" and "window_bg". An empty spec
// yields the window colour.
func ParseColor(spec string) (Color, error) {
	out := WindowDefault()
	for _, term := range strings.Split(spec, "+") {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		switch term {
		case "bright":
			out.Attr |= FgIntensity
			continue
		case "bg_bright":
			out.Attr |= BgIntensity
			continue
		case "invert":
			out.Ctrl |= CtrlInvert
			continue
		case "continue":
			out.Ctrl |= CtrlContinue
			continue
		case "window_fg":
			out.Ctrl |= CtrlWindowFg
			continue
		case "window_bg":
			out.Ctrl |= CtrlWindowBg
			continue
		case "underline":
			out.Attr |= Underscore
			continue
		}
		if name, ok := strings.CutPrefix(term, "fg="); ok {
			term = name
		}
		if name, ok := cutAny(term, "bg_", "bg="); ok {
			nibble, found := colorNames[name]
			if !found {
				return Color{}, fmt.Errorf("console: unknown colour %q", term)
			}
			out.Attr = (out.Attr &^ BgMask) | (nibble&FgMask)<<4
			out.Ctrl &^= CtrlWindowBg
			continue
		}
		nibble, found := colorNames[term]
		if !found {
			return Color{}, fmt.Errorf("console: unknown colour %q", term)
		}
		out.Attr = (out.Attr &^ FgMask) | nibble
		out.Ctrl &^= CtrlWindowFg
	}
	return out, nil
}

func cutAny(s string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(s, p); ok {
			return rest, true
		}
	}
	return s, false
}
