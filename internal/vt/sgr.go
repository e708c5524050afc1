package vt

import (
	"strconv"

	"github.com/mtrellis/conkit/internal/console"
)

// ansiToNative maps an ANSI colour index (0-7) to the native console
// nibble. The permutation preserves the primary-colour bit patterns:
// ANSI counts red-green-blue from bit zero, the console counts
// blue-green-red.
var ansiToNative = [8]console.Attr{0, 4, 2, 6, 1, 5, 3, 7}

// nativeToANSI is the inverse permutation.
var nativeToANSI = [8]int{0, 4, 2, 6, 1, 5, 3, 7}

// IsSGR reports whether seq is a complete SGR escape sequence
// (ESC '[' ... 'm').
func IsSGR(seq []byte) bool {
	return len(seq) >= 3 && seq[0] == esc && seq[1] == csi && seq[len(seq)-1] == 'm'
}

// ApplySGR interprets the SGR sequence seq against the current
// attribute and returns the resulting attribute. dflt is the process
// default colour used by reset codes. Non-SGR sequences return current
// unchanged.
func ApplySGR(seq []byte, current, dflt console.Attr) console.Attr {
	if !IsSGR(seq) {
		return current
	}
	attr := current
	params := seq[2 : len(seq)-1]

	// An empty parameter list means reset, same as a lone zero.
	if len(params) == 0 {
		return dflt &^ console.Underscore
	}

	for len(params) > 0 {
		code := 0
		i := 0
		for i < len(params) && params[i] >= '0' && params[i] <= '9' {
			code = code*10 + int(params[i]-'0')
			i++
		}
		if i < len(params) && params[i] == ';' {
			i++
		}
		if i == 0 {
			// A parameter byte that is neither a digit nor a separator
			// ('?', '=', ...). Nothing recognisable remains; ignore it
			// rather than mistake it for a reset.
			break
		}
		params = params[i:]

		switch {
		case code == 0:
			attr = dflt &^ console.Underscore
		case code == 1:
			attr |= console.FgIntensity
		case code == 4:
			attr |= console.Underscore
		case code == 7:
			attr = attr.Swap()
		case code == 39:
			attr = (attr &^ console.FgMask) | dflt&console.FgMask
		case code == 49:
			attr = (attr &^ console.BgMask) | dflt&console.BgMask
		case code >= 30 && code <= 37:
			attr = (attr &^ console.FgMask) | ansiToNative[code-30]
		case code >= 90 && code <= 97:
			attr = (attr &^ console.FgMask) | ansiToNative[code-90] | console.FgIntensity
		case code >= 40 && code <= 47:
			attr = (attr &^ console.BgMask) | ansiToNative[code-40]<<4
		case code >= 100 && code <= 107:
			attr = (attr &^ console.BgMask) | ansiToNative[code-100]<<4 | console.BgIntensity
		}
	}
	return attr
}

// FormatSGR renders attr as the SGR escape sequence that would
// reproduce it on a VT-capable terminal, relative to the given default
// colour. Used where no attribute API exists and escapes are emitted
// instead.
func FormatSGR(attr, dflt console.Attr) []byte {
	out := []byte{esc, csi, '0'}
	if attr != dflt&^console.Underscore {
		fg := nativeToANSI[attr&console.FgMask&^console.FgIntensity]
		base := 30
		if attr&console.FgIntensity != 0 {
			base = 90
		}
		out = append(out, ';')
		out = strconv.AppendInt(out, int64(base+fg), 10)

		bg := nativeToANSI[(attr&console.BgMask)>>4&0x7]
		bgBase := 40
		if attr&console.BgIntensity != 0 {
			bgBase = 100
		}
		out = append(out, ';')
		out = strconv.AppendInt(out, int64(bgBase+bg), 10)

		if attr&console.Underscore != 0 {
			out = append(out, ';', '4')
		}
	}
	return append(out, 'm')
}
