package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mtrellis/conkit/internal/textbuf"
)

var errUnsupportedMetadata = errors.New("filter: metadata not available on this platform")

// Outcome is the result of an ordered comparison.
type Outcome int

const (
	Less Outcome = iota
	Equal
	Greater
)

// Value is a parsed right-hand side. Exactly one field is meaningful,
// chosen by the attribute's parser.
type Value struct {
	Int  int64
	Str  string
	Time time.Time
}

// Attribute is one entry of the closed attribute catalogue. Collect
// populates the record's holder; the comparison functions read what it
// collected.
type Attribute struct {
	// Tag is the two-letter key used in predicate expressions.
	Tag string

	// Name is the display name used in diagnostics.
	Name string

	// CollectKey identifies the collector. Attributes sharing a key
	// (the time and date pairs) collect the same metadata, so a
	// compiled expression runs that collector once per record.
	CollectKey string

	// Collect gathers the attribute's metadata into the record.
	Collect func(rec *Record) error

	// Compare orders the collected value against rhs. Nil when the
	// attribute supports no ordered comparison.
	Compare func(rec *Record, rhs Value) Outcome

	// CompareBits tests the collected value against rhs bitwise (or by
	// wildcard for name attributes). Nil when unsupported.
	CompareBits func(rec *Record, rhs Value) bool

	// Parse converts the textual right-hand side to a Value.
	Parse func(s string) (Value, error)
}

// catalog is keyed by two-letter tag.
var catalog = map[string]*Attribute{}

func register(a *Attribute) {
	catalog[a.Tag] = a
}

// Lookup returns the catalogue entry for tag, nil when unknown.
func Lookup(tag string) *Attribute {
	return catalog[strings.ToLower(tag)]
}

func init() {
	register(&Attribute{
		Tag:        "fs",
		Name:       "file size",
		CollectKey: "size",
		Collect:    (*Record).collectSize,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(rec.size, rhs.Int)
		},
		Parse: parseSize,
	})
	register(&Attribute{
		Tag:        "as",
		Name:       "allocation size",
		CollectKey: "allocsize",
		Collect:    (*Record).collectAllocSize,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(rec.allocSize, rhs.Int)
		},
		Parse: parseSize,
	})
	register(&Attribute{
		Tag:        "fa",
		Name:       "file attributes",
		CollectKey: "attrs",
		Collect:    (*Record).collectAttrs,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(int64(rec.attrs), rhs.Int)
		},
		CompareBits: func(rec *Record, rhs Value) bool {
			return int64(rec.attrs)&rhs.Int == rhs.Int
		},
		Parse: parseAttrLetters,
	})
	register(&Attribute{
		Tag:        "fe",
		Name:       "file extension",
		CollectKey: "name",
		Collect:    func(*Record) error { return nil },
		Compare: func(rec *Record, rhs Value) Outcome {
			return foldOutcome(textbuf.CompareFold(rec.Ext(), rhs.Str))
		},
		CompareBits: func(rec *Record, rhs Value) bool {
			return wildcardMatch(rhs.Str, rec.Ext())
		},
		Parse: parseString,
	})
	register(&Attribute{
		Tag:        "fn",
		Name:       "file name",
		CollectKey: "name",
		Collect:    func(*Record) error { return nil },
		Compare: func(rec *Record, rhs Value) Outcome {
			return foldOutcome(textbuf.CompareFold(rec.Name, rhs.Str))
		},
		CompareBits: func(rec *Record, rhs Value) bool {
			return wildcardMatch(rhs.Str, rec.Name)
		},
		Parse: parseString,
	})
	register(&Attribute{
		Tag:        "lc",
		Name:       "link count",
		CollectKey: "links",
		Collect:    (*Record).collectLinkCount,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(rec.linkCount, rhs.Int)
		},
		Parse: parseInt,
	})

	register(&Attribute{
		Tag:        "cs",
		Name:       "compressed size",
		CollectKey: "csize",
		Collect:    (*Record).collectCompressedSize,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(rec.compressedSize, rhs.Int)
		},
		Parse: parseSize,
	})
	register(&Attribute{
		Tag:        "rc",
		Name:       "allocated range count",
		CollectKey: "ranges",
		Collect:    (*Record).collectRangeCount,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(rec.rangeCount, rhs.Int)
		},
		Parse: parseInt,
	})
	register(&Attribute{
		Tag:        "fc",
		Name:       "fragment count",
		CollectKey: "frags",
		Collect:    (*Record).collectFragCount,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(rec.fragCount, rhs.Int)
		},
		Parse: parseInt,
	})
	register(&Attribute{
		Tag:        "sc",
		Name:       "stream count",
		CollectKey: "streams",
		Collect:    (*Record).collectStreamCount,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(rec.streamCount, rhs.Int)
		},
		Parse: parseInt,
	})
	register(&Attribute{
		Tag:        "ca",
		Name:       "CPU architecture",
		CollectKey: "image",
		Collect:    (*Record).collectImage,
		Compare: func(rec *Record, rhs Value) Outcome {
			return foldOutcome(textbuf.CompareFold(rec.imageArch, rhs.Str))
		},
		CompareBits: func(rec *Record, rhs Value) bool {
			return wildcardMatch(rhs.Str, rec.imageArch)
		},
		Parse: parseString,
	})
	register(&Attribute{
		Tag:        "ss",
		Name:       "subsystem",
		CollectKey: "image",
		Collect:    (*Record).collectImage,
		Compare: func(rec *Record, rhs Value) Outcome {
			return foldOutcome(textbuf.CompareFold(rec.imageSubsystem, rhs.Str))
		},
		CompareBits: func(rec *Record, rhs Value) bool {
			return wildcardMatch(rhs.Str, rec.imageSubsystem)
		},
		Parse: parseString,
	})
	register(&Attribute{
		Tag:        "os",
		Name:       "minimum OS version",
		CollectKey: "image",
		Collect:    (*Record).collectImage,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(rec.imageMinOS, rhs.Int)
		},
		Parse: parseVersion,
	})
	register(&Attribute{
		Tag:        "vr",
		Name:       "file version",
		CollectKey: "verinfo",
		Collect:    (*Record).collectVersionInfo,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(rec.fileVersion, rhs.Int)
		},
		Parse: parseVersion,
	})
	register(&Attribute{
		Tag:        "de",
		Name:       "file description",
		CollectKey: "verinfo",
		Collect:    (*Record).collectVersionInfo,
		Compare: func(rec *Record, rhs Value) Outcome {
			return foldOutcome(textbuf.CompareFold(rec.description, rhs.Str))
		},
		CompareBits: func(rec *Record, rhs Value) bool {
			return wildcardMatch(rhs.Str, rec.description)
		},
		Parse: parseString,
	})
	register(&Attribute{
		Tag:        "ep",
		Name:       "effective permissions",
		CollectKey: "perms",
		Collect:    (*Record).collectPerms,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(int64(rec.perms), rhs.Int)
		},
		CompareBits: func(rec *Record, rhs Value) bool {
			return int64(rec.perms)&rhs.Int == rhs.Int
		},
		Parse: parsePerms,
	})
	register(&Attribute{
		Tag:        "sn",
		Name:       "short name",
		CollectKey: "shortname",
		Collect:    (*Record).collectShortName,
		Compare: func(rec *Record, rhs Value) Outcome {
			return foldOutcome(textbuf.CompareFold(rec.shortName, rhs.Str))
		},
		CompareBits: func(rec *Record, rhs Value) bool {
			return wildcardMatch(rhs.Str, rec.shortName)
		},
		Parse: parseString,
	})
	register(&Attribute{
		Tag:        "ow",
		Name:       "owner",
		CollectKey: "owner",
		Collect:    (*Record).collectOwner,
		Compare: func(rec *Record, rhs Value) Outcome {
			return foldOutcome(textbuf.CompareFold(rec.owner, rhs.Str))
		},
		CompareBits: func(rec *Record, rhs Value) bool {
			return wildcardMatch(rhs.Str, rec.owner)
		},
		Parse: parseString,
	})
	register(&Attribute{
		Tag:        "oi",
		Name:       "object id",
		CollectKey: "objid",
		Collect:    (*Record).collectObjectID,
		Compare: func(rec *Record, rhs Value) Outcome {
			return foldOutcome(textbuf.CompareFold(rec.objectID, rhs.Str))
		},
		CompareBits: func(rec *Record, rhs Value) bool {
			return wildcardMatch(rhs.Str, rec.objectID)
		},
		Parse: parseString,
	})
	register(&Attribute{
		Tag:        "us",
		Name:       "update sequence number",
		CollectKey: "usn",
		Collect:    (*Record).collectUSN,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(rec.usn, rhs.Int)
		},
		Parse: parseInt,
	})
	register(&Attribute{
		Tag:        "rt",
		Name:       "reparse tag",
		CollectKey: "rtag",
		Collect:    (*Record).collectReparseTag,
		Compare: func(rec *Record, rhs Value) Outcome {
			return compareInt(int64(rec.reparseTag), rhs.Int)
		},
		Parse: parseInt,
	})

	timeAttrs := []struct {
		tag, name string
		date      bool
		key       string
		collect   func(*Record) error
		field     func(rec *Record) time.Time
	}{
		{"wd", "write date", true, "wtime", (*Record).collectWriteTime, func(r *Record) time.Time { return r.writeTime }},
		{"wt", "write time", false, "wtime", (*Record).collectWriteTime, func(r *Record) time.Time { return r.writeTime }},
		{"ad", "access date", true, "times", (*Record).collectTimes, func(r *Record) time.Time { return r.accessTime }},
		{"at", "access time", false, "times", (*Record).collectTimes, func(r *Record) time.Time { return r.accessTime }},
		{"cd", "create date", true, "times", (*Record).collectTimes, func(r *Record) time.Time { return r.createTime }},
		{"ct", "create time", false, "times", (*Record).collectTimes, func(r *Record) time.Time { return r.createTime }},
	}
	for _, ta := range timeAttrs {
		field := ta.field
		date := ta.date
		register(&Attribute{
			Tag:        ta.tag,
			Name:       ta.name,
			CollectKey: ta.key,
			Collect:    ta.collect,
			Compare: func(rec *Record, rhs Value) Outcome {
				if date {
					return compareDate(field(rec), rhs.Time)
				}
				return compareTimeOfDay(field(rec), rhs.Time)
			},
			Parse: func(s string) (Value, error) {
				if date {
					return parseDate(s)
				}
				return parseTimeOfDay(s)
			},
		})
	}
}

func compareInt(a, b int64) Outcome {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	}
	return Equal
}

func foldOutcome(c int) Outcome {
	switch {
	case c < 0:
		return Less
	case c > 0:
		return Greater
	}
	return Equal
}

func compareDate(a, b time.Time) Outcome {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if c := compareInt(int64(ay), int64(by)); c != Equal {
		return c
	}
	if c := compareInt(int64(am), int64(bm)); c != Equal {
		return c
	}
	return compareInt(int64(ad), int64(bd))
}

func compareTimeOfDay(a, b time.Time) Outcome {
	as := a.Hour()*3600 + a.Minute()*60 + a.Second()
	bs := b.Hour()*3600 + b.Minute()*60 + b.Second()
	return compareInt(int64(as), int64(bs))
}

func parseString(s string) (Value, error) {
	return Value{Str: s}, nil
}

// parseInt accepts decimal, hexadecimal (0x) and octal (leading 0)
// counts; the whole value must be consumed.
func parseInt(s string) (Value, error) {
	s = strings.TrimSpace(s)
	n, consumed := textbuf.ParseNumber(s, true)
	if consumed == 0 || consumed != len(s) {
		return Value{}, fmt.Errorf("filter: bad number %q", s)
	}
	return Value{Int: n}, nil
}

// parseSize accepts a decimal count with an optional k/m/g suffix in
// units of 1024.
func parseSize(s string) (Value, error) {
	s = strings.TrimSpace(s)
	mult := int64(1)
	if len(s) > 0 {
		switch s[len(s)-1] {
		case 'k', 'K':
			mult = 1 << 10
			s = s[:len(s)-1]
		case 'm', 'M':
			mult = 1 << 20
			s = s[:len(s)-1]
		case 'g', 'G':
			mult = 1 << 30
			s = s[:len(s)-1]
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("filter: bad size %q", s)
	}
	return Value{Int: n * mult}, nil
}

// attrLetters lists the accepted file-attribute letters.
const attrLetters = "rhsdalcp"

// parseAttrLetters converts an attribute letter set ("rhsd...") to the
// Attr bitmask.
func parseAttrLetters(s string) (Value, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if n := textbuf.Span(lower, attrLetters); n < len(lower) {
		return Value{}, fmt.Errorf("filter: unknown attribute letter %q", string(lower[n]))
	}
	var mask uint32
	for i := 0; i < len(lower); i++ {
		switch lower[i] {
		case 'r':
			mask |= AttrReadOnly
		case 'h':
			mask |= AttrHidden
		case 's':
			mask |= AttrSystem
		case 'd':
			mask |= AttrDirectory
		case 'a':
			mask |= AttrArchive
		case 'l':
			mask |= AttrReparse
		case 'c':
			mask |= AttrCompressed
		case 'p':
			mask |= AttrSparse
		}
	}
	return Value{Int: int64(mask)}, nil
}

// parseVersion accepts "major.minor" or a bare major, packed into one
// ordered integer with the major number in the high half.
func parseVersion(s string) (Value, error) {
	s = strings.TrimSpace(s)
	major, n := textbuf.ParseNumber(s, false)
	if n == 0 {
		return Value{}, fmt.Errorf("filter: bad version %q", s)
	}
	var minor int64
	if rest := s[n:]; rest != "" {
		if rest[0] != '.' {
			return Value{}, fmt.Errorf("filter: bad version %q", s)
		}
		var k int
		minor, k = textbuf.ParseNumber(rest[1:], false)
		if k == 0 || k != len(rest)-1 {
			return Value{}, fmt.Errorf("filter: bad version %q", s)
		}
	}
	return Value{Int: major<<16 | minor}, nil
}

// parsePerms accepts permission letters r, w, x for the owning class,
// or a numeric mode (leading 0 selects octal).
func parsePerms(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if n, consumed := textbuf.ParseNumber(s, false); consumed > 0 && consumed == len(s) {
		return Value{Int: n & 0o777}, nil
	}
	lower := strings.ToLower(s)
	if n := textbuf.Span(lower, "rwx"); n < len(lower) {
		return Value{}, fmt.Errorf("filter: unknown permission letter %q", string(lower[n]))
	}
	var mask int64
	for i := 0; i < len(lower); i++ {
		switch lower[i] {
		case 'r':
			mask |= 0o400
		case 'w':
			mask |= 0o200
		case 'x':
			mask |= 0o100
		}
	}
	return Value{Int: mask}, nil
}

// parseDate accepts yyyy/mm/dd or yyyy-mm-dd.
func parseDate(s string) (Value, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006/01/02", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Value{Time: t}, nil
		}
	}
	return Value{}, fmt.Errorf("filter: bad date %q", s)
}

// parseTimeOfDay accepts hh:mm:ss or hh:mm.
func parseTimeOfDay(s string) (Value, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Value{Time: t}, nil
		}
	}
	return Value{}, fmt.Errorf("filter: bad time %q", s)
}

// wildcardMatch reports whether name matches pattern, where '*' matches
// any run and '?' any single character, case-insensitively.
func wildcardMatch(pattern, name string) bool {
	p, n := 0, 0
	starP, starN := -1, 0
	for n < len(name) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || equalFoldByte(pattern[p], name[n])):
			p++
			n++
		case p < len(pattern) && pattern[p] == '*':
			starP = p
			starN = n
			p++
		case starP >= 0:
			starN++
			n = starN
			p = starP + 1
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

func equalFoldByte(a, b byte) bool {
	if a >= 'A' && a <= 'Z' {
		a += 'a' - 'A'
	}
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	return a == b
}
