// Package pathfind locates executables by combining a search-path
// variable, an extension-list variable and the current directory. A
// directory is enumerated once per query; candidate extensions are
// marked against the enumeration and then read out in extension-list
// order, so the PATHEXT ordering decides ties, not directory order.
package pathfind

import (
	"errors"
	"os"
	"strings"

	"github.com/mtrellis/conkit/internal/textbuf"
)

// DefaultPathExt is the extension list used when the PATHEXT variable
// is unset.
const DefaultPathExt = ".com;.exe;.bat;.cmd"

// ErrNotFound is returned when no candidate matches the query.
var ErrNotFound = errors.New("pathfind: executable not found")

// Match is one located candidate.
type Match struct {
	// Path is the full path of the candidate.
	Path string

	// Entry is the directory-enumeration record the candidate came
	// from; nil when the candidate was found by direct probe.
	Entry os.DirEntry
}

// MatchFunc receives every candidate in match-all mode. Returning false
// stops the search. The wildcard branch of the resolver may deliver
// duplicates; that is part of its contract, and Dedupe exists for
// callers that need uniqueness.
type MatchFunc func(Match) bool

// Classification describes what the caller supplied in the query.
type Classification struct {
	// HasPath is set when the query contains a path component.
	HasPath bool

	// HasExtension is set when the query names an extension.
	HasExtension bool
}

// Classify scans the query from right to left: any separator means a
// path component was supplied, and a dot before the first separator
// means an extension was supplied.
func Classify(query string) Classification {
	var c Classification
	for i := len(query) - 1; i >= 0; i-- {
		switch query[i] {
		case '\\', '/', ':':
			c.HasPath = true
			return c
		case '.':
			c.HasExtension = true
		}
	}
	return c
}

// SplitSearchPath splits a search-path variable on semicolons. An
// element beginning with a double quote is bounded by the closing quote
// rather than the next semicolon. Empty elements are dropped.
func SplitSearchPath(value string) []string {
	var out []string
	for len(value) > 0 {
		if value[0] == ';' {
			value = value[1:]
			continue
		}
		var elem string
		if value[0] == '"' {
			end := strings.IndexByte(value[1:], '"')
			if end < 0 {
				elem = value[1:]
				value = ""
			} else {
				elem = value[1 : 1+end]
				value = value[2+end:]
				if len(value) > 0 && value[0] == ';' {
					value = value[1:]
				}
			}
		} else {
			end := strings.IndexByte(value, ';')
			if end < 0 {
				elem = value
				value = ""
			} else {
				elem = value[:end]
				value = value[end+1:]
			}
		}
		if elem != "" {
			out = append(out, elem)
		}
	}
	return out
}

// SplitExtList splits an extension-list variable on semicolons,
// discarding empty components and preserving order.
func SplitExtList(value string) []string {
	var out []string
	for _, ext := range strings.Split(value, ";") {
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

// LookupEnvFold finds an environment variable by case-insensitive name.
func LookupEnvFold(name string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok {
		return v, true
	}
	for _, kv := range os.Environ() {
		if eq := strings.IndexByte(kv, '='); eq >= 0 && textbuf.EqualFold(kv[:eq], name) {
			return kv[eq+1:], true
		}
	}
	return "", false
}

// JoinDirFile appends name to dir with a separator, except when dir is
// exactly a drive letter and colon: inserting a separator there would
// change the meaning from "that drive's current directory" to "that
// drive's root".
func JoinDirFile(dir, name string) string {
	if isDriveOnly(dir) {
		return dir + name
	}
	if strings.HasSuffix(dir, "\\") || strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + string(os.PathSeparator) + name
}

func isDriveOnly(dir string) bool {
	return len(dir) == 2 && dir[1] == ':' &&
		(dir[0] >= 'a' && dir[0] <= 'z' || dir[0] >= 'A' && dir[0] <= 'Z')
}

// Dedupe removes duplicate paths (case-insensitive) while preserving
// first-seen order. The wildcard branch of the resolver documents that
// it may produce duplicates; callers that need uniqueness filter with
// this.
func Dedupe(matches []Match) []Match {
	seen := make(map[string]struct{}, len(matches))
	out := matches[:0]
	for _, m := range matches {
		key := strings.ToLower(m.Path)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Resolver locates executables against one search path and one
// extension list.
type Resolver struct {
	// SearchPath is the raw search-path variable value.
	SearchPath string

	// ExtList is the raw extension-list variable value.
	ExtList string
}

// NewResolver reads PATH and PATHEXT (case-insensitive) from the
// environment, substituting the default extension list when PATHEXT is
// unset.
func NewResolver() *Resolver {
	path, _ := LookupEnvFold("PATH")
	pathExt, ok := LookupEnvFold("PATHEXT")
	if !ok || pathExt == "" {
		pathExt = DefaultPathExt
	}
	return &Resolver{SearchPath: path, ExtList: pathExt}
}

// Locate returns the first match for query, applying the
// classification strategy table.
func (r *Resolver) Locate(query string) (string, error) {
	var found string
	err := r.locate(query, func(m Match) bool {
		found = m.Path
		return false
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", ErrNotFound
	}
	return found, nil
}

// LocateAll invokes cb for every match in search order. The wildcard
// branch may deliver duplicates.
func (r *Resolver) LocateAll(query string, cb MatchFunc) error {
	return r.locate(query, cb)
}

func (r *Resolver) locate(query string, cb MatchFunc) error {
	c := Classify(query)
	exts := SplitExtList(r.extList())

	switch {
	case c.HasPath && c.HasExtension:
		// Direct probe; when absent, fall back to treating the name as
		// an extensionless stem in that directory.
		if info, err := os.Stat(query); err == nil && !info.IsDir() {
			cb(Match{Path: query})
			return nil
		}
		dir, stem := splitQuery(query)
		enumerateAndMark(dir, stem, exts, cb)
		return nil

	case c.HasPath:
		dir, stem := splitQuery(query)
		enumerateAndMark(dir, stem, exts, cb)
		return nil

	case c.HasExtension:
		return r.eachDirectory(func(dir string) bool {
			full := JoinDirFile(dir, query)
			if info, err := os.Stat(full); err == nil && !info.IsDir() {
				return cb(Match{Path: full})
			}
			return true
		})

	default:
		return r.eachDirectory(func(dir string) bool {
			return enumerateAndMark(dir, query, exts, cb)
		})
	}
}

func (r *Resolver) extList() string {
	if r.ExtList == "" {
		return DefaultPathExt
	}
	return r.ExtList
}

// eachDirectory walks the current directory and then the search path
// elements in order. fn returning false stops the walk.
func (r *Resolver) eachDirectory(fn func(dir string) bool) error {
	if !fn(".") {
		return nil
	}
	for _, dir := range SplitSearchPath(r.SearchPath) {
		if !fn(dir) {
			return nil
		}
	}
	return nil
}

func splitQuery(query string) (dir, stem string) {
	for i := len(query) - 1; i >= 0; i-- {
		switch query[i] {
		case '\\', '/':
			return query[:i], query[i+1:]
		case ':':
			return query[:i+1], query[i+1:]
		}
	}
	return ".", query
}

// enumerateAndMark performs one directory enumeration and marks the
// best entry per extension, then emits the marked slots in
// extension-list order. The return value is the callback's continue
// flag; an enumeration failure skips the directory and keeps searching.
func enumerateAndMark(dir, stem string, exts []string, cb MatchFunc) bool {
	wildcard := strings.HasSuffix(stem, "*")
	if wildcard {
		stem = stem[:len(stem)-1]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}

	type slot struct {
		found bool
		entry os.DirEntry
	}
	slots := make([]slot, len(exts))
	var partials []os.DirEntry

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) < len(stem) || !textbuf.EqualFold(name[:len(stem)], stem) {
			continue
		}
		exact := false
		for i, ext := range exts {
			if slots[i].found {
				continue
			}
			// A full match has the stem, then the extension, and
			// nothing in between.
			if len(name) == len(stem)+len(ext) && textbuf.EqualFold(name[len(stem):], ext) {
				slots[i] = slot{found: true, entry: entry}
				exact = true
			}
		}
		if wildcard && !exact && len(name) > len(stem) {
			partials = append(partials, entry)
		}
	}

	for i := range slots {
		if !slots[i].found {
			continue
		}
		if !cb(Match{Path: JoinDirFile(dir, slots[i].entry.Name()), Entry: slots[i].entry}) {
			return false
		}
	}

	// Wildcard partial matches re-enumerate on the matched file's full
	// stem with the full extension list. This can emit entries already
	// delivered above; the duplicate delivery is a documented part of
	// the contract.
	if wildcard {
		for _, entry := range partials {
			full := entry.Name()
			partialStem := strings.TrimSuffix(full, extensionOf(full))
			if !enumerateAndMark(dir, partialStem, exts, cb) {
				return false
			}
		}
	}
	return true
}

func extensionOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case '.':
			return name[i:]
		case '\\', '/':
			return ""
		}
	}
	return ""
}
