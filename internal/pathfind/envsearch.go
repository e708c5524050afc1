package pathfind

import (
	"os"
	"path/filepath"
)

// SearchEnv probes for a fully-specified filename in every directory of
// an environment-variable value, current directory first. The value is
// split like a search path: semicolon separated with quote bounding.
//
// With a callback, every hit is delivered in order until the callback
// returns false; without one the first hit ends the search. The
// returned path is the first hit (resolved to an absolute path when
// fullPath is set), or ErrNotFound.
func SearchEnv(filename, varData string, cb MatchFunc, fullPath bool) (string, error) {
	var first string
	probe := func(dir string) bool {
		candidate := JoinDirFile(dir, filename)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			return true
		}
		if fullPath {
			if abs, err := filepath.Abs(candidate); err == nil {
				candidate = abs
			}
		}
		if first == "" {
			first = candidate
		}
		if cb != nil {
			return cb(Match{Path: candidate})
		}
		return false
	}

	if probe(".") {
		for _, dir := range SplitSearchPath(varData) {
			if !probe(dir) {
				break
			}
		}
	}
	if first == "" {
		return "", ErrNotFound
	}
	return first, nil
}
