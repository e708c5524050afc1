package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/mtrellis/conkit/internal/linereader"
	"github.com/mtrellis/conkit/internal/pathfind"
	"github.com/mtrellis/conkit/internal/textenc"
)

// logger is the shared command logger. Commands log progress at debug
// level so normal runs stay quiet.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "conkit",
})

// newResolver builds a path resolver from the environment, honouring
// the config extension-list override.
func newResolver() *pathfind.Resolver {
	r := pathfind.NewResolver()
	if cfg.Path.Ext != "" {
		r.ExtList = cfg.Path.Ext
	}
	return r
}

// openInput opens the single optional path argument, or stdin when no
// argument is given. The returned closer is a no-op for stdin.
func openInput(args []string) (*os.File, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newLineReader wraps f in a line reader using the process encoding.
func newLineReader(f *os.File) (*linereader.Reader, error) {
	src, err := linereader.NewFileSource(f)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}
	return linereader.New(src, textenc.Active()), nil
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
