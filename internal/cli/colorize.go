package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtrellis/conkit/internal/console"
	"github.com/mtrellis/conkit/internal/textenc"
	"github.com/mtrellis/conkit/internal/vt"
)

var (
	colorizeStrip    bool
	colorizePass     bool
	colorizeToStderr bool
)

var colorizeCmd = &cobra.Command{
	Use:   "colorize [file]",
	Short: "Run text through the escape pipeline",
	Long: `Read a file or stdin and write it through the escape pipeline.

On a console, SGR colour sequences become native attribute calls where
the platform has them. Elsewhere sequences are stripped, or forwarded
untouched with --passthrough. Line endings are normalized on file
output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if colorizeStrip && colorizePass {
			return fmt.Errorf("--strip and --passthrough are mutually exclusive")
		}

		in, closeIn, err := openInput(args)
		if err != nil {
			return err
		}
		defer closeIn()

		out := os.Stdout
		flags := vt.Flags(0)
		if colorizeToStderr {
			out = os.Stderr
			flags |= vt.FlagStderr
		}
		if colorizeStrip {
			flags |= vt.FlagStripVT
		}
		if colorizePass {
			flags |= vt.FlagPassthroughVT
		}

		mode := vt.SelectMode(out, flags)
		logger.Debug("colorize", "mode", mode)
		sink := vt.NewSink(out, mode, console.Detect(), textenc.Active())
		p := vt.NewPipeline(sink)

		buf := make([]byte, 32*1024)
		for {
			n, err := in.Read(buf)
			if n > 0 {
				if werr := p.Write(buf[:n]); werr != nil {
					return werr
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
		}
		return p.Close()
	},
}

func init() {
	colorizeCmd.Flags().BoolVar(&colorizeStrip, "strip", false, "Remove escape sequences from the output")
	colorizeCmd.Flags().BoolVar(&colorizePass, "passthrough", false, "Forward escape sequences untouched")
	colorizeCmd.Flags().BoolVar(&colorizeToStderr, "stderr", false, "Write to standard error")
}
