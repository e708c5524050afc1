package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtrellis/conkit/internal/linereader"
	"github.com/mtrellis/conkit/internal/vt"
)

var (
	linesTimeout      time.Duration
	linesFinalPartial bool
	linesNumber       bool
	linesEndings      bool
)

var linesCmd = &cobra.Command{
	Use:   "lines [file]",
	Short: "Read a file or pipe line by line",
	Long: `Read lines from a file or stdin, decoding the input encoding and
normalizing line endings on output.

Pipes are read with backoff polling; --timeout bounds how long a read
may starve before giving up. A final line without a terminator is
dropped unless --final-partial is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, closeIn, err := openInput(args)
		if err != nil {
			return err
		}
		defer closeIn()

		reader, err := newLineReader(in)
		if err != nil {
			return err
		}
		defer reader.CloseOrCache()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := linereader.Options{
			Timeout:            linesTimeout,
			ReturnFinalPartial: linesFinalPartial,
		}

		n := 0
		for {
			line, ending, err := reader.ReadLine(ctx, opts)
			switch {
			case err == nil:
			case errors.Is(err, io.EOF):
				logger.Debug("done", "lines", n)
				return nil
			case errors.Is(err, linereader.ErrTimedOut):
				PrintWarning(fmt.Sprintf("no data for %s", linesTimeout))
				return err
			case errors.Is(err, linereader.ErrCancelled):
				return err
			case errors.Is(err, linereader.ErrLineTooLong):
				PrintError("line exceeds the buffer limit")
				return err
			default:
				return err
			}
			n++

			switch {
			case linesNumber && linesEndings:
				err = vt.Output(vt.FlagStdout, "%6d  %-4s  %s\n", n, ending, line)
			case linesNumber:
				err = vt.Output(vt.FlagStdout, "%6d  %s\n", n, line)
			case linesEndings:
				err = vt.Output(vt.FlagStdout, "%-4s  %s\n", ending, line)
			default:
				err = vt.Output(vt.FlagStdout, "%s\n", line)
			}
			if err != nil {
				return err
			}
		}
	},
}

func init() {
	linesCmd.Flags().DurationVar(&linesTimeout, "timeout", 0, "Give up after this long without data (0 waits forever)")
	linesCmd.Flags().BoolVar(&linesFinalPartial, "final-partial", false, "Emit a final line that lacks a terminator")
	linesCmd.Flags().BoolVarP(&linesNumber, "number", "n", false, "Prefix each line with its number")
	linesCmd.Flags().BoolVar(&linesEndings, "endings", false, "Show each line's original ending")
}
