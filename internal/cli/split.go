package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mtrellis/conkit/internal/linereader"
	"github.com/mtrellis/conkit/internal/textbuf"
	"github.com/mtrellis/conkit/internal/textenc"
	"github.com/mtrellis/conkit/internal/vt"
)

var (
	splitLines  int
	splitBytes  int64
	splitPrefix string
)

var splitCmd = &cobra.Command{
	Use:   "split <file>",
	Short: "Split a file into numbered pieces",
	Long: `Split a file into numbered pieces by line count or by byte size.

Line-based splitting reads through the line reader, so pieces never cut
a line in half and the input encoding is preserved on output, BOM
included. Byte-based splitting copies raw bytes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if splitLines > 0 && splitBytes > 0 {
			return fmt.Errorf("--lines and --bytes are mutually exclusive")
		}
		if splitLines <= 0 && splitBytes <= 0 {
			splitLines = 1000
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		prefix := splitPrefix
		if prefix == "" {
			prefix = args[0] + "."
		}

		if splitBytes > 0 {
			return splitByBytes(f, prefix)
		}
		return splitByLines(f, prefix)
	},
}

func pieceName(prefix string, n int) string {
	return prefix + textbuf.FormatNumber(int64(n), 10, 3, '0')
}

func splitByBytes(f *os.File, prefix string) error {
	piece := 0
	for {
		name := pieceName(prefix, piece)
		out, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		n, err := io.CopyN(out, f, splitBytes)
		if cerr := out.Close(); cerr != nil {
			return cerr
		}
		if n == 0 {
			_ = os.Remove(name)
		} else {
			logger.Debug("wrote piece", "name", filepath.Base(name), "bytes", n)
			piece++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	PrintSuccess(fmt.Sprintf("wrote %s", PrintCount(piece, "piece", "pieces")))
	return nil
}

func splitByLines(f *os.File, prefix string) error {
	reader, err := newLineReader(f)
	if err != nil {
		return err
	}
	defer reader.CloseOrCache()

	codec := textenc.Active()
	ctx := context.Background()

	piece := 0
	var out *os.File
	var norm *vt.Normalizer
	inPiece := 0

	closePiece := func() error {
		if out == nil {
			return nil
		}
		if err := norm.Flush(); err != nil {
			return err
		}
		err := out.Close()
		out = nil
		return err
	}

	for {
		line, _, err := reader.ReadLine(ctx, linereader.Options{ReturnFinalPartial: true})
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = closePiece()
			return err
		}

		if out == nil {
			name := pieceName(prefix, piece)
			out, err = os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", name, err)
			}
			if codec.Wide() {
				if _, err := out.Write(codec.BOM()); err != nil {
					_ = out.Close()
					return err
				}
			}
			norm = vt.NewNormalizer(&encodeTo{codec: codec, f: out}, vt.LineEnding())
			piece++
		}

		if _, err := norm.Write([]byte(line + "\n")); err != nil {
			_ = closePiece()
			return err
		}
		inPiece++
		if inPiece == splitLines {
			if err := closePiece(); err != nil {
				return err
			}
			inPiece = 0
		}
	}
	if err := closePiece(); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("wrote %s", PrintCount(piece, "piece", "pieces")))
	return nil
}

// encodeTo encodes host text chunks before they reach the file,
// staging through a reused buffer.
type encodeTo struct {
	codec *textenc.Codec
	f     *os.File
	buf   textbuf.Buffer
}

func (e *encodeTo) Write(b []byte) (int, error) {
	e.buf.Reset()
	if err := e.codec.AppendEncoded(&e.buf, string(b)); err != nil {
		return 0, err
	}
	if _, err := e.f.Write(e.buf.Bytes()); err != nil {
		return 0, err
	}
	return len(b), nil
}

func init() {
	splitCmd.Flags().IntVarP(&splitLines, "lines", "n", 0, "Lines per piece (default 1000)")
	splitCmd.Flags().Int64VarP(&splitBytes, "bytes", "b", 0, "Bytes per piece")
	splitCmd.Flags().StringVar(&splitPrefix, "prefix", "", "Output name prefix (default: input name + '.')")
}
