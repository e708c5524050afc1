package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	b64Decode bool
	b64URL    bool
	b64Wrap   int
)

var b64Cmd = &cobra.Command{
	Use:   "b64 [file]",
	Short: "Base64 encode or decode",
	Long: `Encode a file or stdin as base64, or decode with --decode.
Encoded output is wrapped at --wrap columns; decode accepts wrapped
input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, closeIn, err := openInput(args)
		if err != nil {
			return err
		}
		defer closeIn()

		encoding := base64.StdEncoding
		if b64URL {
			encoding = base64.URLEncoding
		}

		if b64Decode {
			dec := base64.NewDecoder(encoding, newWhitespaceStripper(in))
			if _, err := io.Copy(os.Stdout, dec); err != nil {
				return fmt.Errorf("failed to decode: %w", err)
			}
			return nil
		}

		w := newWrapWriter(os.Stdout, b64Wrap)
		enc := base64.NewEncoder(encoding, w)
		if _, err := io.Copy(enc, in); err != nil {
			return fmt.Errorf("failed to encode: %w", err)
		}
		if err := enc.Close(); err != nil {
			return err
		}
		return w.Finish()
	},
}

// whitespaceStripper drops line breaks so wrapped input decodes.
type whitespaceStripper struct {
	r io.Reader
}

func newWhitespaceStripper(r io.Reader) *whitespaceStripper {
	return &whitespaceStripper{r: r}
}

func (s *whitespaceStripper) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	kept := 0
	for _, c := range p[:n] {
		if c == '\r' || c == '\n' || c == ' ' || c == '\t' {
			continue
		}
		p[kept] = c
		kept++
	}
	return kept, err
}

// wrapWriter inserts a newline every width bytes. Zero width disables
// wrapping.
type wrapWriter struct {
	w     io.Writer
	width int
	col   int
}

func newWrapWriter(w io.Writer, width int) *wrapWriter {
	return &wrapWriter{w: w, width: width}
}

func (w *wrapWriter) Write(b []byte) (int, error) {
	if w.width <= 0 {
		return w.w.Write(b)
	}
	written := 0
	for len(b) > 0 {
		room := w.width - w.col
		if room == 0 {
			if _, err := w.w.Write([]byte{'\n'}); err != nil {
				return written, err
			}
			w.col = 0
			continue
		}
		if room > len(b) {
			room = len(b)
		}
		n, err := w.w.Write(b[:room])
		written += n
		w.col += n
		if err != nil {
			return written, err
		}
		b = b[room:]
	}
	return written, nil
}

// Finish terminates a non-empty wrapped output with a newline.
func (w *wrapWriter) Finish() error {
	if w.width > 0 && w.col > 0 {
		_, err := w.w.Write([]byte{'\n'})
		return err
	}
	return nil
}

func init() {
	b64Cmd.Flags().BoolVarP(&b64Decode, "decode", "d", false, "Decode instead of encode")
	b64Cmd.Flags().BoolVar(&b64URL, "url", false, "Use the URL-safe alphabet")
	b64Cmd.Flags().IntVarP(&b64Wrap, "wrap", "w", 76, "Wrap encoded output at this column (0 disables)")
}
