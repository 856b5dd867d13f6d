package uploader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// KeyPress returns a gate that prints msg and blocks until the operator
// presses a key. On a terminal a single key is enough; otherwise a full
// line is read.
func KeyPress(in io.Reader, out io.Writer, msg string) func(context.Context) error {
	return func(ctx context.Context) error {
		fmt.Fprintln(out, msg)

		read := make(chan error, 1)
		go func() { read <- readKey(in) }()

		select {
		case err := <-read:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func readKey(in io.Reader) error {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		old, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read key press: %w", err)
		}
		defer term.Restore(int(f.Fd()), old)

		var b [1]byte
		if _, err := f.Read(b[:]); err != nil {
			return fmt.Errorf("failed to read key press: %w", err)
		}
		return nil
	}

	_, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read key press: %w", err)
	}
	return nil
}
