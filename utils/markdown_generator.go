package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
)

// LexerFor returns the chroma lexer name for a file path, falling back to plain text.
func LexerFor(path string) string {
	if lexer := lexers.Match(path); lexer != nil {
		return lexer.Config().Name
	}
	return "plaintext"
}

// RenderCode highlights source for a terminal. Rendering stops early when ctx
// is cancelled.
func RenderCode(ctx context.Context, w io.Writer, content, language, theme string) error {
	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		if i%50 == 0 {
			if err := ctx.Err(); err != nil {
				fmt.Fprintf(w, "\n\nOutput interrupted...\n")
				return err
			}
		}
		var buf bytes.Buffer
		if err := quick.Highlight(&buf, line, language, "terminal256", theme); err != nil {
			return err
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	if !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(w)
	}
	return nil
}

// RenderChanges prints change lines, colouring additions green and removals red.
func RenderChanges(w io.Writer, changes []string) {
	for _, change := range changes {
		switch {
		case strings.HasPrefix(change, "Added"):
			fmt.Fprintln(w, "\x1b[92m+ "+change+"\x1b[0m")
		case strings.HasPrefix(change, "Removed"):
			fmt.Fprintln(w, "\x1b[91m- "+change+"\x1b[0m")
		default:
			fmt.Fprintln(w, "~ "+change)
		}
	}
}
