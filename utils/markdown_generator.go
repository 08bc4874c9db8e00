package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

const defaultLanguage = "markdown"

// MarkdownRenderer highlights generated answers line by line, switching to
// the fenced language inside code blocks.
type MarkdownRenderer struct {
	out         io.Writer
	theme       string
	isCodeBlock bool
	language    string
}

func NewMarkdownRenderer(out io.Writer, theme string) *MarkdownRenderer {
	return &MarkdownRenderer{out: out, theme: theme}
}

// DetectLanguageFromCodeBlock returns the language tag of an opening fence
// line, or "" when there is none.
func DetectLanguageFromCodeBlock(line string) string {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "```") {
		return ""
	}
	fields := strings.Fields(strings.TrimPrefix(line, "```"))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// RenderWithContext handles the rendering of markdown content with cancellation support
func (r *MarkdownRenderer) RenderWithContext(ctx context.Context, content string) error {
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if i%5 == 0 {
			select {
			case <-ctx.Done():
				fmt.Fprintf(r.out, "\n\n🔄 Output interrupted...\n")
				return ctx.Err()
			default:
			}
		}

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			r.isCodeBlock = !r.isCodeBlock
			r.language = ""
			if r.isCodeBlock {
				r.language = DetectLanguageFromCodeBlock(line)
			}
			if err := r.highlight(line, defaultLanguage); err != nil {
				return err
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "+") && r.isCodeBlock:
			fmt.Fprint(r.out, "\x1b[92m"+line+"\x1b[0m\n")
		case strings.HasPrefix(line, "-") && r.isCodeBlock:
			fmt.Fprint(r.out, "\x1b[91m"+line+"\x1b[0m\n")
		case r.isCodeBlock && r.language != "":
			if err := r.highlight(line, r.language); err != nil {
				return err
			}
		default:
			if err := r.highlight(line, defaultLanguage); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *MarkdownRenderer) highlight(line, language string) error {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, line+"\n", language, "terminal256", r.theme); err != nil {
		return err
	}
	_, err := r.out.Write(buf.Bytes())
	return err
}
