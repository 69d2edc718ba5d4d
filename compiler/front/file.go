package front

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	File struct {
		Name string
		Text []byte

		lines []int // line start offsets, built lazily
	}

	Position struct {
		Line int
		Col  int
	}

	// Error attaches a source position to a lex or parse error.
	Error struct {
		Pos int
		Err error
	}
)

func ReadFile(ctx context.Context, name string) (*File, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return NewFile(name, text), nil
}

func NewFile(name string, text []byte) *File {
	return &File{
		Name: name,
		Text: text,
	}
}

// Position converts byte offset into 1-based line and column.
// Column counts runes.
func (f *File) Position(pos int) Position {
	if f.lines == nil {
		f.lines = append(f.lines, 0)

		for i := 0; i < len(f.Text); {
			j := bytes.IndexByte(f.Text[i:], '\n')
			if j < 0 {
				break
			}

			i += j + 1
			f.lines = append(f.lines, i)
		}
	}

	if pos > len(f.Text) {
		pos = len(f.Text)
	}

	l := 0
	for l+1 < len(f.lines) && f.lines[l+1] <= pos {
		l++
	}

	return Position{
		Line: l + 1,
		Col:  utf8.RuneCount(f.Text[f.lines[l]:pos]) + 1,
	}
}

// Where formats pos as name:line:col.
func (f *File) Where(pos int) string {
	p := f.Position(pos)

	if f.Name == "" {
		return p.String()
	}

	return fmt.Sprintf("%s:%v", f.Name, p)
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

func (e *Error) Error() string {
	return fmt.Sprintf("at pos 0x%x: %v", e.Pos, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
