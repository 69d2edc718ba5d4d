package lower

import (
	"tlog.app/go/errors"

	"github.com/yotlang/yotc/compiler/ast"
	"github.com/yotlang/yotc/compiler/ir"
)

type (
	// Scopes is a stack of lexical frames over one flat name -> slot map.
	Scopes struct {
		frames []frame
		vars   map[string]ir.Expr
	}

	frame struct {
		names []string
		outer map[string]ir.Expr // shadowed bindings to restore on pop
	}
)

var ErrRedeclared = errors.New("variable redeclared in the same block")

func NewScopes() *Scopes {
	s := &Scopes{}
	s.Reset()

	return s
}

// Reset drops all frames and bindings and opens the function level frame.
func (s *Scopes) Reset() {
	s.frames = s.frames[:0]
	s.vars = map[string]ir.Expr{}

	s.Push()
}

func (s *Scopes) Push() {
	s.frames = append(s.frames, frame{})
}

// Pop removes exactly the names introduced by the top frame,
// restoring outer bindings they shadowed.
func (s *Scopes) Pop() {
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]

	for _, name := range top.names {
		if prev, ok := top.outer[name]; ok {
			s.vars[name] = prev
		} else {
			delete(s.vars, name)
		}
	}
}

func (s *Scopes) Depth() int { return len(s.frames) }

// Declare binds name in the top frame. The discard name is accepted but never bound.
func (s *Scopes) Declare(name string, slot ir.Expr) error {
	if name == ast.Discard {
		return nil
	}

	top := &s.frames[len(s.frames)-1]

	for _, n := range top.names {
		if n == name {
			return errors.Wrap(ErrRedeclared, "%v", name)
		}
	}

	if prev, ok := s.vars[name]; ok {
		if top.outer == nil {
			top.outer = map[string]ir.Expr{}
		}

		top.outer[name] = prev
	}

	top.names = append(top.names, name)
	s.vars[name] = slot

	return nil
}

func (s *Scopes) Lookup(name string) (ir.Expr, bool) {
	slot, ok := s.vars[name]

	return slot, ok
}
