package ast

type (
	Node interface {
		node()
		At() int
	}

	Base struct {
		Pos int
	}

	// Lit is a literal value: Int or Str.
	Lit interface {
		lit()
	}

	Int int32
	Str string

	Expr interface {
		Node
		expr()
	}

	Literal struct {
		Base `tlog:",embed"`

		Value Lit
	}

	Paren struct {
		Base `tlog:",embed"`

		X Expr
	}

	VarRef struct {
		Base `tlog:",embed"`

		Name string
	}

	Call struct {
		Base `tlog:",embed"`

		Name string
		Args []Expr
	}

	Binary struct {
		Base `tlog:",embed"`

		Op string
		L  Expr
		R  Expr
	}

	Unary struct {
		Base `tlog:",embed"`

		Op string
		X  Expr
	}

	Stmt interface {
		Node
		stmt()
	}

	Compound struct {
		Base `tlog:",embed"`

		Stmts []Stmt
	}

	If struct {
		Base `tlog:",embed"`

		Cond Expr
		Then Stmt
		Else Stmt // nil if absent
	}

	Return struct {
		Base `tlog:",embed"`

		Value Expr
	}

	VarDecl struct {
		Base `tlog:",embed"`

		Name  string
		Value Expr // nil if absent
	}

	ExprStmt struct {
		Base `tlog:",embed"`

		X Expr
	}

	NoOp struct {
		Base `tlog:",embed"`
	}

	Func interface {
		Node
		FuncName() string
		FuncParams() []string
	}

	Regular struct {
		Base `tlog:",embed"`

		Name   string
		Params []string
		Body   Stmt
	}

	External struct {
		Base `tlog:",embed"`

		Name   string
		Params []string
	}

	Program struct {
		Funcs []Func
	}
)

// Discard is the parameter and variable name that is never bound.
const Discard = "_"

// Main returns the regular function named main or nil.
func (p *Program) Main() *Regular {
	for _, f := range p.Funcs {
		if r, ok := f.(*Regular); ok && r.Name == "main" {
			return r
		}
	}

	return nil
}

func (Base) node() {}

// At is the byte offset of the node in the source.
func (b Base) At() int { return b.Pos }

func (Int) lit() {}
func (Str) lit() {}

func (*Literal) expr() {}
func (*Paren) expr()   {}
func (*VarRef) expr()  {}
func (*Call) expr()    {}
func (*Binary) expr()  {}
func (*Unary) expr()   {}

func (*Compound) stmt() {}
func (*If) stmt()       {}
func (*Return) stmt()   {}
func (*VarDecl) stmt()  {}
func (*ExprStmt) stmt() {}
func (*NoOp) stmt()     {}

func (f *Regular) FuncName() string      { return f.Name }
func (f *Regular) FuncParams() []string  { return f.Params }
func (f *External) FuncName() string     { return f.Name }
func (f *External) FuncParams() []string { return f.Params }
