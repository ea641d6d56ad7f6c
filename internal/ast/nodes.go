package ast

import (
	"warp/internal/source"
)

// File is the root node of one parsed source file.
type File struct {
	Span  source.Span
	Items []ItemID
}

// ItemKind distinguishes top-level declarations.
type ItemKind uint8

const (
	// ItemKernel is a 'kernel' declaration, the GPU entry point.
	ItemKernel ItemKind = iota
	// ItemDeviceFn is a 'device fn' declaration, callable from kernels.
	ItemDeviceFn
)

// Item is a top-level declaration: a kernel or a device function.
type Item struct {
	Kind   ItemKind
	Span   source.Span
	Name   string
	// NameSpan covers just the declared identifier.
	NameSpan source.Span
	Params   []ParamID
	Body     StmtID // always a StmtBlock
}

// Param is one declared parameter. Type is NoTypeID when the source omits
// the annotation; the signature supplies it at compile time.
type Param struct {
	Span source.Span
	Name string
	Type TypeID
}

// TypeKind distinguishes type expressions in source.
type TypeKind uint8

const (
	// TypeScalar is a named scalar type (i32, i64, f32, f64, bool).
	TypeScalar TypeKind = iota
	// TypeSlice is '[]T'.
	TypeSlice
)

// Type is a syntactic type annotation node.
type Type struct {
	Kind TypeKind
	Span source.Span
	Name string // scalar name for TypeScalar
	Elem TypeID // element type for TypeSlice
}

// StmtKind enumerates statement nodes.
type StmtKind uint8

const (
	StmtBlock StmtKind = iota
	StmtLet
	StmtAssign
	StmtExpr
	StmtIf
	StmtWhile
	StmtReturn
)

// AssignOp is the operator of an assignment statement.
type AssignOp uint8

const (
	AssignSet AssignOp = iota // =
	AssignAdd                 // +=
	AssignSub                 // -=
	AssignMul                 // *=
	AssignDiv                 // /=
)

// Stmt is a statement node. Only the fields relevant to Kind are set.
type Stmt struct {
	Kind StmtKind
	Span source.Span

	// StmtBlock
	Stmts []StmtID

	// StmtLet
	Name     string
	NameSpan source.Span
	Type     TypeID
	Init     ExprID

	// StmtAssign
	Op     AssignOp
	Target ExprID
	Value  ExprID

	// StmtExpr, StmtReturn (optional)
	Expr ExprID

	// StmtIf / StmtWhile
	Cond ExprID
	Then StmtID
	Else StmtID // NoStmtID when absent
	Body StmtID
}

// ExprKind enumerates expression nodes.
type ExprKind uint8

const (
	ExprIdent ExprKind = iota
	ExprIntLit
	ExprFloatLit
	ExprBoolLit
	ExprIndex
	ExprCall
	ExprUnary
	ExprBinary
	ExprGroup
)

// UnaryOp is a prefix operator.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota // -
	UnaryNot                // !
)

// BinaryOp is an infix operator.
type BinaryOp uint8

const (
	BinAdd BinaryOp = iota // +
	BinSub                 // -
	BinMul                 // *
	BinDiv                 // /
	BinRem                 // %
	BinEq                  // ==
	BinNe                  // !=
	BinLt                  // <
	BinLe                  // <=
	BinGt                  // >
	BinGe                  // >=
	BinAnd                 // &&
	BinOr                  // ||
)

// Expr is an expression node. Only the fields relevant to Kind are set.
type Expr struct {
	Kind ExprKind
	Span source.Span

	// ExprIdent
	Name string

	// Literals keep their source text; sema parses the value.
	Text string

	// ExprIndex: Base[Index]; ExprCall: Base(Args...)
	Base  ExprID
	Index ExprID
	Args  []ExprID

	// ExprUnary / ExprBinary / ExprGroup
	Unary UnaryOp
	Bin   BinaryOp
	X     ExprID
	Y     ExprID

	// ExprBoolLit
	Bool bool
}
