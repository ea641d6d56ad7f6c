package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Lexical
	LexInfo                     Code = 1000
	LexUnknownChar              Code = 1001
	LexUnterminatedBlockComment Code = 1002
	LexBadNumber                Code = 1003
	LexBadEscape                Code = 1004

	// Syntax
	SynInfo              Code = 2000
	SynUnexpectedToken   Code = 2001
	SynExpectIdentifier  Code = 2002
	SynExpectType        Code = 2003
	SynExpectExpression  Code = 2004
	SynExpectSemicolon   Code = 2005
	SynUnclosedParen     Code = 2006
	SynUnclosedBrace     Code = 2007
	SynUnclosedBracket   Code = 2008
	SynUnexpectedItem    Code = 2009
	SynDuplicateParam    Code = 2010
	SynExpectBlock       Code = 2011
	SynBadAssignTarget   Code = 2012
	SynExpectParamName   Code = 2013
	SynTrailingTokens    Code = 2014

	// Semantic
	SemaInfo             Code = 3000
	SemaUnresolvedSymbol Code = 3001
	SemaDuplicateSymbol  Code = 3002
	SemaTypeMismatch     Code = 3003
	SemaBadCallArity     Code = 3004
	SemaBadCallArg       Code = 3005
	SemaNotCallable      Code = 3006
	SemaNotIndexable     Code = 3007
	SemaCondNotBool      Code = 3008
	SemaBadBinaryOperands Code = 3009
	SemaBadUnaryOperand  Code = 3010
	SemaKernelNotFound   Code = 3011
	SemaSigArityMismatch Code = 3012
	SemaSigTypeMismatch  Code = 3013
	SemaUntypedParam     Code = 3014
	SemaReturnInKernel   Code = 3015
	SemaAssignImmutable  Code = 3016

	// Configuration
	ConfInfo          Code = 4000
	ConfDebugLineinfo Code = 4001
	ConfDebugOpt      Code = 4002
	ConfBadTarget     Code = 4003

	// Codegen
	GenInfo            Code = 5000
	GenUnsupported     Code = 5001
	GenInvalidIR       Code = 5002

	// I/O
	IOInfo     Code = 6000
	IOLoadFile Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode: "unknown diagnostic",

	LexInfo:                     "lexer note",
	LexUnknownChar:              "unknown character",
	LexUnterminatedBlockComment: "unterminated block comment",
	LexBadNumber:                "malformed numeric literal",
	LexBadEscape:                "invalid escape sequence",

	SynInfo:             "parser note",
	SynUnexpectedToken:  "unexpected token",
	SynExpectIdentifier: "expected identifier",
	SynExpectType:       "expected type",
	SynExpectExpression: "expected expression",
	SynExpectSemicolon:  "expected ';'",
	SynUnclosedParen:    "unclosed '('",
	SynUnclosedBrace:    "unclosed '{'",
	SynUnclosedBracket:  "unclosed '['",
	SynUnexpectedItem:   "expected 'kernel' or 'device fn'",
	SynDuplicateParam:   "duplicate parameter name",
	SynExpectBlock:      "expected '{' block",
	SynBadAssignTarget:  "invalid assignment target",
	SynExpectParamName:  "expected parameter name",
	SynTrailingTokens:   "unexpected trailing tokens",

	SemaInfo:              "sema note",
	SemaUnresolvedSymbol:  "unresolved symbol",
	SemaDuplicateSymbol:   "duplicate symbol",
	SemaTypeMismatch:      "type mismatch",
	SemaBadCallArity:      "wrong number of call arguments",
	SemaBadCallArg:        "invalid call argument",
	SemaNotCallable:       "expression is not callable",
	SemaNotIndexable:      "expression is not indexable",
	SemaCondNotBool:       "condition is not a bool",
	SemaBadBinaryOperands: "invalid binary operands",
	SemaBadUnaryOperand:   "invalid unary operand",
	SemaKernelNotFound:    "kernel not found",
	SemaSigArityMismatch:  "signature arity mismatch",
	SemaSigTypeMismatch:   "signature type mismatch",
	SemaUntypedParam:      "parameter type unknown",
	SemaReturnInKernel:    "kernel cannot return a value",
	SemaAssignImmutable:   "cannot assign to immutable value",

	ConfInfo:          "configuration note",
	ConfDebugLineinfo: "debug and lineinfo are mutually exclusive",
	ConfDebugOpt:      "debug and opt are incompatible",
	ConfBadTarget:     "unknown target architecture",

	GenInfo:        "codegen note",
	GenUnsupported: "construct not supported by backend",
	GenInvalidIR:   "invalid kernel IR",

	IOInfo:     "i/o note",
	IOLoadFile: "cannot load file",
}

// ID returns the stable string identifier, e.g. "CONF4001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("CONF%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

// Title returns the short human description for the code.
func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
