package token

var keywords = map[string]Kind{
	"kernel": KwKernel,
	"device": KwDevice,
	"fn":     KwFn,
	"let":    KwLet,
	"if":     KwIf,
	"else":   KwElse,
	"while":  KwWhile,
	"return": KwReturn,
	"true":   KwTrue,
	"false":  KwFalse,
}

// LookupKeyword returns the keyword kind for ident, if it is one.
// Keywords are case-sensitive: only the lowercase forms are recognised.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}
