package ast

import (
	"io"
	"unicode/utf8"

	pc "github.com/prataprc/goparsec"

	"github.com/dotslashrayva/crucible/pkg/token"
)

// lexAST is the goparsec grammar instance the combinators below are built
// against: combinator constructors (And/OrdChoice/Kleene/ManyUntil/...) are
// methods on this value.
var lexAST = pc.NewAST("crucible_lexer", 0)

// Token combinators. Ordering inside pToken implements longest-match-wins:
// whitespace, then reserved words (word-boundary anchored so "intx" lexes as
// one identifier, not "int"+"x"), then identifiers and integer constants,
// then two-character operators before their one-character prefixes, then
// single-character punctuation, so a more specific literal always wins over
// a looser one.
var (
	pWhitespace = pc.Token(`\s+`, "WS")

	pKwInt    = pc.Token(`int\b`, "KW_INT")
	pKwVoid   = pc.Token(`void\b`, "KW_VOID")
	pKwReturn = pc.Token(`return\b`, "KW_RETURN")

	pIdent    = pc.Token(`[A-Za-z_][A-Za-z0-9_]*\b`, "IDENT")
	pIntConst = pc.Token(`[0-9]+\b`, "INTCONST")

	pShl        = pc.Atom("<<", "SHL")
	pShr        = pc.Atom(">>", "SHR")
	pAmpAmp     = pc.Atom("&&", "AMPAMP")
	pPipePipe   = pc.Atom("||", "PIPEPIPE")
	pEqEq       = pc.Atom("==", "EQEQ")
	pNotEq      = pc.Atom("!=", "NOTEQ")
	pLessEq     = pc.Atom("<=", "LESSEQ")
	pGreaterEq  = pc.Atom(">=", "GREATEREQ")
	pPlusPlus   = pc.Atom("++", "PLUSPLUS")
	pMinusMinus = pc.Atom("--", "MINUSMINUS")

	pLParen    = pc.Atom("(", "LPAREN")
	pRParen    = pc.Atom(")", "RPAREN")
	pLBrace    = pc.Atom("{", "LBRACE")
	pRBrace    = pc.Atom("}", "RBRACE")
	pSemicolon = pc.Atom(";", "SEMI")
	pTilde     = pc.Atom("~", "TILDE")
	pBang      = pc.Atom("!", "BANG")
	pPlus      = pc.Atom("+", "PLUS")
	pMinus     = pc.Atom("-", "MINUS")
	pStar      = pc.Atom("*", "STAR")
	pSlash     = pc.Atom("/", "SLASH")
	pPercent   = pc.Atom("%", "PERCENT")
	pAmp       = pc.Atom("&", "AMP")
	pPipe      = pc.Atom("|", "PIPE")
	pCaret     = pc.Atom("^", "CARET")
	pLess      = pc.Atom("<", "LESS")
	pGreater   = pc.Atom(">", "GREATER")
	pEqual     = pc.Atom("=", "EQUAL")

	pToken = lexAST.OrdChoice("token", nil,
		pWhitespace,
		pKwInt, pKwVoid, pKwReturn,
		pIdent, pIntConst,
		pShl, pShr, pAmpAmp, pPipePipe, pEqEq, pNotEq, pLessEq, pGreaterEq, pPlusPlus, pMinusMinus,
		pLParen, pRParen, pLBrace, pRBrace, pSemicolon,
		pTilde, pBang, pPlus, pMinus, pStar, pSlash, pPercent, pAmp, pPipe, pCaret, pLess, pGreater, pEqual,
	)

	pStream = lexAST.Kleene("stream", nil, pToken)
)

// Lexer tokenizes source text: construction takes an io.Reader, Lex() does
// the work.
type Lexer struct {
	reader io.Reader
}

func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: r}
}

// Lex reads the whole source and tokenizes it, appending the EOF sentinel.
// It returns *token.UnexpectedCharacterError on the first byte position
// that matches none of the Lexer's patterns.
func (l *Lexer) Lex() ([]token.Token, error) {
	source, err := io.ReadAll(l.reader)
	if err != nil {
		return nil, err
	}
	return Lex(source)
}

// Lex tokenizes a byte slice directly; Lexer.Lex is a thin io.Reader
// wrapper around this. Because ast.Kleene always succeeds (it simply stops
// matching more repetitions rather than failing), the actual lexical-error
// detection happens here: we sum the byte length of every matched token and
// compare it against len(source); any shortfall means the byte right after
// the last successful match matched none of pToken's alternatives.
func Lex(source []byte) ([]token.Token, error) {
	root, _ := lexAST.Parsewith(pStream, pc.NewScanner(source))

	var tokens []token.Token
	consumed := 0
	for _, child := range root.GetChildren() {
		text := child.GetValue()
		pos := consumed
		consumed += len(text)

		kind, ok := classify(text)
		if !ok {
			continue // whitespace
		}
		tokens = append(tokens, token.Token{Kind: kind, Text: text, Pos: pos})
	}

	if consumed < len(source) {
		ch, _ := utf8.DecodeRuneInString(string(source[consumed:]))
		return nil, &token.UnexpectedCharacterError{Char: ch, Pos: consumed}
	}

	tokens = append(tokens, token.Token{Kind: token.EOF, Pos: consumed})
	return tokens, nil
}

// classify derives a Token's Kind purely from its matched text, rather than
// from goparsec's own node naming: several of the Lexer's alternatives
// (keywords vs. identifiers, punctuation) would otherwise require
// inspecting which OrdChoice branch fired, which the library does not
// expose directly. Matched text is unambiguous on its own: a whitespace run
// starts with a space character, a keyword or identifier starts with a
// letter/underscore, a number starts with a digit, everything else is an
// exact punctuation/operator literal.
func classify(text string) (token.Kind, bool) {
	if text == "" {
		return token.EOF, false
	}
	r := rune(text[0])
	switch {
	case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
		return token.EOF, false
	case isIdentStart(r):
		if kw, ok := token.Keywords[text]; ok {
			return kw, true
		}
		return token.Ident, true
	case r >= '0' && r <= '9':
		return token.IntConst, true
	default:
		kind, ok := token.Punctuation[text]
		return kind, ok
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
