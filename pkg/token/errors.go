package token

import "fmt"

// UnexpectedCharacterError is returned by the Lexer for the first byte
// position that matches none of the Lexer's patterns.
type UnexpectedCharacterError struct {
	Char rune
	Pos  int
}

func (e *UnexpectedCharacterError) Error() string {
	return fmt.Sprintf("unexpected character %q at %d", e.Char, e.Pos)
}
