// Package tac defines the three-address-code IR and the Generator that
// lowers a resolved AST into it. Value and Instruction are both modeled as
// interfaces with an unexported marker method, one implementation per
// concrete variant.
package tac

import "github.com/dotslashrayva/crucible/pkg/ast"

// Function carries its name and a flat, labelled instruction sequence.
type Function struct {
	Name         string
	Instructions []Instruction
}

// Value is either a Constant or a Variable reference.
type Value interface {
	value()
}

type Constant struct{ Value int32 }
type Variable struct{ Name string }

func (Constant) value() {}
func (Variable) value() {}

// Instruction is the common interface for every TAC instruction variant.
type Instruction interface {
	instruction()
}

// Return returns Val from the function.
type Return struct{ Val Value }

// Unary applies Op (an ast.UnaryOp) to Src, storing into Dst.
type Unary struct {
	Op  ast.UnaryOp
	Src Value
	Dst string
}

// Binary applies Op (an ast.BinaryOp; LogicalAnd/LogicalOr never appear
// here — they are lowered away into Jump-based control flow before a
// Binary instruction is ever emitted) to Src1/Src2, storing into Dst.
type Binary struct {
	Op         ast.BinaryOp
	Src1, Src2 Value
	Dst        string
}

// Copy stores Src into Dst.
type Copy struct {
	Src Value
	Dst string
}

// Jump unconditionally transfers control to Target.
type Jump struct{ Target string }

// JumpIfZero transfers control to Target iff Cond evaluates to zero.
type JumpIfZero struct {
	Cond   Value
	Target string
}

// JumpIfNotZero transfers control to Target iff Cond evaluates to nonzero.
type JumpIfNotZero struct {
	Cond   Value
	Target string
}

// Label marks a jump target.
type Label struct{ Name string }

func (Return) instruction()        {}
func (Unary) instruction()         {}
func (Binary) instruction()        {}
func (Copy) instruction()          {}
func (Jump) instruction()          {}
func (JumpIfZero) instruction()    {}
func (JumpIfNotZero) instruction() {}
func (Label) instruction()         {}
