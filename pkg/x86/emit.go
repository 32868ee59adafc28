// Package x86 serializes legalized assembly IR to Intel-syntax x86-64
// assembly text for macOS calling conventions. Pure formatting: no semantic
// transformation, and a Pseudo operand reaching here is a programmer error
// (panic, not a returned error). The Emitter dispatches each instruction
// kind to its mnemonic through a small set of lookup tables.
package x86

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dotslashrayva/crucible/pkg/asmir"
)

var registerName32 = map[asmir.Reg]string{
	asmir.AX:  "eax",
	asmir.CX:  "ecx",
	asmir.DX:  "edx",
	asmir.R10: "r10d",
	asmir.R11: "r11d",
}

var registerName8 = map[asmir.Reg]string{
	asmir.AX:  "al",
	asmir.CX:  "cl",
	asmir.DX:  "dl",
	asmir.R10: "r10b",
	asmir.R11: "r11b",
}

var binaryMnemonic = map[asmir.BinaryOp]string{
	asmir.Add: "add",
	asmir.Sub: "sub",
	asmir.Mul: "imul",
	asmir.And: "and",
	asmir.Or:  "or",
	asmir.Xor: "xor",
}

var unaryMnemonic = map[asmir.UnaryOp]string{
	asmir.Neg: "neg",
	asmir.Not: "not",
}

var conditionMnemonic = map[asmir.Condition]string{
	asmir.Equal:       "e",
	asmir.NotEqual:     "ne",
	asmir.Less:         "l",
	asmir.LessEqual:    "le",
	asmir.Greater:      "g",
	asmir.GreaterEqual: "ge",
}

// Emitter wraps the function being emitted: construct with NewEmitter, then
// call Emit.
type Emitter struct {
	fn *asmir.Function
}

func NewEmitter(fn *asmir.Function) *Emitter {
	return &Emitter{fn: fn}
}

// Emit serializes fn in one call.
func Emit(fn *asmir.Function) string {
	return NewEmitter(fn).Emit()
}

func (e *Emitter) Emit() string {
	var out strings.Builder
	fmt.Fprintln(&out, "\t.intel_syntax noprefix")
	e.emitFunction(&out)
	return out.String()
}

func (e *Emitter) emitFunction(out *strings.Builder) {
	fmt.Fprintf(out, "\t.globl _%s\n", e.fn.Name)
	fmt.Fprintf(out, "_%s:\n", e.fn.Name)
	fmt.Fprintln(out, "\tpush rbp")
	fmt.Fprintln(out, "\tmov rbp, rsp")

	for _, instr := range e.fn.Instructions {
		e.emitInstruction(out, instr)
	}
}

func (e *Emitter) emitInstruction(out *strings.Builder, instr asmir.Instruction) {
	switch it := instr.(type) {
	case asmir.Move:
		fmt.Fprintf(out, "\tmov %s, %s\n", operand(it.Dst), operand(it.Src))

	case asmir.Return:
		// A blank line sets the epilogue visually apart from the
		// instructions that computed the return value.
		fmt.Fprintln(out)
		fmt.Fprintln(out, "\tmov rsp, rbp")
		fmt.Fprintln(out, "\tpop rbp")
		fmt.Fprintln(out, "\tret")

	case asmir.Unary:
		fmt.Fprintf(out, "\t%s %s\n", unaryMnemonic[it.Op], operand(it.Operand))

	case asmir.AllocateStack:
		fmt.Fprintf(out, "\tsub rsp, %d\n", it.Bytes)
		fmt.Fprintln(out)

	case asmir.Binary:
		e.emitBinary(out, it)

	case asmir.Division:
		fmt.Fprintf(out, "\tidiv %s\n", operand(it.Divisor))

	case asmir.ConvertDQ:
		fmt.Fprintln(out, "\tcdq")

	case asmir.Compare:
		fmt.Fprintf(out, "\tcmp %s, %s\n", operand(it.Dst), operand(it.Src))

	case asmir.Jump:
		fmt.Fprintf(out, "\tjmp L%s\n", it.Label)

	case asmir.JumpCondition:
		fmt.Fprintf(out, "\tj%s L%s\n", conditionMnemonic[it.Cond], it.Label)

	case asmir.SetCondition:
		fmt.Fprintf(out, "\tset%s %s\n", conditionMnemonic[it.Cond], oneByteOperand(it.Dst))

	case asmir.Label:
		fmt.Fprintln(out)
		fmt.Fprintf(out, "L%s:\n", it.Name)

	default:
		panic(fmt.Sprintf("x86: unhandled instruction %T", instr))
	}
}

func (e *Emitter) emitBinary(out *strings.Builder, it asmir.Binary) {
	switch it.Op {
	case asmir.Sal:
		fmt.Fprintf(out, "\tsal %s, %s\n", operand(it.Dst), shiftCount(it.Src))
	case asmir.Sar:
		fmt.Fprintf(out, "\tsar %s, %s\n", operand(it.Dst), shiftCount(it.Src))
	default:
		fmt.Fprintf(out, "\t%s %s, %s\n", binaryMnemonic[it.Op], operand(it.Dst), operand(it.Src))
	}
}

func operand(op asmir.Operand) string {
	switch v := op.(type) {
	case asmir.Immediate:
		return strconv.Itoa(int(v.Value))
	case asmir.Register:
		return registerName32[v.Reg]
	case asmir.Stack:
		return fmt.Sprintf("dword ptr [rbp - %d]", v.Offset)
	case asmir.Pseudo:
		panic(fmt.Sprintf("x86: pseudo operand %q survived legalization", v.Name))
	default:
		panic(fmt.Sprintf("x86: unhandled operand %T", op))
	}
}

func oneByteOperand(op asmir.Operand) string {
	switch v := op.(type) {
	case asmir.Immediate:
		return strconv.Itoa(int(v.Value))
	case asmir.Register:
		return registerName8[v.Reg]
	case asmir.Stack:
		return fmt.Sprintf("byte ptr [rbp - %d]", v.Offset)
	case asmir.Pseudo:
		panic(fmt.Sprintf("x86: pseudo operand %q survived legalization", v.Name))
	default:
		panic(fmt.Sprintf("x86: unhandled operand %T", op))
	}
}

func shiftCount(op asmir.Operand) string {
	switch v := op.(type) {
	case asmir.Immediate:
		return strconv.Itoa(int(v.Value))
	case asmir.Register:
		if v.Reg == asmir.CX {
			return "cl"
		}
	}
	panic("x86: shift count must be immediate or cl")
}
