package asmir

import (
	"fmt"

	"github.com/dotslashrayva/crucible/pkg/ast"
	"github.com/dotslashrayva/crucible/pkg/tac"
)

// Lowerer performs Phase A: a naive, one-TAC-instruction-at-a-time
// expansion into assembly IR, with every destination left as a Pseudo
// operand for the Legalizer to resolve.
type Lowerer struct {
	instructions []Instruction
}

func NewLowerer() *Lowerer {
	return &Lowerer{}
}

// Lower runs Phase A over fn in one call. Legalize (Phase B/C) must still
// run on the result before it is a legal program.
func Lower(fn *tac.Function) (*Function, error) {
	return NewLowerer().Lower(fn)
}

func (l *Lowerer) Lower(fn *tac.Function) (*Function, error) {
	l.instructions = nil
	for _, instr := range fn.Instructions {
		if err := l.instruction(instr); err != nil {
			return nil, err
		}
	}
	return &Function{Name: fn.Name, Instructions: l.instructions}, nil
}

func (l *Lowerer) instruction(instr tac.Instruction) error {
	switch it := instr.(type) {
	case tac.Return:
		l.emit(Move{Dst: Register{Reg: AX}, Src: mapValue(it.Val)})
		l.emit(Return{})
		return nil

	case tac.Unary:
		return l.unary(it)

	case tac.Binary:
		return l.binary(it)

	case tac.Copy:
		l.emit(Move{Dst: Pseudo{Name: it.Dst}, Src: mapValue(it.Src)})
		return nil

	case tac.Jump:
		l.emit(Jump{Label: it.Target})
		return nil

	case tac.JumpIfZero:
		l.emit(Move{Dst: Register{Reg: R11}, Src: Immediate{Value: 0}})
		l.emit(Compare{Dst: Register{Reg: R11}, Src: mapValue(it.Cond)})
		l.emit(JumpCondition{Cond: Equal, Label: it.Target})
		return nil

	case tac.JumpIfNotZero:
		l.emit(Move{Dst: Register{Reg: R11}, Src: Immediate{Value: 0}})
		l.emit(Compare{Dst: Register{Reg: R11}, Src: mapValue(it.Cond)})
		l.emit(JumpCondition{Cond: NotEqual, Label: it.Target})
		return nil

	case tac.Label:
		l.emit(Label{Name: it.Name})
		return nil

	default:
		return fmt.Errorf("asmir: unhandled tac instruction %T", instr)
	}
}

func (l *Lowerer) unary(it tac.Unary) error {
	switch it.Op {
	case ast.Negate:
		l.emit(Move{Dst: Pseudo{Name: it.Dst}, Src: mapValue(it.Src)})
		l.emit(Unary{Op: Neg, Operand: Pseudo{Name: it.Dst}})
		return nil

	case ast.Complement:
		l.emit(Move{Dst: Pseudo{Name: it.Dst}, Src: mapValue(it.Src)})
		l.emit(Unary{Op: Not, Operand: Pseudo{Name: it.Dst}})
		return nil

	case ast.LogicalNot:
		l.emit(Move{Dst: Register{Reg: R11}, Src: Immediate{Value: 0}})
		l.emit(Compare{Dst: Register{Reg: R11}, Src: mapValue(it.Src)})
		l.emit(Move{Dst: Pseudo{Name: it.Dst}, Src: Immediate{Value: 0}})
		l.emit(SetCondition{Cond: Equal, Dst: Pseudo{Name: it.Dst}})
		return nil

	default:
		return fmt.Errorf("asmir: unhandled unary op %v", it.Op)
	}
}

func (l *Lowerer) binary(it tac.Binary) error {
	switch it.Op {
	case ast.Divide, ast.Modulo:
		l.emit(Move{Dst: Register{Reg: AX}, Src: mapValue(it.Src1)})
		l.emit(ConvertDQ{})
		l.emit(Division{Divisor: mapValue(it.Src2)})
		if it.Op == ast.Divide {
			l.emit(Move{Dst: Pseudo{Name: it.Dst}, Src: Register{Reg: AX}})
		} else {
			l.emit(Move{Dst: Pseudo{Name: it.Dst}, Src: Register{Reg: DX}})
		}
		return nil

	case ast.Eq, ast.Neq, ast.Lt, ast.Le, ast.Gt, ast.Ge:
		src1 := mapValue(it.Src1)
		if imm, ok := src1.(Immediate); ok {
			l.emit(Move{Dst: Register{Reg: R11}, Src: imm})
			src1 = Register{Reg: R11}
		}
		l.emit(Compare{Dst: src1, Src: mapValue(it.Src2)})
		l.emit(Move{Dst: Pseudo{Name: it.Dst}, Src: Immediate{Value: 0}})
		l.emit(SetCondition{Cond: conditionFor(it.Op), Dst: Pseudo{Name: it.Dst}})
		return nil

	default:
		op, ok := binaryOpFor(it.Op)
		if !ok {
			return fmt.Errorf("asmir: unhandled binary op %v", it.Op)
		}
		l.emit(Move{Dst: Pseudo{Name: it.Dst}, Src: mapValue(it.Src1)})
		l.emit(Binary{Op: op, Dst: Pseudo{Name: it.Dst}, Src: mapValue(it.Src2)})
		return nil
	}
}

func (l *Lowerer) emit(instr Instruction) {
	l.instructions = append(l.instructions, instr)
}

func mapValue(v tac.Value) Operand {
	switch val := v.(type) {
	case tac.Constant:
		return Immediate{Value: val.Value}
	case tac.Variable:
		return Pseudo{Name: val.Name}
	default:
		panic(fmt.Sprintf("asmir: unhandled tac value %T", v))
	}
}

func conditionFor(op ast.BinaryOp) Condition {
	switch op {
	case ast.Eq:
		return Equal
	case ast.Neq:
		return NotEqual
	case ast.Lt:
		return Less
	case ast.Le:
		return LessEqual
	case ast.Gt:
		return Greater
	case ast.Ge:
		return GreaterEqual
	default:
		panic(fmt.Sprintf("asmir: %v is not a relational operator", op))
	}
}

func binaryOpFor(op ast.BinaryOp) (BinaryOp, bool) {
	switch op {
	case ast.Add:
		return Add, true
	case ast.Subtract:
		return Sub, true
	case ast.Multiply:
		return Mul, true
	case ast.BitAnd:
		return And, true
	case ast.BitOr:
		return Or, true
	case ast.BitXor:
		return Xor, true
	case ast.Shl:
		return Sal, true
	case ast.Shr:
		return Sar, true
	default:
		return 0, false
	}
}
