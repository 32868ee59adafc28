package tac

import (
	"fmt"

	"github.com/dotslashrayva/crucible/pkg/ast"
)

// Generator lowers a resolved ast.Program into a tac.Function. It wraps
// the pass's mutable state (the instruction list and the temp/label
// counters used to mint fresh names) and exposes a single top-level method
// that dispatches on the AST node's concrete type.
type Generator struct {
	instructions []Instruction
	varCount     int
	labelCount   int
}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate lowers program in one call.
func Generate(program *ast.Program) (*Function, error) {
	return NewGenerator().Generate(program)
}

func (g *Generator) Generate(program *ast.Program) (*Function, error) {
	g.instructions = nil
	g.varCount = 0
	g.labelCount = 0

	for _, item := range program.Function.Body {
		if err := g.blockItem(item); err != nil {
			return nil, err
		}
	}

	// Fall-through epilogue: every function body must end in a Return, even
	// one whose last statement wasn't itself a return.
	if !g.endsInReturn() {
		g.emit(Return{Val: Constant{Value: 0}})
	}

	return &Function{Name: program.Function.Name, Instructions: g.instructions}, nil
}

func (g *Generator) endsInReturn() bool {
	if len(g.instructions) == 0 {
		return false
	}
	_, ok := g.instructions[len(g.instructions)-1].(Return)
	return ok
}

func (g *Generator) blockItem(item ast.BlockItem) error {
	switch it := item.(type) {
	case ast.Declaration:
		if it.Init == nil {
			return nil
		}
		v, err := g.expr(it.Init)
		if err != nil {
			return err
		}
		g.emit(Copy{Src: v, Dst: it.Name})
		return nil

	case ast.ReturnStmt:
		v, err := g.expr(it.Expr)
		if err != nil {
			return err
		}
		g.emit(Return{Val: v})
		return nil

	case ast.ExprStmt:
		_, err := g.expr(it.Expr)
		return err

	case ast.NullStmt:
		return nil

	default:
		return fmt.Errorf("tac: unhandled block item %T", item)
	}
}

// expr flattens an expression into TAC: constants and variables lower to
// themselves with no instruction emitted; everything else mints a fresh
// temporary and emits the instruction(s) that compute it, left operand
// before right to preserve source evaluation order.
func (g *Generator) expr(e ast.Expr) (Value, error) {
	switch ex := e.(type) {
	case ast.Constant:
		return Constant{Value: ex.Value}, nil

	case ast.Variable:
		return Variable{Name: ex.Name}, nil

	case ast.UnaryExpr:
		v, err := g.expr(ex.Operand)
		if err != nil {
			return nil, err
		}
		dst := g.newTemp()
		g.emit(Unary{Op: ex.Op, Src: v, Dst: dst})
		return Variable{Name: dst}, nil

	case ast.BinaryExpr:
		switch ex.Op {
		case ast.LogicalAnd:
			return g.lowerAnd(ex)
		case ast.LogicalOr:
			return g.lowerOr(ex)
		default:
			left, err := g.expr(ex.Left)
			if err != nil {
				return nil, err
			}
			right, err := g.expr(ex.Right)
			if err != nil {
				return nil, err
			}
			dst := g.newTemp()
			g.emit(Binary{Op: ex.Op, Src1: left, Src2: right, Dst: dst})
			return Variable{Name: dst}, nil
		}

	case ast.AssignExpr:
		v, err := g.expr(ex.Value)
		if err != nil {
			return nil, err
		}
		// The Resolver (pkg/ast) already guarantees Target is an
		// ast.Variable; an assignment surviving to this point with any
		// other target is a programmer error, not a user-facing one.
		target := ex.Target.(ast.Variable)
		g.emit(Copy{Src: v, Dst: target.Name})
		return Variable{Name: target.Name}, nil

	default:
		return nil, fmt.Errorf("tac: unhandled expr %T", e)
	}
}

// lowerAnd implements short-circuit lowering for `&&`: the right operand is
// only evaluated when the left is nonzero.
func (g *Generator) lowerAnd(ex ast.BinaryExpr) (Value, error) {
	left, err := g.expr(ex.Left)
	if err != nil {
		return nil, err
	}

	falseLbl := g.newLabel("and_false")
	endLbl := g.newLabel("and_end")
	result := g.newTemp()

	g.emit(JumpIfZero{Cond: left, Target: falseLbl})

	right, err := g.expr(ex.Right)
	if err != nil {
		return nil, err
	}
	rightBool := g.newTemp()
	g.emit(Binary{Op: ast.Neq, Src1: right, Src2: Constant{Value: 0}, Dst: rightBool})
	g.emit(Copy{Src: Variable{Name: rightBool}, Dst: result})
	g.emit(Jump{Target: endLbl})

	g.emit(Label{Name: falseLbl})
	g.emit(Copy{Src: Constant{Value: 0}, Dst: result})

	g.emit(Label{Name: endLbl})
	return Variable{Name: result}, nil
}

// lowerOr mirrors lowerAnd with JumpIfNotZero, an early exit that stores 1,
// and the same "right != 0" boolean normalization on the general path.
func (g *Generator) lowerOr(ex ast.BinaryExpr) (Value, error) {
	left, err := g.expr(ex.Left)
	if err != nil {
		return nil, err
	}

	trueLbl := g.newLabel("or_true")
	endLbl := g.newLabel("or_end")
	result := g.newTemp()

	g.emit(JumpIfNotZero{Cond: left, Target: trueLbl})

	right, err := g.expr(ex.Right)
	if err != nil {
		return nil, err
	}
	rightBool := g.newTemp()
	g.emit(Binary{Op: ast.Neq, Src1: right, Src2: Constant{Value: 0}, Dst: rightBool})
	g.emit(Copy{Src: Variable{Name: rightBool}, Dst: result})
	g.emit(Jump{Target: endLbl})

	g.emit(Label{Name: trueLbl})
	g.emit(Copy{Src: Constant{Value: 1}, Dst: result})

	g.emit(Label{Name: endLbl})
	return Variable{Name: result}, nil
}

func (g *Generator) emit(instr Instruction) {
	g.instructions = append(g.instructions, instr)
}

func (g *Generator) newTemp() string {
	name := fmt.Sprintf("tmp.%d", g.varCount)
	g.varCount++
	return name
}

func (g *Generator) newLabel(prefix string) string {
	name := fmt.Sprintf("%s.%d", prefix, g.labelCount)
	g.labelCount++
	return name
}
