package ast

import "fmt"

// Resolve renames every declared variable to a globally-unique name of the
// form "<name>.<counter>" and validates every Variable reference and every
// assignment target. A duplicate-declaration check happens before the
// mapping is installed, and the new mapping is installed before the
// initializer is resolved, so `int a = a;` resolves its right-hand side to
// the freshly minted name rather than failing as an undeclared reference.
func Resolve(program *Program) (*Program, error) {
	ctx := &resolver{names: map[string]string{}}
	body, err := ctx.blockItems(program.Function.Body)
	if err != nil {
		return nil, err
	}
	return &Program{Function: Function{Name: program.Function.Name, Body: body}}, nil
}

type resolver struct {
	names   map[string]string
	counter int
}

func (r *resolver) blockItems(items []BlockItem) ([]BlockItem, error) {
	out := make([]BlockItem, len(items))
	for i, item := range items {
		resolved, err := r.blockItem(item)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func (r *resolver) blockItem(item BlockItem) (BlockItem, error) {
	switch it := item.(type) {
	case Declaration:
		return r.declaration(it)
	case ReturnStmt:
		e, err := r.expr(it.Expr)
		if err != nil {
			return nil, err
		}
		return ReturnStmt{Expr: e}, nil
	case ExprStmt:
		e, err := r.expr(it.Expr)
		if err != nil {
			return nil, err
		}
		return ExprStmt{Expr: e}, nil
	case NullStmt:
		return it, nil
	default:
		return nil, fmt.Errorf("ast: unhandled block item %T", item)
	}
}

func (r *resolver) declaration(d Declaration) (BlockItem, error) {
	if _, exists := r.names[d.Name]; exists {
		return nil, &SemanticError{Kind: DuplicateDeclaration, Name: d.Name}
	}

	unique := fmt.Sprintf("%s.%d", d.Name, r.counter)
	r.counter++
	r.names[d.Name] = unique

	var init Expr
	if d.Init != nil {
		resolved, err := r.expr(d.Init)
		if err != nil {
			return nil, err
		}
		init = resolved
	}
	return Declaration{Name: unique, Init: init}, nil
}

func (r *resolver) expr(e Expr) (Expr, error) {
	switch ex := e.(type) {
	case Constant:
		return ex, nil

	case Variable:
		unique, ok := r.names[ex.Name]
		if !ok {
			return nil, &SemanticError{Kind: UndeclaredVariable, Name: ex.Name}
		}
		return Variable{Name: unique}, nil

	case UnaryExpr:
		inner, err := r.expr(ex.Operand)
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: ex.Op, Operand: inner}, nil

	case BinaryExpr:
		left, err := r.expr(ex.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.expr(ex.Right)
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: ex.Op, Left: left, Right: right}, nil

	case AssignExpr:
		if _, ok := ex.Target.(Variable); !ok {
			return nil, &SemanticError{Kind: InvalidLvalue}
		}
		target, err := r.expr(ex.Target)
		if err != nil {
			return nil, err
		}
		value, err := r.expr(ex.Value)
		if err != nil {
			return nil, err
		}
		return AssignExpr{Target: target, Value: value}, nil

	default:
		return nil, fmt.Errorf("ast: unhandled expr %T", e)
	}
}
