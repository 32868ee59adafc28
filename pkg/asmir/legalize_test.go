package asmir

import "testing"

func TestLegalizeEliminatesAllPseudoOperands(t *testing.T) {
	fn := &Function{Name: "main", Instructions: []Instruction{
		Move{Dst: Pseudo{Name: "a"}, Src: Immediate{Value: 1}},
		Move{Dst: Pseudo{Name: "b"}, Src: Pseudo{Name: "a"}},
		Unary{Op: Neg, Operand: Pseudo{Name: "b"}},
	}}
	legalized, err := Legalize(fn)
	if err != nil {
		t.Fatalf("Legalize returned error: %s", err)
	}
	for _, instr := range legalized.Instructions {
		if containsPseudo(instr) {
			t.Fatalf("pseudo operand survived legalization in %#v", instr)
		}
	}
}

func TestLegalizeAlignsStackTo16Bytes(t *testing.T) {
	fn := &Function{Name: "main", Instructions: []Instruction{
		Move{Dst: Pseudo{Name: "a"}, Src: Immediate{Value: 1}},
	}}
	legalized, err := Legalize(fn)
	if err != nil {
		t.Fatalf("Legalize returned error: %s", err)
	}
	alloc, ok := legalized.Instructions[0].(AllocateStack)
	if !ok {
		t.Fatalf("got %T as first instruction, want AllocateStack", legalized.Instructions[0])
	}
	if alloc.Bytes%16 != 0 {
		t.Errorf("got %d bytes, want a multiple of 16", alloc.Bytes)
	}
}

func TestLegalizeSplitsStackToStackMove(t *testing.T) {
	fn := &Function{Name: "main", Instructions: []Instruction{
		Move{Dst: Pseudo{Name: "a"}, Src: Immediate{Value: 1}},
		Move{Dst: Pseudo{Name: "b"}, Src: Immediate{Value: 2}},
		Move{Dst: Pseudo{Name: "b"}, Src: Pseudo{Name: "a"}},
	}}
	legalized, err := Legalize(fn)
	if err != nil {
		t.Fatalf("Legalize returned error: %s", err)
	}
	for _, instr := range legalized.Instructions {
		if mv, ok := instr.(Move); ok {
			if isStack(mv.Dst) && isStack(mv.Src) {
				t.Fatalf("a Stack->Stack Move survived legalization: %#v", mv)
			}
		}
	}
}

func TestLegalizeMultiplyNeverTargetsMemory(t *testing.T) {
	fn := &Function{Name: "main", Instructions: []Instruction{
		Move{Dst: Pseudo{Name: "a"}, Src: Immediate{Value: 2}},
		Binary{Op: Mul, Dst: Pseudo{Name: "a"}, Src: Immediate{Value: 3}},
	}}
	legalized, err := Legalize(fn)
	if err != nil {
		t.Fatalf("Legalize returned error: %s", err)
	}
	for _, instr := range legalized.Instructions {
		if b, ok := instr.(Binary); ok && b.Op == Mul {
			if isStack(b.Dst) {
				t.Fatalf("imul survived with a Stack destination: %#v", b)
			}
		}
	}
}

func TestLegalizeShiftCountIsImmediateOrCX(t *testing.T) {
	fn := &Function{Name: "main", Instructions: []Instruction{
		Move{Dst: Pseudo{Name: "a"}, Src: Immediate{Value: 1}},
		Move{Dst: Pseudo{Name: "b"}, Src: Immediate{Value: 2}},
		Binary{Op: Sal, Dst: Pseudo{Name: "a"}, Src: Pseudo{Name: "b"}},
	}}
	legalized, err := Legalize(fn)
	if err != nil {
		t.Fatalf("Legalize returned error: %s", err)
	}
	for _, instr := range legalized.Instructions {
		if b, ok := instr.(Binary); ok && (b.Op == Sal || b.Op == Sar) {
			if !isImmediateOrCX(b.Src) {
				t.Fatalf("shift count survived as neither immediate nor CX: %#v", b.Src)
			}
		}
	}
}

func TestLegalizeDivisorIsNeverAnImmediate(t *testing.T) {
	fn := &Function{Name: "main", Instructions: []Instruction{
		Move{Dst: Register{Reg: AX}, Src: Immediate{Value: 10}},
		ConvertDQ{},
		Division{Divisor: Immediate{Value: 3}},
	}}
	legalized, err := Legalize(fn)
	if err != nil {
		t.Fatalf("Legalize returned error: %s", err)
	}
	for _, instr := range legalized.Instructions {
		if d, ok := instr.(Division); ok {
			if _, ok := d.Divisor.(Immediate); ok {
				t.Fatalf("idiv survived with an immediate divisor: %#v", d)
			}
		}
	}
}

func TestLegalizeCompareNeverHasTwoMemoryOperands(t *testing.T) {
	fn := &Function{Name: "main", Instructions: []Instruction{
		Move{Dst: Pseudo{Name: "a"}, Src: Immediate{Value: 1}},
		Move{Dst: Pseudo{Name: "b"}, Src: Immediate{Value: 2}},
		Compare{Dst: Pseudo{Name: "a"}, Src: Pseudo{Name: "b"}},
	}}
	legalized, err := Legalize(fn)
	if err != nil {
		t.Fatalf("Legalize returned error: %s", err)
	}
	for _, instr := range legalized.Instructions {
		if c, ok := instr.(Compare); ok {
			if isStack(c.Dst) && isStack(c.Src) {
				t.Fatalf("cmp survived with two Stack operands: %#v", c)
			}
		}
	}
}

func containsPseudo(instr Instruction) bool {
	isPseudo := func(op Operand) bool {
		_, ok := op.(Pseudo)
		return ok
	}
	switch it := instr.(type) {
	case Move:
		return isPseudo(it.Dst) || isPseudo(it.Src)
	case Unary:
		return isPseudo(it.Operand)
	case Binary:
		return isPseudo(it.Dst) || isPseudo(it.Src)
	case Compare:
		return isPseudo(it.Dst) || isPseudo(it.Src)
	case Division:
		return isPseudo(it.Divisor)
	case SetCondition:
		return isPseudo(it.Dst)
	default:
		return false
	}
}
