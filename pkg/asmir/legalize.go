package asmir

// Legalizer performs Phase B (pseudo-to-stack-slot allocation) and Phase C
// (instruction legalization fixups), in that order. A single linear pass
// assigns every Pseudo a Stack offset, then six fixup passes run in the
// fixed order fixMoves, fixDivImmediate, fixBinary, fixShifts, fixMultiply,
// fixCompares. fixBinary excludes Mul and the two shift ops from its own
// detection, so its position relative to fixMultiply has no observable
// effect, but the order is kept fixed regardless.
type Legalizer struct {
	stackMap  map[string]int32
	nextStack int32
}

func NewLegalizer() *Legalizer {
	return &Legalizer{stackMap: map[string]int32{}, nextStack: 4}
}

// Legalize runs Phase B and Phase C over fn in one call.
func Legalize(fn *Function) (*Function, error) {
	return NewLegalizer().Legalize(fn)
}

func (lg *Legalizer) Legalize(fn *Function) (*Function, error) {
	instructions := lg.replacePseudos(fn.Instructions)

	instructions = fixMoves(instructions)
	instructions = fixDivImmediate(instructions)
	instructions = fixBinary(instructions)
	instructions = fixShifts(instructions)
	instructions = fixMultiply(instructions)
	instructions = fixCompares(instructions)

	stackSize := lg.nextStack - 4
	aligned := (stackSize + 15) &^ 15
	instructions = append([]Instruction{AllocateStack{Bytes: aligned}}, instructions...)

	return &Function{Name: fn.Name, Instructions: instructions}, nil
}

// replacePseudos is Phase B: every Pseudo operand is mapped to a Stack
// offset, a single pass over a name->offset map starting at 4 and growing
// by 4 per newly seen name. After this, no Pseudo operand survives in the
// returned instruction list (see resolve's use across every operand-
// bearing instruction kind below).
func (lg *Legalizer) replacePseudos(instrs []Instruction) []Instruction {
	out := make([]Instruction, len(instrs))
	for i, instr := range instrs {
		out[i] = lg.replaceInInstruction(instr)
	}
	return out
}

func (lg *Legalizer) replaceInInstruction(instr Instruction) Instruction {
	switch it := instr.(type) {
	case Move:
		return Move{Dst: lg.resolve(it.Dst), Src: lg.resolve(it.Src)}
	case Unary:
		return Unary{Op: it.Op, Operand: lg.resolve(it.Operand)}
	case Binary:
		return Binary{Op: it.Op, Dst: lg.resolve(it.Dst), Src: lg.resolve(it.Src)}
	case Compare:
		return Compare{Dst: lg.resolve(it.Dst), Src: lg.resolve(it.Src)}
	case Division:
		return Division{Divisor: lg.resolve(it.Divisor)}
	case SetCondition:
		return SetCondition{Cond: it.Cond, Dst: lg.resolve(it.Dst)}
	default:
		// Jump, JumpCondition, Label, ConvertDQ, AllocateStack, Return carry
		// no operand that could be a Pseudo.
		return instr
	}
}

func (lg *Legalizer) resolve(op Operand) Operand {
	p, ok := op.(Pseudo)
	if !ok {
		return op
	}
	if offset, exists := lg.stackMap[p.Name]; exists {
		return Stack{Offset: offset}
	}
	offset := lg.nextStack
	lg.stackMap[p.Name] = offset
	lg.nextStack += 4
	return Stack{Offset: offset}
}

func isStack(op Operand) bool {
	_, ok := op.(Stack)
	return ok
}

func isImmediateOrCX(op Operand) bool {
	if _, ok := op.(Immediate); ok {
		return true
	}
	if reg, ok := op.(Register); ok {
		return reg.Reg == CX
	}
	return false
}

// fixMoves splits a Stack->Stack Move through R10, the "source scratch".
func fixMoves(instrs []Instruction) []Instruction {
	var out []Instruction
	for _, instr := range instrs {
		if mv, ok := instr.(Move); ok && isStack(mv.Dst) && isStack(mv.Src) {
			out = append(out,
				Move{Dst: Register{Reg: R10}, Src: mv.Src},
				Move{Dst: mv.Dst, Src: Register{Reg: R10}},
			)
			continue
		}
		out = append(out, instr)
	}
	return out
}

// fixDivImmediate stages an immediate divisor through R10: x86's idiv
// cannot take an immediate operand.
func fixDivImmediate(instrs []Instruction) []Instruction {
	var out []Instruction
	for _, instr := range instrs {
		if d, ok := instr.(Division); ok {
			if imm, ok := d.Divisor.(Immediate); ok {
				out = append(out,
					Move{Dst: Register{Reg: R10}, Src: imm},
					Division{Divisor: Register{Reg: R10}},
				)
				continue
			}
		}
		out = append(out, instr)
	}
	return out
}

// fixBinary splits a Stack->Stack Binary (add/sub/and/or/xor) through R10.
// Mul and the two shift ops are excluded: Mul's constraint is about its
// destination, not both operands being memory, and shifts are fixed by
// fixShifts below.
func fixBinary(instrs []Instruction) []Instruction {
	var out []Instruction
	for _, instr := range instrs {
		if b, ok := instr.(Binary); ok && b.Op != Mul && b.Op != Sal && b.Op != Sar {
			if isStack(b.Dst) && isStack(b.Src) {
				out = append(out,
					Move{Dst: Register{Reg: R10}, Src: b.Src},
					Binary{Op: b.Op, Dst: b.Dst, Src: Register{Reg: R10}},
				)
				continue
			}
		}
		out = append(out, instr)
	}
	return out
}

// fixShifts stages a non-immediate, non-CX shift count through CX, the
// only register x86 accepts as a variable shift count.
func fixShifts(instrs []Instruction) []Instruction {
	var out []Instruction
	for _, instr := range instrs {
		if b, ok := instr.(Binary); ok && (b.Op == Sal || b.Op == Sar) {
			if !isImmediateOrCX(b.Src) {
				out = append(out,
					Move{Dst: Register{Reg: CX}, Src: b.Src},
					Binary{Op: b.Op, Dst: b.Dst, Src: Register{Reg: CX}},
				)
				continue
			}
		}
		out = append(out, instr)
	}
	return out
}

// fixMultiply rewrites an imul with a Stack destination through R11, the
// "destination scratch": imul cannot write directly to memory.
func fixMultiply(instrs []Instruction) []Instruction {
	var out []Instruction
	for _, instr := range instrs {
		if b, ok := instr.(Binary); ok && b.Op == Mul && isStack(b.Dst) {
			out = append(out,
				Move{Dst: Register{Reg: R11}, Src: b.Dst},
				Binary{Op: Mul, Dst: Register{Reg: R11}, Src: b.Src},
				Move{Dst: b.Dst, Src: Register{Reg: R11}},
			)
			continue
		}
		out = append(out, instr)
	}
	return out
}

// fixCompares splits a Stack->Stack Compare through R10.
func fixCompares(instrs []Instruction) []Instruction {
	var out []Instruction
	for _, instr := range instrs {
		if c, ok := instr.(Compare); ok && isStack(c.Dst) && isStack(c.Src) {
			out = append(out,
				Move{Dst: Register{Reg: R10}, Src: c.Src},
				Compare{Dst: c.Dst, Src: Register{Reg: R10}},
			)
			continue
		}
		out = append(out, instr)
	}
	return out
}
