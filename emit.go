package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Module renders a Context into the four output sections. Create it after
// register allocation and drop it with Release once the output is written.
type Module struct {
	ctx *Context

	text   strings.Builder
	data   strings.Builder
	rodata strings.Builder
	bss    strings.Builder
}

func NewModule(ctx *Context) *Module {
	return &Module{ctx: ctx}
}

// Release drops the section buffers.
func (m *Module) Release() {
	m.text.Reset()
	m.data.Reset()
	m.rodata.Reset()
	m.bss.Reset()
	m.ctx = nil
}

func (m *Module) Text() string   { return m.text.String() }
func (m *Module) Data() string   { return m.data.String() }
func (m *Module) ROData() string { return m.rodata.String() }
func (m *Module) BSS() string    { return m.bss.String() }

// Generate lowers globals into data/rodata, functions into text, and spill
// areas into bss. Any previous output is discarded first.
func (m *Module) Generate() error {
	m.text.Reset()
	m.data.Reset()
	m.rodata.Reset()
	m.bss.Reset()

	for _, g := range m.ctx.Globals {
		if err := m.generateGlobalVariable(g); err != nil {
			return err
		}
	}

	if m.needsAllocation() && !m.ctx.allocated {
		return fatalf(CategoryCodegen, ErrNotAllocated, "generate called before AllocateRegisters")
	}
	for _, fn := range m.ctx.Functions {
		if err := m.generateFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) needsAllocation() bool {
	for _, fn := range m.ctx.Functions {
		if len(fn.Instructions) > 0 {
			return true
		}
	}
	return false
}

func (m *Module) generateGlobalVariable(g GlobalVariable) error {
	value, err := m.generateTypedValue(g.Value)
	if err != nil {
		return err
	}
	section := &m.data
	if g.Constant {
		section = &m.rodata
	}
	fmt.Fprintf(section, "%s: dw %s\n", globalName(g.Symbol), value)
	return nil
}

func (m *Module) generateTypedValue(tv TypedValue) (string, error) {
	return m.generateValue(tv.Value)
}

// generateValue lowers a value to its literal text.
func (m *Module) generateValue(v Value) (string, error) {
	switch v := v.(type) {
	case IntegerValue:
		return strconv.FormatInt(v.Value, 10), nil

	case FloatValue:
		return "", fatalf(CategoryCodegen, ErrUnsupportedValue, "floating point values are not supported yet")

	case StringValue:
		var sb strings.Builder
		for i := 0; i < len(v.Value); i++ {
			fmt.Fprintf(&sb, "0x%02x, ", v.Value[i])
		}
		sb.WriteString("0x00")
		return sb.String(), nil

	case CharValue:
		return fmt.Sprintf("0x%02x", v.Value), nil

	case GlobalValue:
		return globalName(v.Symbol), nil

	case LocalValue:
		return "", fatalf(CategoryCodegen, ErrUnsupportedValue,
			"local value `%s` is not supported here", m.ctx.Symbols.Name(v.Symbol))

	default:
		return "", fatalf(CategoryCodegen, ErrUnsupportedValue, "not implemented: %T", v)
	}
}

func globalName(id SymbolID) string {
	return "global__" + strconv.Itoa(int(id))
}

func spillAreaName(fn *Function) string {
	return fn.Name + "__spill"
}

// WriteTo writes the four sections in the fixed order text, data, rodata,
// bss.
func (m *Module) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, s := range []struct {
		name string
		body *strings.Builder
	}{
		{".text", &m.text},
		{".data", &m.data},
		{".rodata", &m.rodata},
		{".bss", &m.bss},
	} {
		n, err := fmt.Fprintf(w, "section %s\n%s\n", s.name, s.body.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// functionEmitter lowers one function's instruction stream.
type functionEmitter struct {
	m  *Module
	fn *Function
	// defs maps a local symbol to the interval of its latest definition.
	defs map[SymbolID]int
}

func (m *Module) generateFunction(fn *Function) error {
	fe := &functionEmitter{m: m, fn: fn, defs: make(map[SymbolID]int)}

	fmt.Fprintf(&m.text, "%s:\n", fn.Name)
	label := 0
	for i, inst := range fn.Instructions {
		for ; label < len(fn.Labels) && fn.Labels[label].At <= i; label++ {
			fmt.Fprintf(&m.text, ".%s:\n", fn.Labels[label].Name)
		}
		if err := inst.lower(fe); err != nil {
			return err
		}
		if sym, ok := inst.Defines(); ok && sym != NoSymbol && inst.Interval() != NoInterval {
			fe.defs[sym] = inst.Interval()
		}
	}
	for ; label < len(fn.Labels); label++ {
		fmt.Fprintf(&m.text, ".%s:\n", fn.Labels[label].Name)
	}
	fe.emit("ret")

	if fn.FrameSize > 0 {
		fmt.Fprintf(&m.bss, "%s: resb %d\n", spillAreaName(fn), fn.FrameSize)
	}
	return nil
}

func (fe *functionEmitter) emit(format string, args ...any) {
	fmt.Fprintf(&fe.m.text, "\t"+format+"\n", args...)
}

// location renders where an interval's value lives.
func (fe *functionEmitter) location(interval int) (string, error) {
	if interval == NoInterval || interval >= len(fe.m.ctx.Intervals) {
		return "", fatalf(CategoryCodegen, ErrNotAllocated, "%s: instruction has no live interval", fe.fn.Name)
	}
	sym := fe.m.ctx.Intervals[interval].Symbol
	switch {
	case sym.Reg != RegNone:
		return sym.Reg.String(), nil
	case sym.Spilled():
		return fmt.Sprintf("dword [%s+%d]", spillAreaName(fe.fn), sym.Location), nil
	default:
		return "", fatalf(CategoryCodegen, ErrNotAllocated, "%s: `%s` was never allocated", fe.fn.Name, sym.Name)
	}
}

// operand renders an instruction operand. Literals follow the same rules as
// global initialisers; locals resolve to their allocated location.
func (fe *functionEmitter) operand(tv TypedValue) (string, error) {
	switch v := tv.Value.(type) {
	case LocalValue:
		interval, ok := fe.defs[v.Symbol]
		if !ok {
			return "", fatalf(CategoryCodegen, ErrUndefinedLocal,
				"%s: `%s` is used before it is defined", fe.fn.Name, fe.m.ctx.Symbols.Name(v.Symbol))
		}
		return fe.location(interval)
	case StringValue:
		return "", fatalf(CategoryCodegen, ErrUnsupportedOperand,
			"%s: string literals cannot be instruction operands", fe.fn.Name)
	default:
		return fe.m.generateValue(v)
	}
}

var binaryMnemonics = [...]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "imul",
	OpAnd: "and",
	OpOr:  "or",
	OpXor: "xor",
}

func (b *BinaryInstruction) lower(fe *functionEmitter) error {
	dst, err := fe.location(b.interval)
	if err != nil {
		return err
	}
	lhs, err := fe.operand(b.LHS)
	if err != nil {
		return err
	}
	rhs, err := fe.operand(b.RHS)
	if err != nil {
		return err
	}
	fe.emit("mov %s, %s", dst, lhs)
	fe.emit("%s %s, %s", binaryMnemonics[b.Op], dst, rhs)
	return nil
}
