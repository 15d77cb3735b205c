package main

import (
	"fmt"
	"strconv"
)

// Type is the closed set of IR types. Only integers exist today.
type Type interface {
	fmt.Stringer
	isType()
}

// IntType is an integer of the given width in bits.
type IntType struct {
	Bits     int
	Unsigned bool
}

func (IntType) isType() {}

func (t IntType) String() string {
	if t.Unsigned {
		return "u" + strconv.Itoa(t.Bits)
	}
	return "i" + strconv.Itoa(t.Bits)
}

// Value is the closed set of IR values.
type Value interface {
	isValue()
}

// IntegerValue is a signed integer literal.
type IntegerValue struct{ Value int64 }

// FloatValue is a floating point literal. The emitter rejects it.
type FloatValue struct{ Value float64 }

// StringValue is a string literal, emitted NUL-terminated.
type StringValue struct{ Value string }

// CharValue is a single byte literal.
type CharValue struct{ Value byte }

// LocalValue refers to a value defined by an instruction in the same
// function.
type LocalValue struct{ Symbol SymbolID }

// GlobalValue refers to a global variable by symbol.
type GlobalValue struct{ Symbol SymbolID }

func (IntegerValue) isValue() {}
func (FloatValue) isValue()   {}
func (StringValue) isValue()  {}
func (CharValue) isValue()    {}
func (LocalValue) isValue()   {}
func (GlobalValue) isValue()  {}

// TypedValue pairs a value with the type it is read or stored as.
type TypedValue struct {
	Type  Type
	Value Value
}

// Type and value constructors

func Int(bits int) Type         { return IntType{Bits: bits} }
func UnsignedInt(bits int) Type { return IntType{Bits: bits, Unsigned: true} }

func IntegerLiteral(v int64) Value { return IntegerValue{Value: v} }
func FloatLiteral(v float64) Value { return FloatValue{Value: v} }
func StringLiteral(v string) Value { return StringValue{Value: v} }
func CharLiteral(v byte) Value     { return CharValue{Value: v} }
func Typed(t Type, v Value) TypedValue {
	return TypedValue{Type: t, Value: v}
}

// NoInterval marks an instruction that defines no register-resident value.
const NoInterval = -1

// Instruction is the closed set of IR instructions. Every variant knows how
// to lower itself, so a new kind does not compile until it can be emitted.
type Instruction interface {
	// Operands returns the typed values the instruction reads.
	Operands() []TypedValue
	// Defines returns the symbol of the value the instruction produces.
	Defines() (SymbolID, bool)
	// Interval is the index into Context.Intervals for the defined value,
	// or NoInterval.
	Interval() int
	setInterval(int)
	lower(fe *functionEmitter) error
}

// BinaryOp enumerates the two-operand arithmetic instructions.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpAnd
	OpOr
	OpXor
)

var binaryOpNames = [...]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpAnd: "and",
	OpOr:  "or",
	OpXor: "xor",
}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binaryOpNames) {
		return fmt.Sprintf("BinaryOp(%d)", int(op))
	}
	return binaryOpNames[op]
}

// ParseBinaryOp maps an op name as written in IR files back to its BinaryOp.
func ParseBinaryOp(name string) (BinaryOp, bool) {
	for i, n := range binaryOpNames {
		if n == name {
			return BinaryOp(i), true
		}
	}
	return 0, false
}

// BinaryInstruction computes Dest = LHS <Op> RHS. Dest may be NoSymbol for
// an unnamed result; the value still gets an interval.
type BinaryInstruction struct {
	Op       BinaryOp
	Dest     SymbolID
	LHS, RHS TypedValue

	interval int
}

func (b *BinaryInstruction) Operands() []TypedValue    { return []TypedValue{b.LHS, b.RHS} }
func (b *BinaryInstruction) Defines() (SymbolID, bool) { return b.Dest, true }
func (b *BinaryInstruction) Interval() int             { return b.interval }
func (b *BinaryInstruction) setInterval(i int)         { b.interval = i }

// Label marks the position in a function's instruction stream it precedes.
type Label struct {
	Name string
	At   int
}

// Function is a named instruction stream with its labels.
type Function struct {
	Name         string
	Instructions []Instruction
	// IP is the index the next instruction will be appended at.
	IP     int
	Labels []Label
	// FrameSize is the number of spill bytes the allocator reserved.
	FrameSize int
}

// GlobalVariable is a module-level value placed in data or rodata.
type GlobalVariable struct {
	Symbol   SymbolID
	Constant bool
	Value    TypedValue
}
