package main

import "fmt"

// noFunction is the builder cursor value for global scope.
const noFunction = -1

// Context owns everything produced while translating one unit: the symbol
// table, globals, functions and the live intervals derived from them.
// A Context is meant to be used by a single goroutine.
type Context struct {
	Symbols   *SymbolTable
	Globals   []GlobalVariable
	Functions []*Function

	// Intervals holds one entry per value-defining instruction, across all
	// functions. Filled by ComputeLiveIntervals.
	Intervals []*LiveInterval

	current   int
	allocated bool
	log       *Logger
}

func NewContext(log *Logger) *Context {
	return &Context{
		Symbols: NewSymbolTable(),
		current: noFunction,
		log:     log,
	}
}

// Local builds a reference to a function-local value, interning name.
func (c *Context) Local(name string) Value {
	return LocalValue{Symbol: c.Symbols.FindOrAdd(name)}
}

// Global builds a reference to a global variable, interning name.
func (c *Context) Global(name string) Value {
	return GlobalValue{Symbol: c.Symbols.FindOrAdd(name)}
}

// BuildGlobalVariable declares a global. Redefining a name is reported as
// an error wrapping ErrDuplicateSymbol; the caller decides whether that is
// fatal.
func (c *Context) BuildGlobalVariable(name string, constant bool, value TypedValue) (SymbolID, error) {
	id, err := c.Symbols.Add(name)
	if err != nil {
		return NoSymbol, errorf(CategoryBuild, err, "redefinition of global symbol `%s`", name)
	}
	c.Globals = append(c.Globals, GlobalVariable{
		Symbol:   id,
		Constant: constant,
		Value:    value,
	})
	c.log.Debug("global %s = global__%d (constant=%t)", name, id, constant)
	return id, nil
}

// BuildFunction opens a new function. Only one function may be open at a
// time; instructions and labels are added through the returned builder.
func (c *Context) BuildFunction(name string) (*FunctionBuilder, error) {
	if c.current != noFunction {
		open := c.Functions[c.current].Name
		return nil, errorf(CategoryBuild, ErrFunctionOpen, "cannot open `%s` while `%s` is open", name, open)
	}
	c.Functions = append(c.Functions, &Function{Name: name})
	c.current = len(c.Functions) - 1
	c.allocated = false
	c.log.Debug("begin function %s", name)
	return &FunctionBuilder{ctx: c, index: c.current}, nil
}

// InFunction reports whether a function is currently open.
func (c *Context) InFunction() bool {
	return c.current != noFunction
}

// FunctionBuilder is the "building a function" state. It is only valid
// until Finish is called.
type FunctionBuilder struct {
	ctx      *Context
	index    int
	finished bool
}

func (b *FunctionBuilder) fn() *Function {
	if b.finished {
		panic(fmt.Sprintf("function builder for `%s` used after Finish", b.ctx.Functions[b.index].Name))
	}
	return b.ctx.Functions[b.index]
}

// Function returns the function being built.
func (b *FunctionBuilder) Function() *Function {
	return b.ctx.Functions[b.index]
}

// Finish closes the function and returns the context to global scope.
func (b *FunctionBuilder) Finish() {
	fn := b.fn()
	b.finished = true
	b.ctx.current = noFunction
	b.ctx.log.Debug("end function %s (%d instructions)", fn.Name, len(fn.Instructions))
}

// BuildLabel adds a label in front of the next instruction and returns its
// index in the function's label list.
func (b *FunctionBuilder) BuildLabel(name string) int {
	fn := b.fn()
	fn.Labels = append(fn.Labels, Label{Name: name, At: fn.IP})
	return len(fn.Labels) - 1
}

// BuildBinary appends dest = lhs op rhs and returns the instruction index.
// An empty dest produces an unnamed value.
func (b *FunctionBuilder) BuildBinary(op BinaryOp, dest string, lhs, rhs TypedValue) int {
	fn := b.fn()
	sym := NoSymbol
	if dest != "" {
		sym = b.ctx.Symbols.FindOrAdd(dest)
	}
	fn.Instructions = append(fn.Instructions, &BinaryInstruction{
		Op:       op,
		Dest:     sym,
		LHS:      lhs,
		RHS:      rhs,
		interval: NoInterval,
	})
	fn.IP = len(fn.Instructions)
	b.ctx.allocated = false
	return fn.IP - 1
}

func (b *FunctionBuilder) BuildAdd(dest string, lhs, rhs TypedValue) int {
	return b.BuildBinary(OpAdd, dest, lhs, rhs)
}

func (b *FunctionBuilder) BuildSub(dest string, lhs, rhs TypedValue) int {
	return b.BuildBinary(OpSub, dest, lhs, rhs)
}

func (b *FunctionBuilder) BuildMul(dest string, lhs, rhs TypedValue) int {
	return b.BuildBinary(OpMul, dest, lhs, rhs)
}

func (b *FunctionBuilder) BuildAnd(dest string, lhs, rhs TypedValue) int {
	return b.BuildBinary(OpAnd, dest, lhs, rhs)
}

func (b *FunctionBuilder) BuildOr(dest string, lhs, rhs TypedValue) int {
	return b.BuildBinary(OpOr, dest, lhs, rhs)
}

func (b *FunctionBuilder) BuildXor(dest string, lhs, rhs TypedValue) int {
	return b.BuildBinary(OpXor, dest, lhs, rhs)
}
