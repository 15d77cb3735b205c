package main

// Linear-scan register allocation (Poletto & Sarkar).
//
// Intervals are visited in ascending start point. Before each one, every
// active interval that ended earlier gives its register back. If no
// register is free, whichever of the current interval and the active
// interval ending last ends later goes to the stack.

import (
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Register is a physical register of the target machine.
type Register int

const (
	RegNone Register = iota

	RegEAX
	RegEBX
	RegECX
	RegEDX
	RegESI
	RegEDI
	RegEBP
	RegESP

	registerCount
)

var registerNames = [...]string{
	RegNone: "none",
	RegEAX:  "eax",
	RegEBX:  "ebx",
	RegECX:  "ecx",
	RegEDX:  "edx",
	RegESI:  "esi",
	RegEDI:  "edi",
	RegEBP:  "ebp",
	RegESP:  "esp",
}

func (r Register) String() string {
	if r < 0 || r >= registerCount {
		return "invalid"
	}
	return registerNames[r]
}

// ParseRegister maps an assembler register name back to a Register.
func ParseRegister(name string) (Register, bool) {
	for r := RegEAX; r < registerCount; r++ {
		if registerNames[r] == name {
			return r, true
		}
	}
	return RegNone, false
}

// StackSlotSize is the width of one spill slot in bytes.
const StackSlotSize = 4

// RegisterPool holds the free registers in FIFO order: Get takes from the
// front and Put appends to the back.
type RegisterPool struct {
	registers []Register
}

// NewRegisterPool keeps the first occurrence of each register and drops
// RegNone, so no register can be handed out twice.
func NewRegisterPool(regs ...Register) *RegisterPool {
	p := &RegisterPool{}
	for _, reg := range regs {
		p.Put(reg)
	}
	return p
}

// DefaultRegisterPool returns all eight machine registers.
func DefaultRegisterPool() *RegisterPool {
	return NewRegisterPool(RegEAX, RegEBX, RegECX, RegEDX, RegESI, RegEDI, RegEBP, RegESP)
}

// Get removes and returns the first free register, or RegNone.
func (p *RegisterPool) Get() Register {
	if len(p.registers) == 0 {
		return RegNone
	}
	reg := p.registers[0]
	p.registers = slices.Delete(p.registers, 0, 1)
	return reg
}

// Put returns reg to the back of the pool. Returning a register that is
// already free is a no-op.
func (p *RegisterPool) Put(reg Register) {
	if reg == RegNone || p.Contains(reg) {
		return
	}
	p.registers = append(p.registers, reg)
}

func (p *RegisterPool) Contains(reg Register) bool {
	return slices.Contains(p.registers, reg)
}

func (p *RegisterPool) Empty() bool {
	return len(p.registers) == 0
}

func (p *RegisterPool) Len() int {
	return len(p.registers)
}

// Registers returns a copy of the free registers in pool order.
func (p *RegisterPool) Registers() []Register {
	return slices.Clone(p.registers)
}

// Allocator runs one linear-scan pass. The active list only ever holds
// intervals that own a physical register, ordered by ascending end point.
type Allocator struct {
	pool   *RegisterPool
	active []*LiveInterval
	stack  int
	log    *Logger
}

func NewAllocator(pool *RegisterPool, log *Logger) *Allocator {
	return &Allocator{pool: pool, log: log}
}

// Allocate assigns every interval either a register or a stack offset.
// The caller's slice is not reordered.
func (a *Allocator) Allocate(intervals []*LiveInterval) {
	ordered := slices.Clone(intervals)
	slices.SortStableFunc(ordered, func(x, y *LiveInterval) int {
		return x.StartPoint - y.StartPoint
	})

	for _, li := range ordered {
		a.log.Debug("interval %s [%d, %d]", li.Symbol.Name, li.StartPoint, li.EndPoint)
		a.expireOldIntervals(li)

		if a.pool.Empty() {
			a.spillAtInterval(li)
			continue
		}
		reg := a.pool.Get()
		li.Symbol.Reg = reg
		li.Symbol.Location = NoLocation
		a.insertActive(li)
		a.log.Debug("allocate register %s to %s", reg, li.Symbol.Name)
	}
}

// expireOldIntervals drops every active interval that ends before li
// starts and frees its register.
func (a *Allocator) expireOldIntervals(li *LiveInterval) {
	kept := a.active[:0]
	for _, act := range a.active {
		if act.EndPoint >= li.StartPoint {
			kept = append(kept, act)
			continue
		}
		a.log.Debug("expire %s, freeing %s", act.Symbol.Name, act.Symbol.Reg)
		a.pool.Put(act.Symbol.Reg)
	}
	clear(a.active[len(kept):])
	a.active = kept
}

// spillAtInterval sends li or the active interval ending last to the next
// stack slot. With an empty active list, li is spilled.
func (a *Allocator) spillAtInterval(li *LiveInterval) {
	if n := len(a.active); n > 0 && a.active[n-1].EndPoint > li.EndPoint {
		spill := a.active[n-1]
		li.Symbol.Reg = spill.Symbol.Reg
		li.Symbol.Location = NoLocation
		spill.Symbol.Reg = RegNone
		spill.Symbol.Location = a.stack
		a.active = a.active[:n-1]
		a.insertActive(li)
		a.log.Debug("spill %s to [%d], register %s goes to %s",
			spill.Symbol.Name, spill.Symbol.Location, li.Symbol.Reg, li.Symbol.Name)
	} else {
		li.Symbol.Reg = RegNone
		li.Symbol.Location = a.stack
		a.log.Debug("spill %s to [%d]", li.Symbol.Name, li.Symbol.Location)
	}
	a.stack += StackSlotSize
}

// insertActive keeps active sorted by end point; equal end points keep
// insertion order.
func (a *Allocator) insertActive(li *LiveInterval) {
	i := sort.Search(len(a.active), func(i int) bool {
		return a.active[i].EndPoint > li.EndPoint
	})
	a.active = slices.Insert(a.active, i, li)
}

// StackSize is the number of spill bytes handed out so far.
func (a *Allocator) StackSize() int {
	return a.stack
}

// Active returns a copy of the active list.
func (a *Allocator) Active() []*LiveInterval {
	return slices.Clone(a.active)
}

// Pool exposes the free-register pool.
func (a *Allocator) Pool() *RegisterPool {
	return a.pool
}

// AllocateRegisters recomputes live intervals and allocates each function
// with its own allocator, register pool and stack cursor. Up to jobs
// functions are allocated concurrently.
func (c *Context) AllocateRegisters(jobs int) error {
	if c.current != noFunction {
		return errorf(CategoryBuild, ErrFunctionOpen,
			"cannot allocate registers while `%s` is open", c.Functions[c.current].Name)
	}
	c.ComputeLiveIntervals()

	if jobs < 1 {
		jobs = 1
	}
	var g errgroup.Group
	g.SetLimit(jobs)
	for fi, fn := range c.Functions {
		intervals := c.intervalsOf(fi)
		g.Go(func() error {
			a := NewAllocator(DefaultRegisterPool(), c.log)
			a.Allocate(intervals)
			fn.FrameSize = a.StackSize()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.allocated = true
	for _, li := range c.Intervals {
		c.log.Info("%s", li)
	}
	return nil
}
