package main

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/nalgeon/be"
)

func TestRegisterPoolFIFO(t *testing.T) {
	pool := NewRegisterPool(RegEAX, RegEBX, RegECX)

	be.Equal(t, pool.Get(), RegEAX)
	pool.Put(RegEAX)
	be.Equal(t, pool.Registers(), []Register{RegEBX, RegECX, RegEAX})
	be.Equal(t, pool.Get(), RegEBX)
	be.Equal(t, pool.Get(), RegECX)
	be.Equal(t, pool.Get(), RegEAX)
	be.Equal(t, pool.Empty(), true)
	be.Equal(t, pool.Get(), RegNone)
}

func TestRegisterPoolPutIgnoresDuplicates(t *testing.T) {
	pool := NewRegisterPool(RegEAX)
	pool.Put(RegEAX)
	pool.Put(RegNone)
	be.Equal(t, pool.Len(), 1)
}

func TestNewRegisterPoolDropsDuplicates(t *testing.T) {
	pool := NewRegisterPool(RegEAX, RegNone, RegEBX, RegEAX)
	be.Equal(t, pool.Registers(), []Register{RegEAX, RegEBX})
}

func TestAllocateDuplicateRegistersDoNotOverlap(t *testing.T) {
	a := NewLiveInterval("a", 0, 5)
	b := NewLiveInterval("b", 1, 5)

	alloc := NewAllocator(NewRegisterPool(RegEAX, RegEAX), nil)
	alloc.Allocate([]*LiveInterval{a, b})

	be.Equal(t, a.Symbol.Reg, RegEAX)
	be.Equal(t, b.Symbol.Reg, RegNone)
	be.Equal(t, b.Symbol.Location, 0)
	be.Equal(t, alloc.StackSize(), StackSlotSize)
}

func TestAllocateEmptyPool(t *testing.T) {
	a := NewLiveInterval("a", 0, 2)
	b := NewLiveInterval("b", 1, 3)

	alloc := NewAllocator(NewRegisterPool(), nil)
	alloc.Allocate([]*LiveInterval{a, b})

	be.Equal(t, a.Symbol.Reg, RegNone)
	be.Equal(t, a.Symbol.Location, 0)
	be.Equal(t, b.Symbol.Reg, RegNone)
	be.Equal(t, b.Symbol.Location, 4)
	be.Equal(t, alloc.StackSize(), 8)
	be.Equal(t, len(alloc.Active()), 0)
}

func TestDefaultRegisterPool(t *testing.T) {
	pool := DefaultRegisterPool()
	be.Equal(t, pool.Len(), 8)
	be.Equal(t, pool.Registers()[0], RegEAX)
	be.Equal(t, pool.Contains(RegNone), false)
}

func TestParseRegister(t *testing.T) {
	for r := RegEAX; r < registerCount; r++ {
		parsed, ok := ParseRegister(r.String())
		be.True(t, ok)
		be.Equal(t, parsed, r)
	}
	_, ok := ParseRegister("rax")
	be.Equal(t, ok, false)
	be.Equal(t, Register(99).String(), "invalid")
}

func TestAllocateNoPressure(t *testing.T) {
	a := NewLiveInterval("a", 0, 3)
	b := NewLiveInterval("b", 1, 2)

	alloc := NewAllocator(DefaultRegisterPool(), nil)
	alloc.Allocate([]*LiveInterval{a, b})

	be.Equal(t, a.Symbol.Reg, RegEAX)
	be.Equal(t, b.Symbol.Reg, RegEBX)
	be.Equal(t, a.Symbol.Location, NoLocation)
	be.Equal(t, alloc.StackSize(), 0)
}

func TestAllocateExpiresAllEndedIntervals(t *testing.T) {
	a := NewLiveInterval("A", 0, 1)
	b := NewLiveInterval("B", 0, 1)
	c := NewLiveInterval("C", 2, 5)
	d := NewLiveInterval("D", 2, 6)

	alloc := NewAllocator(NewRegisterPool(RegEAX, RegEBX), nil)
	alloc.Allocate([]*LiveInterval{a, b, c, d})

	be.Equal(t, a.Symbol.Reg, RegEAX)
	be.Equal(t, b.Symbol.Reg, RegEBX)
	be.Equal(t, c.Symbol.Reg, RegEAX)
	be.Equal(t, d.Symbol.Reg, RegEBX)
	be.Equal(t, alloc.StackSize(), 0)
	be.Equal(t, len(alloc.Active()), 2)
}

func TestAllocateSpillsCurrentInterval(t *testing.T) {
	a := NewLiveInterval("a", 1, 4)
	b := NewLiveInterval("b", 2, 6)
	c := NewLiveInterval("c", 3, 10)

	alloc := NewAllocator(NewRegisterPool(RegEAX, RegEBX), nil)
	alloc.Allocate([]*LiveInterval{a, b, c})

	be.Equal(t, a.Symbol.Reg, RegEAX)
	be.Equal(t, b.Symbol.Reg, RegEBX)
	be.Equal(t, c.Symbol.Reg, RegNone)
	be.Equal(t, c.Symbol.Location, 0)
	be.Equal(t, alloc.StackSize(), StackSlotSize)
}

func TestAllocateStealsFromLongestActive(t *testing.T) {
	long := NewLiveInterval("long", 0, 10)
	short := NewLiveInterval("short", 1, 3)

	alloc := NewAllocator(NewRegisterPool(RegEAX), nil)
	alloc.Allocate([]*LiveInterval{long, short})

	be.Equal(t, short.Symbol.Reg, RegEAX)
	be.Equal(t, short.Symbol.Location, NoLocation)
	be.Equal(t, long.Symbol.Reg, RegNone)
	be.Equal(t, long.Symbol.Location, 0)
	be.Equal(t, alloc.StackSize(), 4)
	be.Equal(t, alloc.Active(), []*LiveInterval{short})
}

func TestAllocateSortsByStartPoint(t *testing.T) {
	late := NewLiveInterval("late", 5, 6)
	early := NewLiveInterval("early", 0, 6)
	input := []*LiveInterval{late, early}

	alloc := NewAllocator(NewRegisterPool(RegEAX, RegEBX), nil)
	alloc.Allocate(input)

	be.Equal(t, early.Symbol.Reg, RegEAX)
	be.Equal(t, late.Symbol.Reg, RegEBX)
	// The caller's order is untouched.
	be.Equal(t, input[0], late)
}

func TestAllocateActiveSortedByEnd(t *testing.T) {
	intervals := []*LiveInterval{
		NewLiveInterval("a", 0, 9),
		NewLiveInterval("b", 1, 3),
		NewLiveInterval("c", 2, 7),
		NewLiveInterval("d", 3, 5),
	}

	alloc := NewAllocator(DefaultRegisterPool(), nil)
	alloc.Allocate(intervals)

	var ends []int
	for _, li := range alloc.Active() {
		ends = append(ends, li.EndPoint)
	}
	be.Equal(t, ends, []int{3, 5, 7, 9})
}

// TestAllocateRandomized checks the allocator's guarantees on random
// interval sets: every interval gets exactly one home, overlapping
// intervals never share a register, and spill slots are never reused.
func TestAllocateRandomized(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 200; round++ {
		n := 1 + rng.IntN(40)
		intervals := make([]*LiveInterval, n)
		for i := range intervals {
			start := rng.IntN(50)
			intervals[i] = NewLiveInterval("v", start, start+rng.IntN(20))
		}
		regs := 1 + rng.IntN(8)
		pool := NewRegisterPool(DefaultRegisterPool().Registers()[:regs]...)

		alloc := NewAllocator(pool, nil)
		alloc.Allocate(intervals)

		slots := make(map[int]bool)
		for i, li := range intervals {
			be.True(t, li.Assigned())
			if li.Symbol.Spilled() {
				be.Equal(t, li.Symbol.Location%StackSlotSize, 0)
				be.Equal(t, slots[li.Symbol.Location], false)
				slots[li.Symbol.Location] = true
			}
			for _, other := range intervals[i+1:] {
				if li.Symbol.Reg == RegNone || other.Symbol.Reg == RegNone {
					continue
				}
				if li.Overlaps(other) {
					be.True(t, li.Symbol.Reg != other.Symbol.Reg)
				}
			}
		}
		be.Equal(t, alloc.StackSize(), len(slots)*StackSlotSize)
		be.True(t, len(alloc.Active())+alloc.Pool().Len() == regs)
	}
}

func TestAllocateRegisters(t *testing.T) {
	ctx := NewContext(nil)
	i32 := Int(32)
	b, err := ctx.BuildFunction("main")
	be.Err(t, err, nil)
	names := []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8", "v9"}
	for _, name := range names {
		b.BuildAdd(name, Typed(i32, IntegerLiteral(1)), Typed(i32, IntegerLiteral(1)))
	}
	for _, name := range names {
		b.BuildAdd("", Typed(i32, ctx.Local(name)), Typed(i32, IntegerLiteral(1)))
	}
	b.Finish()

	err = ctx.AllocateRegisters(1)
	be.Err(t, err, nil)

	spilled := map[string]int{}
	for _, li := range ctx.Intervals {
		be.True(t, li.Assigned())
		if li.Symbol.Spilled() {
			spilled[li.Symbol.Name] = li.Symbol.Location
		}
	}
	be.Equal(t, spilled, map[string]int{"v7": 8, "v8": 0, "v9": 4})
	be.Equal(t, ctx.Functions[0].FrameSize, 12)
}

func TestAllocateRegistersConcurrentMatchesSerial(t *testing.T) {
	build := func() *Context {
		ctx := NewContext(nil)
		i32 := Int(32)
		for f := 0; f < 6; f++ {
			b, err := ctx.BuildFunction(string(rune('a' + f)))
			be.Err(t, err, nil)
			for i := 0; i < 12+f; i++ {
				b.BuildMul("", Typed(i32, IntegerLiteral(int64(i))), Typed(i32, IntegerLiteral(2)))
				b.BuildAdd("x", Typed(i32, IntegerLiteral(1)), Typed(i32, IntegerLiteral(2)))
			}
			b.Finish()
		}
		return ctx
	}

	serial := build()
	be.Err(t, serial.AllocateRegisters(1), nil)
	concurrent := build()
	be.Err(t, concurrent.AllocateRegisters(4), nil)

	be.Equal(t, len(concurrent.Intervals), len(serial.Intervals))
	for i := range serial.Intervals {
		be.Equal(t, concurrent.Intervals[i].Symbol, serial.Intervals[i].Symbol)
	}
	for i := range serial.Functions {
		be.Equal(t, concurrent.Functions[i].FrameSize, serial.Functions[i].FrameSize)
	}
}

func TestAllocateRegistersWhileFunctionOpen(t *testing.T) {
	ctx := NewContext(nil)
	_, err := ctx.BuildFunction("f")
	be.Err(t, err, nil)

	err = ctx.AllocateRegisters(1)
	be.True(t, errors.Is(err, ErrFunctionOpen))
}
