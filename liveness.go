package main

import "fmt"

// NoLocation marks a register symbol that has not been spilled.
const NoLocation = -1

// RegisterSymbol is what the allocator annotates: the physical register the
// value lives in, or the stack offset it was spilled to.
type RegisterSymbol struct {
	Name     string
	Reg      Register
	Location int
}

// Spilled reports whether the value lives in a stack slot.
func (s RegisterSymbol) Spilled() bool {
	return s.Location != NoLocation
}

// LiveInterval is the [StartPoint, EndPoint] range, in instruction indices
// of its function, during which a value must be available.
type LiveInterval struct {
	Symbol     RegisterSymbol
	Function   int
	StartPoint int
	EndPoint   int
}

func NewLiveInterval(name string, start, end int) *LiveInterval {
	return &LiveInterval{
		Symbol:     RegisterSymbol{Name: name, Reg: RegNone, Location: NoLocation},
		StartPoint: start,
		EndPoint:   end,
	}
}

// Overlaps reports whether both intervals are live at some common point.
func (li *LiveInterval) Overlaps(other *LiveInterval) bool {
	return li.StartPoint <= other.EndPoint && other.StartPoint <= li.EndPoint
}

// Assigned reports whether the allocator gave the interval exactly one home.
func (li *LiveInterval) Assigned() bool {
	return (li.Symbol.Reg != RegNone) != li.Symbol.Spilled()
}

func (li *LiveInterval) String() string {
	return fmt.Sprintf("%s: register=%s location=%d [%d, %d]",
		li.Symbol.Name, li.Symbol.Reg, li.Symbol.Location, li.StartPoint, li.EndPoint)
}

// ComputeLiveIntervals derives one interval per value-defining instruction.
// A value is live from its definition to its last use as a LocalValue
// operand; a use refers to the most recent definition of that symbol before
// it. Any previous intervals and allocation results are discarded.
func (c *Context) ComputeLiveIntervals() {
	c.Intervals = nil
	c.allocated = false

	for fi, fn := range c.Functions {
		defs := make(map[SymbolID]int)
		for i, inst := range fn.Instructions {
			for _, op := range inst.Operands() {
				local, ok := op.Value.(LocalValue)
				if !ok {
					continue
				}
				idx, ok := defs[local.Symbol]
				if !ok {
					c.log.Warn("%s: use of `%s` at %d has no prior definition",
						fn.Name, c.Symbols.Name(local.Symbol), i)
					continue
				}
				if li := c.Intervals[idx]; i > li.EndPoint {
					li.EndPoint = i
				}
			}

			sym, ok := inst.Defines()
			if !ok {
				inst.setInterval(NoInterval)
				continue
			}
			name := c.Symbols.Name(sym)
			if sym == NoSymbol {
				name = fmt.Sprintf("%%%d", i)
			}
			li := NewLiveInterval(name, i, i)
			li.Function = fi
			c.Intervals = append(c.Intervals, li)
			inst.setInterval(len(c.Intervals) - 1)
			if sym != NoSymbol {
				defs[sym] = len(c.Intervals) - 1
			}
		}
	}
	c.log.Debug("computed %d live intervals", len(c.Intervals))
}

// intervalsOf returns the intervals belonging to function fi, in creation
// order.
func (c *Context) intervalsOf(fi int) []*LiveInterval {
	var out []*LiveInterval
	for _, li := range c.Intervals {
		if li.Function == fi {
			out = append(out, li)
		}
	}
	return out
}
