package core

// A Details is the array behind an action: slot 0 is the archetype, slots
// 1..n describe the formal parameters. The dispatcher runs when fulfillment
// completes; the bonus slot can carry a body array for interpreted actions.
// A composed action (adaptation, specialization, hijack) re-enters the same
// varlist under a different Details pointer; that pointer is the phase.

// ParamClass drives how an argument is fulfilled.
type ParamClass uint8

const (
	// ParamNormal evaluates one expression from the feed; a completed arg
	// may still be claimed by a deferred infix op.
	ParamNormal ParamClass = iota

	// ParamTight evaluates one expression but suppresses deferred infix.
	ParamTight

	// ParamRefinement is an optional flag; when taken via path it activates
	// and its trailing args become fulfillable.
	ParamRefinement
)

// Param describes one formal parameter.
type Param struct {
	Name    *Stub // symbol
	Class   ParamClass
	Types   []Heart // accepted hearts; empty accepts anything
	Literal bool    // take the next feed value unevaluated
}

// Dispatcher runs an action whose frame is fulfilled. It reads args through
// the level and writes the result to l.Out.
type Dispatcher func(l *Level) Status

// MakeAction builds a native action. The surface FUNC generator is outside
// the core, so hosts and tests hand the parameter descriptions in directly.
func (rt *Runtime) MakeAction(name string, paramspec []Param, dispatch Dispatcher) (*Stub, error) {
	details := rt.makeStub(FlavorDetails, StubFlagManaged|StubFlagFixedSize, len(paramspec)+1)
	details.used = len(paramspec) + 1
	details.dispatch = dispatch
	for i, p := range paramspec {
		cell := details.cellAt(i + 1)
		InitWord(cell, p.Name)
		cell.num = int64(p.Class)
		if p.Literal {
			cell.num |= paramLiteralBit
		}
		cell.index = packTypes(p.Types)
	}
	InitAction(details.cellAt(0), details)
	rt.terminate(details)
	if name != "" {
		sym, err := rt.symbols.Intern(name)
		if err != nil {
			return nil, err
		}
		details.misc = sym
	}
	return details, nil
}

// MakeFunction builds an interpreted action: no dispatcher, the body array
// evaluates under a chain of the reified frame over the user context.
func (rt *Runtime) MakeFunction(name string, paramspec []Param, body *Stub) (*Stub, error) {
	body.assertFlavor(FlavorArray)
	details, err := rt.MakeAction(name, paramspec, nil)
	if err != nil {
		return nil, err
	}
	details.bonus = body
	return details, nil
}

const paramLiteralBit = 1 << 8

// packTypes folds an accepted-heart list into a bitset kept in the param
// cell's index slot.
func packTypes(types []Heart) int {
	mask := 0
	for _, h := range types {
		mask |= 1 << int(h)
	}
	return mask
}

func paramAt(details *Stub, n int) (Param, *Cell) {
	details.assertFlavor(FlavorDetails)
	cell := details.cellAt(n)
	p := Param{
		Name:    cell.node,
		Class:   ParamClass(cell.num &^ paramLiteralBit),
		Literal: cell.num&paramLiteralBit != 0,
	}
	return p, cell
}

// paramCount excludes the archetype slot.
func paramCount(details *Stub) int {
	details.assertFlavor(FlavorDetails)
	return details.used - 1
}

func paramAccepts(cell *Cell, h Heart) bool {
	if cell.index == 0 {
		return true
	}
	return cell.index&(1<<int(h)) != 0
}

func actionName(details *Stub) string {
	details.assertFlavor(FlavorDetails)
	if details.misc == nil {
		return "anonymous"
	}
	return symbolText(details.misc)
}

func dispatcherOf(details *Stub) Dispatcher {
	details.assertFlavor(FlavorDetails)
	return details.dispatch
}

// bodyOf returns the body array for interpreted actions, nil for natives.
func bodyOf(details *Stub) *Stub {
	details.assertFlavor(FlavorDetails)
	return details.bonus
}

// setInfix marks the archetype so word lookups treat the action as taking
// its first argument from the left.
func setInfix(details *Stub) {
	details.cellAt(0).flags |= CellFlagInfix
}

func isInfix(c *Cell) bool {
	return c.heart == HeartAction && c.flags&CellFlagInfix != 0
}

// firstParamClass is what deferred-infix decisions key on: a normal-class
// left argument permits deferral, a tight one suppresses it.
func firstParamClass(details *Stub) ParamClass {
	if paramCount(details) == 0 {
		return ParamNormal
	}
	p, _ := paramAt(details, 1)
	return p.Class
}
