package core

import "fmt"

// Heart is the type byte of a cell.
type Heart uint8

const (
	HeartBlank Heart = iota // the "none" value
	HeartLogic
	HeartInteger
	HeartWord
	HeartSetWord
	HeartGetWord
	HeartBlock
	HeartGroup
	HeartText
	HeartBinary
	HeartAction
	HeartFrame // archetype of a reified VarList
	HeartError

	numHearts
)

var heartNames = [numHearts]string{
	"blank", "logic", "integer", "word", "set-word", "get-word",
	"block", "group", "text", "binary", "action", "frame", "error",
}

func (h Heart) String() string {
	if int(h) < len(heartNames) {
		return heartNames[h]
	}
	return "invalid"
}

func (h Heart) isWordlike() bool {
	return h == HeartWord || h == HeartSetWord || h == HeartGetWord
}

func (h Heart) isSerieslike() bool {
	switch h {
	case HeartBlock, HeartGroup, HeartText, HeartBinary:
		return true
	}
	return false
}

// CellFlag bits sit in the cell header beside the heart byte.
type CellFlag uint16

const (
	// CellFlagFirstIsNode guarantees payload first (node) is a stub the GC
	// may traverse.
	CellFlagFirstIsNode CellFlag = 1 << iota

	// CellFlagSecondIsNode is the same guarantee for node2.
	CellFlagSecondIsNode

	// CellFlagConst forbids mutation through this reference.
	CellFlagConst

	// CellFlagThrowSignal rides on a cell being used as a throw label.
	CellFlagThrowSignal

	// CellFlagStale is evaluator scratch on output cells; it must be cleared
	// before a result becomes user-visible.
	CellFlagStale

	// CellFlagRelative means binding is a Details and the cell is only
	// resolvable against a matching running level.
	CellFlagRelative

	// CellFlagPoisoned marks the debug tail cell past an array's used
	// region; reading or writing one is a defect.
	CellFlagPoisoned

	// CellFlagInfix marks an action value that takes its first argument
	// from the evaluation to its left.
	CellFlagInfix
)

// Cell is the value-sized record. It can occupy a slot in a dynamic array,
// sit inline in a singular stub, or live on the Go stack. The layout keeps
// the two payload slots and the binding extra of the conceptual model as
// typed fields.
type Cell struct {
	heart Heart
	flags CellFlag

	node  *Stub // payload first: series, symbol, details, varlist
	node2 *Stub // payload second as node: phase of a frame archetype
	index int   // payload second: series position or bound word index
	num   int64 // scalar payload

	binding *Stub // specifier: VarList, Use, Let, or Details when relative
}

func (c *Cell) Heart() Heart { return c.heart }

func (c *Cell) assertHeart(want ...Heart) {
	if !debugChecks {
		return
	}
	if c.flags&CellFlagPoisoned != 0 {
		panic(diverge("poisoned cell accessed"))
	}
	for _, h := range want {
		if c.heart == h {
			return
		}
	}
	panic(diverge(fmt.Sprintf("cell heart %v used as %v", c.heart, want)))
}

// poison turns the cell into the debug tail marker past an array's used
// region.
func (c *Cell) poison() {
	*c = Cell{flags: CellFlagPoisoned}
}

func (c *Cell) isPoisoned() bool { return c.flags&CellFlagPoisoned != 0 }

// Init helpers. They fully overwrite the target cell.

func InitBlank(c *Cell) { *c = Cell{heart: HeartBlank} }

func InitLogic(c *Cell, b bool) {
	*c = Cell{heart: HeartLogic}
	if b {
		c.num = 1
	}
}

func InitInteger(c *Cell, n int64) { *c = Cell{heart: HeartInteger, num: n} }

func InitWord(c *Cell, sym *Stub) {
	sym.assertFlavor(FlavorSymbol)
	*c = Cell{heart: HeartWord, flags: CellFlagFirstIsNode, node: sym}
}

func InitSetWord(c *Cell, sym *Stub) {
	InitWord(c, sym)
	c.heart = HeartSetWord
}

func InitGetWord(c *Cell, sym *Stub) {
	InitWord(c, sym)
	c.heart = HeartGetWord
}

func InitBlock(c *Cell, arr *Stub) {
	arr.assertFlavor(FlavorArray)
	*c = Cell{heart: HeartBlock, flags: CellFlagFirstIsNode, node: arr}
}

func InitGroup(c *Cell, arr *Stub) {
	InitBlock(c, arr)
	c.heart = HeartGroup
}

func InitText(c *Cell, s *Stub) {
	s.assertFlavor(FlavorString)
	*c = Cell{heart: HeartText, flags: CellFlagFirstIsNode, node: s}
}

func InitBinary(c *Cell, b *Stub) {
	b.assertFlavor(FlavorBinary)
	*c = Cell{heart: HeartBinary, flags: CellFlagFirstIsNode, node: b}
}

func InitAction(c *Cell, details *Stub) {
	details.assertFlavor(FlavorDetails)
	*c = Cell{
		heart: HeartAction,
		flags: CellFlagFirstIsNode | CellFlagSecondIsNode,
		node:  details,
		node2: details, // initial phase is the identity
	}
}

// initFrame makes the archetype cell for a reified varlist.
func initFrame(c *Cell, varlist, phase *Stub) {
	varlist.assertFlavor(FlavorVarList)
	*c = Cell{
		heart: HeartFrame,
		flags: CellFlagFirstIsNode | CellFlagSecondIsNode,
		node:  varlist,
		node2: phase,
	}
}

// Accessors. Each checks the heart under debug.

func (c *Cell) Logic() bool {
	c.assertHeart(HeartLogic)
	return c.num != 0
}

func (c *Cell) Integer() int64 {
	c.assertHeart(HeartInteger)
	return c.num
}

func (c *Cell) Symbol() *Stub {
	c.assertHeart(HeartWord, HeartSetWord, HeartGetWord)
	return c.node
}

func (c *Cell) Series() *Stub {
	c.assertHeart(HeartBlock, HeartGroup, HeartText, HeartBinary)
	return c.node
}

func (c *Cell) Index() int { return c.index }

func (c *Cell) Details() *Stub {
	c.assertHeart(HeartAction)
	return c.node
}

func (c *Cell) phase() *Stub {
	c.assertHeart(HeartAction, HeartFrame)
	return c.node2
}

func (c *Cell) Binding() *Stub     { return c.binding }
func (c *Cell) SetBinding(b *Stub) { c.binding = b }

// IsTruthy implements the conditional sense: blank and false logic are the
// only falsey values.
func (c *Cell) IsTruthy() bool {
	switch c.heart {
	case HeartBlank:
		return false
	case HeartLogic:
		return c.num != 0
	}
	return true
}

// IsNulled reports the blank ("none") state used by refinement revocation.
func (c *Cell) IsNulled() bool { return c.heart == HeartBlank }

func (c *Cell) setStale()   { c.flags |= CellFlagStale }
func (c *Cell) clearStale() { c.flags &^= CellFlagStale }
func (c *Cell) isStale() bool { return c.flags&CellFlagStale != 0 }

// specify rebinds a relative cell against the varlist of the level it is
// running in; relative cells must not escape the evaluator.
func (c *Cell) specify(varlist *Stub) {
	if c.flags&CellFlagRelative == 0 {
		return
	}
	varlist.assertFlavor(FlavorVarList)
	c.binding = varlist
	c.flags &^= CellFlagRelative
}

func (c *Cell) String() string {
	switch c.heart {
	case HeartBlank:
		return "_"
	case HeartLogic:
		if c.num != 0 {
			return "true"
		}
		return "false"
	case HeartInteger:
		return fmt.Sprintf("%d", c.num)
	case HeartWord, HeartSetWord, HeartGetWord:
		text := symbolText(c.node)
		if c.heart == HeartSetWord {
			return text + ":"
		}
		if c.heart == HeartGetWord {
			return ":" + text
		}
		return text
	case HeartBlock:
		return "[...]"
	case HeartGroup:
		return "(...)"
	case HeartText:
		return fmt.Sprintf("%q", string(c.node.byteData()))
	case HeartBinary:
		return fmt.Sprintf("#{%x}", c.node.byteData())
	case HeartAction:
		return "action"
	case HeartFrame:
		return "frame"
	case HeartError:
		return "error"
	}
	return "?"
}
