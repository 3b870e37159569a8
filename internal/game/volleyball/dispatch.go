package volleyball

import "fmt"

// Dispatcher is the only way to run or undo an action. It keeps the LIFO
// undo stack and a lazy buffer of deferred actions that are folded, together
// with the next serve, into a single Compress entry.
type Dispatcher struct {
	state *State
	stack []Action
	lazy  []Action
}

func NewDispatcher(s *State) *Dispatcher {
	return &Dispatcher{state: s}
}

func (d *Dispatcher) State() *State { return d.state }

// Dispatch executes a and pushes it. A serve with deferred actions pending
// pushes one Compress holding the deferred actions followed by the serve.
func (d *Dispatcher) Dispatch(a Action) {
	if a.Kind() == KindServe && len(d.lazy) > 0 {
		batch := make([]Action, 0, len(d.lazy)+1)
		batch = append(batch, d.lazy...)
		batch = append(batch, a)
		c := &Compress{Actions: batch, Deferred: len(d.lazy)}
		d.lazy = nil
		d.stack = append(d.stack, c)
		c.execute(d.state)
		return
	}
	d.stack = append(d.stack, a)
	a.execute(d.state)
}

// Defer queues a until the next serve.
func (d *Dispatcher) Defer(a Action) {
	d.lazy = append(d.lazy, a)
}

// Pending returns the number of deferred actions.
func (d *Dispatcher) Pending() int { return len(d.lazy) }

// Flush commits deferred actions immediately as one Compress entry. It is a
// no-op when nothing is pending.
func (d *Dispatcher) Flush() {
	if len(d.lazy) == 0 {
		return
	}
	c := &Compress{Actions: d.lazy, Deferred: len(d.lazy)}
	d.lazy = nil
	d.stack = append(d.stack, c)
	c.execute(d.state)
}

// Rollback undoes the most recent action and returns it. Deferred actions
// inside a rolled back Compress go back to the front of the lazy buffer.
func (d *Dispatcher) Rollback() Action {
	if len(d.stack) == 0 {
		panic("volleyball: rollback on empty dispatch stack")
	}
	a := d.stack[len(d.stack)-1]
	d.stack[len(d.stack)-1] = nil
	d.stack = d.stack[:len(d.stack)-1]
	a.rollback(d.state)
	if c, ok := a.(*Compress); ok && c.Deferred > 0 {
		requeued := make([]Action, 0, c.Deferred+len(d.lazy))
		requeued = append(requeued, c.Actions[:c.Deferred]...)
		d.lazy = append(requeued, d.lazy...)
	}
	return a
}

// StackDepth is the number of actions that can still be rolled back.
func (d *Dispatcher) StackDepth() int { return len(d.stack) }

// RollbackTo undoes actions until the stack is depth entries deep.
func (d *Dispatcher) RollbackTo(depth int) {
	if depth < 0 || depth > len(d.stack) {
		panic(fmt.Sprintf("volleyball: cannot roll back to depth %d from %d", depth, len(d.stack)))
	}
	for len(d.stack) > depth {
		d.Rollback()
	}
}

// Last returns the most recently dispatched action, or nil.
func (d *Dispatcher) Last() Action {
	if len(d.stack) == 0 {
		return nil
	}
	return d.stack[len(d.stack)-1]
}
