package session

// UndoStack holds a bounded stack of inverse operations over a session's
// annotation list. It is local and in-memory; it is never persisted.
type UndoStack struct {
	depth int
	ops   []undoOp
}

type undoOp struct {
	// restore re-inserts the annotation at index; otherwise the op removes
	// the annotation at index.
	restore    bool
	index      int
	annotation Annotation
}

// NewUndoStack returns a stack that retains at most depth operations, dropping
// the oldest when full.
func NewUndoStack(depth int) *UndoStack {
	if depth < 1 {
		depth = 1
	}
	return &UndoStack{depth: depth}
}

// RecordAdd registers that an annotation was added at index; undoing removes it.
func (u *UndoStack) RecordAdd(index int) {
	u.push(undoOp{index: index})
}

// RecordRemove registers that an annotation was removed from index; undoing
// re-inserts it.
func (u *UndoStack) RecordRemove(index int, a Annotation) {
	u.push(undoOp{restore: true, index: index, annotation: a})
}

// Undo applies the most recent inverse operation to the session. Returns
// false when the stack is empty.
func (u *UndoStack) Undo(s *Session) bool {
	if len(u.ops) == 0 {
		return false
	}
	op := u.ops[len(u.ops)-1]
	u.ops = u.ops[:len(u.ops)-1]

	if op.restore {
		s.InsertAnnotation(op.index, op.annotation)
		return true
	}
	if _, err := s.RemoveAnnotation(op.index); err != nil {
		return false
	}
	return true
}

// Len reports the number of undoable operations.
func (u *UndoStack) Len() int { return len(u.ops) }

func (u *UndoStack) push(op undoOp) {
	if len(u.ops) == u.depth {
		copy(u.ops, u.ops[1:])
		u.ops = u.ops[:len(u.ops)-1]
	}
	u.ops = append(u.ops, op)
}
