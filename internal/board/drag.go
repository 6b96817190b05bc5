package board

import (
	"sync"

	"taskboard/internal/logger"
	"taskboard/internal/models/task"

	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	Dragging
	Resolving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Resolving:
		return "resolving"
	default:
		return "unknown"
	}
}

// Target is a drop position: a column and an index within it.
type Target struct {
	Category task.Category
	Index    int
}

// Intent is the outcome of a completed drag: either a Move or a Reorder.
type Intent interface {
	intent()
}

// Move asks for a task to change column and land at ToIndex in the new column.
type Move struct {
	TaskID  string
	From    task.Category
	To      task.Category
	ToIndex int
}

// Reorder asks for a task to change position within its column.
type Reorder struct {
	TaskID    string
	Category  task.Category
	FromIndex int
	ToIndex   int
}

func (Move) intent()    {}
func (Reorder) intent() {}

// Noop reports whether the reorder leaves the column unchanged.
func (r Reorder) Noop() bool {
	return r.FromIndex == r.ToIndex
}

// DragSession is the state of one in-flight drag.
type DragSession struct {
	ActiveTaskID string
	Source       task.Category
	SourceIndex  int
	Over         *Target
}

// ViewSource is what the interpreter reads to validate and resolve gestures. It never
// writes through it.
type ViewSource interface {
	Lookup(id string) (task.Task, bool)
	Owner() (string, bool)
	View() View
}

// DragInterpreter turns abstract start/hover/drop/cancel events into intents.
type DragInterpreter struct {
	src     ViewSource
	mtx     sync.Mutex
	state   State
	session *DragSession
}

func NewDragInterpreter(src ViewSource) *DragInterpreter {
	return &DragInterpreter{src: src}
}

func (d *DragInterpreter) State() State {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.state
}

// Session returns a copy of the current drag session, if any.
func (d *DragInterpreter) Session() (DragSession, bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.session == nil {
		return DragSession{}, false
	}
	s := *d.session
	if s.Over != nil {
		over := *s.Over
		s.Over = &over
	}
	return s, true
}

// Start begins dragging taskID. It refuses, leaving the machine Idle, when another drag is
// in flight, nobody is signed in, the task is unknown, still provisional, or owned by
// someone else.
func (d *DragInterpreter) Start(taskID string) bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.state != Idle {
		logger.Debug("Drag: start ignored, drag already in flight", zap.String("task_id", taskID))
		return false
	}
	owner, ok := d.src.Owner()
	if !ok {
		logger.Debug("Drag: start refused, no identity", zap.String("task_id", taskID))
		return false
	}
	t, ok := d.src.Lookup(taskID)
	if !ok {
		logger.Debug("Drag: start refused, unknown task", zap.String("task_id", taskID))
		return false
	}
	if t.OwnerKey != owner {
		logger.Warn("Drag: start refused, foreign task", zap.String("task_id", taskID))
		return false
	}
	if t.IsProvisional() {
		logger.Debug("Drag: start refused, task not confirmed yet", zap.String("task_id", taskID))
		return false
	}
	index := positionOf(d.src.View().Column(t.Category), taskID)
	if index < 0 {
		return false
	}

	d.state = Dragging
	d.session = &DragSession{
		ActiveTaskID: taskID,
		Source:       t.Category,
		SourceIndex:  index,
	}
	return true
}

// Hover records the currently hovered target. The last one before a drop wins.
func (d *DragInterpreter) Hover(target Target) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.state != Dragging {
		return
	}
	d.session.Over = &target
}

// Cancel discards the drag session without an intent.
func (d *DragInterpreter) Cancel() {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.reset()
}

// DropHovered drops on the last hovered target. Without one nothing is emitted.
func (d *DragInterpreter) DropHovered() (Intent, bool) {
	d.mtx.Lock()
	if d.state != Dragging || d.session.Over == nil {
		d.reset()
		d.mtx.Unlock()
		return nil, false
	}
	target := *d.session.Over
	d.mtx.Unlock()
	return d.Drop(target)
}

// Drop resolves the drag against target and returns to Idle. A target whose category is not
// valid counts as a release over empty space.
func (d *DragInterpreter) Drop(target Target) (Intent, bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.state != Dragging {
		return nil, false
	}
	d.state = Resolving
	defer d.reset()

	if !target.Category.Valid() {
		return nil, false
	}

	session := d.session
	t, ok := d.src.Lookup(session.ActiveTaskID)
	if !ok {
		logger.Debug("Drag: dragged task vanished", zap.String("task_id", session.ActiveTaskID))
		return nil, false
	}

	view := d.src.View()
	if target.Category == t.Category {
		column := view.Column(t.Category)
		from := positionOf(column, t.ID)
		if from < 0 {
			return nil, false
		}
		return Reorder{
			TaskID:    t.ID,
			Category:  t.Category,
			FromIndex: from,
			ToIndex:   clamp(target.Index, 0, len(column)-1),
		}, true
	}

	column := view.Column(target.Category)
	return Move{
		TaskID:  t.ID,
		From:    t.Category,
		To:      target.Category,
		ToIndex: clamp(target.Index, 0, len(column)),
	}, true
}

func (d *DragInterpreter) reset() {
	d.state = Idle
	d.session = nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
