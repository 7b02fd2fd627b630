package telemetry

import (
	"io"
	"sync"
	"time"

	"github.com/robinvdvleuten/salesledger/output"
)

// TimingCollector records timers as a tree. The first timer started becomes
// the root; later top-level Start calls nest under the innermost open timer.
type TimingCollector struct {
	mu      sync.Mutex
	now     func() time.Time
	root    *timerNode
	current *timerNode
}

type timerNode struct {
	name     string
	start    time.Time
	end      time.Time
	parent   *timerNode
	children []*timerNode
}

// duration of the node, measured up to now for timers that never ended.
func (n *timerNode) duration() time.Duration {
	if n.end.IsZero() {
		return time.Since(n.start)
	}
	return n.end.Sub(n.start)
}

// NewTimingCollector creates a new timing collector.
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{now: time.Now}
}

// Start begins timing an operation.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{name: name, start: c.now()}
	if c.root == nil {
		c.root = node
	} else {
		c.attach(c.current, node)
	}
	c.current = node

	return &timingTimer{collector: c, node: node}
}

// Report outputs the timing tree to a writer. Nothing is written when no
// timer was started.
func (c *TimingCollector) Report(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.root == nil {
		return
	}
	formatTimingTree(w, c.root, output.NewStyles(w))
}

func (c *TimingCollector) attach(parent, node *timerNode) {
	if parent == nil {
		parent = c.root
	}
	node.parent = parent
	parent.children = append(parent.children, node)
}

type timingTimer struct {
	collector *TimingCollector
	node      *timerNode
}

func (t *timingTimer) End() {
	c := t.collector
	c.mu.Lock()
	defer c.mu.Unlock()

	t.node.end = c.now()
	if c.current == t.node && t.node.parent != nil {
		c.current = t.node.parent
	}
}

// Child nests a timer under t without moving the collector's cursor.
func (t *timingTimer) Child(name string) Timer {
	c := t.collector
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{name: name, start: c.now()}
	c.attach(t.node, node)

	return &timingTimer{collector: c, node: node}
}
