package view

import "fmt"

// EventKind identifies what an Event reports.
type EventKind int

const (
	// EventEntireGraph is raised when the selection returns to every node.
	EventEntireGraph EventKind = iota
	// EventSubgraph is raised when the selection becomes a proper subset.
	EventSubgraph
	EventNodeInfo
	EventNodeInfoCleared
	// EventNotice carries a transient, non-blocking message for the user.
	EventNotice
	EventToolChanged
	EventHover
	EventLayout
	EventSimulation
	// EventFrame is raised whenever the projected frame changed.
	EventFrame
)

var eventNames = []string{
	"entireGraphSelected",
	"subgraphSelected",
	"nodeInfo",
	"nodeInfoCleared",
	"notice",
	"toolChanged",
	"hover",
	"layout",
	"simulation",
	"frame",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is delivered to subscribers on the scheduler goroutine.
type Event struct {
	Kind    EventKind
	NodeID  string
	NodeIDs []string
	Message string
}

// Notice messages.
const (
	NoticeSaveFailed  = "Your changes could not be saved. Please try again."
	NoticeQueryFailed = "The query could not be run. Please try again."
)

// Subscribe registers fn for every event. It returns a function removing
// the subscription.
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	return func() { delete(c.subs, id) }
}

func (c *Controller) emit(ev Event) {
	for _, id := range c.subOrder() {
		if fn, ok := c.subs[id]; ok {
			fn(ev)
		}
	}
}

func (c *Controller) subOrder() []int {
	ids := make([]int, 0, len(c.subs))
	for i := 1; i <= c.nextSub; i++ {
		if _, ok := c.subs[i]; ok {
			ids = append(ids, i)
		}
	}
	return ids
}
