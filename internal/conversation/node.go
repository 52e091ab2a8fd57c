// Package conversation builds the reply tree around a selected item and
// linearizes it for display.
package conversation

import (
	"github.com/tOgg1/threadline/internal/models"
)

// DefaultMaxIndent caps visual nesting.
const DefaultMaxIndent = 19

// Node is an item placed in a conversation tree.
type Node struct {
	Item models.Item
	// ReplyLevel is relative to the selected item: ancestors are negative.
	ReplyLevel int
	// ListOrder counts down from N-1; HistoryOrder counts up from 1.
	ListOrder        int
	HistoryOrder     int
	IndentLevel      int
	DirectReplyCount int
	ParentReplyCount int
	// Parent is nil for branch roots and for links that would form a cycle.
	Parent *Node

	children []*Node
}

// Record returns the wrapped item.
func (n *Node) Record() models.Item {
	return n.Item
}

// ID returns the wrapped item's identifier.
func (n *Node) ID() int64 {
	return n.Item.ID
}

// Children returns the nodes linked below n, oldest first.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Conversation is the result of one build.
type Conversation struct {
	SelectedID int64
	// Nodes are in history order, oldest first.
	Nodes []*Node
	// Incomplete lists identifiers that were referenced but could not be
	// loaded, so their branches are missing.
	Incomplete []int64
}

// Len returns the number of nodes.
func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Nodes)
}

// Node looks up a node by item identifier.
func (c *Conversation) Node(id int64) (*Node, bool) {
	if c == nil {
		return nil, false
	}
	for _, n := range c.Nodes {
		if n.Item.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Linear returns the nodes in display order: history order when
// oldestFirst, list order otherwise.
func (c *Conversation) Linear(oldestFirst bool) []*Node {
	if c == nil {
		return nil
	}
	out := make([]*Node, len(c.Nodes))
	if oldestFirst {
		copy(out, c.Nodes)
		return out
	}
	for i, n := range c.Nodes {
		out[len(out)-1-i] = n
	}
	return out
}

// wouldCreateCycle reports whether linking node below parent makes node its
// own ancestor.
func wouldCreateCycle(node, parent *Node) bool {
	for cur := parent; cur != nil; cur = cur.Parent {
		if cur == node {
			return true
		}
	}
	return false
}

// nodeLess orders deeper levels first, then newer, then higher id.
func nodeLess(a, b *Node) bool {
	if a.ReplyLevel != b.ReplyLevel {
		return a.ReplyLevel > b.ReplyLevel
	}
	if !a.Item.CreatedAt.Equal(b.Item.CreatedAt) {
		return a.Item.CreatedAt.After(b.Item.CreatedAt)
	}
	return a.Item.ID > b.Item.ID
}
