package conversation

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/tOgg1/threadline/internal/logging"
	"github.com/tOgg1/threadline/internal/models"
)

// ItemSource is the local store as seen by the builder.
type ItemSource interface {
	LoadItem(ctx context.Context, id int64) (models.Item, error)
	RepliesTo(ctx context.Context, id int64) ([]int64, error)
}

// RemoteFetcher asks the network for an item. It must not block; a later
// build may find the item locally.
type RemoteFetcher interface {
	RequestFetch(id int64)
}

// Builder assembles conversations from an ItemSource.
type Builder struct {
	source    ItemSource
	remote    RemoteFetcher
	maxIndent int
}

// Option configures a Builder.
type Option func(*Builder)

// WithRemote enables the network fallback for missing ancestors.
func WithRemote(remote RemoteFetcher) Option {
	return func(b *Builder) {
		b.remote = remote
	}
}

// WithMaxIndent caps IndentLevel.
func WithMaxIndent(n int) Option {
	return func(b *Builder) {
		if n >= 0 {
			b.maxIndent = n
		}
	}
}

// NewBuilder creates a builder reading from source.
func NewBuilder(source ItemSource, opts ...Option) *Builder {
	b := &Builder{
		source:    source,
		maxIndent: DefaultMaxIndent,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// build holds the state of one Build call.
type build struct {
	*Builder
	log        zerolog.Logger
	nodes      map[int64]*Node
	discovered []*Node
	// idsBeingResolved guards every walk against revisiting an item.
	idsBeingResolved map[int64]struct{}
	incomplete       []int64
}

// Build loads the conversation around selectedID. Items that fail to load
// are left out and listed in Incomplete; the only error is ctx's.
func (b *Builder) Build(ctx context.Context, selectedID int64) (*Conversation, error) {
	st := &build{
		Builder:          b,
		log:              logging.ComponentFrom(ctx, "conversation"),
		nodes:            make(map[int64]*Node),
		idsBeingResolved: make(map[int64]struct{}),
	}
	conv := &Conversation{SelectedID: selectedID}

	selected, ok, err := st.load(ctx, selectedID, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		conv.Incomplete = st.incomplete
		return conv, nil
	}
	st.add(selected, 0)

	if err := st.walkAncestors(ctx, selected); err != nil {
		return nil, err
	}
	if err := st.walkDescendants(ctx); err != nil {
		return nil, err
	}

	sorted := append([]*Node(nil), st.discovered...)
	slices.SortStableFunc(sorted, func(a, c *Node) int {
		switch {
		case nodeLess(a, c):
			return -1
		case nodeLess(c, a):
			return 1
		}
		return 0
	})
	st.link(sorted)

	conv.Nodes = st.enumerate(sorted)
	conv.Incomplete = st.incomplete

	st.log.Debug().
		Int64("selected_id", selectedID).
		Int("nodes", len(conv.Nodes)).
		Int("incomplete", len(conv.Incomplete)).
		Msg("built conversation")
	return conv, nil
}

func (st *build) add(item models.Item, level int) *Node {
	node := &Node{Item: item, ReplyLevel: level}
	st.nodes[item.ID] = node
	st.discovered = append(st.discovered, node)
	st.idsBeingResolved[item.ID] = struct{}{}
	return node
}

// load returns ok=false for items that cannot be shown. A cancelled context
// is the only error.
func (st *build) load(ctx context.Context, id int64, ancestor bool) (models.Item, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Item{}, false, err
	}
	item, err := st.source.LoadItem(ctx, id)
	if err == nil && item.ID == id && item.Status != models.StatusDeleted {
		return item, true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.Item{}, false, ctxErr
	}

	log := logging.WithItem(st.log, id)
	if err != nil {
		log.Debug().Err(err).Msg("item not available locally")
	} else if item.ID != id {
		log.Warn().Int64("loaded_id", item.ID).Msg("store returned a different item")
	}
	st.incomplete = append(st.incomplete, id)
	if ancestor && st.remote != nil {
		st.remote.RequestFetch(id)
	}
	return models.Item{}, false, nil
}

// walkAncestors follows reply-to links upward until a root, a revisit or a
// load failure.
func (st *build) walkAncestors(ctx context.Context, from models.Item) error {
	level := 0
	cur := from
	for cur.ReplyToID != 0 {
		parentID := cur.ReplyToID
		if _, seen := st.idsBeingResolved[parentID]; seen {
			log := logging.WithItem(st.log, cur.ID)
			log.Warn().Int64("reply_to_id", parentID).Msg("reply cycle in ancestors")
			return nil
		}
		parent, ok, err := st.load(ctx, parentID, true)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		level--
		st.add(parent, level)
		cur = parent
	}
	return nil
}

// walkDescendants expands every discovered node with its replies, using an
// explicit work stack.
func (st *build) walkDescendants(ctx context.Context) error {
	stack := append([]*Node(nil), st.discovered...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := ctx.Err(); err != nil {
			return err
		}
		replies, err := st.source.RepliesTo(ctx, node.Item.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log := logging.WithItem(st.log, node.Item.ID)
			log.Warn().Err(err).Msg("reply lookup failed")
			st.incomplete = append(st.incomplete, node.Item.ID)
			continue
		}
		node.DirectReplyCount = len(replies)

		for _, replyID := range replies {
			if _, seen := st.idsBeingResolved[replyID]; seen {
				continue
			}
			reply, ok, err := st.load(ctx, replyID, false)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			child := st.add(reply, node.ReplyLevel+1)
			child.ParentReplyCount = node.DirectReplyCount
			stack = append(stack, child)
		}
	}
	return nil
}

// link resolves parent pointers in reverse sorted order so children end up
// oldest first. Links that would form a cycle are skipped.
func (st *build) link(sorted []*Node) {
	for i := len(sorted) - 1; i >= 0; i-- {
		node := sorted[i]
		replyTo := node.Item.ReplyToID
		if replyTo == 0 || replyTo == node.Item.ID {
			continue
		}
		parent := st.nodes[replyTo]
		if parent == nil {
			continue
		}
		if wouldCreateCycle(node, parent) {
			log := logging.WithItem(st.log, node.Item.ID)
			log.Warn().Int64("reply_to_id", replyTo).Msg("skipping parent link that forms a cycle")
			continue
		}
		node.Parent = parent
		node.ParentReplyCount = parent.DirectReplyCount
		parent.children = append(parent.children, node)
	}
}

type frame struct {
	node  *Node
	depth int
}

// enumerate assigns history order, list order and indent, walking branch
// roots from the tail of sorted and each branch depth first.
func (st *build) enumerate(sorted []*Node) []*Node {
	total := len(sorted)
	history := 1
	list := total - 1
	ordered := make([]*Node, 0, total)
	placed := make(map[int64]struct{}, total)

	for i := total - 1; i >= 0; i-- {
		if _, ok := placed[sorted[i].Item.ID]; ok {
			continue
		}
		stack := []frame{{node: sorted[i]}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			node := f.node
			if _, ok := placed[node.Item.ID]; ok {
				continue
			}
			placed[node.Item.ID] = struct{}{}

			node.HistoryOrder = history
			node.ListOrder = list
			node.IndentLevel = f.depth
			history++
			list--
			ordered = append(ordered, node)

			childDepth := f.depth
			if (node.DirectReplyCount > 1 || node.ParentReplyCount > 1) && childDepth < st.maxIndent {
				childDepth++
			}
			for j := len(node.children) - 1; j >= 0; j-- {
				stack = append(stack, frame{node: node.children[j], depth: childDepth})
			}
		}
	}
	return ordered
}
