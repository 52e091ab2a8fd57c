package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/threadline/internal/collapse"
	"github.com/tOgg1/threadline/internal/conversation"
	"github.com/tOgg1/threadline/internal/logging"
	"github.com/tOgg1/threadline/internal/remote"
)

var (
	conversationRemote     bool
	conversationNoCollapse bool
)

type conversationNodeView struct {
	ID           int64   `json:"id"`
	ReplyToID    int64   `json:"reply_to_id,omitempty"`
	Author       string  `json:"author"`
	Body         string  `json:"body"`
	ReplyLevel   int     `json:"reply_level"`
	IndentLevel  int     `json:"indent_level"`
	ListOrder    int     `json:"list_order"`
	HistoryOrder int     `json:"history_order"`
	Hidden       []int64 `json:"hidden,omitempty"`
}

type conversationView struct {
	SelectedID int64                  `json:"selected_id"`
	Nodes      []conversationNodeView `json:"nodes"`
	Incomplete []int64                `json:"incomplete,omitempty"`
}

var conversationCmd = &cobra.Command{
	Use:     "conversation [item-id]",
	Aliases: []string{"conv"},
	Short:   "Show the conversation around a post",
	Long: `Rebuild the reply tree around a post: its ancestors up to the root and
every reply below them. Without an id the last conversation is shown again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConversation(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(conversationCmd)
	conversationCmd.Flags().BoolVar(&conversationRemote, "remote", false, "request missing ancestors from the network (overrides conversation.allow_remote_fetch)")
	conversationCmd.Flags().BoolVar(&conversationNoCollapse, "no-collapse", false, "show duplicates unfolded")
}

func runConversation(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	contexts := contextStore(cfg)
	current, err := contexts.Load()
	if err != nil {
		return err
	}

	selectedID := current.LastConversationID
	if len(args) == 1 {
		selectedID, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil || selectedID <= 0 {
			return fmt.Errorf("invalid item id %q", args[0])
		}
	}
	if selectedID == 0 {
		return errors.New("no item id given and no previous conversation")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := accountContext(cmd.Context(), current)
	log := logging.FromContext(ctx)

	opts := []conversation.Option{conversation.WithMaxIndent(cfg.Conversation.MaxIndent)}
	if cfg.Conversation.AllowRemoteFetch || conversationRemote {
		queue := remote.NewQueue(st, cfg.Conversation.RemoteQueueSize)
		if err := queue.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = queue.Stop() }()
		opts = append(opts, conversation.WithRemote(queue))
	}

	if cfg.Conversation.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Conversation.BuildTimeout)
		defer cancel()
	}

	conv, err := conversation.NewBuilder(st, opts...).Build(ctx, selectedID)
	if err != nil {
		return fmt.Errorf("failed to build conversation: %w", err)
	}
	if conv.Len() == 0 {
		return fmt.Errorf("item %d not found locally", selectedID)
	}

	current.SetConversation(selectedID)
	if err := contexts.Save(current); err != nil {
		log.Warn().Err(err).Msg("failed to save context")
	}

	folded := collapse.New(newClassifier(cfg, st), conv.Linear(cfg.Conversation.OldestFirst))
	if !conversationNoCollapse {
		folded.CollapseAll()
	}

	view := conversationView{SelectedID: selectedID, Incomplete: conv.Incomplete}
	for _, entry := range folded.Entries() {
		node := entry.Value
		nv := conversationNodeView{
			ID:           node.ID(),
			ReplyToID:    node.Item.ReplyToID,
			Author:       st.ActorName(node.Item.ActorID),
			Body:         node.Item.Body,
			ReplyLevel:   node.ReplyLevel,
			IndentLevel:  node.IndentLevel,
			ListOrder:    node.ListOrder,
			HistoryOrder: node.HistoryOrder,
		}
		for _, hidden := range entry.Hidden {
			nv.Hidden = append(nv.Hidden, hidden.ID())
		}
		view.Nodes = append(view.Nodes, nv)
	}

	if IsJSONOutput() {
		return WriteOutput(cmd.OutOrStdout(), view)
	}
	return printConversation(cmd, view)
}

func printConversation(cmd *cobra.Command, view conversationView) error {
	out := cmd.OutOrStdout()
	p := newPalette(out)

	var b strings.Builder
	for _, node := range view.Nodes {
		marker := "  "
		if node.ID == view.SelectedID {
			marker = p.render(p.marker, "> ")
		}
		b.WriteString(marker)
		b.WriteString(strings.Repeat("  ", node.IndentLevel))
		fmt.Fprintf(&b, "%s %s: %s", p.render(p.id, fmt.Sprintf("%d", node.ID)), p.render(p.author, node.Author), bodyPreview(node.Body))
		if len(node.Hidden) > 0 {
			b.WriteString(" " + p.render(p.dim, fmt.Sprintf("(+%d)", len(node.Hidden))))
		}
		b.WriteByte('\n')
	}
	if len(view.Incomplete) > 0 {
		b.WriteString(p.render(p.warn, "missing: "+joinIDs(view.Incomplete)))
		b.WriteByte('\n')
	}
	_, err := fmt.Fprint(out, b.String())
	return err
}
