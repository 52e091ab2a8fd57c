package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/threadline/internal/collapse"
	"github.com/tOgg1/threadline/internal/filter"
	"github.com/tOgg1/threadline/internal/logging"
	"github.com/tOgg1/threadline/internal/models"
	"github.com/tOgg1/threadline/internal/timeline"
)

var (
	timelineOlderPages int
	timelineNoCollapse bool
)

type timelineEntry struct {
	Item   models.Item `json:"item"`
	Author string      `json:"author"`
	Hidden []int64     `json:"hidden,omitempty"`
}

type timelineView struct {
	Entries      []timelineEntry `json:"entries"`
	Windows      int             `json:"windows"`
	MayHaveOlder bool            `json:"may_have_older"`
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show the newest posts, with duplicates folded",
	Long: `Load the newest page of the timeline and, with --older, further pages
back in time. Hidden keywords and participant rules from the config are
applied before paging limits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTimeline(cmd)
	},
}

func init() {
	rootCmd.AddCommand(timelineCmd)
	timelineCmd.Flags().IntVar(&timelineOlderPages, "older", 0, "number of older pages to load after the newest one")
	timelineCmd.Flags().BoolVar(&timelineNoCollapse, "no-collapse", false, "show duplicates unfolded")
}

func runTimeline(cmd *cobra.Command) error {
	cfg := GetConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	classifier := newClassifier(cfg, st)
	hide, err := filter.New(filter.Config{
		HiddenKeywords:          cfg.Filter.HiddenKeywords,
		HideRepliesNotFromKnown: cfg.Filter.HideRepliesNotFromKnown,
	}, st, classifier)
	if err != nil {
		return fmt.Errorf("invalid filter config: %w", err)
	}

	opts := []timeline.LoaderOption{timeline.WithPageSize(cfg.Timeline.PageSize)}
	if !hide.Empty() {
		opts = append(opts, timeline.WithFilter(hide.Keep))
	}
	manager := timeline.NewManager(timeline.WithMaxWindows(cfg.Timeline.MaxWindows))
	loader := timeline.NewLoader(manager, st, opts...)

	ctx := cmd.Context()
	if current, err := contextStore(cfg).Load(); err == nil {
		ctx = accountContext(ctx, current)
	} else {
		log := logging.FromContext(ctx)
		log.Debug().Err(err).Msg("no saved context")
	}
	if _, err := loader.Load(ctx, timeline.DirectionTop); err != nil {
		return err
	}
	for i := 0; i < timelineOlderPages && manager.MayExtend(timeline.DirectionOlder); i++ {
		if _, err := loader.Load(ctx, timeline.DirectionOlder); err != nil {
			return err
		}
	}

	folded := collapse.New(classifier, manager.Items())
	if cfg.Timeline.CollapseDuplicates && !timelineNoCollapse {
		folded.CollapseAll()
	}

	view := timelineView{
		Windows:      len(manager.Windows()),
		MayHaveOlder: manager.MayExtend(timeline.DirectionOlder),
	}
	for _, entry := range folded.Entries() {
		te := timelineEntry{Item: entry.Value, Author: st.ActorName(entry.Value.ActorID)}
		for _, hidden := range entry.Hidden {
			te.Hidden = append(te.Hidden, hidden.ID)
		}
		view.Entries = append(view.Entries, te)
	}

	if IsJSONOutput() {
		return WriteOutput(cmd.OutOrStdout(), view)
	}
	return printTimeline(cmd, view)
}

func printTimeline(cmd *cobra.Command, view timelineView) error {
	out := cmd.OutOrStdout()
	if len(view.Entries) == 0 {
		_, err := fmt.Fprintln(out, "No posts")
		return err
	}

	p := newPalette(out)
	rows := make([][]string, 0, len(view.Entries))
	for _, entry := range view.Entries {
		dups := ""
		if len(entry.Hidden) > 0 {
			dups = p.render(p.dim, fmt.Sprintf("+%d", len(entry.Hidden)))
		}
		rows = append(rows, []string{
			p.render(p.id, fmt.Sprintf("%d", entry.Item.ID)),
			p.render(p.author, entry.Author),
			entry.Item.SentAt.Local().Format(time.DateTime),
			bodyPreview(entry.Item.Body),
			dups,
		})
	}
	if err := writeTable(out, []string{"ID", "AUTHOR", "SENT", "BODY", "DUPS"}, rows); err != nil {
		return err
	}
	if view.MayHaveOlder {
		_, err := fmt.Fprintln(out, p.render(p.dim, "(older posts available, use --older)"))
		return err
	}
	return nil
}
