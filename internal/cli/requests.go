package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List posts requested from the network that have not arrived",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		defer st.Close()

		pending, err := st.PendingFetchRequests(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() {
			return WriteOutput(out, pending)
		}
		if len(pending) == 0 {
			_, err := fmt.Fprintln(out, "No pending requests")
			return err
		}

		rows := make([][]string, 0, len(pending))
		for _, req := range pending {
			rows = append(rows, []string{
				fmt.Sprintf("%d", req.ItemID),
				req.RequestedAt.Local().Format(time.DateTime),
				req.ID,
			})
		}
		return writeTable(out, []string{"ITEM", "REQUESTED", "REQUEST"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(requestsCmd)
}
