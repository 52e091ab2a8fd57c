package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tOgg1/threadline/internal/logging"
	"github.com/tOgg1/threadline/internal/models"
)

// importFixture is the YAML layout accepted by `threadline import`.
type importFixture struct {
	Accounts         []models.Account `yaml:"accounts"`
	PreferredAccount int64            `yaml:"preferred_account"`
	Actors           []models.Actor   `yaml:"actors"`
	Items            []models.Item    `yaml:"items"`
}

type importResult struct {
	Accounts int `json:"accounts"`
	Actors   int `json:"actors"`
	Items    int `json:"items"`
}

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import accounts, actors and posts into the local store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, path string) error {
	fixture, err := readFixture(path)
	if err != nil {
		return err
	}

	st, err := openStore(GetConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	for _, account := range fixture.Accounts {
		if err := st.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to import account %d: %w", account.ID, err)
		}
	}
	if fixture.PreferredAccount != 0 {
		if err := st.SetPreferredAccount(ctx, fixture.PreferredAccount); err != nil {
			return err
		}
	}
	for _, actor := range fixture.Actors {
		if err := st.SaveActor(ctx, actor); err != nil {
			return fmt.Errorf("failed to import actor %d: %w", actor.ID, err)
		}
	}
	if len(fixture.Items) > 0 {
		if err := st.SaveItems(ctx, fixture.Items...); err != nil {
			return fmt.Errorf("failed to import items: %w", err)
		}
	}

	result := importResult{
		Accounts: len(fixture.Accounts),
		Actors:   len(fixture.Actors),
		Items:    len(fixture.Items),
	}
	log := logging.FromContext(ctx)
	log.Info().Str("path", path).Int("items", result.Items).Msg("imported fixture")
	if IsJSONOutput() {
		return WriteOutput(cmd.OutOrStdout(), result)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts, %d actors, %d items\n", result.Accounts, result.Actors, result.Items)
	return err
}

func readFixture(path string) (*importFixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var fixture importFixture
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fixture); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i := range fixture.Items {
		item := &fixture.Items[i]
		if item.Status == "" {
			item.Status = models.StatusLoaded
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = item.SentAt
		}
	}
	return &fixture, nil
}
