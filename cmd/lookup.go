package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zipmap/internal/config"
	"github.com/sells-group/zipmap/internal/region"
	"github.com/sells-group/zipmap/internal/store"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Manage the stored state to ZIP code lookup",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("lookup")
	},
}

var lookupImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the stored lookup with a JSON or CSV file or URL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		from, _ := cmd.Flags().GetString("from")
		if from == "" {
			from = cfg.Assets.LookupPath
		}

		ctx := cmd.Context()
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		imp, err := runLookupImport(ctx, cfg, st, from)
		if err != nil {
			return err
		}
		zap.L().Info("lookup import complete",
			zap.String("id", imp.ID),
			zap.String("source", imp.Source),
			zap.Int("states", imp.States),
			zap.Int("zipcodes", imp.Zipcodes),
		)
		return nil
	},
}

var lookupShowCmd = &cobra.Command{
	Use:   "show [state]",
	Short: "Show the stored lookup, or one state's ZIP codes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		state := ""
		if len(args) == 1 {
			state = args[0]
		}
		return runLookupShow(ctx, cmd.OutOrStdout(), st, state)
	},
}

func runLookupImport(ctx context.Context, c *config.Config, st store.Store, from string) (*store.Import, error) {
	src := region.SourceFor(newFetcher(c), from)
	lookup, err := src.Load(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "lookup: read %s", from)
	}
	if len(lookup) == 0 {
		return nil, eris.Errorf("lookup: %s has no states", from)
	}
	return st.ReplaceLookup(ctx, from, lookup)
}

func runLookupShow(ctx context.Context, w io.Writer, st store.Store, state string) error {
	m, err := st.LoadLookup(ctx)
	if err != nil {
		return err
	}
	lookup := region.Lookup(m)

	if state != "" {
		zips, ok := lookup[state]
		if !ok {
			return eris.Errorf("lookup: unknown state %q", state)
		}
		fmt.Fprintf(w, "%s\t%d zipcodes\t%s\n", state, len(zips), strings.Join(uniq(lookup.Zip3s(state)), ","))
		return nil
	}

	imp, err := st.LastImport(ctx)
	if err != nil {
		return err
	}
	if imp == nil {
		fmt.Fprintln(w, "no lookup imported")
		return nil
	}
	fmt.Fprintf(w, "import %s from %s at %s\n", imp.ID, imp.Source, imp.ImportedAt.Format("2006-01-02 15:04:05"))

	states := make([]string, 0, len(lookup))
	for s := range lookup {
		states = append(states, s)
	}
	sort.Strings(states)
	for _, s := range states {
		fmt.Fprintf(w, "%s\t%d\n", s, len(lookup[s]))
	}
	return nil
}

func uniq(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func init() {
	lookupImportCmd.Flags().String("from", "", "JSON or CSV file, http(s) or ftp URL (default assets.lookup_path)")
	lookupCmd.AddCommand(lookupImportCmd, lookupShowCmd)
	rootCmd.AddCommand(lookupCmd)
}
