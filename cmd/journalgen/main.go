// Command journalgen fills a journal directory with synthetic mood and dream
// records, for trying out charts and statistics without months of real
// check-ins.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/moodjournal/pkg/storage"
)

var (
	daysFlag    int
	dataDirFlag string
	seedFlag    int64
	rootCmd     = &cobra.Command{
		Use:   "journalgen <user-id>",
		Short: "Generate synthetic journal records for a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
)

func main() {
	rootCmd.Flags().IntVarP(&daysFlag, "days", "n", 547, "Number of days to generate, ending yesterday")
	rootCmd.Flags().StringVarP(&dataDirFlag, "data-dir", "d", "data", "Journal data directory")
	rootCmd.Flags().Int64Var(&seedFlag, "seed", 0, "Random seed (0 picks one from the clock)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || userID <= 0 {
		return fmt.Errorf("invalid user id %q", args[0])
	}
	if daysFlag <= 0 {
		return fmt.Errorf("--days must be positive")
	}

	seed := seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := newGenerator(storage.NewStore(dataDirFlag), seed)
	n, err := g.Generate(cmd.Context(), userID, daysFlag, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d days for user %d to %s\n", n, userID, dataDirFlag)
	return nil
}
