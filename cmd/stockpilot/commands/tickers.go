package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saikarthik/stockpilot/backend/internal/pipeline"
)

// tickersCmd represents the tickers command
var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "Watch list management",
	Long: `Manages the ticker watch list.

Subcommands:
  list  - list known tickers and their dataset ids
  add   - validate a symbol upstream and register it

Example:
  go run ./cmd/stockpilot tickers list
  go run ./cmd/stockpilot tickers add AAPL`,
}

var (
	tickersListCmd = &cobra.Command{
		Use:   "list",
		Short: "List known tickers",
		RunE:  listTickers,
	}

	tickersAddCmd = &cobra.Command{
		Use:   "add [symbol]",
		Short: "Validate and register a ticker",
		Args:  cobra.ExactArgs(1),
		RunE:  addTicker,
	}
)

func init() {
	rootCmd.AddCommand(tickersCmd)
	tickersCmd.AddCommand(tickersListCmd)
	tickersCmd.AddCommand(tickersAddCmd)
}

func listTickers(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	ids, err := pipeline.NewTickerIDRepository(d.db.Pool).Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load tickers: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("No tickers registered yet")
		return nil
	}

	tickers := make([]string, 0, len(ids))
	for t := range ids {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	fmt.Printf("Known tickers (%d):\n", len(tickers))
	for _, t := range tickers {
		fmt.Printf("  %4d  %s\n", ids[t], t)
	}

	return nil
}

func addTicker(cmd *cobra.Command, args []string) error {
	ticker := strings.ToUpper(strings.TrimSpace(args[0]))

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	ctx := cmd.Context()

	// Validate upstream before registering
	profile, err := d.client.FetchProfile(ctx, ticker)
	if err != nil {
		return fmt.Errorf("validate %s: %w", ticker, err)
	}

	encoder, err := pipeline.LoadTickerEncoder(ctx, pipeline.NewTickerIDRepository(d.db.Pool))
	if err != nil {
		return fmt.Errorf("load ticker encoder: %w", err)
	}

	id, err := encoder.Encode(ctx, ticker)
	if err != nil {
		return fmt.Errorf("register %s: %w", ticker, err)
	}

	fmt.Printf("Registered %s (id %d)\n", ticker, id)
	fmt.Printf("  Name:     %s\n", profile.Name)
	if profile.Exchange != "" {
		fmt.Printf("  Exchange: %s\n", profile.Exchange)
	}
	if profile.Currency != "" {
		fmt.Printf("  Currency: %s\n", profile.Currency)
	}

	return nil
}
