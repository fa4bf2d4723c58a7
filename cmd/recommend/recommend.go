package recommend

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/aquapredict/aquapredict-go/internal/app"
	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/logger"
	"github.com/aquapredict/aquapredict-go/internal/recommend"
)

// defaultEffort matches the HTTP API default for omitted fishing effort
const defaultEffort = 5.0

// Command creates the recommend command, which runs one recommendation
// against the configured model and price table without starting a server.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		req    recommend.Request
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend the species to target for a region and month",
		Example: `  aquapredict recommend --region "Kerala Coast" --month August --temperature 28 --salinity 35 --oxygen 6
  aquapredict recommend --region Kochi --month March --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := Run(cmd.Context(), settings, req)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			Render(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Region, "region", "", "Region name, canonical or alias")
	cmd.Flags().StringVar(&req.Month, "month", "", "Month name, e.g. August")
	cmd.Flags().Float64Var(&req.Temperature, "temperature", 0, "Water temperature in °C")
	cmd.Flags().Float64Var(&req.Salinity, "salinity", 0, "Salinity in PSU")
	cmd.Flags().Float64Var(&req.Oxygen, "oxygen", 0, "Dissolved oxygen in mg/L")
	cmd.Flags().Float64Var(&req.FishingEffort, "effort", defaultEffort, "Fishing effort")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the recommendation as JSON")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}

// Run builds the engine from settings and returns one recommendation
func Run(ctx context.Context, settings *conf.Settings, req recommend.Request) (recommend.Recommendation, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, settings)
	if err != nil {
		return recommend.Recommendation{}, fmt.Errorf("startup failed: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Global().Module("recommend").Warn("failed to release model", logger.Error(err))
		}
	}()

	return a.Engine.Recommend(ctx, req)
}

// Render writes the recommendation summary and the ranked scores
func Render(w io.Writer, rec recommend.Recommendation) {
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleLight)
	summary.SetTitle("Recommendation")
	summary.AppendRows([]table.Row{
		{"Region", rec.Region},
		{"Species", rec.Recommended},
		{"Confidence", fmt.Sprintf("%.2f", rec.Confidence)},
		{"Price", rec.Price},
		{"Reason", rec.Reason},
	})
	summary.Render()

	if len(rec.Scores) == 0 {
		return
	}

	scores := table.NewWriter()
	scores.SetOutputMirror(w)
	scores.SetStyle(table.StyleLight)
	scores.AppendHeader(table.Row{"#", "Species", "Probability", "Price", "Score"})
	for i, s := range rec.Ranked() {
		price := s.Price.String()
		if slices.Contains(rec.Unpriced, s.Species) {
			price += " *"
		}
		scores.AppendRow(table.Row{i + 1, s.Species, s.Probability, price, s.Score})
	}
	scores.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, Transformer: text.NewNumberTransformer("%.4f")},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight, Transformer: text.NewNumberTransformer("%.4f")},
	})
	if len(rec.Unpriced) > 0 {
		scores.SetCaption("* no price data, scored with the neutral price")
	}
	scores.Render()
}
