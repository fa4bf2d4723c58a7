package normalize

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aquapredict/aquapredict-go/internal/app"
	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/labels"
)

// Command creates the normalize command, which resolves free-form region
// names against the codec and configured aliases.
func Command(settings *conf.Settings) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "normalize <region>...",
		Short:   "Resolve region names to canonical regions",
		Example: `  aquapredict normalize "Kochi Backwaters" "goa" "Atlantis"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := app.LoadCodec(settings.Model.CodecPath)
			if err != nil {
				return err
			}
			norm, err := app.NewNormalizer(settings, codec)
			if err != nil {
				return err
			}

			matches := make([]labels.Match, 0, len(args))
			for _, raw := range args {
				matches = append(matches, norm.Resolve(raw))
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), matches)
			}
			Render(cmd.OutOrStdout(), matches)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print matches as JSON")

	return cmd
}

// Render writes one table row per match
func Render(w io.Writer, matches []labels.Match) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Input", "Region", "Source"})
	for _, m := range matches {
		t.AppendRow(table.Row{m.Input, m.Region, m.Source})
	}
	t.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
