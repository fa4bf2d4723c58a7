package labels

import (
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aquapredict/aquapredict-go/internal/app"
	"github.com/aquapredict/aquapredict-go/internal/conf"
	internallabels "github.com/aquapredict/aquapredict-go/internal/labels"
)

// Command creates the labels command, which prints the label codec and
// the region alias table.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "Print the label codec and region aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := app.LoadCodec(settings.Model.CodecPath)
			if err != nil {
				return err
			}
			norm, err := app.NewNormalizer(settings, codec)
			if err != nil {
				return err
			}
			Render(cmd.OutOrStdout(), codec, norm)
			return nil
		},
	}
}

// Render writes the codec tables and the alias table to w
func Render(w io.Writer, codec *internallabels.Codec, norm *internallabels.Normalizer) {
	renderCodes(w, "Region", codec.Regions())
	renderCodes(w, "Month", codec.Months())
	renderCodes(w, "Species", codec.Species())

	aliases := norm.Aliases()
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	slices.Sort(names)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Region aliases")
	t.AppendHeader(table.Row{"Alias", "Region"})
	for _, name := range names {
		t.AppendRow(table.Row{name, aliases[name]})
	}
	t.AppendFooter(table.Row{"Total", len(names)})
	t.Render()
}

func renderCodes(w io.Writer, title string, values []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Code", title})
	for i, v := range values {
		t.AppendRow(table.Row{i, v})
	}
	t.Render()
}
