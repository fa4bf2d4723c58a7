package normalize

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/labels"
)

func TestNormalizeCommandTable(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := Command(&conf.Settings{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"Kochi Backwaters", "goa", "Atlantis"})

	require.NoError(t, cmd.Execute())

	got := out.String()
	assert.Contains(t, got, "Kerala Coast")
	assert.Contains(t, got, "alias")
	assert.Contains(t, got, "Goa Coast")
	assert.Contains(t, got, "substring")
	assert.Contains(t, got, "Andaman Sea")
	assert.Contains(t, got, "fallback")
}

func TestNormalizeCommandJSON(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{
		Labels: conf.LabelSettings{
			Aliases: []conf.AliasSetting{{Name: "Fort Kochi", Region: "Kerala Coast"}},
		},
	}

	var out bytes.Buffer
	cmd := Command(settings)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json", "fort kochi", "Rameswaram"})

	require.NoError(t, cmd.Execute())

	var matches []labels.Match
	require.NoError(t, json.Unmarshal(out.Bytes(), &matches))
	assert.Equal(t, []labels.Match{
		{Input: "fort kochi", Region: "Kerala Coast", Source: labels.SourceAlias},
		{Input: "Rameswaram", Region: "Rameswaram", Source: labels.SourceExact},
	}, matches)
}

func TestNormalizeCommandRequiresArgs(t *testing.T) {
	t.Parallel()

	cmd := Command(&conf.Settings{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	assert.Error(t, cmd.Execute())
}

func TestNormalizeCommandRejectsBadAlias(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{
		Labels: conf.LabelSettings{
			Aliases: []conf.AliasSetting{{Name: "Atlantis", Region: "Lost City"}},
		},
	}
	cmd := Command(settings)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"Atlantis"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown region")
}
