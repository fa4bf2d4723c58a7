package labels

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquapredict/aquapredict-go/internal/errors"
)

func TestDefaultCodecOrder(t *testing.T) {
	t.Parallel()

	c := DefaultCodec()
	assert.Equal(t, []string{
		"Andaman Sea", "Chennai Coast", "Goa Coast", "Kerala Coast", "Rameswaram", "Visakhapatnam",
	}, c.Regions())
	assert.Len(t, c.Months(), 12)
	assert.Equal(t, "April", c.Months()[0])

	code, err := c.EncodeRegion("Kerala Coast")
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	code, err = c.EncodeMonth("May")
	require.NoError(t, err)
	assert.Equal(t, 8, code)

	species, err := c.DecodeSpecies(6)
	require.NoError(t, err)
	assert.Equal(t, "Tuna", species)
}

func TestCodecAccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	c := DefaultCodec()
	regions := c.Regions()
	regions[0] = "Atlantis"
	assert.Equal(t, "Andaman Sea", c.Regions()[0])
}

func TestEncodeErrors(t *testing.T) {
	t.Parallel()

	c := DefaultCodec()

	_, err := c.EncodeMonth("may")
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, FieldMonth, encErr.Field)

	_, _, err = c.Encode("Foo", "Andaman Sea", "Mayy")
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "encoding failed for region/month - region:Foo -> Andaman Sea, month:Mayy", err.Error())
	assert.Equal(t, errors.CategoryEncoding, encErr.ErrorCategory())

	_, _, err = c.Encode("Atlantis", "Atlantis", "May")
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, FieldRegion, encErr.Field)

	r, m, err := c.Encode("Kochi", "Kerala Coast", "January")
	require.NoError(t, err)
	assert.Equal(t, 3, r)
	assert.Equal(t, 4, m)
}

func TestDecodeSpeciesOutOfRange(t *testing.T) {
	t.Parallel()

	c := DefaultCodec()
	_, err := c.DecodeSpecies(-1)
	require.Error(t, err)
	_, err = c.DecodeSpecies(len(c.Species()))
	require.Error(t, err)
}

func TestNewCodecValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		regions []string
		months  []string
		species []string
		wantErr string
	}{
		{"empty regions", nil, []string{"May"}, []string{"Tuna"}, "region labels must not be empty"},
		{"empty species", []string{"A"}, []string{"May"}, nil, "species labels must not be empty"},
		{"blank entry", []string{"A", " "}, []string{"May"}, []string{"Tuna"}, "blank"},
		{"case variants", []string{"A"}, []string{"May", "MAY"}, []string{"Tuna"}, "differ only by case"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewCodec(tt.regions, tt.months, tt.species)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadCodec(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		c, err := LoadCodec(filepath.Join("testdata", "codec.json"))
		require.NoError(t, err)
		assert.Equal(t, DefaultCodec().Regions(), c.Regions())
		assert.Equal(t, DefaultCodec().Species(), c.Species())
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		c, err := LoadCodec(filepath.Join("testdata", "codec.yaml"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Bay of Bengal", "Palk Strait"}, c.Regions())
		assert.Equal(t, []string{"Hilsa", "Prawn", "Tuna"}, c.Species())
	})

	t.Run("duplicate labels", func(t *testing.T) {
		t.Parallel()
		_, err := LoadCodec(filepath.Join("testdata", "duplicate.json"))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryLabelLoad))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadCodec(filepath.Join("testdata", "nope.json"))
		require.Error(t, err)
	})
}
