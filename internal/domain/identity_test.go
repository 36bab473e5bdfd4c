package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItemIdentity_KeyIsSortedAndTrimmed(t *testing.T) {
	id, err := NewItemIdentity(" sku-1 ", Variant{"size": " M ", "color": "red", "engraving": ""})
	require.NoError(t, err)

	assert.Equal(t, "sku-1|color=red|size=M", id.Key())
	assert.Len(t, id.Variant, 2)
}

func TestNewItemIdentity_VariantsAreDistinct(t *testing.T) {
	red, err := NewItemIdentity("sku-1", Variant{"color": "red"})
	require.NoError(t, err)
	blue, err := NewItemIdentity("sku-1", Variant{"color": "blue"})
	require.NoError(t, err)
	plain, err := NewItemIdentity("sku-1", nil)
	require.NoError(t, err)

	assert.NotEqual(t, red.Key(), blue.Key())
	assert.NotEqual(t, red.Key(), plain.Key())
	assert.Equal(t, "sku-1", plain.Key())
}

func TestNewItemIdentity_Rejects(t *testing.T) {
	_, err := NewItemIdentity("  ", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewItemIdentity("a|b", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewItemIdentity("a", Variant{"si=ze": "M"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseItemKey_RoundTrip(t *testing.T) {
	id, err := NewItemIdentity("sku-9", Variant{"size": "L", "color": "green"})
	require.NoError(t, err)

	parsed, err := ParseItemKey(id.Key())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	parsed, err = ParseItemKey("sku-9")
	require.NoError(t, err)
	assert.Nil(t, parsed.Variant)

	_, err = ParseItemKey("sku-9|broken")
	assert.ErrorIs(t, err, ErrValidation)
}
