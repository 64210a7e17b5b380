package mnemonic_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didstore/internal/mnemonic"
)

const fixed = "cloth always junk crash fun exist stumble shift over benefit fun toe"

func TestGenerate_Valid(t *testing.T) {
	for _, lang := range []string{mnemonic.English, mnemonic.French, mnemonic.ChineseSimplified} {
		m, err := mnemonic.Generate(lang)
		require.NoError(t, err, lang)
		assert.Len(t, strings.Fields(m), 12, lang)
		assert.True(t, mnemonic.IsValid(lang, m), lang)
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, mnemonic.IsValid(mnemonic.English, fixed))
	assert.True(t, mnemonic.IsValid("", "  "+fixed+" "))
	assert.False(t, mnemonic.IsValid(mnemonic.English, "cloth always junk"))
	assert.False(t, mnemonic.IsValid("klingon", fixed))
}

func TestSeed_Deterministic(t *testing.T) {
	a, err := mnemonic.Seed(mnemonic.English, fixed, "")
	require.NoError(t, err)
	b, err := mnemonic.Seed(mnemonic.English, fixed, "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := mnemonic.Seed(mnemonic.English, fixed, "extra")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = mnemonic.Seed(mnemonic.English, "not a mnemonic", "")
	assert.Error(t, err)
}
