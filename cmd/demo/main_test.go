package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValues(t *testing.T) {
	got, err := parseValues(" 10, 20,,30 ")
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 20, 30}, got)

	_, err = parseValues("1,x")
	assert.Error(t, err)

	_, err = parseValues(" , ")
	assert.Error(t, err)
}
