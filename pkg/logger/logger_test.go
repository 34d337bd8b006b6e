package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitSetsGlobalLogger(t *testing.T) {
	require.NoError(t, Init("debug"))
	require.NotNil(t, Logger())

	child := WithModule("otp")
	require.NotNil(t, child)
}

func TestInitFallsBackOnUnknownLevel(t *testing.T) {
	require.NoError(t, Init("not-a-level"))
	require.NotNil(t, Logger())
}
