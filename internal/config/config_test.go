package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	c := AppConfig{}.WithDefaults()
	require.Equal(t, DefaultWSURL, c.WSURL)
	require.Equal(t, DefaultDB, c.DBPath)
	require.Equal(t, DefaultBind, c.Bind)
	require.Equal(t, DefaultPort, c.Port)
}

func TestWithDefaultsPreservesSetFields(t *testing.T) {
	c := AppConfig{WSURL: "wss://custom", Port: 8080}.WithDefaults()
	require.Equal(t, "wss://custom", c.WSURL)
	require.EqualValues(t, 8080, c.Port)
	require.Equal(t, DefaultDB, c.DBPath)
}
