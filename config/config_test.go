package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTimeoutsMatchSpec(t *testing.T) {
	d := DefaultTimeouts()

	require.Equal(t, "30s", d.Initialize.String())
	require.Equal(t, "7s", d.InitializedWait.String())
	require.Equal(t, "10s", d.Request.String())
	require.Equal(t, "2s", d.Disconnect.String())
}

func TestDefaultAdaptersCoverEveryLanguage(t *testing.T) {
	cfg := Default()

	langs := make(map[string]string)
	for _, a := range cfg.Adapters {
		langs[a.Language] = a.Mode
	}

	require.Equal(t, "stdio", langs["python"])
	require.Equal(t, "tcp", langs["ruby"])
	require.Equal(t, "embedded", langs["go"])
	require.Equal(t, "stdio", langs["cc"])
}
