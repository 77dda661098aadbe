package server

import (
	"testing"

	"provisioner/cmd/provisioner/app"
	"provisioner/internal/config"
	perrors "provisioner/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appWithPort(port string) *app.App {
	return &app.App{Config: &config.Config{Server: config.ServerConfig{Port: port}}}
}

func TestListenPort_FromConfig(t *testing.T) {
	cmd := NewServerCommand(&app.Options{})

	port, err := listenPort(cmd, appWithPort("10000"), &ServerOpts{})
	require.NoError(t, err)
	assert.Equal(t, 10000, port)

	_, err = listenPort(cmd, appWithPort("not-a-port"), &ServerOpts{})
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrInvalidConfig)
	assert.Equal(t, app.ExitConfigError, app.Code(app.ToExitError(err)))
}

func TestListenPort_FlagOverridesConfig(t *testing.T) {
	cmd := NewServerCommand(&app.Options{})
	require.NoError(t, cmd.Flags().Set("port", "9090"))

	port, err := listenPort(cmd, appWithPort("not-a-port"), &ServerOpts{Port: 9090})
	require.NoError(t, err)
	assert.Equal(t, 9090, port)

	_, err = listenPort(cmd, appWithPort("8080"), &ServerOpts{Port: 70000})
	assert.ErrorIs(t, err, perrors.ErrInvalidConfig)
}
