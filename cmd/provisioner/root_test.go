package main

import (
	"bytes"
	"testing"

	"provisioner/cmd/provisioner/app"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "plans", "check", "server"})

	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestRootCommand_Plans(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"plans"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "render-build (default)")
}

func TestRootCommand_NoArgsRunsConfiguredPlan(t *testing.T) {
	// An unknown configured plan is rejected before anything runs.
	t.Setenv("PROVISIONER_PLAN", "missing-plan")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{})

	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, 2, app.Code(err))
}

func TestRootCommand_RejectsArguments(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"unexpected"})

	assert.Error(t, root.Execute())
}
