package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RootCmd_Subcommands(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"serve", "migrate"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
		assert.NotNil(t, cmd.RunE)
	}
	assert.NotNil(t, root.RunE, "serve runs when no subcommand is given")
}
