package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"ingest", "ask", "consult", "serve", "mcp"} {
		assert.Contains(t, names, want)
	}
}

func TestMCPCmd_HelpDescribesLogDestinations(t *testing.T) {
	assert.Contains(t, mcpCmd.Long, "Logs go to stderr")
	assert.Contains(t, mcpCmd.Long, "log.file")
	assert.Contains(t, mcpCmd.Long, "stdout carries only the protocol")
}
