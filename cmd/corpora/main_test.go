package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestRunCommandRequiresConfig(t *testing.T) {
	app := &cli.App{
		Name: "corpora",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Required: true,
					},
				},
			},
		},
	}

	err := app.Run([]string{"corpora", "run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestSetupLogger(t *testing.T) {
	app := &cli.App{
		Name: "corpora",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Before: setupLogger,
		Action: func(c *cli.Context) error { return nil },
	}

	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG"} {
			assert.NoError(t, app.Run([]string{"corpora", "--log-level", level}), level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := app.Run([]string{"corpora", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
