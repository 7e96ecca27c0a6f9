package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli carries state from the root command into subcommands.
type cli struct {
	configPath string
	cfg        Config
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "foosball",
		Short: "Foosball league backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			cfg, err := LoadConfig(c.configPath, os.LookupEnv)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			c.cfg, c.log = cfg, log
			return nil
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: nearest "+configFilename+")")

	root.AddCommand(newServeCmd(c))
	root.AddCommand(newUserCmd(c))
	root.AddCommand(newSeriesCmd(c))
	return root
}

// withApp runs fn against a freshly opened app and closes it afterwards.
func (c *cli) withApp(cmd *cobra.Command, fn func(*app) error) (err error) {
	a, err := newApp(cmd.Context(), c.cfg, c.log)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(a)
}
