// Package cmd provides the command-line interface of csat.
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
)

var (
	envFile     string
	verbosity   int
	development bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "csat",
	Short: "csat runs the CubeSat flight software core on the host.",
	Long: `csat runs the CubeSat flight software core on the host. ` +
		`It can simulate a network of nodes and inspect recorded transfers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return loadEnv(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"File with CSAT_* overrides. A missing file is ignored.")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", logging.DEFAULT,
		"Log verbosity.")
	rootCmd.PersistentFlags().BoolVar(&development, "dev", false,
		"Use the human readable log encoder.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

func newLogger() logr.Logger {
	return logging.New(verbosity, development)
}

// intSetting returns the flag value, unless the flag was left at its
// default and the environment variable holds a number.
func intSetting(cmd *cobra.Command, flag, env string) (int, error) {
	v, err := cmd.Flags().GetInt(flag)
	if err != nil {
		return 0, err
	}

	if cmd.Flags().Changed(flag) {
		return v, nil
	}

	s, ok := os.LookupEnv(env)
	if !ok {
		return v, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New(env + ": " + err.Error())
	}

	return n, nil
}
