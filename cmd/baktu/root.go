package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verboseCount int
	quiet        bool
	silent       bool
)

const longHelp = `baktu takes content-addressed, deduplicated snapshots of a filesystem tree.

Logging: set BAKTU_LOG to error, warn, info, debug or trace to adjust
verbosity, or use -v/-vv/-vvv, -q, --silent.

Capabilities: extended attributes in the trusted namespace are only visible
to processes with CAP_SYS_ADMIN. If baktu is permitted to acquire that
capability (via "sudo setcap cap_sys_admin=p baktu"), it does so for the
duration of reading each file's extended attributes; otherwise it shells
out to the get-all-xattrs helper, reducing the attack surface of the main
process.

Excludes gotcha: explicit exclude paths are compared by FileKey
(stx_dev, stx_ino), so excluding one hard link excludes every other hard
link to the same inode.`

var rootCmd = &cobra.Command{
	Use:   "baktu",
	Short: "Content-addressed, deduplicated filesystem snapshots",
	Long:  longHelp,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v",
		"verbosity level, can be specified multiple times, equivalent to BAKTU_LOG={info,debug,trace}")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet mode, equivalent to BAKTU_LOG=error")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "silent mode, equivalent to BAKTU_LOG=off")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet", "silent")

	rootCmd.AddCommand(initCmd, addSiteCmd, nsvAddToCmd, nsvRmFromCmd, snapCmd)
}

// initLogging mirrors Baktu::init_logging: start from a default of Warn,
// let BAKTU_LOG override it, then let the verbosity flags override that.
func initLogging() {
	logrus.SetLevel(logrus.WarnLevel)

	if env := os.Getenv("BAKTU_LOG"); env != "" {
		if lvl, err := logrus.ParseLevel(env); err == nil {
			logrus.SetLevel(lvl)
		}
	}

	switch {
	case silent:
		logrus.SetOutput(discardWriter{})
	case quiet:
		logrus.SetLevel(logrus.ErrorLevel)
	case verboseCount == 1:
		logrus.SetLevel(logrus.InfoLevel)
	case verboseCount == 2:
		logrus.SetLevel(logrus.DebugLevel)
	case verboseCount >= 3:
		logrus.SetLevel(logrus.TraceLevel)
	}

	logrus.Infof("log level set to %s", logrus.GetLevel())
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Execute runs the root command, mapping any returned error to a process
// exit code via classify.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "baktu:", err)
		os.Exit(classify(err))
	}
}
