package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/OrthogonalScribe/baktu/internal/engine"
	"github.com/OrthogonalScribe/baktu/internal/nsv"
	"github.com/OrthogonalScribe/baktu/internal/repo"
)

var (
	errNotARepo      = errors.New("not in a baktu repository, exiting. `cd` into an existing one, or create one via `baktu init`")
	errNotASite      = errors.New("not in a baktu repository site, exiting. `cd` into an existing one, or create one via `baktu add-site <name>`")
	errRepoCorrupt   = errors.New("repo corrupt: sites directory does not exist")
	errAlreadyExists = errors.New("already exists")
)

const pathHelp = `Path gotchas:
- Surround with single quotes to prevent shell expansion, e.g. to add a literal '~/docs', keeping it user-relative.
- Symlinks with trailing slashes are interpreted as their targets, thus '~/ln_to_docs' and '~/ln_to_docs/' will be considered different.`

const nsvHelp = `Null-separated value (NSV) files are files containing entries separated by ASCII NUL. To inspect them, use something like ` + "`xargs -0n1 < file.nsv`" + ` or ` + "`tr '\\0' '\\n' < file.nsv`" + `, keeping in mind this will be misleading for entries containing newlines.`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a baktu repository in the current empty directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		entries, err := os.ReadDir(cwd)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return fmt.Errorf("%w: current directory is not empty, exiting", errAlreadyExists)
		}

		if _, err := repo.Create(cwd); err != nil {
			return err
		}

		logrus.Info("init subcommand done")
		return nil
	},
}

var addSiteCmd = &cobra.Command{
	Use:   "add-site <name>",
	Short: "Create a new site in the current baktu repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		repoRoot := repo.RootOrEmpty(cwd)
		if repoRoot == "" {
			return errNotARepo
		}

		sitesPath := filepath.Join(repoRoot, "sites")
		if _, err := os.Stat(sitesPath); err != nil {
			return errRepoCorrupt
		}

		sitePath := filepath.Join(sitesPath, name)
		if _, err := os.Stat(sitePath); err == nil {
			return fmt.Errorf("%w: a site with that name already exists", errAlreadyExists)
		}

		if _, err := repo.CreateSite(sitePath); err != nil {
			return err
		}

		logrus.Info("add-site subcommand done")
		return nil
	},
}

var nsvAddToCmd = &cobra.Command{
	Use:   "nsv-add-to <file> <path>",
	Short: "Adds a path to a null-separated value file",
	Long:  "Adds a path to a null-separated value file.\n\n" + pathHelp + "\n\n" + nsvHelp,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, path := args[0], args[1]
		if err := nsv.Append(file, []byte(path)); err != nil {
			return err
		}
		logrus.Info("nsv-add-to subcommand done")
		return nil
	},
}

var nsvRmFromCmd = &cobra.Command{
	Use:   "nsv-rm-from <file> <path>",
	Short: "Removes all occurrences of a path in a null-separated value file",
	Long:  "Removes all occurrences of a path in a null-separated value file.\n\n" + pathHelp + "\n\n" + nsvHelp,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, path := args[0], args[1]
		if err := nsv.FilterNot(file, []byte(path)); err != nil {
			return err
		}
		logrus.Info("nsv-rm-from subcommand done")
		return nil
	},
}

var snapOpts engine.Options

var snapCmd = &cobra.Command{
	Use:   "snap",
	Short: "Create a new snapshot within the current site",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		sitePath := repo.SiteOrEmpty(cwd)
		if sitePath == "" {
			return errNotASite
		}

		stats, err := engine.Snapshot(repo.Site{Path: sitePath}, snapOpts)
		if err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"processed": stats.ProcessedCount,
			"excluded":  stats.ExcludedCount,
		}).Info("snap subcommand done")
		return nil
	},
}

func init() {
	snapCmd.Flags().BoolVar(&snapOpts.AllowNonexistentExcludePaths, "allow-nonexistent-exclude-paths", false,
		"do not error out on nonexistent exclude paths")
	snapCmd.Flags().BoolVar(&snapOpts.NoReportCachedirTag, "no-report-cachedir-tag", false,
		"do not report CACHEDIR.TAG files")
	snapCmd.Flags().BoolVar(&snapOpts.NoReportNodump, "no-report-nodump", false,
		"do not report unexcluded files with the nodump attribute")
	snapCmd.Flags().BoolVar(&snapOpts.ConfirmExcludeAllEacces, "confirm-exclude-all-eacces", false,
		"required confirmation for exclude.all_eacces in the site config to work")
	snapCmd.Flags().BoolVarP(&snapOpts.DryRun, "dry-run", "n", false,
		"do not make any changes to the filesystem")
}
