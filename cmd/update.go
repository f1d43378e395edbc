package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/smazurov/projectnode/internal/logging"
	"github.com/smazurov/projectnode/internal/version"
	"github.com/spf13/cobra"
)

// updateRepository is the GitHub repo releases are pulled from.
const updateRepository = "smazurov/projectnode"

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var checkOnly bool
	var prerelease bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update projectnode to the latest release",
		Long:  `Checks GitHub releases for a newer version and replaces the current binary in place.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("update")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
			if err != nil {
				logger.Error("Failed to create GitHub source", "error", err)
				os.Exit(1)
			}

			updater, err := selfupdate.NewUpdater(selfupdate.Config{
				Source:     source,
				Prerelease: prerelease,
			})
			if err != nil {
				logger.Error("Failed to create updater", "error", err)
				os.Exit(1)
			}

			release, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(updateRepository))
			if err != nil {
				logger.Error("Failed to check for updates", "error", err)
				os.Exit(1)
			}
			if !found {
				logger.Error("Repository not found or has no releases", "repository", updateRepository)
				os.Exit(1)
			}

			// dev builds are always considered outdated
			current := version.Version
			if current != "dev" && !release.GreaterThan(current) {
				fmt.Printf("Already up to date (version %s)\n", current)
				return
			}

			fmt.Printf("Update available: %s -> %s\n", current, release.Version())
			if checkOnly {
				return
			}

			exe, err := selfupdate.ExecutablePath()
			if err != nil {
				logger.Error("Failed to get executable path", "error", err)
				os.Exit(1)
			}

			if err := updater.UpdateTo(ctx, release, exe); err != nil {
				logger.Error("Failed to apply update", "error", err)
				os.Exit(1)
			}

			fmt.Printf("Updated to version %s\n", release.Version())
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Check for updates without applying")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")

	return cmd
}
