package ajeossida

import (
	"flag"
	"fmt"
	"io"
	"os"
)

func handleCleanCommand(args []string, cfg *Config, out io.Writer) error {
	cleanCmd := flag.NewFlagSet("clean", flag.ContinueOnError)
	cleanWorkspace := cleanCmd.Bool("workspace", false, "Remove the cloned and built workspace.")
	cleanAssets := cleanCmd.Bool("assets", false, "Remove the assets directory.")
	cleanLogs := cleanCmd.Bool("logs", false, "Remove stored build logs.")
	cleanAll := cleanCmd.Bool("all", false, "workspace, assets and logs.")
	yes := cleanCmd.Bool("y", false, "Do not ask for confirmation.")
	cleanCmd.SetOutput(out)

	if err := cleanCmd.Parse(args); err != nil {
		return err
	}

	if !*cleanWorkspace && !*cleanAssets && !*cleanLogs && !*cleanAll {
		fmt.Fprintln(out, "Usage: ajeossida clean [flag]")
		fmt.Fprintln(out, "You must specify what to clean up. Use one of the following flags:")
		cleanCmd.PrintDefaults()
		return nil
	}
	if *cleanAll {
		*cleanWorkspace = true
		*cleanAssets = true
		*cleanLogs = true
	}

	if !isDir(cfg.WorkDir) {
		step(out, "Nothing to clean in %s.", cfg.WorkDir)
		return nil
	}
	lock, err := acquireLock(cfg.WorkDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	targets := []struct {
		enabled bool
		what    string
		dir     string
	}{
		{*cleanWorkspace, "workspace", cfg.WorkspaceDir()},
		{*cleanAssets, "assets", cfg.AssetsDir()},
		{*cleanLogs, "build logs", cfg.LogsDir()},
	}
	for _, t := range targets {
		if !t.enabled {
			continue
		}
		if _, err := os.Stat(t.dir); os.IsNotExist(err) {
			debugf("%s does not exist, nothing to remove\n", t.dir)
			continue
		}
		if !*yes {
			fmt.Fprint(out, colArrow.Sprint("-> "))
			fmt.Fprintln(out, colWarn.Sprintf("Deleting %s at %s.", t.what, t.dir))
			if !askForConfirmation(colArrow, "Are you sure you want to proceed?") {
				step(out, "Cleanup of %s canceled.", t.what)
				continue
			}
		}
		debugf("Removing %s directory: %s\n", t.what, t.dir)
		if err := os.RemoveAll(t.dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", t.what, err)
		}
		step(out, "Removed %s.", t.what)
	}
	return nil
}
