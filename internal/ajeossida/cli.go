package ajeossida

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
)

// printHelp prints the commands table
func printHelp(w io.Writer) {
	fmt.Fprintln(w, colSuccess.Sprint("Usage: ajeossida <command> [arguments]"))
	fmt.Fprintln(w, colSuccess.Sprint("Run 'ajeossida <command> -h' for command options"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.Info.Sprint("Available Commands:"))

	type cmdInfo struct {
		Cmd  string
		Args string
		Desc string
	}
	cmds := []cmdInfo{
		{"build, b", "[options]", "Clone, rebrand, build and package all architectures"},
		{"patch, p", "[-phase name] <dir>", "Apply the rebrand rules to an existing tree"},
		{"ndk", "[-base dir] [-major n]", "Show the Android NDK that would be used"},
		{"rules", "[-recipe file]", "Print the effective patch recipe"},
		{"bytepatch", "<file>...", "Apply the binary byte patches to files in place"},
		{"log", "[file]", "View the most recent build log"},
		{"upload", "[-n] [-y] [-assets dir]", "Upload the assets directory to R2"},
		{"clean", "[-workspace] [-assets] [-logs] [-all]", "Remove build state from the work directory"},
		{"keygen", "[-dir dir] <id>", "Generate a release signing key pair"},
		{"version, --version", "", "Version information"},
	}

	maxLen := 0
	for _, c := range cmds {
		length := len(c.Cmd) + len(c.Args)
		if c.Args != "" {
			length++
		}
		if length > maxLen {
			maxLen = length
		}
	}
	columnWidth := maxLen + 4

	for _, c := range cmds {
		usage := c.Cmd
		if c.Args != "" {
			usage += " " + c.Args
		}
		fmt.Fprint(w, "  ")
		fmt.Fprint(w, color.Bold.Sprint(c.Cmd))
		if c.Args != "" {
			fmt.Fprint(w, " ", color.Cyan.Sprint(c.Args))
		}
		pad := columnWidth - len(usage)
		if pad < 1 {
			pad = 1
		}
		fmt.Fprint(w, strings.Repeat(" ", pad))
		fmt.Fprintln(w, color.Info.Sprint(c.Desc))
	}
	fmt.Fprintln(w)
}

// Main is the CLI entrypoint for cmd/ajeossida.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case sig := <-sigs:
				if isCriticalAtomic.Load() == 1 {
					// Block the first signal while the workspace is being
					// wiped or artifacts are moved; force exit on the second.
					colArrow.Print("\n-> ")
					colError.Printf("Critical operation in progress. Press Ctrl+C AGAIN to force exit NOW.\n")
					select {
					case <-sigs:
						colArrow.Print("\n-> ")
						colError.Printf("Forced immediate exit.\n")
						os.Exit(130)
					case <-time.After(5 * time.Second):
						continue
					case <-ctx.Done():
						return
					}
				}

				colArrow.Print("\n-> ")
				color.Danger.Printf("Received %v. Cancelling build gracefully\n", sig)
				cancel()

				select {
				case <-sigs:
					colArrow.Print("\n-> ")
					color.Danger.Printf("Second interrupt received. Forcing immediate exit.\n")
					os.Exit(130)
				case <-time.After(5 * time.Second):
					colArrow.Print("\n-> ")
					color.Danger.Printf("Graceful shutdown timeout. Exiting.\n")
					os.Exit(130)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	if len(os.Args) < 2 {
		printHelp(os.Stdout)
		return
	}

	configPath := ConfigFile
	if p := os.Getenv("AJEOSSIDA_CONFIG"); p != "" {
		configPath = p
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := initConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runCommand(ctx, os.Args[1], os.Args[2:], cfg, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr)
		colArrow.Print("-> ")
		colError.Printf("%s failed: %v\n", os.Args[1], err)
		if ctx.Err() != nil {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// runCommand dispatches one subcommand.
func runCommand(ctx context.Context, name string, args []string, cfg *Config, out io.Writer) error {
	switch name {
	case "build", "b":
		return handleBuildCommand(ctx, args, cfg, out)
	case "patch", "p":
		return handlePatchCommand(args, cfg, out)
	case "ndk":
		return handleNDKCommand(args, cfg, out)
	case "rules":
		return handleRulesCommand(args, cfg, out)
	case "bytepatch":
		return handleBytePatchCommand(args, cfg, out)
	case "log":
		return handleLogCommand(args, cfg)
	case "upload":
		return handleUploadCommand(ctx, args, cfg)
	case "clean":
		return handleCleanCommand(args, cfg, out)
	case "keygen":
		return handleKeygenCommand(args, out)
	case "version", "--version":
		fmt.Fprintln(out, colNote.Sprintf("ajeossida %s (%s) built %s", version, arch, buildDate))
		return nil
	case "help", "-h", "--help":
		printHelp(out)
		return nil
	}
	printHelp(out)
	return fmt.Errorf("unknown command %q", name)
}

func handleBuildCommand(ctx context.Context, args []string, cfg *Config, out io.Writer) error {
	buildCmd := flag.NewFlagSet("build", flag.ContinueOnError)
	name := buildCmd.String("name", cfg.Name, "Name replacing the upstream product name")
	repo := buildCmd.String("repo", cfg.Repo, "Upstream git repository")
	ref := buildCmd.String("ref", cfg.Ref, "Upstream branch or tag to clone")
	archs := buildCmd.String("archs", strings.Join(cfg.Archs, ","), "Comma separated target architectures")
	ndkBase := buildCmd.String("ndk-base", cfg.NDKBase, "Directory holding installed NDK versions")
	recipePath := buildCmd.String("recipe", cfg.RecipePath, "HCL recipe replacing the built-in one")
	bundle := buildCmd.Bool("bundle", cfg.Bundle, "Also write a tar.zst bundle of the renamed binaries")
	idle := buildCmd.Bool("idle", cfg.Idle, "Run external commands with idle priority")
	jobs := buildCmd.Int("j", cfg.Jobs, "Parallel make jobs (0 = number of CPUs)")
	if err := buildCmd.Parse(args); err != nil {
		return err
	}

	if err := validateName(*name); err != nil {
		return err
	}
	cfg.Name = *name
	cfg.Repo = *repo
	cfg.Ref = *ref
	cfg.Archs = parseArchList(*archs)
	cfg.NDKBase = *ndkBase
	cfg.RecipePath = *recipePath
	cfg.Bundle = *bundle
	cfg.Idle = *idle
	cfg.Jobs = *jobs

	recipe, err := LoadRecipe(cfg.RecipePath, cfg.Name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return err
	}
	lock, err := acquireLock(cfg.WorkDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	blog, err := openBuildLog(cfg.LogsDir(), cfg.Name)
	if err != nil {
		return err
	}

	executor := &Executor{
		Context:           ctx,
		ApplyIdlePriority: cfg.Idle,
		Log:               blog,
	}
	pipeline := NewPipeline(cfg, recipe, executor, io.MultiWriter(out, blog))
	runErr := pipeline.Run(ctx)

	logPath, logErr := blog.Close()
	if logErr != nil {
		warn(out, "%v", logErr)
	}
	step(out, "Build log: %s", logPath)
	return runErr
}

func handlePatchCommand(args []string, cfg *Config, out io.Writer) error {
	patchCmd := flag.NewFlagSet("patch", flag.ContinueOnError)
	name := patchCmd.String("name", cfg.Name, "Name replacing the upstream product name")
	phase := patchCmd.String("phase", PhaseRebrand, "Rule phase to apply: rebrand, post_build or all")
	recipePath := patchCmd.String("recipe", cfg.RecipePath, "HCL recipe replacing the built-in one")
	if err := patchCmd.Parse(args); err != nil {
		return err
	}
	if err := validateName(*name); err != nil {
		return err
	}
	if patchCmd.NArg() != 1 {
		return errors.New("usage: ajeossida patch [-phase name] <dir>")
	}
	root, err := filepath.Abs(patchCmd.Arg(0))
	if err != nil {
		return err
	}
	if !isDir(root) {
		return fmt.Errorf("%s is not a directory", root)
	}

	recipe, err := LoadRecipe(*recipePath, *name)
	if err != nil {
		return err
	}

	var rules []Rule
	switch *phase {
	case PhaseRebrand, PhasePostBuild:
		rules = recipe.Rules(*phase)
	case "all":
		rules = append(append(rules, recipe.Rules(PhaseRebrand)...), recipe.Rules(PhasePostBuild)...)
	default:
		return fmt.Errorf("unknown phase %q", *phase)
	}
	return ApplyRules(out, root, rules)
}

func handleNDKCommand(args []string, cfg *Config, out io.Writer) error {
	ndkCmd := flag.NewFlagSet("ndk", flag.ContinueOnError)
	base := ndkCmd.String("base", cfg.NDKBase, "Directory holding installed NDK versions")
	major := ndkCmd.String("major", cfg.NDKMajor, "Required NDK major version")
	if err := ndkCmd.Parse(args); err != nil {
		return err
	}
	ndk, err := SelectNDK(*base, *major)
	if err != nil {
		return err
	}
	step(out, "NDK version: %s", ndk.Version)
	fmt.Fprintln(out, ndk.Path)
	return nil
}

func handleRulesCommand(args []string, cfg *Config, out io.Writer) error {
	rulesCmd := flag.NewFlagSet("rules", flag.ContinueOnError)
	name := rulesCmd.String("name", cfg.Name, "Name replacing the upstream product name")
	recipePath := rulesCmd.String("recipe", cfg.RecipePath, "HCL recipe replacing the built-in one")
	if err := rulesCmd.Parse(args); err != nil {
		return err
	}
	if err := validateName(*name); err != nil {
		return err
	}
	recipe, err := LoadRecipe(*recipePath, *name)
	if err != nil {
		return err
	}
	PrintRecipe(out, recipe)
	return nil
}

func handleBytePatchCommand(args []string, cfg *Config, out io.Writer) error {
	bpCmd := flag.NewFlagSet("bytepatch", flag.ContinueOnError)
	recipePath := bpCmd.String("recipe", cfg.RecipePath, "HCL recipe replacing the built-in one")
	if err := bpCmd.Parse(args); err != nil {
		return err
	}
	if bpCmd.NArg() == 0 {
		return errors.New("usage: ajeossida bytepatch <file>...")
	}
	recipe, err := LoadRecipe(*recipePath, cfg.Name)
	if err != nil {
		return err
	}
	for _, file := range bpCmd.Args() {
		n, err := PatchBinary(file, recipe.BytePatches)
		if err != nil {
			return err
		}
		step(out, "%s: %d occurrence(s) patched", file, n)
	}
	return nil
}

func handleLogCommand(args []string, cfg *Config) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		latest, err := latestBuildLog(cfg.LogsDir())
		if err != nil {
			return err
		}
		path = latest
	}
	lines, err := readLogLines(path)
	if err != nil {
		return fmt.Errorf("failed to read log %s: %w", path, err)
	}
	return RunPager(filepath.Base(path), lines)
}

func handleKeygenCommand(args []string, out io.Writer) error {
	keygenCmd := flag.NewFlagSet("keygen", flag.ContinueOnError)
	defaultDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		defaultDir = filepath.Join(home, ".config", "ajeossida", "keys")
	}
	dir := keygenCmd.String("dir", defaultDir, "Directory to write the key pair to")
	if err := keygenCmd.Parse(args); err != nil {
		return err
	}
	if keygenCmd.NArg() != 1 {
		return errors.New("usage: ajeossida keygen [-dir dir] <id>")
	}
	keyPath, pubPath, err := GenerateKeyPair(*dir, keygenCmd.Arg(0))
	if err != nil {
		return err
	}
	step(out, "Private key written to %s", keyPath)
	step(out, "Public key written to %s", pubPath)
	fmt.Fprintln(out, colNote.Sprintf("Set AJEOSSIDA_SIGNING_KEY=%s to sign releases", keyPath))
	return nil
}
