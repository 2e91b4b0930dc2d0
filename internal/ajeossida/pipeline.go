package ajeossida

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// stage is one step of the pipeline. A failing fail-fast stage aborts the
// run; a failing best-effort stage is reported and the run continues.
type stage struct {
	name     string
	failFast bool
	run      func(ctx context.Context) error
}

// Pipeline clones, rebrands, builds and packages the upstream tree.
type Pipeline struct {
	cfg    *Config
	recipe *Recipe
	runner Runner
	out    io.Writer

	ndk       NDK
	artifacts []Artifact
	renamed   []string
	version   string
	release   Release
	warnings  int
}

func NewPipeline(cfg *Config, recipe *Recipe, runner Runner, out io.Writer) *Pipeline {
	if out == nil {
		out = os.Stdout
	}
	return &Pipeline{cfg: cfg, recipe: recipe, runner: runner, out: out}
}

// Version is the upstream version found by the version_query stage.
func (p *Pipeline) Version() string { return p.version }

// Warnings counts best-effort failures of the last run.
func (p *Pipeline) Warnings() int { return p.warnings }

func (p *Pipeline) stages() []stage {
	return []stage{
		{"reset", true, p.reset},
		{"clone", true, p.clone},
		{"discover_toolchain", true, p.discoverToolchain},
		{"configure", true, p.configure},
		{"rebrand_pass", false, func(context.Context) error { return p.applyPhase(PhaseRebrand) }},
		{"build_1", true, func(ctx context.Context) error { return p.buildAll(ctx, "First") }},
		{"post_build_rename", false, func(context.Context) error { return p.applyPhase(PhasePostBuild) }},
		{"build_2", true, func(ctx context.Context) error { return p.buildAll(ctx, "Second") }},
		{"byte_patch", true, p.bytePatch},
		{"version_query", true, p.queryVersion},
		{"finalize", false, p.finalize},
		{"manifest", false, p.writeManifest},
	}
}

// Run executes every stage in order.
func (p *Pipeline) Run(ctx context.Context) error {
	p.warnings = 0
	start := time.Now()
	for _, st := range p.stages() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stage %s: %w", st.name, err)
		}
		debugf("=> stage %s\n", st.name)
		err := st.run(ctx)
		if err == nil {
			continue
		}
		if st.failFast {
			return fmt.Errorf("stage %s: %w", st.name, err)
		}
		p.reportWarnings(st.name, err)
	}

	fmt.Fprintln(p.out)
	step(p.out, "Building of %s completed in %s. The output is in %s", p.cfg.Name, time.Since(start).Round(time.Second), p.cfg.AssetsDir())
	if p.warnings > 0 {
		warn(p.out, "%d warning(s) during best-effort stages", p.warnings)
	}
	return nil
}

func (p *Pipeline) reportWarnings(stageName string, err error) {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		p.warnings++
		warn(p.out, "[%s] %v", stageName, e)
	}
}

func (p *Pipeline) reset(context.Context) error {
	isCriticalAtomic.Store(1)
	defer isCriticalAtomic.Store(0)

	workspace := p.cfg.WorkspaceDir()
	assets := p.cfg.AssetsDir()
	for _, dir := range []string{workspace, assets} {
		if _, err := os.Stat(dir); err == nil {
			fmt.Fprintln(p.out)
			step(p.out, "Cleaning %s", dir)
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("failed to remove %s: %w", dir, err)
			}
		}
	}
	return os.MkdirAll(assets, 0o755)
}

func (p *Pipeline) clone(context.Context) error {
	fmt.Fprintln(p.out)
	step(p.out, "Cloning repository %s to %s", p.cfg.Repo, p.cfg.WorkspaceDir())
	return cloneUpstream(p.runner, p.cfg, p.cfg.WorkspaceDir())
}

func (p *Pipeline) discoverToolchain(context.Context) error {
	ndk, err := SelectNDK(p.cfg.NDKBase, p.cfg.NDKMajor)
	if err != nil {
		return err
	}
	p.ndk = ndk
	step(p.out, "NDK version: %s", ndk.Version)
	return nil
}

func (p *Pipeline) configure(ctx context.Context) error {
	for _, arch := range p.cfg.Archs {
		if err := ctx.Err(); err != nil {
			return err
		}
		buildDir := p.cfg.BuildDir(arch)
		if err := os.MkdirAll(buildDir, 0o755); err != nil {
			return err
		}
		fmt.Fprintln(p.out)
		step(p.out, "Configuring the build for %s", arch)
		if err := configureArch(p.runner, p.ndk, buildDir, arch); err != nil {
			return fmt.Errorf("failed to configure %s: %w", arch, err)
		}
	}
	return nil
}

func (p *Pipeline) buildAll(ctx context.Context, label string) error {
	for _, arch := range p.cfg.Archs {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintln(p.out)
		step(p.out, "%s build for %s", label, arch)
		if err := buildArch(p.runner, p.cfg, p.ndk, p.cfg.BuildDir(arch)); err != nil {
			return fmt.Errorf("build for %s failed: %w", arch, err)
		}
	}
	return nil
}

func (p *Pipeline) applyPhase(phase string) error {
	return ApplyRules(p.out, p.cfg.WorkspaceDir(), p.recipe.Rules(phase))
}

// ApplyRules applies rules in order against root. Rule failures are
// collected and returned joined; the remaining rules still run.
func ApplyRules(out io.Writer, root string, rules []Rule) error {
	var errs []error
	for _, rule := range rules {
		target := root
		if rule.File != "" {
			target = filepath.Join(root, rule.File)
		}
		fmt.Fprintln(out)
		step(out, "Patch %q with %q in %s", rule.Search, rule.Replace, displayPath(root, target))

		res, err := Rewrite(target, rule.Search, rule.Replace)
		for _, patched := range res.Patched {
			fmt.Fprintln(out, colInfo.Sprintf("Patch %s", displayPath(root, patched)))
		}
		if len(res.Patched) == 0 {
			debugf("No occurrence of %q (%d files visited, %d skipped)\n", rule.Search, res.Visited, res.Skipped)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", rule, err))
		}
	}
	return errors.Join(errs...)
}

func displayPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return path
	}
	return rel
}

func (p *Pipeline) bytePatch(context.Context) error {
	p.artifacts = p.artifacts[:0]
	for _, as := range p.recipe.Artifacts {
		for _, arch := range p.cfg.Archs {
			p.artifacts = append(p.artifacts, Artifact{
				Kind: as.Kind,
				Arch: arch,
				Path: filepath.Join(p.cfg.BuildDir(arch), as.Path),
			})
		}
	}

	for _, a := range p.artifacts {
		fmt.Fprintln(p.out)
		step(p.out, "Byte patch for %s", a.Path)
		n, err := PatchBinary(a.Path, p.recipe.BytePatches)
		if err != nil {
			return fmt.Errorf("failed to patch %s: %w", a.Path, err)
		}
		debugf("%d occurrence(s) replaced in %s\n", n, a.Path)
	}
	return nil
}

func (p *Pipeline) queryVersion(context.Context) error {
	v, err := queryVersion(p.runner, p.cfg, p.cfg.WorkspaceDir())
	if err != nil {
		return err
	}
	p.version = v
	step(p.out, "Upstream version: %s", v)
	return nil
}

func (p *Pipeline) finalize(context.Context) error {
	isCriticalAtomic.Store(1)
	defer isCriticalAtomic.Store(0)

	p.release = Release{
		Name:     p.cfg.Name,
		Version:  p.version,
		Upstream: p.cfg.Repo,
		NDK:      p.ndk.Version,
		BuiltAt:  time.Now().UTC(),
	}
	p.renamed = p.renamed[:0]

	var errs []error
	for _, a := range p.artifacts {
		fmt.Fprintln(p.out)
		file, renamed, err := FinalizeArtifact(p.out, a, p.version, p.cfg.AssetsDir())
		if renamed != "" {
			p.renamed = append(p.renamed, renamed)
		}
		if err != nil {
			fmt.Fprintln(p.out, colError.Sprintf("Error finalizing %s: %v", a.Path, err))
			errs = append(errs, err)
			continue
		}
		p.release.Files = append(p.release.Files, file)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) writeManifest(context.Context) error {
	if len(p.release.Files) == 0 {
		return errors.New("no artifacts were finalized, skipping release manifest")
	}
	if err := writeRelease(p.cfg.AssetsDir(), &p.release, p.cfg.SigningKey); err != nil {
		return err
	}
	step(p.out, "Wrote %s (%d files)", releaseManifest, len(p.release.Files))

	if !p.cfg.Bundle {
		return nil
	}
	bundle := filepath.Join(p.cfg.AssetsDir(), fmt.Sprintf("%s-%s-android.tar.zst", p.cfg.Name, p.version))
	if err := writeBundle(bundle, p.renamed); err != nil {
		return err
	}
	step(p.out, "Wrote bundle %s", filepath.Base(bundle))
	return nil
}
