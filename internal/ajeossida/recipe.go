package ajeossida

import (
	_ "embed"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Phase names understood by the pipeline.
const (
	PhaseRebrand   = "rebrand"
	PhasePostBuild = "post_build"
)

//go:embed recipe.hcl
var defaultRecipe []byte

// Rule is a literal (search, replace) pair. An empty File applies the rule to
// the whole workspace tree; otherwise File is relative to the workspace root.
type Rule struct {
	Search  string
	Replace string
	File    string
}

func (r Rule) String() string {
	scope := "*"
	if r.File != "" {
		scope = r.File
	}
	return fmt.Sprintf("[%s] %q -> %q", scope, r.Search, r.Replace)
}

// ArtifactSpec locates a produced binary inside a per-architecture build
// directory.
type ArtifactSpec struct {
	Kind string
	Path string
}

// Recipe is the complete ordered rule set of one run.
type Recipe struct {
	Upstream    string
	Phases      map[string][]Rule
	BytePatches []BytePatch
	Artifacts   []ArtifactSpec
}

// Rules returns the ordered rules of a phase.
func (r *Recipe) Rules(phase string) []Rule { return r.Phases[phase] }

// hclRecipe is the top-level structure of a recipe file for decoding.
type hclRecipe struct {
	Upstream    string          `hcl:"upstream,optional"`
	Phases      []*hclPhase     `hcl:"phase,block"`
	BytePatches []*hclBytePatch `hcl:"byte_patch,block"`
	Artifacts   []*hclArtifact  `hcl:"artifact,block"`
}

type hclPhase struct {
	Name  string     `hcl:"name,label"`
	Rules []*hclRule `hcl:"rule,block"`
}

type hclRule struct {
	Search  string  `hcl:"search"`
	Replace *string `hcl:"replace,optional"`
	File    string  `hcl:"file,optional"`
}

type hclBytePatch struct {
	Search  string `hcl:"search"`
	Replace string `hcl:"replace"`
}

type hclArtifact struct {
	Kind string `hcl:"kind,label"`
	Path string `hcl:"path"`
}

// LoadRecipe reads the recipe at path, or the embedded default when path is
// empty, and interpolates brand into it.
func LoadRecipe(path, brand string) (*Recipe, error) {
	parser := hclparse.NewParser()
	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if path == "" {
		file, diags = parser.ParseHCL(defaultRecipe, "recipe.hcl")
	} else {
		file, diags = parser.ParseHCLFile(path)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse recipe: %w", diags)
	}
	return decodeRecipe(file, brand)
}

// ParseRecipe decodes a recipe held in memory.
func ParseRecipe(src []byte, filename, brand string) (*Recipe, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse recipe %s: %w", filename, diags)
	}
	return decodeRecipe(file, brand)
}

func decodeRecipe(file *hcl.File, brand string) (*Recipe, error) {
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"brand": cty.StringVal(brand),
		},
	}

	var parsed hclRecipe
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode recipe: %w", diags)
	}

	recipe := &Recipe{
		Upstream: parsed.Upstream,
		Phases:   make(map[string][]Rule),
	}

	for _, ph := range parsed.Phases {
		if ph.Name != PhaseRebrand && ph.Name != PhasePostBuild {
			return nil, fmt.Errorf("unknown phase %q (want %q or %q)", ph.Name, PhaseRebrand, PhasePostBuild)
		}
		for i, hr := range ph.Rules {
			rule, err := hr.toRule(recipe.Upstream, brand)
			if err != nil {
				return nil, fmt.Errorf("phase %s rule %d: %w", ph.Name, i+1, err)
			}
			recipe.Phases[ph.Name] = append(recipe.Phases[ph.Name], rule)
		}
	}

	for i, hb := range parsed.BytePatches {
		p, err := NewBytePatch(hb.Search, hb.Replace)
		if err != nil {
			return nil, fmt.Errorf("byte_patch %d: %w", i+1, err)
		}
		recipe.BytePatches = append(recipe.BytePatches, p)
	}

	seen := make(map[string]bool)
	for _, ha := range parsed.Artifacts {
		if ha.Kind != "server" && ha.Kind != "gadget" {
			return nil, fmt.Errorf("unknown artifact kind %q", ha.Kind)
		}
		if seen[ha.Kind] {
			return nil, fmt.Errorf("duplicate artifact %q", ha.Kind)
		}
		seen[ha.Kind] = true
		if !filepath.IsLocal(ha.Path) {
			return nil, fmt.Errorf("artifact %s: path %q must be relative to the build directory", ha.Kind, ha.Path)
		}
		recipe.Artifacts = append(recipe.Artifacts, ArtifactSpec{Kind: ha.Kind, Path: ha.Path})
	}

	return recipe, nil
}

func (hr *hclRule) toRule(upstream, brand string) (Rule, error) {
	if hr.Search == "" {
		return Rule{}, fmt.Errorf("empty search string")
	}
	if hr.File != "" && !filepath.IsLocal(hr.File) {
		return Rule{}, fmt.Errorf("file %q must be relative to the workspace", hr.File)
	}
	rule := Rule{Search: hr.Search, File: hr.File}
	switch {
	case hr.Replace != nil:
		rule.Replace = *hr.Replace
	case upstream != "" && strings.Contains(hr.Search, upstream):
		rule.Replace = strings.ReplaceAll(hr.Search, upstream, brand)
	default:
		return Rule{}, fmt.Errorf("rule %q has no replace and does not contain %q", hr.Search, upstream)
	}
	return rule, nil
}

// PrintRecipe writes a human readable listing of recipe to w.
func PrintRecipe(w io.Writer, recipe *Recipe) {
	for _, phase := range []string{PhaseRebrand, PhasePostBuild} {
		fmt.Fprintln(w, colInfo.Sprintf("phase %s (%d rules)", phase, len(recipe.Rules(phase))))
		for _, r := range recipe.Rules(phase) {
			fmt.Fprintf(w, "  %s\n", r)
		}
	}
	fmt.Fprintln(w, colInfo.Sprintf("byte patches (%d)", len(recipe.BytePatches)))
	for _, p := range recipe.BytePatches {
		fmt.Fprintf(w, "  %s\n", p)
	}
	fmt.Fprintln(w, colInfo.Sprintf("artifacts (%d)", len(recipe.Artifacts)))
	for _, a := range recipe.Artifacts {
		fmt.Fprintf(w, "  %-7s %s\n", a.Kind, a.Path)
	}
}
