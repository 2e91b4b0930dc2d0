package ajeossida

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTree creates files relative to root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRewriteTree_OnlyMatchingFilesChange(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	const n, k = 12, 5
	for i := 0; i < n; i++ {
		rel := filepath.Join(fmt.Sprintf("dir%d", i%3), fmt.Sprintf("f%d.txt", i))
		if i < k {
			files[rel] = fmt.Sprintf("start frida-agent- middle frida-agent-%d end", i)
		} else {
			files[rel] = fmt.Sprintf("unrelated content %d", i)
		}
	}
	writeTree(t, root, files)

	res, err := RewriteTree(root, "frida-agent-", "brand-agent-")
	require.NoError(t, err)
	require.Equal(t, n, res.Visited)
	require.Len(t, res.Patched, k)

	for rel, before := range files {
		after := readFile(t, filepath.Join(root, rel))
		if strings.Contains(before, "frida-agent-") {
			require.NotContains(t, after, "frida-agent-")
			require.Equal(t, strings.ReplaceAll(before, "frida-agent-", "brand-agent-"), after)
		} else {
			require.Equal(t, before, after, "file %s must be byte-identical", rel)
		}
	}
}

func TestRewriteTree_Idempotent(t *testing.T) {
	once := t.TempDir()
	twice := t.TempDir()
	files := map[string]string{
		"a.c":       `return "frida-gadget";`,
		"sub/b.py":  `name = "frida-gadget" + "frida-gadget"`,
		"sub/c.txt": "nothing here",
	}
	writeTree(t, once, files)
	writeTree(t, twice, files)

	_, err := RewriteTree(once, `"frida-gadget"`, `"brand-gadget"`)
	require.NoError(t, err)

	_, err = RewriteTree(twice, `"frida-gadget"`, `"brand-gadget"`)
	require.NoError(t, err)
	res, err := RewriteTree(twice, `"frida-gadget"`, `"brand-gadget"`)
	require.NoError(t, err)
	require.Empty(t, res.Patched)

	for rel := range files {
		require.Equal(t, readFile(t, filepath.Join(once, rel)), readFile(t, filepath.Join(twice, rel)))
	}
}

func TestRewriteTree_SkipsBinaryGitAndSymlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/main.c":   "frida_agent_main();",
		".git/config":  "frida_agent_main",
		"outside.txt":  "frida_agent_main",
		"nested/x.txt": "frida_agent_main",
	})
	binary := append([]byte("frida_agent_main"), 0xff, 0xfe, 0x00, 0x80)
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib.so"), binary, 0o755))
	require.NoError(t, os.Symlink(filepath.Join(root, "outside.txt"), filepath.Join(root, "src", "link.txt")))

	res, err := RewriteTree(root, "frida_agent_main", "brand_agent_main")
	require.NoError(t, err)

	sort.Strings(res.Patched)
	require.Equal(t, []string{
		filepath.Join(root, "nested/x.txt"),
		filepath.Join(root, "outside.txt"),
		filepath.Join(root, "src/main.c"),
	}, res.Patched)
	require.Equal(t, 1, res.Skipped)

	require.Equal(t, "frida_agent_main", readFile(t, filepath.Join(root, ".git/config")))
	data, err := os.ReadFile(filepath.Join(root, "lib.so"))
	require.NoError(t, err)
	require.Equal(t, binary, data)
}

func TestRewriteFile_PreservesModeAndReportsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configure")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho re.frida.server\n"), 0o755))

	changed, err := RewriteFile(path, "re.frida.server", "re.brand.server")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "#!/bin/sh\necho re.brand.server\n", readFile(t, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	changed, err = RewriteFile(path, "re.frida.server", "re.brand.server")
	require.NoError(t, err)
	require.False(t, changed)
}

func TestRewrite_SingleFileAndMissingTarget(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"meson.build":       "'frida-server'",
		"other/meson.build": "'frida-server'",
	})

	res, err := Rewrite(filepath.Join(root, "meson.build"), "'frida-server'", "'brand-server'")
	require.NoError(t, err)
	require.Len(t, res.Patched, 1)
	require.Equal(t, "'frida-server'", readFile(t, filepath.Join(root, "other/meson.build")))

	_, err = Rewrite(filepath.Join(root, "missing.build"), "x", "y")
	require.Error(t, err)
}

func TestRewrite_EmptySearchRejected(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "abc"})

	_, err := RewriteTree(root, "", "x")
	require.Error(t, err)
	require.Equal(t, "abc", readFile(t, filepath.Join(root, "a.txt")))
}

func TestApplyRules_ContinuesPastFailures(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "frida-helper-32 frida-helper-64"})

	rules := []Rule{
		{Search: "x", Replace: "y", File: "does/not/exist"},
		{Search: "frida-helper-32", Replace: "brand-helper-32"},
		{Search: "frida-helper-64", Replace: "brand-helper-64", File: "a.txt"},
	}
	var out strings.Builder
	err := ApplyRules(&out, root, rules)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does/not/exist")
	require.Equal(t, "brand-helper-32 brand-helper-64", readFile(t, filepath.Join(root, "a.txt")))
	require.Contains(t, out.String(), "Patch a.txt")
}
