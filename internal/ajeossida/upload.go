package ajeossida

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// objectStore is the part of R2Client the uploader needs.
type objectStore interface {
	ListObjects(ctx context.Context, prefix string) ([]R2Object, error)
	UploadLocalFile(ctx context.Context, key, filePath string) error
}

type uploadOptions struct {
	DryRun bool
	Yes    bool // skip the per-file confirmation prompt
}

// handleUploadCommand implements the 'ajeossida upload' command.
func handleUploadCommand(ctx context.Context, args []string, cfg *Config) error {
	uploadCmd := flag.NewFlagSet("upload", flag.ContinueOnError)
	assetsDir := uploadCmd.String("assets", cfg.AssetsDir(), "Assets directory to upload")
	dryRun := uploadCmd.Bool("n", false, "Show what would be uploaded")
	yes := uploadCmd.Bool("y", false, "Do not ask for confirmation")
	if err := uploadCmd.Parse(args); err != nil {
		return err
	}

	rel, err := ReadRelease(*assetsDir)
	if err != nil {
		return fmt.Errorf("no release manifest in %s (run 'ajeossida build' first): %w", *assetsDir, err)
	}

	r2, err := NewR2Client(ctx, cfg)
	if err != nil {
		return err
	}

	n, err := uploadAssets(ctx, r2, *assetsDir, rel, uploadOptions{DryRun: *dryRun, Yes: *yes}, os.Stdout)
	if err != nil {
		return err
	}
	if n == 0 {
		step(os.Stdout, "Everything up to date.")
	} else {
		step(os.Stdout, "Uploaded %d file(s).", n)
	}
	return nil
}

// uploadAssets pushes every file named by the release, plus the manifest and
// its signature, to <name>/<version>/ in the store. Objects that already
// exist with the same size are skipped.
func uploadAssets(ctx context.Context, store objectStore, assetsDir string, rel *Release, opt uploadOptions, out io.Writer) (int, error) {
	prefix := path.Join(rel.Name, rel.Version) + "/"

	step(out, "Listing remote objects under %s", prefix)
	remote, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list remote files: %w", err)
	}
	remoteSizes := make(map[string]int64, len(remote))
	for _, obj := range remote {
		remoteSizes[obj.Key] = obj.Size
	}

	names := make([]string, 0, len(rel.Files)+2)
	for _, f := range rel.Files {
		names = append(names, f.Name)
	}
	names = append(names, releaseManifest)
	if _, err := os.Stat(filepath.Join(assetsDir, releaseSignature)); err == nil {
		names = append(names, releaseSignature)
	}

	var uploaded int
	var total int64
	for _, name := range names {
		local := filepath.Join(assetsDir, name)
		info, err := os.Stat(local)
		if err != nil {
			return uploaded, fmt.Errorf("missing asset %s: %w", name, err)
		}
		key := prefix + name
		if size, ok := remoteSizes[key]; ok && size == info.Size() {
			debugf("Skipping %s, already uploaded\n", key)
			continue
		}
		if opt.DryRun {
			fmt.Fprintf(out, "would upload %s (%s)\n", key, humanReadableSize(info.Size()))
			continue
		}
		if !opt.Yes {
			fmt.Fprint(out, colArrow.Sprint("-> "))
			if !askForConfirmation(colWarn, "Upload %s (%s)? ", key, humanReadableSize(info.Size())) {
				continue
			}
		}
		step(out, "Uploading to R2: %s", key)
		if err := store.UploadLocalFile(ctx, key, local); err != nil {
			return uploaded, fmt.Errorf("failed to upload %s: %w", name, err)
		}
		uploaded++
		total += info.Size()
	}
	if uploaded > 0 {
		fmt.Fprint(out, colArrow.Sprint("-> "))
		fmt.Fprintln(out, colNote.Sprintf("%s transferred", humanReadableSize(total)))
	}
	return uploaded, nil
}
