package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-registry/internal/matching"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var importCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Register every photo in a directory",
	Long: `Register one identity per image file in a directory. The display name is
taken from the file name with underscores and dashes turned into spaces, so
"Jan_Novak.jpg" is registered as "Jan Novak".

Files that fail (no face, unreadable image) are reported and skipped.

Examples:
  face-registry import ./staff
  face-registry import ./staff --skip-existing --concurrency 8 --rate 5`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Int("concurrency", 4, "Number of images processed in parallel")
	importCmd.Flags().Bool("skip-existing", false, "Skip files whose name is already registered")
	importCmd.Flags().Float64("rate", 0, "Maximum detector requests per second (0 = unlimited)")
	importCmd.Flags().Bool("json", false, "Output as JSON")
}

var importExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// ImportResult represents the result of an import run
type ImportResult struct {
	Success    bool          `json:"success"`
	Total      int           `json:"total"`
	Registered int           `json:"registered"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Failures   []ImportError `json:"failures,omitempty"`
	DurationMs int64         `json:"duration_ms"`
}

// ImportError describes one file that could not be registered
type ImportError struct {
	File    string             `json:"file"`
	Kind    matching.ErrorKind `json:"error_kind,omitempty"`
	Message string             `json:"message"`
}

// nameFromFile derives a display name from an image file name.
func nameFromFile(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// listImages returns the image files directly inside dir, sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !importExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	skipExisting := mustGetBool(cmd, "skip-existing")
	jsonOutput := mustGetBool(cmd, "json")
	if concurrency < 1 {
		concurrency = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if perSecond := mustGetFloat64(cmd, "rate"); perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}

	files, err := listImages(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	startTime := time.Now()
	result := ImportResult{Total: len(files)}
	if len(files) == 0 {
		result.Success = true
		if jsonOutput {
			return outputJSON(result)
		}
		fmt.Println("No images found.")
		return nil
	}

	if !jsonOutput {
		fmt.Printf("Importing %d images with concurrency %d\n", len(files), concurrency)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Registering faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetVisibility(!jsonOutput),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, file := range files {
		g.Go(func() error {
			defer bar.Add(1)

			name := nameFromFile(file)
			if skipExisting && a.service.FindByName(gctx, name).Success {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}

			image, err := os.ReadFile(file)
			if err != nil {
				mu.Lock()
				result.Failed++
				result.Failures = append(result.Failures, ImportError{File: file, Message: err.Error()})
				mu.Unlock()
				return nil
			}

			// Only cancellation stops the run; per-file failures are collected.
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			res := a.service.Register(gctx, matching.RegisterRequest{Image: image, DisplayName: name})

			mu.Lock()
			defer mu.Unlock()
			if res.Success {
				result.Registered++
				return nil
			}
			result.Failed++
			result.Failures = append(result.Failures, ImportError{File: file, Kind: res.Kind, Message: res.Message})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}
	bar.Finish()

	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].File < result.Failures[j].File })
	result.Success = result.Failed == 0
	result.DurationMs = time.Since(startTime).Milliseconds()

	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("\n\nRegistered: %d, skipped: %d, failed: %d (%s)\n",
		result.Registered, result.Skipped, result.Failed, time.Since(startTime).Round(time.Millisecond))
	for _, f := range result.Failures {
		fmt.Printf("  %s: %s\n", f.File, f.Message)
	}
	return nil
}
