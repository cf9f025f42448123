package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgemoorlf/smootie/internal/log"
	"github.com/edgemoorlf/smootie/internal/video"
)

var videoFlags struct {
	catalogPath string
	outputDir   string
	set         string
	timestamps  string
	source      string
	limit       int
}

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Find, download, and split action video clips",
	Long: `Assemble cohesive action clip sets for the avatar front-end.

For smooth transitions between actions, all clips in a set must show the
same person, background, lighting, and camera angle. Individual action
searches rarely yield cohesive sets; the recommended flow is to search
for a multi-action source reel, download it once, and split it:

  smootie video search-source
  smootie video download-source --set myset <URL>
  smootie video split --source videos/myset/source.mp4 \
      --timestamps "0:00-0:05=standing,0:06-0:12=walking"`,
}

var videoActionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the available action categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := newVideoTool()
		if err != nil {
			return err
		}
		catalog := tool.Catalog()
		for _, name := range catalog.Names() {
			cat := catalog[name]
			fmt.Printf("%-15s %-12s %s\n", name, cat.Type, cat.Description)
		}
		return nil
	},
}

var videoCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that yt-dlp and ffmpeg are installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := newVideoTool()
		if err != nil {
			return err
		}
		if err := tool.CheckDeps(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("yt-dlp and ffmpeg are installed")
		return nil
	},
}

var videoSearchCmd = &cobra.Command{
	Use:   "search <action>",
	Short: "Search for short loopable clips of one action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := newVideoTool()
		if err != nil {
			return err
		}
		if err := tool.CheckDeps(cmd.Context()); err != nil {
			return err
		}
		results, err := tool.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printResults(results, videoFlags.limit)
		return nil
	},
}

var videoSearchSourceCmd = &cobra.Command{
	Use:   "search-source",
	Short: "Search for multi-action source reels (recommended)",
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := newVideoTool()
		if err != nil {
			return err
		}
		if err := tool.CheckDeps(cmd.Context()); err != nil {
			return err
		}
		results, err := tool.SearchSources(cmd.Context())
		if err != nil {
			return err
		}
		printResults(results, videoFlags.limit)
		if len(results) > 0 {
			fmt.Println("\nNext: download one with")
			fmt.Println("  smootie video download-source --set <name> <URL>")
		}
		return nil
	},
}

var videoDownloadCmd = &cobra.Command{
	Use:   "download <action> <url>",
	Short: "Download one clip for a catalog action",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := newVideoTool()
		if err != nil {
			return err
		}
		if err := tool.CheckDeps(cmd.Context()); err != nil {
			return err
		}
		path, err := tool.Download(cmd.Context(), args[1], args[0], videoFlags.set)
		if err != nil {
			return err
		}
		fmt.Printf("Downloaded %s\n", path)
		return nil
	},
}

var videoDownloadSourceCmd = &cobra.Command{
	Use:   "download-source <url>",
	Short: "Download a multi-action source reel into a set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := newVideoTool()
		if err != nil {
			return err
		}
		if err := tool.CheckDeps(cmd.Context()); err != nil {
			return err
		}
		path, dur, err := tool.DownloadSource(cmd.Context(), args[0], videoFlags.set)
		if err != nil {
			return err
		}
		fmt.Printf("Downloaded %s", path)
		if dur > 0 {
			fmt.Printf(" (%ds)", dur)
		}
		fmt.Println()
		fmt.Println("\nNext: note per-action timestamps, then split with")
		fmt.Printf("  smootie video split --source %s --timestamps \"0:00-0:05=standing,0:06-0:12=walking\"\n", path)
		return nil
	},
}

var videoSplitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a source reel into per-action clips",
	RunE: func(cmd *cobra.Command, args []string) error {
		if videoFlags.source == "" {
			return fmt.Errorf("--source is required")
		}
		if videoFlags.timestamps == "" {
			return fmt.Errorf("--timestamps is required (format: \"0:00-0:05=standing,0:06-0:12=walking\")")
		}

		segments, dropped, err := video.ParseSegments(videoFlags.timestamps)
		for _, d := range dropped {
			fmt.Printf("skipping malformed segment %q\n", d)
		}
		if err != nil {
			return err
		}

		tool, err := newVideoTool()
		if err != nil {
			return err
		}
		if err := tool.CheckDeps(cmd.Context()); err != nil {
			return err
		}

		report, err := tool.Split(cmd.Context(), videoFlags.source, "", segments)
		if err != nil {
			return err
		}
		fmt.Printf("Extracted %d/%d clips", len(report.Extracted), len(segments))
		if len(report.Failed) > 0 {
			fmt.Printf(" (failed: %s)", strings.Join(report.Failed, ", "))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	videoCmd.PersistentFlags().StringVar(&videoFlags.catalogPath, "catalog", "", "YAML file overlaying the builtin action catalog")
	videoCmd.PersistentFlags().StringVar(&videoFlags.outputDir, "output-dir", "videos", "root directory for video sets")
	videoCmd.PersistentFlags().StringVar(&videoFlags.set, "set", "default", "video set name (subdirectory under the output dir)")
	videoCmd.PersistentFlags().IntVar(&videoFlags.limit, "limit", 15, "maximum search results to display")
	videoSplitCmd.Flags().StringVar(&videoFlags.source, "source", "", "path to the source video")
	videoSplitCmd.Flags().StringVar(&videoFlags.timestamps, "timestamps", "", "segment list: \"start-end=action,...\"")

	videoCmd.AddCommand(videoActionsCmd, videoCheckCmd, videoSearchCmd,
		videoSearchSourceCmd, videoDownloadCmd, videoDownloadSourceCmd, videoSplitCmd)
	rootCmd.AddCommand(videoCmd)
}

func newVideoTool() (*video.Tool, error) {
	catalog, err := video.LoadCatalog(videoFlags.catalogPath)
	if err != nil {
		return nil, err
	}
	return video.New(video.Config{
		Runner:    video.NewRunner(),
		Logger:    log.New(log.Config{Level: "warn"}),
		Catalog:   catalog,
		OutputDir: videoFlags.outputDir,
	})
}

func printResults(results []video.Result, limit int) {
	if len(results) == 0 {
		fmt.Println("No suitable videos found. Try search-source, or browse stock sites (Pexels, Mixkit, Mixamo).")
		return
	}
	fmt.Printf("Found %d videos\n\n", len(results))
	for i, r := range results {
		if i >= limit {
			break
		}
		fmt.Printf("%d. %s\n", i+1, r.Title)
		fmt.Printf("   Duration: %ds | Views: %d | Uploader: %s\n", r.Duration, r.ViewCount, r.Uploader)
		fmt.Printf("   %s\n", r.URL)
		if r.Description != "" {
			fmt.Printf("   %s\n", r.Description)
		}
		fmt.Println()
	}
}
