package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

var (
	acquireMode   string
	playlistLimit int
)

// ErrRejected is returned by acquire when the size policy refuses a video.
var ErrRejected = errors.New("video rejected: size unknown or above limit")

var streamCmd = &cobra.Command{
	Use:   "stream <ref>",
	Short: "Print a direct stream URL",
	Args:  cobra.ExactArgs(1),
	RunE: withServices(func(cmd *cobra.Command, args []string, s *services) error {
		ref := domain.ParseRef(args[0])
		u, err := s.acquirer.StreamURL(cmd.Context(), ref)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), &domain.StreamResponse{ID: ref.ID, URL: u}, func(w io.Writer) {
			fmt.Fprintln(w, u)
		})
	}),
}

var acquireCmd = &cobra.Command{
	Use:   "acquire <ref>",
	Short: "Download a video or audio track, or resolve a stream URL",
	Args:  cobra.ExactArgs(1),
	RunE: withServices(func(cmd *cobra.Command, args []string, s *services) error {
		mode, err := domain.ParseMode(acquireMode)
		if err != nil {
			return err
		}

		res, err := s.acquirer.Acquire(cmd.Context(), domain.DownloadRequest{Ref: domain.ParseRef(args[0]), Mode: mode})
		if err != nil {
			return err
		}
		if res == nil {
			return ErrRejected
		}
		return printResult(cmd.OutOrStdout(), res, func(w io.Writer) {
			fmt.Fprintln(w, res.PathOrURL)
		})
	}),
}

var formatsCmd = &cobra.Command{
	Use:   "formats <ref>",
	Short: "List the available non-DASH formats",
	Args:  cobra.ExactArgs(1),
	RunE: withServices(func(cmd *cobra.Command, args []string, s *services) error {
		ref := domain.ParseRef(args[0])
		formats, err := s.catalog.Formats(cmd.Context(), ref)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), &domain.FormatsResponse{Ref: ref.URL(), Formats: formats}, func(w io.Writer) {
			printFormats(w, formats)
		})
	}),
}

var playlistCmd = &cobra.Command{
	Use:   "playlist <ref>",
	Short: "List the video ids of a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: withServices(func(cmd *cobra.Command, args []string, s *services) error {
		ids, err := s.catalog.Playlist(cmd.Context(), args[0], playlistLimit)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), &domain.PlaylistResponse{IDs: ids}, func(w io.Writer) {
			fmt.Fprintln(w, strings.Join(ids, "\n"))
		})
	}),
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show download directory usage",
	Args:  cobra.NoArgs,
	RunE: withServices(func(cmd *cobra.Command, args []string, s *services) error {
		count, size := s.artifacts.Stats()
		stats := map[string]any{"dir": s.artifacts.Dir(), "artifacts": count, "bytes": size}
		return printResult(cmd.OutOrStdout(), stats, func(w io.Writer) {
			fmt.Fprintf(w, "%s: %d artifacts, %s\n", s.artifacts.Dir(), count, humanize.IBytes(uint64(size)))
		})
	}),
}

func init() {
	acquireCmd.Flags().StringVarP(&acquireMode, "mode", "m", string(domain.ModeAudio), "audio, video, song_audio or song_video")
	playlistCmd.Flags().IntVarP(&playlistLimit, "limit", "n", 10, "maximum number of ids")

	rootCmd.AddCommand(streamCmd, acquireCmd, formatsCmd, playlistCmd, cacheCmd)
}

func printFormats(w io.Writer, formats []domain.FormatDescriptor) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEXT\tNOTE\tSIZE")
	for _, f := range formats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.FormatID, f.Extension, f.Note, humanize.IBytes(uint64(f.Filesize)))
	}
	tw.Flush()
}
