package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

var (
	resolveField string
	searchIndex  int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <ref>",
	Short: "Resolve title, duration and thumbnail of a video",
	Args:  cobra.ExactArgs(1),
	RunE: withServices(func(cmd *cobra.Command, args []string, s *services) error {
		ref := domain.ParseRef(args[0])
		out := cmd.OutOrStdout()

		switch resolveField {
		case "":
			meta, err := s.resolver.Resolve(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return printResult(out, meta, func(w io.Writer) { printMetadata(w, meta) })
		case "title":
			v, err := s.resolver.Title(cmd.Context(), ref)
			return printField(out, v, err)
		case "duration":
			v, err := s.resolver.Duration(cmd.Context(), ref)
			return printField(out, v, err)
		case "thumbnail":
			v, err := s.resolver.Thumbnail(cmd.Context(), ref)
			return printField(out, v, err)
		default:
			return fmt.Errorf("unknown field %q (want title, duration or thumbnail)", resolveField)
		}
	}),
}

var trackCmd = &cobra.Command{
	Use:   "track <ref>",
	Short: "Resolve a video into a playback track record",
	Args:  cobra.ExactArgs(1),
	RunE: withServices(func(cmd *cobra.Command, args []string, s *services) error {
		track, err := s.resolver.Track(cmd.Context(), domain.ParseRef(args[0]))
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), track, func(w io.Writer) {
			fmt.Fprintf(w, "%s [%s]\n%s\n", track.Title, track.DurationDisplay, track.Link)
		})
	}),
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Pick one of the top search results for a query",
	Args:  cobra.ExactArgs(1),
	RunE: withServices(func(cmd *cobra.Command, args []string, s *services) error {
		meta, err := s.resolver.Slider(cmd.Context(), args[0], searchIndex)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), meta, func(w io.Writer) { printMetadata(w, meta) })
	}),
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveField, "field", "f", "", "print a single field: title, duration or thumbnail")
	searchCmd.Flags().IntVarP(&searchIndex, "index", "i", 0, "result index (0-9)")

	rootCmd.AddCommand(resolveCmd, trackCmd, searchCmd)
}

func printMetadata(w io.Writer, meta *domain.Metadata) {
	fmt.Fprintf(w, "ID:        %s\n", meta.ID.ID)
	fmt.Fprintf(w, "Title:     %s\n", meta.Title)
	fmt.Fprintf(w, "Duration:  %s (%ds)\n", meta.DurationDisplay, meta.DurationSeconds)
	fmt.Fprintf(w, "Thumbnail: %s\n", meta.ThumbnailURL)
}

func printField(w io.Writer, v string, err error) error {
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, v)
	return err
}
