package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"video-library/client"
	"video-library/config"
	"video-library/constant"
	"video-library/dto"
	"video-library/library"
)

type videoOptions struct {
	server string
	token  string
	yes    bool
}

func (o *videoOptions) client() (*client.Client, error) {
	if o.token == "" {
		return nil, errors.New("a token is required (--token or client.token)")
	}
	return client.New(o.server, o.token), nil
}

func videos(config *config.Config) *cobra.Command {
	opts := &videoOptions{}
	cmd := &cobra.Command{
		Use:   "videos",
		Short: "manage videos through a running server",
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", config.Client.BaseURL, "server base URL")
	cmd.PersistentFlags().StringVar(&opts.token, "token", config.Client.Token, "bearer token")

	cmd.AddCommand(videosList(opts))
	cmd.AddCommand(videosUpload(opts))
	cmd.AddCommand(videosSubtitles(opts))
	cmd.AddCommand(videosDelete(opts))
	cmd.AddCommand(videosDownload(opts))
	return cmd
}

func videosList(opts *videoOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list your videos, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			list, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderVideos(list))
			return nil
		},
	}
}

func renderVideos(list []dto.VideoResponse) string {
	rows := make([][]string, 0, len(list))
	for _, v := range list {
		subtitles := "no"
		if v.HasSubtitles {
			subtitles = "yes"
		}
		rows = append(rows, []string{
			v.ID.String(),
			v.Title,
			library.FormatDuration(v.DurationSeconds),
			library.FormatSize(v.OriginalSizeBytes),
			library.FormatSize(v.CompressedSizeBytes),
			fmt.Sprintf("%d%%", v.CompressionPercent),
			subtitles,
			humanize.Time(v.CreatedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Duration", "Original", "Compressed", "Saved", "Subtitles", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func videosUpload(opts *videoOptions) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "upload a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			info, err := file.Stat()
			if err != nil {
				return err
			}
			if info.Size() > constant.MaxUploadBytes {
				return fmt.Errorf("%s is %s; the limit is %s", args[0],
					library.FormatSize(info.Size()), library.FormatSize(constant.MaxUploadBytes))
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			if title == "" {
				title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			video, err := c.Upload(cmd.Context(), filepath.Base(args[0]), file, title, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %q (%s, %d%% saved)\n", video.Title, video.ID, video.CompressionPercent)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "video title (defaults to the file name)")
	cmd.Flags().StringVar(&description, "description", "", "optional description")
	return cmd
}

func videosSubtitles(opts *videoOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "subtitles <id>",
		Short: "generate subtitles for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLibraryAction(cmd, opts, args[0], constant.OperationGenerateSubtitles, output)
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the generated .vtt file to this path")
	return cmd
}

func videosDelete(opts *videoOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "delete a video and its media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLibraryAction(cmd, opts, args[0], constant.OperationDelete, "")
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func videosDownload(opts *videoOptions) *cobra.Command {
	var subtitles bool
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "print a time-limited download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid video id: %w", err)
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			resolve := c.DownloadURL
			if subtitles {
				resolve = c.SubtitleURL
			}
			url, err := resolve(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	cmd.Flags().BoolVar(&subtitles, "subtitles", false, "print the subtitle file URL instead of the media URL")
	return cmd
}

// runLibraryAction drives one confirmed lifecycle action through the library view-model.
func runLibraryAction(cmd *cobra.Command, opts *videoOptions, rawID string, op constant.Operation, output string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid video id: %w", err)
	}
	c, err := opts.client()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var transcript string
	lib := library.New(c, library.NotifierFunc(func(n library.Notification) {
		if n.Action == library.ActionLoad && n.Err == nil {
			return
		}
		transcript = n.Transcript
		if n.Err != nil {
			fmt.Fprintf(out, "%s failed: %v\n", n.Action, n.Err)
			return
		}
		fmt.Fprintf(out, "%s finished for %s\n", n.Action, n.VideoID)
	}))
	if err := lib.Load(cmd.Context()); err != nil {
		return err
	}

	switch op {
	case constant.OperationDelete:
		err = lib.RequestDelete(id)
	default:
		err = lib.RequestSubtitles(id)
	}
	if err != nil {
		return err
	}

	entry, _ := lib.Snapshot().Find(id)
	confirmed, err := confirm(cmd.InOrStdin(), out, opts.yes, fmt.Sprintf("%s %q?", promptVerb(op), entry.Video.Title))
	if err != nil || !confirmed {
		_, _ = lib.Decline()
		if err == nil {
			fmt.Fprintln(out, "Cancelled.")
		}
		return err
	}

	if err := lib.Confirm(cmd.Context()); err != nil {
		return err
	}
	if op != constant.OperationGenerateSubtitles {
		return nil
	}
	if updated, ok := lib.Snapshot().Find(id); ok && updated.Video.SubtitleRef != nil {
		fmt.Fprintf(out, "Subtitles: %s\n", *updated.Video.SubtitleRef)
	}
	if output != "" {
		if err := os.WriteFile(output, []byte(transcript), 0o644); err != nil {
			return fmt.Errorf("write subtitles: %w", err)
		}
		fmt.Fprintf(out, "Wrote %s (%s)\n", output, humanize.IBytes(uint64(len(transcript))))
	}
	return nil
}

func promptVerb(op constant.Operation) string {
	if op == constant.OperationDelete {
		return "Delete"
	}
	return "Generate subtitles for"
}

func confirm(in io.Reader, out io.Writer, yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	if !isTerminal(in) {
		return false, errors.New("confirmation required; pass --yes when not running interactively")
	}
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func isTerminal(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
