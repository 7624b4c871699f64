package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"thirdcoast.systems/vidfetch/cmd/web/handlers/api/download_api"
	"thirdcoast.systems/vidfetch/internal/downloads"
	"thirdcoast.systems/vidfetch/pkg/utils/format"
)

func newFetchCmd() *cobra.Command {
	var quality string

	cmd := &cobra.Command{
		Use:   "fetch [URL] [--quality QUALITY]",
		Short: "Download one video into the downloads directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			svc, _, err := newService(conf)
			if err != nil {
				return err
			}

			out := svc.Run(cmd.Context(), &downloads.DownloadRequest{
				URL:     args[0],
				Quality: downloads.Quality(quality),
			})
			if !out.OK() {
				return fmt.Errorf("fetch %s: %w", out.Kind, out.Err)
			}
			return writeJSON(cmd.OutOrStdout(), download_api.NewResponse(out.Download))
		},
	}

	cmd.Flags().StringVarP(&quality, "quality", "q", string(downloads.QualityBest), "best, 1080, 720, 480 or 360")
	return cmd
}

// probeResult is the metadata printed by the probe command.
type probeResult struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Uploader  string  `json:"uploader"`
	Duration  string  `json:"duration"`
	Extractor string  `json:"extractor"`
	Ext       string  `json:"ext"`
	URL       string  `json:"webpage_url"`
	Seconds   float64 `json:"duration_seconds"`
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe [URL]",
		Short: "Print metadata for a URL without downloading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			info, err := newClient(conf).GetInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			res := probeResult{
				ID:        info.ID,
				Title:     info.Title,
				Uploader:  "Unknown",
				Extractor: info.ExtractorKey,
				Ext:       info.Ext,
				URL:       info.WebpageURL,
			}
			if info.Uploader != nil && *info.Uploader != "" {
				res.Uploader = *info.Uploader
			}
			if info.Duration != nil {
				res.Seconds = *info.Duration
			}
			res.Duration = format.Duration(res.Seconds)
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the service and yt-dlp versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vidfetch %s\n", Version)

			client := newClient(conf)
			v, err := client.Version(cmd.Context())
			if err != nil {
				return errors.Join(fmt.Errorf("yt-dlp at %q", client.PathOrDefault()), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "yt-dlp %s\n", v)
			return nil
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-ytdlp",
		Short: "Update the yt-dlp executable in place (yt-dlp -U)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			if err := newClient(conf).Update(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "yt-dlp updated")
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
