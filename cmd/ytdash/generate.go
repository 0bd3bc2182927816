package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ytdash/internal/dash"
	"ytdash/internal/logger"
)

type generateOptions struct {
	requestFile string
	segments    bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize one manifest from a JSON request",
		Long: `Reads a JSON manifest request from --request (or stdin) and prints the DASH manifest.

Example request:
  {"deliveryType": "otf", "url": "https://...googlevideo.com/videoplayback?...", "itag": {"itag": 137}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.requestFile, "request", "r", "", "Path to the JSON request (stdin when empty or -)")
	cmd.Flags().BoolVar(&opts.segments, "segments", false, "Print the expanded segment list instead of the manifest")
	return cmd
}

func readRequest(r io.Reader) (dash.Request, error) {
	var req dash.Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return dash.Request{}, fmt.Errorf("invalid request: %w", err)
	}
	req.Itag = req.Itag.WithDefaults()
	return req, nil
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	// stdout carries the manifest, so logs go to stderr.
	log := logger.New(cmd.ErrOrStderr(), cfg.LogLevel)

	in := cmd.InOrStdin()
	if opts.requestFile != "" && opts.requestFile != "-" {
		f, err := os.Open(opts.requestFile)
		if err != nil {
			return fmt.Errorf("failed to open request file: %w", err)
		}
		defer f.Close()
		in = f
	}
	req, err := readRequest(in)
	if err != nil {
		return err
	}

	comps, err := buildComponents(cmd.Context(), cfg, log, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer comps.Close()

	manifest, err := comps.creator.Create(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !opts.segments {
		_, err = fmt.Fprintln(out, manifest)
		return err
	}

	segments, err := dash.SegmentsOf(manifest)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(segments)
}
