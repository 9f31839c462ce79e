// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/sourcenetwork/gossipmesh/config"
	"github.com/sourcenetwork/gossipmesh/errors"
	"github.com/sourcenetwork/gossipmesh/logging"
)

const cameraTopic = "CameraData"

func MakeDemoCameraPubCommand(cfg *config.Config) *cobra.Command {
	var (
		framesDir string
		peer      string
		rate      time.Duration
	)
	var cmd = &cobra.Command{
		Use:   "camera-pub",
		Short: "Publish JPEG frames from a directory",
		Long: `Start a node and publish the JPEG frames found in the given directory
on the camera topic, looping over them at the given rate. Frames are
base64-encoded so the payload cannot contain the frame sentinel.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := listFrames(framesDir)
			if err != nil {
				return err
			}

			n, err := startDemoNode(cmd.Context(), cfg, peer)
			if err != nil {
				return err
			}
			defer func() {
				if err := n.Close(); err != nil {
					log.ErrorE(cmd.Context(), "Failed to close node", err)
				}
			}()

			log.FeedbackInfo(
				cmd.Context(),
				"Camera publishing",
				logging.NewKV("PeerID", n.PeerID()),
				logging.NewKV("Frames", len(frames)),
			)

			signalCh := make(chan os.Signal, 1)
			signal.Notify(signalCh, os.Interrupt)
			ticker := time.NewTicker(rate)
			defer ticker.Stop()

			for i := 0; ; i++ {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-signalCh:
					return nil
				case <-ticker.C:
					data, err := os.ReadFile(frames[i%len(frames)])
					if err != nil {
						log.ErrorE(cmd.Context(), "Failed to read frame", err)
						continue
					}
					n.Publish(cameraTopic, base64.StdEncoding.EncodeToString(data))
				}
			}
		},
	}

	cmd.Flags().StringVar(&framesDir, "frames", ".", "Directory containing .jpg frames")
	cmd.Flags().StringVar(&peer, "peer", "", "Bootstrap peer to add to the view")
	cmd.Flags().DurationVar(&rate, "rate", 100*time.Millisecond, "Delay between frames")
	return cmd
}

func MakeDemoCameraSubCommand(cfg *config.Config) *cobra.Command {
	var (
		outDir string
		peer   string
	)
	var cmd = &cobra.Command{
		Use:   "camera-sub",
		Short: "Receive camera frames and write them to a directory",
		Long: `Start a node, subscribe to the camera topic, and write every received
frame into the given directory as a numbered .jpg file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return errors.Wrap("failed to create output directory", err)
			}

			n, err := startDemoNode(cmd.Context(), cfg, peer)
			if err != nil {
				return err
			}
			defer func() {
				if err := n.Close(); err != nil {
					log.ErrorE(cmd.Context(), "Failed to close node", err)
				}
			}()

			var frameCount atomic.Int64
			n.Subscribe(cameraTopic, func(topic string, content string) {
				data, err := base64.StdEncoding.DecodeString(content)
				if err != nil {
					log.ErrorE(cmd.Context(), "Failed to decode frame", err)
					return
				}
				seq := frameCount.Add(1)
				path := filepath.Join(outDir, fmt.Sprintf("frame-%06d.jpg", seq))
				if err := os.WriteFile(path, data, 0644); err != nil {
					log.ErrorE(cmd.Context(), "Failed to write frame", err)
				}
			})

			log.FeedbackInfo(
				cmd.Context(),
				"Camera subscriber listening",
				logging.NewKV("PeerID", n.PeerID()),
				logging.NewKV("OutDir", outDir),
			)

			signalCh := make(chan os.Signal, 1)
			signal.Notify(signalCh, os.Interrupt)
			select {
			case <-cmd.Context().Done():
			case <-signalCh:
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "frames", "Directory to write received frames into")
	cmd.Flags().StringVar(&peer, "peer", "", "Bootstrap peer to add to the view")
	return cmd
}

func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap("failed to read frames directory", err)
	}
	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".jpg") ||
			strings.EqualFold(filepath.Ext(entry.Name()), ".jpeg") {
			frames = append(frames, filepath.Join(dir, entry.Name()))
		}
	}
	if len(frames) == 0 {
		return nil, errors.New("no .jpg frames found", errors.NewKV("Dir", dir))
	}
	sort.Strings(frames)
	return frames, nil
}
