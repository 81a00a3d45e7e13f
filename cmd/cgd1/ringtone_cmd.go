package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/cgd1/internal/audio"
	"github.com/muurk/cgd1/internal/device"
	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/ui"
)

var (
	uploadSlot     string
	uploadActivate bool
)

func init() {
	rootCmd.AddCommand(ringtoneCmd)
	ringtoneCmd.AddCommand(ringtoneUploadCmd, ringtoneListCmd)

	ringtoneUploadCmd.Flags().StringVar(&uploadSlot, "slot", "auto", "Target slot: auto, dead or beef")
	ringtoneUploadCmd.Flags().BoolVar(&uploadActivate, "activate", false, "Select the uploaded ringtone afterwards")
}

var ringtoneCmd = &cobra.Command{
	Use:   "ringtone",
	Short: "Upload or list ringtones",
}

var ringtoneUploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a custom ringtone",
	Long: `Upload a custom ringtone into one of the two custom slots.

FILE is a WAV file (mono, 8-bit, 8000 Hz) or raw unsigned 8-bit PCM
(.raw, .pcm, .u8). With --slot auto the slot that is not currently
selected is used, so the active ringtone is never overwritten.

Convert other audio with, for example:

  ffmpeg -i in.mp3 -ac 1 -ar 8000 -acodec pcm_u8 out.wav`,
	Example: `  cgd1 ringtone upload wake.wav
  cgd1 ringtone upload wake.wav --slot beef --activate`,
	Args: cobra.ExactArgs(1),
	RunE: runRingtoneUpload,
}

func runRingtoneUpload(cmd *cobra.Command, args []string) error {
	tone, err := audio.Load(args[0])
	if err != nil {
		return err
	}

	var target *protocol.Signature
	if !strings.EqualFold(uploadSlot, "auto") {
		sig, err := protocol.ParseSlotSignature(uploadSlot)
		if err != nil {
			return err
		}
		target = &sig
	}

	return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
		label := fmt.Sprintf("Uploading %s", filepath.Base(tone.Path))
		detail := fmt.Sprintf("(%d bytes, %s)", len(tone.PCM), tone.Duration().Round(100*time.Millisecond))

		var sig protocol.Signature
		err := ui.RunWithProgress(ctx, label, detail, func(ctx context.Context, report ui.ProgressReporter) error {
			if target != nil {
				sig = *target
				return d.UploadRingtone(ctx, tone.PCM, sig, device.ProgressFunc(report))
			}
			var err error
			sig, err = d.UploadRingtoneAuto(ctx, tone.PCM, device.ProgressFunc(report))
			return err
		})
		if err != nil {
			return err
		}

		if uploadActivate {
			if err := d.SetRingtone(ctx, sig); err != nil {
				return err
			}
		}

		ui.NewPrinter(nil).PrintSuccess("Ringtone uploaded",
			ui.Field{Key: "Slot", Value: protocol.SignatureName(sig)},
			ui.Field{Key: "Active", Value: ui.OnOff(uploadActivate)},
		)
		return nil
	})
}

var ringtoneListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ringtones and show the active one",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
			cfg, err := d.GetConfiguration(ctx)
			if err != nil {
				return err
			}
			active := cfg.Ringtone()
			p := ui.NewPrinter(nil)
			p.Println(ui.RenderRingtones(&active, p.Width()))
			return nil
		})
	},
}
