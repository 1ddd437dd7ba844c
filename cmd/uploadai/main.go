// Command uploadai extracts the audio of a local video, uploads it for
// transcription and streams an AI completion built from a prompt template.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"upload-ai-service/internal/client"
	"upload-ai-service/internal/media"
	"upload-ai-service/internal/models"
	"upload-ai-service/internal/observability/logging"
)

func main() {
	server := flag.String("server", "http://localhost:3333", "upload-ai server URL")
	video := flag.String("video", "", "Path to the video (or audio) file")
	hint := flag.String("hint", "", "Comma-separated keywords mentioned in the video")
	format := flag.String("format", "mp3", "Extracted audio format: mp3, flac or wav")
	promptID := flag.String("prompt-id", "", "Prompt template id from -list-prompts")
	promptText := flag.String("prompt", "", "Prompt text containing {transcription}; overrides -prompt-id")
	temperature := flag.Float64("temperature", models.DefaultTemperature, "Sampling temperature in [0, 1]")
	listPrompts := flag.Bool("list-prompts", false, "List prompt templates and exit")
	ffmpegBin := flag.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	useWS := flag.Bool("ws", false, "Stream the completion over WebSocket")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Format = "console"
	logCfg.Level = zerolog.WarnLevel.String()
	if *verbose {
		logCfg.Level = zerolog.DebugLevel.String()
	}
	logging.InitWithWriter(logCfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.New(*server)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid server URL")
	}

	if *listPrompts {
		prompts, err := c.ListPrompts(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list prompts")
		}
		for _, p := range prompts {
			fmt.Printf("%-24s %s\n", p.ID, p.Title)
		}
		return
	}

	if *video == "" {
		fmt.Fprintln(os.Stderr, "-video is required")
		flag.Usage()
		os.Exit(2)
	}
	audioFormat, err := media.ParseFormat(*format)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -format")
	}

	// Resolve the prompt before doing any work so a typo fails fast.
	text := *promptText
	if text == "" && *promptID != "" {
		p, err := c.GetPrompt(ctx, *promptID)
		if err != nil {
			log.Fatal().Err(err).Str("promptId", *promptID).Msg("Failed to resolve prompt")
		}
		text = p.Template
	}

	wf := client.NewWorkflow(c, media.NewFFmpeg(*ffmpegBin), client.WorkflowConfig{
		Format:    audioFormat,
		WebSocket: *useWS,
		OnStatus: func(s client.Status) {
			fmt.Fprintf(os.Stderr, "status: %s\n", s)
		},
		OnProgress: func(p int) {
			fmt.Fprintf(os.Stderr, "\rconverting: %3d%%", p)
			if p == 100 {
				fmt.Fprintln(os.Stderr)
			}
		},
	})

	videoID, transcript, err := wf.Prepare(ctx, *video, *hint)
	if err != nil {
		if errors.Is(err, models.ErrMediaEngineUnavailable) {
			log.Fatal().Err(err).Msg("ffmpeg is required; install it or pass -ffmpeg")
		}
		log.Fatal().Err(err).Msg("Failed to prepare video")
	}
	fmt.Fprintf(os.Stderr, "video: %s\n", videoID)

	if text == "" {
		fmt.Println(transcript)
		return
	}

	if err := wf.Complete(ctx, text, *temperature, os.Stdout); err != nil {
		fmt.Println()
		log.Fatal().Err(err).Msg("Completion failed")
	}
	fmt.Println()
}
