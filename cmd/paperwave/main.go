// Paperwave converts documents into narrated multi-speaker podcasts: extract
// text, write a dialogue script with an LLM, then render the script with one
// synthesized voice per speaker.
//
// Usage:
//
//	paperwave -script script.json -o episode.mp3
//	paperwave -input paper.pdf -doc-type research_article -o episode.mp3
//	paperwave -serve
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/paperwave/paperwave/internal/audio"
	"github.com/paperwave/paperwave/internal/config"
	"github.com/paperwave/paperwave/internal/engine"
	piperengine "github.com/paperwave/paperwave/internal/engine/piper"
	xttsengine "github.com/paperwave/paperwave/internal/engine/xtts"
	"github.com/paperwave/paperwave/internal/extract"
	"github.com/paperwave/paperwave/internal/health"
	"github.com/paperwave/paperwave/internal/lang"
	"github.com/paperwave/paperwave/internal/podcast"
	"github.com/paperwave/paperwave/internal/script"
	"github.com/paperwave/paperwave/internal/scriptgen"
	"github.com/paperwave/paperwave/internal/server"
	"github.com/paperwave/paperwave/internal/synth"
	"github.com/paperwave/paperwave/internal/voice"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/paperwave.yaml)")
	scriptFile := flag.String("script", "", "path to a script JSON file to render directly")
	inputFile := flag.String("input", "", "path to a document (PDF or image) to convert")
	docType := flag.String("doc-type", "research_article", "document type: research_article, review_article, case_study")
	numSpeakers := flag.Int("speakers", 2, "number of podcast speakers (2-4)")
	outputFile := flag.String("o", "podcast.mp3", "output MP3 path")
	serve := flag.Bool("serve", false, "run the HTTP API instead of a one-shot conversion")
	flag.Parse()

	if *showVersion {
		fmt.Printf("paperwave %s\n", version)
		os.Exit(0)
	}

	// Secrets live in .env during development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	config.SetupLogging(cfg.Logging)
	slog.Info("paperwave starting", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the TTS engine. Failure here is fatal: an engine that
	// cannot enumerate voices must never reach the assembler.
	var eng engine.Engine
	switch cfg.Engine.Backend {
	case "xtts":
		eng, err = xttsengine.New(ctx, cfg.Engine)
	case "piper":
		eng, err = piperengine.New(cfg.Engine)
	default:
		slog.Error("unknown engine backend", "backend", cfg.Engine.Backend)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("failed to initialize tts engine", "backend", cfg.Engine.Backend, "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	registry, err := voice.NewRegistry(eng.Voices())
	if err != nil {
		slog.Error("failed to build voice registry", "error", err)
		os.Exit(1)
	}
	slog.Info("voice registry built", "roles", registry.Roles(), "voices", len(eng.Voices()))

	detector := lang.NewDetector()
	synthesizer := synth.New(eng, registry, detector)
	exporter := audio.NewFFmpegExporter(cfg.Audio.FFmpegPath, cfg.Audio.Bitrate)
	assembler := podcast.New(synthesizer, registry, detector, exporter, cfg.Audio)

	generator := newGenerator(cfg.ScriptGen)
	if generator != nil {
		defer generator.Close()
	}

	if *serve {
		runServe(ctx, cfg, assembler, generator)
		return
	}

	sc, err := loadScript(ctx, cfg, generator, *scriptFile, *inputFile, *docType, *numSpeakers)
	if err != nil {
		slog.Error("failed to prepare script", "error", err)
		os.Exit(1)
	}

	path, err := assembler.GeneratePodcast(ctx, sc, *outputFile)
	if err != nil {
		slog.Error("podcast generation failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(path)
}

// newGenerator builds the configured script-generation backend, or nil when
// none is usable (script-file input still works without one).
func newGenerator(cfg config.ScriptGenConfig) scriptgen.Generator {
	switch cfg.Backend {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			slog.Warn("scriptgen backend is openai but no api key is set; document conversion disabled")
			return nil
		}
		slog.Info("using openai script generator", "model", cfg.OpenAI.Model)
		return scriptgen.NewOpenAI(cfg.OpenAI)
	case "local":
		slog.Info("using local script generator", "endpoint", cfg.Local.Endpoint, "model", cfg.Local.Model)
		return scriptgen.NewLocal(cfg.Local)
	default:
		slog.Warn("unknown scriptgen backend; document conversion disabled", "backend", cfg.Backend)
		return nil
	}
}

// loadScript produces the script to render from either a script JSON file
// or a source document.
func loadScript(ctx context.Context, cfg *config.Config, generator scriptgen.Generator, scriptFile, inputFile, docType string, numSpeakers int) (*script.Script, error) {
	switch {
	case scriptFile != "":
		data, err := os.ReadFile(scriptFile)
		if err != nil {
			return nil, fmt.Errorf("reading script file: %w", err)
		}
		return script.Parse(data)

	case inputFile != "":
		if generator == nil {
			return nil, fmt.Errorf("document conversion needs a configured script generator")
		}

		var ocr extract.OCRClient
		if cfg.Extract.OCR.APIKey != "" {
			client, err := extract.NewMistralOCR(cfg.Extract.OCR)
			if err != nil {
				return nil, err
			}
			ocr = client
		}

		extractor := extract.New(ocr, cfg.Extract.MaxChars)
		doc, err := extractor.ExtractFile(ctx, inputFile, extract.DocumentType(docType))
		if err != nil {
			return nil, err
		}
		slog.Info("document extracted", "path", inputFile, "chars", len(doc.Text), "type", doc.Type)

		return generator.Generate(ctx, doc, scriptgen.Options{NumSpeakers: numSpeakers})

	default:
		return nil, fmt.Errorf("usage: paperwave [-script file.json | -input doc.pdf] -o out.mp3, or paperwave -serve")
	}
}

// runServe starts the API and health servers and blocks until shutdown.
func runServe(ctx context.Context, cfg *config.Config, assembler *podcast.Assembler, generator scriptgen.Generator) {
	healthServer := health.New(cfg.Server.HealthPort, version)
	apiServer := server.New(cfg.Server.Port, cfg.Server.OutputDir, assembler, generator)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := apiServer.ListenAndServe(ctx); err != nil {
			slog.Error("api server failed", "error", err)
		}
	}()

	healthServer.SetReady(true)
	slog.Info("paperwave ready", "port", cfg.Server.Port, "health_port", cfg.Server.HealthPort)

	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	if err := apiServer.Close(); err != nil {
		slog.Error("api server close error", "error", err)
	}
	wg.Wait()
	slog.Info("paperwave stopped")
}
