// Package server exposes podcast generation over HTTP.
//
// This is the serve-mode surface: a REST API that accepts either a ready
// dialogue script or raw document text (which is first run through the
// script generator), renders the podcast, and hands back a download URL.
// The interactive dashboard of the original system is intentionally not
// part of this service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/paperwave/paperwave/internal/extract"
	"github.com/paperwave/paperwave/internal/podcast"
	"github.com/paperwave/paperwave/internal/script"
	"github.com/paperwave/paperwave/internal/scriptgen"
)

// GenerateRequest is the POST /api/generate body. Exactly one of Script or
// Text must be set.
type GenerateRequest struct {
	// Script is a ready dialogue script to render directly.
	Script *script.Script `json:"script,omitempty"`

	// Text is raw document text to run through the script generator first.
	Text string `json:"text,omitempty"`

	// DocumentType tunes the script style for Text input
	// (research_article, review_article, case_study).
	DocumentType string `json:"document_type,omitempty"`

	// NumSpeakers is the dialogue size for Text input (2–4).
	NumSpeakers int `json:"num_speakers,omitempty"`
}

// GenerateResponse reports a completed generation.
type GenerateResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Turns       int    `json:"turns"`
	File        string `json:"file"` // download path under /api/podcasts/
}

// Server is the serve-mode HTTP API.
type Server struct {
	port      int
	outputDir string
	assembler *podcast.Assembler
	generator scriptgen.Generator // nil when no LLM backend is configured
	server    *http.Server
}

// New creates the API server. generator may be nil; raw-text requests then
// answer 422 instead of being scripted.
func New(port int, outputDir string, assembler *podcast.Assembler, generator scriptgen.Generator) *Server {
	return &Server{
		port:      port,
		outputDir: outputDir,
		assembler: assembler,
		generator: generator,
	}
}

// ListenAndServe starts the API server. It blocks until the context is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/podcasts/{file}", s.handleDownload)

	// Swagger UI serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("api server listening", "port", s.port, "output_dir", s.outputDir)

	go func() {
		<-ctx.Done()
		slog.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

// handleGenerate processes a POST /api/generate request.
//
// @Summary     Generate a podcast
// @Description Accepts either a ready dialogue script or raw document text. Text input is
// @Description first turned into a script by the configured LLM backend, then rendered to
// @Description MP3 with one synthesized voice per speaker.
// @Tags        generate
// @Accept      json
// @Produce     json
// @Param       request  body      GenerateRequest  true  "Generation request"
// @Success     200  {object}  GenerateResponse  "Completed generation"
// @Failure     400  {string}  string  "Invalid request body"
// @Failure     422  {string}  string  "Text input without a configured script generator"
// @Failure     500  {string}  string  "Generation failed"
// @Router      /api/generate [post]
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	sc, err := s.resolveScript(r.Context(), &req)
	if err != nil {
		var uerr *unprocessableError
		if errors.As(err, &uerr) {
			http.Error(w, uerr.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	outputPath := filepath.Join(s.outputDir, id+".mp3")

	if _, err := s.assembler.GeneratePodcast(r.Context(), sc, outputPath); err != nil {
		slog.Error("generation failed", "id", id, "error", err)
		http.Error(w, "generation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GenerateResponse{
		ID:          id,
		Title:       sc.Title,
		Description: sc.Description,
		Turns:       len(sc.Turns),
		File:        "/api/podcasts/" + id + ".mp3",
	})
}

// handleDownload serves a previously generated podcast file.
//
// @Summary     Download a generated podcast
// @Tags        generate
// @Produce     audio/mpeg
// @Param       file  path  string  true  "Podcast file name"
// @Success     200  {file}  file  "MP3 audio"
// @Failure     404  {string}  string  "Unknown podcast"
// @Router      /api/podcasts/{file} [get]
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(r.PathValue("file")) // no traversal outside outputDir
	path := filepath.Join(s.outputDir, name)

	if _, err := os.Stat(path); err != nil {
		http.Error(w, "unknown podcast", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}

// resolveScript returns the script to render, generating one from raw text
// when needed.
func (s *Server) resolveScript(ctx context.Context, req *GenerateRequest) (*script.Script, error) {
	switch {
	case req.Script != nil:
		if err := req.Script.Validate(); err != nil {
			return nil, err
		}
		return req.Script, nil

	case req.Text != "":
		if s.generator == nil {
			return nil, &unprocessableError{reason: "no script generator configured; submit a script instead"}
		}
		doc := &extract.Document{
			Text: req.Text,
			Type: extract.DocumentType(req.DocumentType),
		}
		return s.generator.Generate(ctx, doc, scriptgen.Options{NumSpeakers: req.NumSpeakers})

	default:
		return nil, fmt.Errorf("request needs either a script or text")
	}
}

// Close gracefully shuts down the API server.
func (s *Server) Close() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

type unprocessableError struct{ reason string }

func (e *unprocessableError) Error() string { return e.reason }
