package handler

import (
	"context"
	"errors"
	"html"
	"html/template"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"

	"growth-charts/internal/generator"
	"growth-charts/internal/logging"
	"growth-charts/internal/render"
)

// FormField is the form field carrying the identifier
const FormField = "cedula"

// ChartGenerator produces the chart document for an identifier
type ChartGenerator interface {
	Generate(ctx context.Context, identifier string) (*generator.Artifact, error)
}

// ArtifactCache stores generated documents by identifier
type ArtifactCache interface {
	Get(identifier string) (string, bool, error)
	Set(identifier, content string) error
}

// Options controls what the chart endpoint renders
type Options struct {
	IframeHeight          string
	ProcessErrorText      string
	ArtifactErrorText     string
	TimeoutErrorText      string
	InvalidIdentifierText string
	IdentifierPattern     *regexp.Regexp
	GenerateOnGet         bool
	Page                  bool
	Action                string
}

// ChartHandler serves the chart endpoint
type ChartHandler struct {
	generator ChartGenerator
	cache     ArtifactCache
	opts      Options
	logger    zerolog.Logger
}

// NewChartHandler builds the chart endpoint. cache may be nil.
func NewChartHandler(gen ChartGenerator, cache ArtifactCache, opts Options, logger zerolog.Logger) *ChartHandler {
	if opts.IframeHeight == "" {
		opts.IframeHeight = render.DefaultIframeHeight
	}
	if opts.ProcessErrorText == "" {
		opts.ProcessErrorText = "Error al ejecutar el script de Python."
	}
	if opts.ArtifactErrorText == "" {
		opts.ArtifactErrorText = opts.ProcessErrorText
	}
	if opts.TimeoutErrorText == "" {
		opts.TimeoutErrorText = opts.ProcessErrorText
	}
	if opts.InvalidIdentifierText == "" {
		opts.InvalidIdentifierText = "Cédula inválida."
	}
	if opts.Action == "" {
		opts.Action = "/"
	}

	return &ChartHandler{
		generator: gen,
		cache:     cache,
		opts:      opts,
		logger:    logging.Component(logger, "handler"),
	}
}

// ServeHTTP runs the chart program for the submitted identifier and embeds
// its document in an inline frame
func (h *ChartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With().Str("request_id", RequestID(r.Context())).Logger()

	var identifier string
	switch r.Method {
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form body", http.StatusBadRequest)
			return
		}
		// An absent field yields the empty identifier
		identifier = r.PostFormValue(FormField)
	case http.MethodGet:
		if !h.opts.GenerateOnGet {
			h.write(w, http.StatusOK, "", "")
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	if h.opts.IdentifierPattern != nil && !h.opts.IdentifierPattern.MatchString(identifier) {
		logger.Info().Int("identifier_len", len(identifier)).Msg("identifier rejected")
		h.writeText(w, http.StatusBadRequest, identifier, h.opts.InvalidIdentifierText)
		return
	}

	content, err := h.artifact(r.Context(), identifier)
	if err != nil {
		status, text := h.classify(err)
		logger.Error().Err(err).Int("status", status).Msg("chart generation failed")
		h.writeText(w, status, identifier, text)
		return
	}

	h.write(w, http.StatusOK, identifier, render.Iframe(content, h.opts.IframeHeight))
}

// artifact returns the cached document or generates a fresh one
func (h *ChartHandler) artifact(ctx context.Context, identifier string) (string, error) {
	if h.cache != nil {
		content, ok, err := h.cache.Get(identifier)
		if err != nil {
			h.logger.Warn().Err(err).Msg("cache lookup failed")
		} else if ok {
			return content, nil
		}
	}

	artifact, err := h.generator.Generate(ctx, identifier)
	if err != nil {
		return "", err
	}

	if h.cache != nil {
		if err := h.cache.Set(identifier, artifact.Content); err != nil {
			h.logger.Warn().Err(err).Msg("cache store failed")
		}
	}
	return artifact.Content, nil
}

// classify maps a generation error to a status code and user-visible text
func (h *ChartHandler) classify(err error) (int, string) {
	switch {
	case errors.Is(err, generator.ErrProcessFailed):
		return http.StatusBadGateway, h.opts.ProcessErrorText
	case errors.Is(err, generator.ErrMissingArtifact):
		return http.StatusBadGateway, h.opts.ArtifactErrorText
	case errors.Is(err, generator.ErrTimeout):
		return http.StatusGatewayTimeout, h.opts.TimeoutErrorText
	default:
		return http.StatusInternalServerError, h.opts.ProcessErrorText
	}
}

func (h *ChartHandler) writeText(w http.ResponseWriter, status int, identifier, text string) {
	if h.opts.Page {
		text = html.EscapeString(text)
	}
	h.write(w, status, identifier, text)
}

// write sends fragment, wrapped in the form page when page mode is on
func (h *ChartHandler) write(w http.ResponseWriter, status int, identifier, fragment string) {
	body := fragment
	if h.opts.Page {
		page, err := render.Page(render.PageData{
			Action:     h.opts.Action,
			Identifier: identifier,
			Body:       template.HTML(fragment),
		})
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to render page")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		body = page
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Debug().Err(err).Msg("failed to write response")
	}
}

// Health reports that the server is up
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
