package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowsketch/pkg/buildinfo"
	"github.com/matzehuels/flowsketch/pkg/diagram"
	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/gallery"
	"github.com/matzehuels/flowsketch/pkg/gateway"
	"github.com/matzehuels/flowsketch/pkg/pipeline"
	"github.com/matzehuels/flowsketch/pkg/render"
)

// =============================================================================
// Request and response bodies
// =============================================================================

type chatRequest struct {
	Turns         []gateway.Turn `json:"turns"`
	CurrentSource string         `json:"current_source,omitempty"`
	Category      string         `json:"category,omitempty"`
	Locale        string         `json:"locale,omitempty"`
}

// resultResponse is a gateway Result. Error is set when Content is a
// fallback message.
type resultResponse struct {
	Kind    gateway.Kind `json:"kind"`
	Content string       `json:"content"`
	Error   string       `json:"error,omitempty"`
}

type fixRequest struct {
	Source     string `json:"source"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Locale     string `json:"locale,omitempty"`
}

type sourceRequest struct {
	Source string `json:"source"`
}

type sourceResponse struct {
	Source string `json:"source"`
}

type recolorRequest struct {
	Source          string            `json:"source"`
	Vars            map[string]string `json:"vars,omitempty"`
	Literals        map[string]string `json:"literals,omitempty"`
	SpliceMalformed *bool             `json:"splice_malformed,omitempty"`
}

type directiveRequest struct {
	Source string `json:"source"`
	Key    string `json:"key"`
}

type directiveResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type renderRequest struct {
	Source     string  `json:"source"`
	Format     string  `json:"format,omitempty"`
	Theme      string  `json:"theme,omitempty"`
	Background string  `json:"background,omitempty"`
	Scale      float64 `json:"scale,omitempty"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res := s.Gateway.Generate(r.Context(), gateway.Request{
		Turns:         req.Turns,
		CurrentSource: req.CurrentSource,
		Category:      req.Category,
		Locale:        s.locale(r, req.Locale),
	})
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) fix(w http.ResponseWriter, r *http.Request) {
	var req fixRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := errors.ValidateSource(req.Source, pipeline.MaxSourceBytes); err != nil {
		writeError(w, err)
		return
	}

	diagnostic := req.Diagnostic
	if diagnostic == "" {
		_, err := s.Runner.Render(r.Context(), req.Source, s.Options)
		if err == nil {
			writeJSON(w, http.StatusOK, resultResponse{Kind: gateway.KindDiagram, Content: req.Source})
			return
		}
		se, ok := render.AsSyntaxError(err)
		if !ok {
			writeError(w, err)
			return
		}
		diagnostic = se.Diagnostic
	}

	res := s.Gateway.Fix(r.Context(), req.Source, diagnostic, s.locale(r, req.Locale))
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) clean(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceResponse{Source: diagram.Clean(req.Source)})
}

func (s *Server) recolor(w http.ResponseWriter, r *http.Request) {
	var req recolorRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	rc := diagram.Recolor{Vars: make(map[string]string, len(req.Vars)), Literals: req.Literals}
	for k, v := range req.Vars {
		rc.Vars[diagram.ResolveVariable(k)] = v
	}
	if err := rc.Validate(); err != nil {
		writeError(w, err)
		return
	}

	p := s.patcher()
	if req.SpliceMalformed != nil {
		p.SpliceMalformed = *req.SpliceMalformed
	}
	writeJSON(w, http.StatusOK, sourceResponse{Source: p.Apply(req.Source, rc)})
}

func (s *Server) directive(w http.ResponseWriter, r *http.Request) {
	var req directiveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Key == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "key is required"))
		return
	}
	key := diagram.ResolveVariable(req.Key)
	writeJSON(w, http.StatusOK, directiveResponse{Key: key, Value: diagram.GetDirectiveValue(req.Source, key)})
}

func (s *Server) colors(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diagram.ReadPalette(req.Source))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	opts, err := s.options(req, render.FormatSVG)
	if err != nil {
		writeError(w, err)
		return
	}

	svg, hit, err := s.Runner.RenderWithCacheInfo(r.Context(), req.Source, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", render.FormatSVG.MIMEType())
	w.Header().Set("X-Render-Engine", render.Detect(req.Source))
	w.Header().Set("X-Cache", cacheStatus(hit))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	f, err := render.ParseFormat(defaultString(req.Format, string(render.FormatSVG)))
	if err != nil {
		writeError(w, err)
		return
	}
	opts, err := s.options(req, f)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.Runner.Execute(r.Context(), req.Source, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	a := res.Artifacts[0]
	w.Header().Set("Content-Type", a.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Header().Set("X-Cache", cacheStatus(res.CacheInfo.RenderHit && res.CacheInfo.ExportHit))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}

func (s *Server) galleryList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gallery.List())
}

func (s *Server) galleryGet(w http.ResponseWriter, r *http.Request) {
	t, err := gallery.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// =============================================================================
// Helpers
// =============================================================================

func toResponse(res gateway.Result) resultResponse {
	out := resultResponse{Kind: res.Kind, Content: res.Content}
	if res.Err != nil {
		out.Error = string(errors.GetCode(res.Err))
		if out.Error == "" {
			out.Error = string(errors.ErrCodeInternal)
		}
	}
	return out
}

// locale picks the request's locale field, then Accept-Language, then the
// server default.
func (s *Server) locale(r *http.Request, requested string) string {
	if requested != "" {
		return requested
	}
	if al := r.Header.Get("Accept-Language"); al != "" {
		return al
	}
	return s.Locale
}

func (s *Server) patcher() *diagram.Patcher {
	p := &diagram.Patcher{Logger: s.logger()}
	if s.Patcher != nil {
		*p = *s.Patcher
	}
	return p
}

func (s *Server) options(req renderRequest, f render.Format) (pipeline.Options, error) {
	opts := pipeline.Options{
		Theme:      s.Options.Theme,
		Background: s.Options.Background,
		Scale:      s.Options.Scale,
		Formats:    []render.Format{f},
	}
	if req.Theme != "" {
		opts.Theme = strings.ToLower(req.Theme)
	}
	if req.Background != "" {
		opts.Background = req.Background
	}
	if req.Scale != 0 {
		opts.Scale = req.Scale
	}
	return opts, opts.ValidateAndSetDefaults()
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
