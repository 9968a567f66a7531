package server

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"zoi/sentinel/pkg/compliance"
	"zoi/sentinel/pkg/coordinator"
	"zoi/sentinel/pkg/reference"
	"zoi/sentinel/pkg/telemetry/health"
	"zoi/sentinel/pkg/telemetry/logging"
)

// maxSlugLength bounds the product key accepted from a path.
const maxSlugLength = 200

const productsNote = "Qualquer produto pode ser pesquisado - produtos não listados serão pesquisados via IA."

type healthResponse struct {
	Status             string                        `json:"status"`
	Version            string                        `json:"version"`
	Backend            string                        `json:"backend"`
	BackendConfigured  bool                          `json:"backend_configured"`
	CacheSize          int                           `json:"cache_size"`
	ActiveResearch     int                           `json:"active_research"`
	BackgroundInFlight int                           `json:"background_in_flight"`
	KnownProducts      int                           `json:"known_products"`
	Checks             map[string]health.CheckResult `json:"checks,omitempty"`
	Timestamp          time.Time                     `json:"timestamp"`
}

type productsResponse struct {
	Success  bool                `json:"success"`
	Products []reference.Summary `json:"products"`
	Total    int                 `json:"total"`
	Note     string              `json:"note"`
}

type productResponse struct {
	Success    bool                   `json:"success"`
	Product    *compliance.Record     `json:"product"`
	Provenance coordinator.Provenance `json:"provenance"`
	AIEngine   string                 `json:"ai_engine"`
	Refreshed  bool                   `json:"refreshed,omitempty"`
	Source     compliance.DataSource  `json:"source,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.svc.Stats(r.Context())
	resp := healthResponse{
		Status:             health.StatusHealthy,
		Version:            s.opts.Version,
		Backend:            stats.Backend,
		BackendConfigured:  stats.Configured,
		CacheSize:          stats.CacheSize,
		ActiveResearch:     stats.ActiveResearch,
		BackgroundInFlight: stats.InFlight,
		KnownProducts:      stats.KnownProducts,
		Timestamp:          s.now().UTC(),
	}
	if s.opts.Health != nil {
		report := s.opts.Health.Run(r.Context())
		resp.Status = report.Status
		resp.Checks = report.Checks
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products := s.svc.Products()
	writeJSON(w, r, http.StatusOK, productsResponse{
		Success:  true,
		Products: products,
		Total:    len(products),
		Note:     productsNote,
	})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	s.lookup(w, r, false)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.lookup(w, r, true)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request, force bool) {
	slug, ok := s.slug(w, r)
	if !ok {
		return
	}

	ctx := logging.WithProductKey(r.Context(), slug)
	res := s.svc.Lookup(ctx, slug, force)

	resp := productResponse{
		Success:    true,
		Product:    res.Record,
		Provenance: res.Provenance,
		AIEngine:   "reference_only",
		Timestamp:  s.now().UTC(),
	}
	if stats := s.svc.Stats(ctx); stats.Configured {
		resp.AIEngine = stats.Backend
	}
	if force {
		resp.Refreshed = true
		resp.Source = res.Record.DataSource
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleResearchStatus(w http.ResponseWriter, r *http.Request) {
	slug, ok := s.slug(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, s.svc.Status(r.Context(), slug))
}

// slug reads the {slug} path value and answers 400 when it is unusable.
func (s *Server) slug(w http.ResponseWriter, r *http.Request) (string, bool) {
	slug := strings.TrimSpace(r.PathValue("slug"))
	switch {
	case slug == "":
		writeError(w, r, http.StatusBadRequest, "invalid_slug", "product slug is required")
		return "", false
	case len(slug) > maxSlugLength || !utf8.ValidString(slug):
		writeError(w, r, http.StatusBadRequest, "invalid_slug", "product slug is malformed")
		return "", false
	}
	return slug, true
}
