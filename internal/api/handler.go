package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	domainerrors "contribs/internal/core/errors"
	"contribs/internal/core/ports"
	"contribs/internal/data/store"
	"contribs/internal/engine/resolver"
	"contribs/internal/shared/observability"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// Operation ids, as named in openapi.yaml.
const (
	opDocument  = "document"
	opCatalogue = "catalogue"
	opLicenses  = "licenses"
	opContribs  = "contribs"
	opUnknown   = "unknown"
)

// Handler serves the read API. Requests are matched and validated against
// the OpenAPI document before they reach a route.
type Handler struct {
	doc    *openapi3.T
	router routers.Router
	reader ports.ContribReader
	mux    *http.ServeMux
}

func NewHandler(reader ports.ContribReader) (*Handler, error) {
	doc, err := LoadDocument()
	if err != nil {
		return nil, err
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}

	h := &Handler{doc: doc, router: router, reader: reader, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /api/openapi.json", h.document)
	h.mux.HandleFunc("GET /api/python", h.catalogue)
	h.mux.HandleFunc("GET /api/python/licenses", h.licenses)
	h.mux.HandleFunc("GET /api/python/{ns}/{api}", h.contribs)
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, params, err := h.router.FindRoute(r)
	if err != nil {
		status := http.StatusNotFound
		var routeErr *routers.RouteError
		if errors.As(err, &routeErr) && routeErr.Reason == routers.ErrMethodNotAllowed.Error() {
			status = http.StatusMethodNotAllowed
		}
		h.writeError(w, opUnknown, status, err)
		return
	}

	op := route.Operation.OperationID
	if err := openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: params,
		Route:      route,
	}); err != nil {
		h.writeError(w, op, http.StatusBadRequest, err)
		return
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, opDocument, http.StatusOK, h.doc)
}

func (h *Handler) catalogue(w http.ResponseWriter, r *http.Request) {
	cat, found, err := h.reader.LoadCatalogue()
	if err != nil {
		h.writeError(w, opCatalogue, http.StatusInternalServerError, err)
		return
	}
	if !found {
		h.writeError(w, opCatalogue, http.StatusNotFound, errors.New("no catalogue stored yet"))
		return
	}
	h.writeJSON(w, opCatalogue, http.StatusOK, catalogueJSON{
		NContribs: cat.NContribs,
		NRepos:    cat.NRepos,
		NFiles:    cat.NFiles,
		RunID:     cat.RunID,
		UpdatedAt: cat.UpdatedAt.UTC(),
	})
}

func (h *Handler) licenses(w http.ResponseWriter, r *http.Request) {
	licenses, err := h.reader.LoadLicenses()
	if err != nil {
		h.writeError(w, opLicenses, http.StatusInternalServerError, err)
		return
	}
	out := make([]licenseJSON, 0, len(licenses))
	for _, l := range licenses {
		out = append(out, licenseJSON{Owner: l.Owner, Name: l.Name, Author: l.Author, Type: l.Type})
	}
	h.writeJSON(w, opLicenses, http.StatusOK, out)
}

func (h *Handler) contribs(w http.ResponseWriter, r *http.Request) {
	ident := r.PathValue("ns") + "." + r.PathValue("api")
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		h.writeError(w, opContribs, http.StatusBadRequest, err)
		return
	}

	result, err := h.reader.ContribsByIdent(ident, page, store.DefaultPerPage)
	if err != nil {
		status := http.StatusInternalServerError
		if domainerrors.IsCode(err, domainerrors.CodeValidationError) {
			status = http.StatusBadRequest
		}
		h.writeError(w, opContribs, status, err)
		return
	}
	h.writeJSON(w, opContribs, http.StatusOK, newContribPageJSON(result))
}

func (h *Handler) writeJSON(w http.ResponseWriter, op string, status int, v any) {
	observability.APIRequestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("api response write failed", "operation", op, "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, op string, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("api request failed", "operation", op, "error", err)
	}
	h.writeJSON(w, op, status, errorJSON{Error: err.Error()})
}

type errorJSON struct {
	Error string `json:"error"`
}

type catalogueJSON struct {
	NContribs int       `json:"n_contribs"`
	NRepos    int       `json:"n_repos"`
	NFiles    int       `json:"n_files"`
	RunID     string    `json:"run_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

type licenseJSON struct {
	Owner  string `json:"owner"`
	Name   string `json:"name"`
	Author string `json:"author"`
	Type   string `json:"type"`
}

type contribJSON struct {
	RepoOwner string           `json:"repo_owner"`
	RepoName  string           `json:"repo_name"`
	Filepath  string           `json:"filepath"`
	Filename  string           `json:"filename"`
	Code      string           `json:"code"`
	Loci      []resolver.Locus `json:"loci"`
}

type contribPageJSON struct {
	Contribs []contribJSON `json:"contribs"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PerPage  int           `json:"per_page"`
}

func newContribPageJSON(p store.ContribPage) contribPageJSON {
	out := contribPageJSON{
		Contribs: make([]contribJSON, 0, len(p.Contribs)),
		Total:    p.Total,
		Page:     p.Page,
		PerPage:  p.PerPage,
	}
	for _, c := range p.Contribs {
		loci := c.Loci
		if loci == nil {
			loci = []resolver.Locus{}
		}
		out.Contribs = append(out.Contribs, contribJSON{
			RepoOwner: c.RepoOwner,
			RepoName:  c.RepoName,
			Filepath:  c.Filepath,
			Filename:  c.Filename,
			Code:      c.Code,
			Loci:      loci,
		})
	}
	return out
}
