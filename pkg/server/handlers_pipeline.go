package server

import (
	"net/http"

	"github.com/matzehuels/flowcraft/pkg/decompile"
	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/flow/proximity"
	"github.com/matzehuels/flowcraft/pkg/flowio"
	"github.com/matzehuels/flowcraft/pkg/pipeline"
	"github.com/matzehuels/flowcraft/pkg/spec"
)

type graphRequest struct {
	Graph flowio.Graph `json:"graph"`
}

type compileRequest struct {
	Graph   flowio.Graph     `json:"graph"`
	Options pipeline.Options `json:"options"`
}

type decompileRequest struct {
	Document    *spec.Document `json:"document"`
	Concurrency int            `json:"concurrency" validate:"gte=0,lte=64"`
	Spacing     float64        `json:"spacing" validate:"gte=0"`
}

type decompileResponse struct {
	Graph  flowio.Graph      `json:"graph"`
	Report *decompile.Report `json:"report"`
}

type connectionRequest struct {
	Graph  flowio.Graph `json:"graph"`
	Source string       `json:"source" validate:"required"`
	Target string       `json:"target" validate:"required"`
}

type connectionResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type autoConnectRequest struct {
	Graph          flowio.Graph `json:"graph"`
	SkipCycleGuard bool         `json:"skip_cycle_guard"`
	PortAware      bool         `json:"port_aware"`
}

type rejection struct {
	Edge   flowio.Edge `json:"edge"`
	Reason string      `json:"reason"`
}

type autoConnectResponse struct {
	Graph    *flowio.Graph `json:"graph,omitempty"`
	Added    []flowio.Edge `json:"added"`
	Rejected []rejection   `json:"rejected"`
}

func newAutoConnectResponse(res proximity.Result) autoConnectResponse {
	out := autoConnectResponse{
		Added:    flowio.FromEdges(res.Added),
		Rejected: make([]rejection, 0, len(res.Rejected)),
	}
	for _, rej := range res.Rejected {
		out.Rejected = append(out.Rejected, rejection{Edge: flowio.FromEdge(rej.Edge), Reason: rej.Reason.Error()})
	}
	return out
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req graphRequest
	if err := decode(r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}
	g, err := toGraph(req.Graph)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.runner.Validate(r.Context(), g))
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := decode(r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}
	g, err := toGraph(req.Graph)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.compile(w, r, g, req.Options)
}

// compile answers with the document in the requested format.
func (s *Server) compile(w http.ResponseWriter, r *http.Request, g *flow.Graph, opts pipeline.Options) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.respondError(w, r, err)
		return
	}
	doc, err := s.runner.Compile(r.Context(), g, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if opts.Format == spec.FormatJSON {
		respondJSON(w, http.StatusOK, doc)
		return
	}
	data, err := spec.Marshal(doc, opts.Format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDecompile(w http.ResponseWriter, r *http.Request) {
	var req decompileRequest
	if err := decode(r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Document == nil {
		s.respondError(w, r, errors.New(errors.ErrCodeInvalidInput, "document: field is required"))
		return
	}
	if req.Spacing == 0 {
		req.Spacing = s.opts.Spacing
	}
	g, report, err := s.runner.Decompile(r.Context(), req.Document, pipeline.Options{
		Concurrency: req.Concurrency,
		Spacing:     req.Spacing,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, decompileResponse{Graph: flowio.FromGraph(g), Report: report})
}

// handleCheckConnection answers whether an edge could be added, without adding it.
func (s *Server) handleCheckConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := decode(r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}
	g, err := toGraph(req.Graph)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	resp := connectionResponse{Valid: true}
	if err := g.Connect(flow.NewEdge(req.Source, req.Target)); err != nil {
		resp = connectionResponse{Valid: false, Reason: err.Error()}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAutoConnect(w http.ResponseWriter, r *http.Request) {
	var req autoConnectRequest
	if err := decode(r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}
	g, err := toGraph(req.Graph)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	opts := s.opts.Proximity
	opts.SkipCycleGuard = req.SkipCycleGuard
	opts.PortAware = req.PortAware

	resp := newAutoConnectResponse(s.runner.AutoConnect(r.Context(), g, opts))
	out := flowio.FromGraph(g)
	resp.Graph = &out
	respondJSON(w, http.StatusOK, resp)
}
