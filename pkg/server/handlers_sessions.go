package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowcraft/pkg/catalog"
	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/flowio"
	"github.com/matzehuels/flowcraft/pkg/pipeline"
	"github.com/matzehuels/flowcraft/pkg/session"
)

type createSessionRequest struct {
	Name  string        `json:"name" validate:"max=128"`
	Graph *flowio.Graph `json:"graph"`
}

type addNodeRequest struct {
	Kind        flow.Kind         `json:"kind" validate:"required"`
	Title       string            `json:"title"`
	Position    flow.Position     `json:"position"`
	Params      map[string]any    `json:"params"`
	Source      *flow.Source      `json:"source"`
	Destination *flow.Destination `json:"destination"`
}

type addEdgeRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

type renameRequest struct {
	Title string `json:"title" validate:"max=128"`
}

type moveResponse struct {
	Node flowio.Node `json:"node"`
	autoConnectResponse
}

type columnsResponse struct {
	Columns []catalog.Field `json:"columns"`
}

// session resolves the {id} URL parameter.
func (s *Server) session(r *http.Request) (*session.Session, error) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateSessionID(id); err != nil {
		return nil, err
	}
	return s.sessions.Get(r.Context(), id)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req, true); err != nil {
		s.respondError(w, r, err)
		return
	}
	var g *flow.Graph
	if req.Graph != nil {
		var err error
		if g, err = toGraph(*req.Graph); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	sess := session.New(req.Name, g, s.opts.SessionTTL)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.logger.Info("session created", "id", sess.ID, "name", sess.Name)
	respondJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateSessionID(id); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// persist writes a changed session back to its store.
func (s *Server) persist(r *http.Request, sess *session.Session) error {
	return s.sessions.Set(r.Context(), sess)
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req addNodeRequest
	if err := decode(r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}
	if !req.Kind.Known() {
		s.respondError(w, r, errors.New(errors.ErrCodeInvalidNode, "unknown node kind %q", req.Kind))
		return
	}

	var node flowio.Node
	err = sess.Do(func(g *flow.Graph) error {
		n, err := g.Create(req.Kind, req.Title, req.Position)
		if err != nil {
			return err
		}
		switch {
		case req.Kind.IsReader() && req.Source != nil:
			src := *req.Source
			n.Source = &src
		case req.Kind.IsTarget() && req.Destination != nil:
			dst := *req.Destination
			n.Destination = &dst
		case req.Kind.IsTransformation() && req.Params != nil:
			n.Params = req.Params
		}
		node = flowio.FromNode(n)
		return nil
	})
	if err == nil {
		err = s.persist(r, sess)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, node)
}

// handleAddEdge adds an edge through the cycle guard.
func (s *Server) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req addEdgeRequest
	if err := decode(r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}

	e := flow.NewEdge(req.Source, req.Target)
	err = sess.Do(func(g *flow.Graph) error { return g.Connect(e) })
	if err == nil {
		err = s.persist(r, sess)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, flowio.FromEdge(e))
}

// handleMoveNode repositions a node and auto-connects overlapping handles, as the
// canvas does when a drag ends.
func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	if err := errors.ValidateNodeID(nodeID); err != nil {
		s.respondError(w, r, err)
		return
	}
	var pos flow.Position
	if err := decode(r, &pos, false); err != nil {
		s.respondError(w, r, err)
		return
	}

	var resp moveResponse
	err = sess.Do(func(g *flow.Graph) error {
		if err := g.Move(nodeID, pos); err != nil {
			return err
		}
		resp.autoConnectResponse = newAutoConnectResponse(s.runner.AutoConnect(r.Context(), g, s.opts.Proximity))
		n, _ := g.Node(nodeID)
		resp.Node = flowio.FromNode(n)
		return nil
	})
	if err == nil {
		err = s.persist(r, sess)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleRenameNode retitles a node. An empty title falls back to the next default
// title for the node's kind.
func (s *Server) handleRenameNode(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	if err := errors.ValidateNodeID(nodeID); err != nil {
		s.respondError(w, r, err)
		return
	}
	var req renameRequest
	if err := decode(r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}

	var node flowio.Node
	err = sess.Do(func(g *flow.Graph) error {
		if err := g.Rename(nodeID, req.Title); err != nil {
			return err
		}
		n, _ := g.Node(nodeID)
		node = flowio.FromNode(n)
		return nil
	})
	if err == nil {
		err = s.persist(r, sess)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, node)
}

// handleSuggestColumns lists the columns available upstream of a node.
func (s *Server) handleSuggestColumns(w http.ResponseWriter, r *http.Request) {
	if s.runner.Catalog == nil {
		s.respondError(w, r, errors.New(errors.ErrCodeUnsupported, "no catalog configured"))
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Catalog lookups run on a copy so the session is not held during network calls.
	var g *flow.Graph
	_ = sess.View(func(live *flow.Graph) error {
		g = live.Clone()
		return nil
	})
	fields, err := catalog.SuggestColumns(r.Context(), s.runner.Catalog, g, chi.URLParam(r, "nodeID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if fields == nil {
		fields = []catalog.Field{}
	}
	respondJSON(w, http.StatusOK, columnsResponse{Columns: fields})
}

func (s *Server) handleSessionCompile(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var opts pipeline.Options
	if err := decode(r, &opts, true); err != nil {
		s.respondError(w, r, err)
		return
	}
	if opts.Name == "" {
		opts.Name = sess.Name
	}

	var g *flow.Graph
	_ = sess.View(func(live *flow.Graph) error {
		g = live.Clone()
		return nil
	})
	s.compile(w, r, g, opts)
}
