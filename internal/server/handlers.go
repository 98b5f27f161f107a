package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/zipmap/internal/dashboard"
	"github.com/sells-group/zipmap/internal/feature"
	"github.com/sells-group/zipmap/internal/interaction"
	"github.com/sells-group/zipmap/internal/mapconfig"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.bundle != nil {
		body["lookup_states"] = s.bundle.Lookup.States()
		body["state_features"] = len(s.bundle.States.Features)
		body["zip3_features"] = len(s.bundle.Zipcodes.Features)
	}
	if s.sessions != nil {
		body["sessions"] = s.sessions.Len()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleMapConfig(w http.ResponseWriter, _ *http.Request) {
	if s.mapConfig == nil {
		writeError(w, http.StatusNotFound, "map configuration not loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.mapConfig)
}

func (s *Server) handleStates(w http.ResponseWriter, _ *http.Request) {
	s.writeCollection(w, s.bundle.States)
}

func (s *Server) handleZipcodes(w http.ResponseWriter, _ *http.Request) {
	s.writeCollection(w, s.bundle.Zipcodes)
}

func (s *Server) writeCollection(w http.ResponseWriter, fc *geojson.FeatureCollection) {
	if fc == nil {
		fc = &geojson.FeatureCollection{}
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		s.log.Error("failed to encode feature collection", zap.Error(err))
	}
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	zips, ok := s.bundle.Lookup[state]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    state,
		"zipcodes": zips,
		"zip3":     s.bundle.Lookup.Zip3s(state),
	})
}

func (s *Server) handleZip3(w http.ResponseWriter, r *http.Request) {
	f, ok := s.bundle.ByZip3.Get(chi.URLParam(r, "zip3"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown zip3")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(f); err != nil {
		s.log.Error("failed to encode feature", zap.Error(err))
	}
}

type createRequest struct {
	Viewport interaction.Viewport `json:"viewport"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	_, resp := s.sessions.Create(req.Viewport)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.sessions.Delete(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// session resolves the {id} route parameter, writing a 404 when it is
// unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*dashboard.Session, bool) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return nil, false
	}
	return sess, true
}

func (s *Server) respond(w http.ResponseWriter, resp dashboard.Response, err error) {
	switch {
	case errors.Is(err, dashboard.ErrSessionClosed):
		writeError(w, http.StatusGone, "session closed")
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	resp, err := sess.Sidebar()
	s.respond(w, resp, err)
}

// clickRequest carries either the rendered features under the pointer or,
// for thin clients, only the key of the clicked feature.
type clickRequest struct {
	Layer    string               `json:"layer"`
	Features []json.RawMessage    `json:"features"`
	Key      string               `json:"key"`
	Viewport interaction.Viewport `json:"viewport"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req clickRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	features := make([]*geojson.Feature, 0, len(req.Features))
	for _, raw := range req.Features {
		f, err := feature.DecodeFeature(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid feature")
			return
		}
		features = append(features, f)
	}
	if len(features) == 0 && req.Key != "" {
		if f, ok := s.resolve(req.Layer, req.Key); ok {
			features = append(features, f)
		}
	}

	resp, err := sess.Click(req.Layer, features, req.Viewport)
	s.respond(w, resp, err)
}

// resolve looks a clicked feature up by key in the loaded collections.
func (s *Server) resolve(layer, key string) (*geojson.Feature, bool) {
	switch layer {
	case mapconfig.LayerStates:
		return s.bundle.ByName.Get(key)
	case mapconfig.LayerZipcodes:
		return s.bundle.ByZip3.Get(key)
	}
	return nil, false
}

type hoverRequest struct {
	Kind  interaction.EventKind `json:"kind"`
	Layer string                `json:"layer"`
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req hoverRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := sess.Hover(req.Kind, req.Layer)
	s.respond(w, resp, err)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	resp, err := sess.CloseSidebar()
	s.respond(w, resp, err)
}

func (s *Server) handleSlider(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Index *int `json:"index"`
	}
	if err := decodeBody(r, &req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}
	resp, err := sess.Slider(*req.Index)
	s.respond(w, resp, err)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if err := decodeBody(r, &req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	resp, err := sess.Key(req.Key)
	s.respond(w, resp, err)
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req dashboard.PointerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := sess.Pointer(req)
	s.respond(w, resp, err)
}

func (s *Server) handleSpendingExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	data, err := sess.ExportSpending(s.sheetName)
	switch {
	case errors.Is(err, dashboard.ErrNoSpending):
		writeError(w, http.StatusNotFound, "no spending data for the selection")
		return
	case errors.Is(err, dashboard.ErrSessionClosed):
		writeError(w, http.StatusGone, "session closed")
		return
	case err != nil:
		s.log.Error("spending export failed", zap.String("session", sess.ID()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "spending export failed")
		return
	}

	name := "spending"
	if zip3 := sess.State().HighlightedZip3; zip3 != "" {
		name = "spending-" + zip3
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
	if _, err := w.Write(data); err != nil {
		s.log.Debug("spending export write failed", zap.String("session", sess.ID()), zap.Error(err))
	}
}
