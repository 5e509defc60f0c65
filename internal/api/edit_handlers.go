package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markerdeck/markerdeck/internal/catalog"
	"github.com/markerdeck/markerdeck/internal/editor"
	"github.com/markerdeck/markerdeck/internal/logging"
	"github.com/markerdeck/markerdeck/internal/stash"
)

func openEditHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sceneID := chi.URLParam(r, "id")
		logger := logging.WithSceneID(logging.WithRequestID(cfg.Logger, requestID(r)), sceneID)

		sess, err := editor.OpenSession(r.Context(), sceneID, stash.NewMarkerBackend(cfg.Stash), cfg.Editor, cfg.Events, logger)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		cfg.Sessions.Put(sess.ID, sess)
		WriteJSON(w, http.StatusCreated, SessionToResponse(sess))
	}
}

// loadSession resolves the session URL parameter, writing a 404 when the
// session is unknown or expired.
func loadSession(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*editor.Session, bool) {
	sess, ok := cfg.Sessions.Get(chi.URLParam(r, "session"))
	if !ok {
		WriteError(w, http.StatusNotFound, "edit session not found", "NOT_FOUND")
		return nil, false
	}
	return sess, true
}

func loadRef(w http.ResponseWriter, r *http.Request) (editor.MarkerRef, bool) {
	ref, err := editor.ParseRef(chi.URLParam(r, "ref"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return editor.MarkerRef{}, false
	}
	return ref, true
}

func getEditHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, SessionToResponse(sess))
	}
}

func closeEditHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Sessions.Remove(chi.URLParam(r, "session")) {
			WriteError(w, http.StatusNotFound, "edit session not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func addDraftHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		var req editor.NewDraft
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if req.Seconds < 0 {
			writeServiceError(w, cfg.Logger, fmt.Errorf("%w: seconds must not be negative", catalog.ErrInvalidInput))
			return
		}
		ref := sess.Store().AddNewDraft(req)
		WriteJSON(w, http.StatusCreated, DraftRefResponse{Ref: ref, Session: SessionToResponse(sess)})
	}
}

func patchDraftHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		ref, ok := loadRef(w, r)
		if !ok {
			return
		}
		var patch editor.Patch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if patch.IsEmpty() {
			WriteError(w, http.StatusBadRequest, "patch has no fields", "BAD_REQUEST")
			return
		}
		if err := sess.Store().SetDraft(ref, patch); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, DraftRefResponse{Ref: ref, Session: SessionToResponse(sess)})
	}
}

func discardDraftHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		ref, ok := loadRef(w, r)
		if !ok {
			return
		}
		if err := sess.Store().DiscardDraft(ref); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SessionToResponse(sess))
	}
}

func saveDraftHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		ref, ok := loadRef(w, r)
		if !ok {
			return
		}
		next, err := sess.SaveRow(r.Context(), ref)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, DraftRefResponse{Ref: next, Session: SessionToResponse(sess)})
	}
}

func deleteDraftHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		ref, ok := loadRef(w, r)
		if !ok {
			return
		}
		removed, err := sess.Store().DeleteRow(ref)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, DeleteRowResponse{Removed: removed, Session: SessionToResponse(sess)})
	}
}

func confirmDeleteHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		ref, err := sess.ConfirmDelete(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, DraftRefResponse{Ref: ref, Session: SessionToResponse(sess)})
	}
}

func cancelDeleteHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		sess.Store().CancelDelete()
		WriteJSON(w, http.StatusOK, SessionToResponse(sess))
	}
}

func saveAllHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		res, err := sess.SaveAll(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SaveAllResponse{Result: res, Session: SessionToResponse(sess)})
	}
}

func refreshEditHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		if err := sess.Refresh(r.Context()); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SessionToResponse(sess))
	}
}

func playerHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, cfg)
		if !ok {
			return
		}
		var req PlayerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		sess.SetPlayerActive(req.Active)
		WriteJSON(w, http.StatusOK, SessionToResponse(sess))
	}
}
