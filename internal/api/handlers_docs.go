package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docsect/internal/annostore"
	"github.com/dgallion1/docsect/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleDocumentSections returns the stored metadata and section records of a document.
func (s *Server) handleDocumentSections(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ctx := r.Context()
	sink := s.orchestrator.Sink()

	meta, err := sink.GetNode(ctx, annostore.MetaKey(docID))
	if err != nil {
		jsonError(w, "failed to read document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if meta == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	nodes, err := pipeline.StoredSections(ctx, sink, docID)
	if err != nil {
		jsonError(w, "failed to list sections: "+err.Error(), http.StatusBadGateway)
		return
	}

	records := make([]any, len(nodes))
	for i, n := range nodes {
		records[i] = n.Value
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":   docID,
		"meta":     meta.Value,
		"sections": records,
	})
}

// handleDeleteDocument deletes a document's records and its content-hash index entry.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	found, err := pipeline.DeleteDocument(r.Context(), s.orchestrator.Sink(), docID)
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if !found {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	s.log.Info("deleted document", "doc_id", docID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":  docID,
		"deleted": true,
	})
}
