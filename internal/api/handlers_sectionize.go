package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dgallion1/docsect/internal/sections"
	"golang.org/x/text/unicode/norm"
)

type sectionizeRequest struct {
	Text string `json:"text"`
}

type sectionView struct {
	sections.Section
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

func (s *Server) handleSectionize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req sectionizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	sz := s.rules.Current()
	if sz == nil {
		jsonError(w, "no section rules loaded", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	if s.cfg.SegmentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SegmentTimeout)
		defer cancel()
	}

	text := norm.NFC.String(req.Text)
	start := time.Now()
	secs, err := sz.SegmentContext(ctx, text)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
		jsonError(w, "sectioning failed: "+err.Error(), code)
		return
	}
	fallback := len(secs) == 1 && secs[0].IsFallback()
	if s.stats != nil {
		s.stats.Record(time.Since(start), len(secs), fallback)
	}

	views := make([]sectionView, len(secs))
	for i, sec := range secs {
		views[i] = sectionView{
			Section: sec,
			Heading: sec.HeadingText(text),
			Body:    sec.BodyText(text),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"fallback": fallback,
		"sections": views,
	})
}
