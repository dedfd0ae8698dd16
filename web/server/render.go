package server

import (
	"bytes"
	"image/png"
	"net/http"
	"strconv"

	"github.com/df07/go-prt/pkg/loaders"
	"github.com/df07/go-prt/pkg/renderer"
)

// handlePreview renders the baked solution through the preview camera as a PNG,
// /api/preview?width=&height=&samples=
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	config := s.result.Camera

	width, err := parseIntParam(query, "width", max(1, config.Width), 1, 2000)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	height, err := parseIntParam(query, "height", max(1, config.Height()), 1, 2000)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	samples, err := parseIntParam(query, "samples", 1, 1, 256)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	config.Width = width
	config.AspectRatio = float64(width) / float64(height)
	preview := &renderer.Preview{
		Camera:          config,
		Shader:          s.result.Evaluator,
		SamplesPerPixel: samples,
		Gamma:           loaders.DefaultGamma,
		Logger:          s.logger,
	}
	if s.result.Cubemap != nil {
		preview.Background = s.result.Cubemap
	}

	img, stats, err := preview.Render(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Render-Time-Ms", strconv.FormatInt(stats.Elapsed.Milliseconds(), 10))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
