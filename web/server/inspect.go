package server

import (
	"net/http"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/renderer"
	"github.com/pkg/errors"
)

// RadianceResponse is the evaluator's answer for one ray
type RadianceResponse struct {
	Hit      bool       `json:"hit"`
	Radiance [3]float64 `json:"radiance"` // Dot product of light and interpolated transport
	Shaded   [3]float64 `json:"shaded"`   // Radiance scaled by albedo/pi
}

// InspectResponse describes the surface seen through a preview pixel
type InspectResponse struct {
	RadianceResponse `json:",inline"`
	Point            [3]float64 `json:"point"`
	Normal           [3]float64 `json:"normal"`
	Distance         float64    `json:"distance"`
	Vertices         [3]int     `json:"vertices"`
	Barycentric      [3]float64 `json:"barycentric"`
}

// handleRadiance evaluates /api/radiance?origin=x,y,z&dir=x,y,z
func (s *Server) handleRadiance(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	origin, err := parseVecParam(query, "origin")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	dir, err := parseVecParam(query, "dir")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if dir.LengthSquared() == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("dir must be non-zero"))
		return
	}

	resp, err := s.radiance(core.NewRay(origin, dir.Normalize()))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) radiance(ray core.Ray) (RadianceResponse, error) {
	eval := s.result.Evaluator
	radiance, hit, err := eval.Evaluate(ray)
	if err != nil || !hit {
		return RadianceResponse{}, err
	}
	return RadianceResponse{Hit: true, Radiance: vecJSON(radiance), Shaded: vecJSON(eval.Outgoing(radiance))}, nil
}

// handleInspect casts a ray through pixel (x, y) of the preview camera,
// /api/inspect?x=&y=&width=&height=
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	config := s.result.Camera

	width, err := parseIntParam(query, "width", config.Width, 1, 4096)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	height, err := parseIntParam(query, "height", config.Height(), 1, 4096)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	x, err := parseIntParam(query, "x", width/2, 0, width-1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	y, err := parseIntParam(query, "y", height/2, 0, height-1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	config.Width = width
	config.AspectRatio = float64(width) / float64(height)
	camera := renderer.NewCamera(config)
	// Pixel center, row 0 at the top
	ray := camera.GetRay((float64(x)+0.5)/float64(width), 1-(float64(y)+0.5)/float64(height))

	its, hit := s.result.Scene.Intersect(ray)
	if !hit {
		s.writeJSON(w, http.StatusOK, InspectResponse{})
		return
	}
	resp, err := s.radiance(ray)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, InspectResponse{
		RadianceResponse: resp,
		Point:            vecJSON(its.Point),
		Normal:           vecJSON(its.Normal),
		Distance:         its.T,
		Vertices:         its.Indices,
		Barycentric:      vecJSON(its.Barycentric),
	})
}
