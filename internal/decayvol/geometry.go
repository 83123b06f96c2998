package decayvol

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gopkg.in/yaml.v3"
)

// SolidCfg is one primitive of a detector description. Subtract carves the
// primitive out of the union of all additive ones.
type SolidCfg struct {
	Shape    string    `json:"shape" yaml:"shape"` // box, sphere, cylinder
	Size     []float64 `json:"size,omitempty" yaml:"size,omitempty"`
	Radius   float64   `json:"radius,omitempty" yaml:"radius,omitempty"`
	Height   float64   `json:"height,omitempty" yaml:"height,omitempty"`
	Round    float64   `json:"round,omitempty" yaml:"round,omitempty"`
	Center   []float64 `json:"center,omitempty" yaml:"center,omitempty"`
	RotDeg   []float64 `json:"rotDeg,omitempty" yaml:"rotDeg,omitempty"` // about x, y, z
	Subtract bool      `json:"subtract,omitempty" yaml:"subtract,omitempty"`
}

// GeometryCfg describes a detector as a set of primitives in one length unit.
type GeometryCfg struct {
	Name   string     `json:"name" yaml:"name"`
	Unit   string     `json:"unit" yaml:"unit"`
	Solids []SolidCfg `json:"solids" yaml:"solids"`
}

// DecodeGeometryJSON reads a geometry description from JSON.
func DecodeGeometryJSON(r io.Reader) (*GeometryCfg, error) {
	var g GeometryCfg
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// DecodeGeometryYAML reads a geometry description from YAML.
func DecodeGeometryYAML(r io.Reader) (*GeometryCfg, error) {
	var g GeometryCfg
	if err := yaml.NewDecoder(r).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadGeometry picks the decoder from the file extension.
func LoadGeometry(path string) (*GeometryCfg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var g *GeometryCfg
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		g, err = DecodeGeometryJSON(f)
	default:
		g, err = DecodeGeometryYAML(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding geometry %s: %w", path, err)
	}
	if g.Unit == "" {
		g.Unit = "cm"
	}
	return g, nil
}

// Build validates and constructs the primitive in place.
func (s SolidCfg) Build() (sdf.SDF3, error) {
	var (
		solid sdf.SDF3
		err   error
	)
	switch strings.ToLower(s.Shape) {
	case "box":
		size, e := vec3FromSlice("box size", s.Size)
		if e != nil {
			return nil, e
		}
		solid, err = sdf.Box3D(v3.Vec{X: size[0], Y: size[1], Z: size[2]}, s.Round)
	case "sphere":
		solid, err = sdf.Sphere3D(s.Radius)
	case "cylinder":
		solid, err = sdf.Cylinder3D(s.Height, s.Radius, s.Round)
	default:
		return nil, fmt.Errorf("%w: unknown shape %q", ErrPrecondition, s.Shape)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPrecondition, s.Shape, err)
	}

	center, err := vec3OrZero("center", s.Center)
	if err != nil {
		return nil, err
	}
	rot, err := vec3OrZero("rotDeg", s.RotDeg)
	if err != nil {
		return nil, err
	}
	const k = math.Pi / 180
	m := sdf.Translate3d(v3.Vec{X: center[0], Y: center[1], Z: center[2]}).
		Mul(sdf.RotateZ(rot[2] * k)).
		Mul(sdf.RotateY(rot[1] * k)).
		Mul(sdf.RotateX(rot[0] * k))
	return sdf.Transform3D(solid, m), nil
}

// Build unions every additive solid and removes the subtracted ones.
func (g *GeometryCfg) Build() (sdf.SDF3, error) {
	var add, sub []sdf.SDF3
	for i, sc := range g.Solids {
		s, err := sc.Build()
		if err != nil {
			return nil, fmt.Errorf("solid #%d: %w", i, err)
		}
		if sc.Subtract {
			sub = append(sub, s)
		} else {
			add = append(add, s)
		}
	}
	if len(add) == 0 {
		return nil, ErrEmptyGeometry
	}
	solid := add[0]
	if len(add) > 1 {
		solid = sdf.Union3D(add...)
	}
	if len(sub) > 0 {
		cut := sub[0]
		if len(sub) > 1 {
			cut = sdf.Union3D(sub...)
		}
		solid = sdf.Difference3D(solid, cut)
	}
	return solid, nil
}

// Navigator builds the solid and wraps it for boundary queries.
func (g *GeometryCfg) Navigator(worldMargin float64) (*SDFNavigator, error) {
	solid, err := g.Build()
	if err != nil {
		return nil, err
	}
	return NewSDFNavigator(solid, g.Unit, worldMargin)
}
