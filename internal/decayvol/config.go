package decayvol

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type UnitsCfg struct {
	Length string `json:"length" mapstructure:"length"`
	Angle  string `json:"angle" mapstructure:"angle"`
	Time   string `json:"time" mapstructure:"time"`
}

// FrameCfg holds the beam → detector parameters under their published names.
// Near2Beam_R and Near2User_T make the first stage, Near2User_R rotates
// about DetCentre_User in the second one.
type FrameCfg struct {
	LengthUnit    string    `json:"lengthUnit" mapstructure:"lengthUnit"`
	AngleUnit     string    `json:"angleUnit" mapstructure:"angleUnit"`
	Near2UserT    []float64 `json:"Near2User_T" mapstructure:"Near2User_T"`
	Near2UserR    []float64 `json:"Near2User_R" mapstructure:"Near2User_R"`
	Near2BeamR    []float64 `json:"Near2Beam_R" mapstructure:"Near2Beam_R"`
	DetCentreUser []float64 `json:"DetCentre_User" mapstructure:"DetCentre_User"`
}

type BoxCfg struct {
	Unit        string    `json:"unit" mapstructure:"unit"`
	HalfExtents []float64 `json:"halfExtents" mapstructure:"halfExtents"`
	Origin      []float64 `json:"origin" mapstructure:"origin"`
}

type SolidVolumeCfg struct {
	File        string  `json:"file" mapstructure:"file"`
	WorldMargin float64 `json:"worldMargin" mapstructure:"worldMargin"` // geometry units
}

// MarchCfg lengths are in metres.
type MarchCfg struct {
	Margin         float64 `json:"margin" mapstructure:"margin"`
	MaxStep        float64 `json:"maxStep" mapstructure:"maxStep"`
	MinStep        float64 `json:"minStep" mapstructure:"minStep"`
	ShortChordStep float64 `json:"shortChordStep" mapstructure:"shortChordStep"`
	StepLimit      float64 `json:"stepLimit" mapstructure:"stepLimit"`
	MaxIterations  int     `json:"maxIterations" mapstructure:"maxIterations"`
}

type VolumeCfg struct {
	Kind  string         `json:"kind" mapstructure:"kind"` // box or solid
	Box   BoxCfg         `json:"box" mapstructure:"box"`
	Solid SolidVolumeCfg `json:"solid" mapstructure:"solid"`
	March MarchCfg       `json:"march" mapstructure:"march"`
}

type EngineCfg struct {
	MaxRetries     int  `json:"maxRetries" mapstructure:"maxRetries"`
	RotateMomentum bool `json:"rotateMomentum" mapstructure:"rotateMomentum"`
}

type SourceCfg struct {
	Unit         string    `json:"unit" mapstructure:"unit"`
	Origin       []float64 `json:"origin" mapstructure:"origin"`
	Axis         []float64 `json:"axis" mapstructure:"axis"`
	AngleDeg     float64   `json:"angleDeg" mapstructure:"angleDeg"`
	PipeLength   float64   `json:"pipeLength" mapstructure:"pipeLength"`
	Mass         float64   `json:"mass" mapstructure:"mass"`
	PMin         float64   `json:"pMin" mapstructure:"pMin"`
	PMax         float64   `json:"pMax" mapstructure:"pMax"`
	Lifetime     float64   `json:"lifetime" mapstructure:"lifetime"`
	LifetimeUnit string    `json:"lifetimeUnit" mapstructure:"lifetimeUnit"`
}

type RunCfg struct {
	Events      int    `json:"events" mapstructure:"events"`
	ProbeEvents int    `json:"probeEvents" mapstructure:"probeEvents"`
	Workers     int    `json:"workers" mapstructure:"workers"`
	Seed        string `json:"seed" mapstructure:"seed"`
	Out         string `json:"out" mapstructure:"out"`
	OutputUnit  string `json:"outputUnit" mapstructure:"outputUnit"`
}

type Config struct {
	LogLevel string    `json:"logLevel" mapstructure:"logLevel"`
	Units    UnitsCfg  `json:"units" mapstructure:"units"`
	Frame    FrameCfg  `json:"frame" mapstructure:"frame"`
	Volume   VolumeCfg `json:"volume" mapstructure:"volume"`
	Engine   EngineCfg `json:"engine" mapstructure:"engine"`
	Source   SourceCfg `json:"source" mapstructure:"source"`
	Run      RunCfg    `json:"run" mapstructure:"run"`

	dir string // relative paths resolve against the config file
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")

	v.SetDefault("units.length", "m")
	v.SetDefault("units.angle", "rad")
	v.SetDefault("units.time", "s")

	v.SetDefault("frame.lengthUnit", "m")
	v.SetDefault("frame.angleUnit", "rad")
	v.SetDefault("frame.Near2User_T", []float64{0, 0, 0})
	v.SetDefault("frame.Near2User_R", []float64{0, 0, 0})
	v.SetDefault("frame.Near2Beam_R", []float64{0, 0, 0})
	v.SetDefault("frame.DetCentre_User", []float64{0, 0, 0})

	v.SetDefault("volume.kind", "box")
	v.SetDefault("volume.box.unit", "m")
	v.SetDefault("volume.box.halfExtents", []float64{1, 1, 1})
	v.SetDefault("volume.box.origin", []float64{0, 0, 0})
	v.SetDefault("volume.solid.file", "")
	v.SetDefault("volume.solid.worldMargin", 50.0)
	v.SetDefault("volume.march.margin", DefaultMargin)
	v.SetDefault("volume.march.maxStep", DefaultMaxStep)
	v.SetDefault("volume.march.minStep", DefaultMinStep)
	v.SetDefault("volume.march.shortChordStep", DefaultShortChordStep)
	v.SetDefault("volume.march.stepLimit", DefaultStepLimit)
	v.SetDefault("volume.march.maxIterations", DefaultMaxIterations)

	v.SetDefault("engine.maxRetries", MaxRetries)
	v.SetDefault("engine.rotateMomentum", false)

	v.SetDefault("source.unit", "m")
	v.SetDefault("source.origin", []float64{0, 0, -100})
	v.SetDefault("source.axis", []float64{0, 0, 1})
	v.SetDefault("source.angleDeg", 1.0)
	v.SetDefault("source.pipeLength", 50.0)
	v.SetDefault("source.mass", 0.1)
	v.SetDefault("source.pMin", 1.0)
	v.SetDefault("source.pMax", 10.0)
	v.SetDefault("source.lifetime", 1e-6)
	v.SetDefault("source.lifetimeUnit", "s")

	v.SetDefault("run.events", Events)
	v.SetDefault("run.probeEvents", ProbeEvents)
	v.SetDefault("run.workers", 0)
	v.SetDefault("run.seed", "decayvol")
	v.SetDefault("run.out", OutFile)
	v.SetDefault("run.outputUnit", OutputUnit)
}

// LoadConfig reads a JSON or YAML file (by extension), fills every missing
// key with its default and applies DECAYVOL_* environment overrides.
// An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DECAYVOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if path != "" {
		cfg.dir = filepath.Dir(path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := NewUnits(c.Units.Length, c.Units.Angle, c.Units.Time); err != nil {
		return err
	}
	if _, err := LookupUnit(Length, c.Run.OutputUnit); err != nil {
		return err
	}
	switch c.Volume.Kind {
	case "box":
	case "solid":
		if c.Volume.Solid.File == "" {
			return fmt.Errorf("%w: volume.solid.file is required for a solid volume", ErrPrecondition)
		}
	default:
		return fmt.Errorf("%w: volume.kind must be box or solid, got %q", ErrPrecondition, c.Volume.Kind)
	}
	if c.Run.Events < 0 || c.Run.ProbeEvents < 0 {
		return fmt.Errorf("%w: event counts must be >= 0", ErrPrecondition)
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("%w: engine.maxRetries must be >= 0", ErrPrecondition)
	}
	return nil
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// Build converts the frame parameters to the engine units u.
func (fc FrameCfg) Build(u Units) (FrameTransform, error) {
	lu, err := LookupUnit(Length, fc.LengthUnit)
	if err != nil {
		return FrameTransform{}, err
	}
	au, err := LookupUnit(Angle, fc.AngleUnit)
	if err != nil {
		return FrameTransform{}, err
	}
	shift, err := vec3OrZero("Near2User_T", fc.Near2UserT)
	if err != nil {
		return FrameTransform{}, err
	}
	centre, err := vec3OrZero("DetCentre_User", fc.DetCentreUser)
	if err != nil {
		return FrameTransform{}, err
	}
	beam, err := AnglesFromSlice("Near2Beam_R", fc.Near2BeamR)
	if err != nil {
		return FrameTransform{}, err
	}
	det, err := AnglesFromSlice("Near2User_R", fc.Near2UserR)
	if err != nil {
		return FrameTransform{}, err
	}
	kl := lu.Factor / u.Length.Factor
	ka := au.Factor / u.Angle.Factor
	return NewFrameTransform(beam.Mul(ka), shift.Mul(kl), det.Mul(ka), centre.Mul(kl), u), nil
}

func (bc BoxCfg) Build(u Units) (*BoxIntersector, error) {
	lu, err := LookupUnit(Length, bc.Unit)
	if err != nil {
		return nil, err
	}
	half, err := vec3FromSlice("halfExtents", bc.HalfExtents)
	if err != nil {
		return nil, err
	}
	origin, err := vec3OrZero("origin", bc.Origin)
	if err != nil {
		return nil, err
	}
	k := lu.Factor / u.Length.Factor
	bounds, err := NewVolumeBounds(half.Mul(k), origin.Mul(k))
	if err != nil {
		return nil, err
	}
	return NewBoxIntersector(bounds), nil
}

// Params converts the metre values to u.
func (mc MarchCfg) Params(u Units) MarchParams {
	return MarchParams{
		Margin:         mc.Margin,
		MaxStep:        mc.MaxStep,
		MinStep:        mc.MinStep,
		ShortChordStep: mc.ShortChordStep,
		StepLimit:      mc.StepLimit,
		MaxIterations:  mc.MaxIterations,
	}.scaled(1 / u.Length.Factor)
}

func (sc SourceCfg) Build(u Units) (*Source, error) {
	lu, err := LookupUnit(Length, sc.Unit)
	if err != nil {
		return nil, err
	}
	origin, err := vec3OrZero("source origin", sc.Origin)
	if err != nil {
		return nil, err
	}
	axis, err := vec3FromSlice("source axis", sc.Axis)
	if err != nil {
		return nil, err
	}
	tau, err := u.Lifetime(sc.Lifetime, sc.LifetimeUnit)
	if err != nil {
		return nil, err
	}
	k := lu.Factor / u.Length.Factor
	return NewSource(origin.Mul(k), axis, sc.AngleDeg*degree, sc.PipeLength*k, sc.Mass, sc.PMin, sc.PMax, tau)
}

// Intersector builds the volume strategy selected by Volume.Kind.
func (c *Config) Intersector(u Units, log *zap.Logger) (Intersector, error) {
	if c.Volume.Kind == "box" {
		b, err := c.Volume.Box.Build(u)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	geo, err := LoadGeometry(c.resolve(c.Volume.Solid.File))
	if err != nil {
		return nil, err
	}
	nav, err := geo.Navigator(c.Volume.Solid.WorldMargin)
	if err != nil {
		return nil, err
	}
	log.Info("loaded detector geometry",
		zap.String("name", geo.Name),
		zap.String("unit", geo.Unit),
		zap.Int("solids", len(geo.Solids)),
	)
	m, err := NewMarchIntersector(nav, c.Volume.March.Params(u), u, log)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// BuildEngine wires the engine and the production source from the config.
// The source doubles as the engine's vertex regenerator.
func (c *Config) BuildEngine(log *zap.Logger) (*Engine, *Source, error) {
	log = nopIfNil(log)
	u, err := NewUnits(c.Units.Length, c.Units.Angle, c.Units.Time)
	if err != nil {
		return nil, nil, err
	}
	frame, err := c.Frame.Build(u)
	if err != nil {
		return nil, nil, fmt.Errorf("frame: %w", err)
	}
	isect, err := c.Intersector(u, log)
	if err != nil {
		return nil, nil, fmt.Errorf("volume: %w", err)
	}
	src, err := c.Source.Build(u)
	if err != nil {
		return nil, nil, fmt.Errorf("source: %w", err)
	}
	e, err := NewEngine(u, frame, isect, EngineOptions{
		MaxRetries:     c.Engine.MaxRetries,
		RotateMomentum: c.Engine.RotateMomentum,
		Regenerator:    src,
		Logger:         log,
	})
	if err != nil {
		return nil, nil, err
	}
	return e, src, nil
}
