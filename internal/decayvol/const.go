package decayvol

const (
	MaxRetries    = 20     // production vertex regenerations before a trajectory is declared lost
	SentinelCoord = -999.9 // every component of the vertex reported for a failed event
	// boundary march defaults, in metres
	DefaultMargin         = 0.1
	DefaultMaxStep        = 0.1 // cap on the first interior step (the step itself is half of it)
	DefaultMinStep        = 0.01
	DefaultShortChordStep = 0.05
	DefaultStepLimit      = 1e4
	DefaultMaxIterations  = 10_000
	DefaultWorldMargin    = 0.5
	// navigator
	SDFTolerance  = 1e-7 // relative to the world box diagonal
	SDFMaxSteps   = 1_000_000
	SDFBisections = 64
	// run defaults
	Events      = 10_000
	ProbeEvents = 10_000
	OutFile     = "decays.jsonl"
	OutputUnit  = "m"
)
