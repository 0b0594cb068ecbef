package api

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

type SimulatorResponse struct {
	Running  bool             `json:"running"`
	Families []FamilyResponse `json:"families"`
}

type FamilyResponse struct {
	Family string  `json:"family"`
	Ticks  int64   `json:"ticks"`
	Acted  int64   `json:"acted"`
	Gated  int64   `json:"gated"`
	Idle   int64   `json:"idle"`
	Errors int64   `json:"errors"`
	AvgMs  float64 `json:"avg_ms"`
	P95Ms  float64 `json:"p95_ms"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
