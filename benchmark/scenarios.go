package benchmark

// Scenario names one benchmark run.
type Scenario struct {
	Name       string `json:"name"`
	ModelPath  string `json:"model_path"`
	Provider   string `json:"provider"`
	Iterations int    `json:"iterations"`
	WarmupRuns int    `json:"warmup_runs"`
}

// ScenarioBuilder builds scenarios with a fluent API.
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder returns a builder with 100 iterations and 10 warmup runs.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Provider:   "cpu",
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithModel sets the model path.
func (sb *ScenarioBuilder) WithModel(path string) *ScenarioBuilder {
	sb.scenario.ModelPath = path
	return sb
}

// WithProvider sets the execution provider name.
func (sb *ScenarioBuilder) WithProvider(provider string) *ScenarioBuilder {
	sb.scenario.Provider = provider
	return sb
}

// WithIterations sets the number of measured runs.
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of unmeasured runs.
func (sb *ScenarioBuilder) WithWarmupRuns(runs int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = runs
	return sb
}

// Build returns the scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}
