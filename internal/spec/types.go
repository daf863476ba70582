// Package spec defines oxn's experiment specification data model, matching
// spec.md §6's literal YAML schema — which is the ORIGINAL Python
// implementation's flat `experiment:`-rooted shape
// (original_source/oxn/validation.py's syntactic_schema), not the teacher's
// Kubernetes-style apiVersion/kind/metadata/spec envelope. The teacher's
// scenario.Scenario (pkg/scenario/types.go) is not reused for the top-level
// shape for that reason; its per-field YAML-tag style and duration
// conventions are kept where they still apply.
package spec

// Spec is the top-level, unmarshaled experiment document.
type Spec struct {
	Experiment Experiment `yaml:"experiment"`
}

// Experiment holds the four sections named in spec.md §6.
type Experiment struct {
	Responses  []ResponseSpec  `yaml:"responses"`
	Treatments []TreatmentSpec `yaml:"treatments,omitempty"`
	SUE        SUESpec         `yaml:"sue"`
	Loadgen    LoadgenSpec     `yaml:"loadgen"`
}

// ResponseSpec describes one metric or trace response variable.
type ResponseSpec struct {
	Name        string                 `yaml:"name"`
	Type        string                 `yaml:"type"` // "metric" | "trace"
	Description map[string]interface{} `yaml:"description"`
}

// TreatmentSpec is a single named treatment entry: `name: {action, params}`.
// The original models this as a mapping-of-one; oxn keeps the same shape in
// Go via a Name field populated by the parser from the map key.
type TreatmentSpec struct {
	Name   string                 `yaml:"-"`
	Action string                 `yaml:"action"`
	Params map[string]interface{} `yaml:"params"`
}

// SUESpec describes the system-under-experiment's docker-compose file and
// include/exclude service filters.
type SUESpec struct {
	Compose string   `yaml:"compose"`
	Exclude []string `yaml:"exclude,omitempty"`
	Include []string `yaml:"include,omitempty"`
}

// LoadgenSpec describes the synthetic load generator's configuration.
type LoadgenSpec struct {
	RunTime    string           `yaml:"run_time"`
	Sequential bool             `yaml:"sequential,omitempty"`
	Stages     []LoadgenStage   `yaml:"stages,omitempty"`
	Tasks      []LoadgenTask    `yaml:"tasks"`
}

// LoadgenStage is one entry in the ramp-up stage shape function.
type LoadgenStage struct {
	Duration   int `yaml:"duration"`
	Users      int `yaml:"users"`
	SpawnRate  int `yaml:"spawn_rate"`
}

// LoadgenTask describes a weighted HTTP request the load generator issues.
type LoadgenTask struct {
	Name     string                 `yaml:"name,omitempty"`
	Endpoint string                 `yaml:"endpoint"`
	Verb     string                 `yaml:"verb"`
	Weight   int                    `yaml:"weight,omitempty"`
	Params   map[string]interface{} `yaml:"params,omitempty"`
}

// MetricDescription extracts the metric-kind ResponseSpec.Description
// fields defined in responses.py's MetricResponseVariable.
type MetricDescription struct {
	MetricName  string            `yaml:"metric_name"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Step        int               `yaml:"step,omitempty"`
	LeftWindow  string            `yaml:"left_window"`
	RightWindow string            `yaml:"right_window"`
}

// TraceDescription extracts the trace-kind ResponseSpec.Description fields
// defined in responses.py's TraceResponseVariable.
type TraceDescription struct {
	ServiceName string `yaml:"service_name"`
	Limit       int    `yaml:"limit,omitempty"`
	LeftWindow  string `yaml:"left_window"`
	RightWindow string `yaml:"right_window"`
}

// DecodeMetricDescription re-marshals a generic description map into a
// MetricDescription; used by internal/observer when Type == "metric".
func DecodeMetricDescription(m map[string]interface{}) MetricDescription {
	d := MetricDescription{Step: 1}
	if v, ok := m["metric_name"].(string); ok {
		d.MetricName = v
	}
	if v, ok := m["left_window"].(string); ok {
		d.LeftWindow = v
	}
	if v, ok := m["right_window"].(string); ok {
		d.RightWindow = v
	}
	if v, ok := m["step"].(int); ok {
		d.Step = v
	}
	if v, ok := m["labels"].(map[string]interface{}); ok {
		d.Labels = make(map[string]string, len(v))
		for k, val := range v {
			if s, ok := val.(string); ok {
				d.Labels[k] = s
			}
		}
	}
	return d
}

// DecodeTraceDescription is the trace-kind analog of DecodeMetricDescription.
func DecodeTraceDescription(m map[string]interface{}) TraceDescription {
	d := TraceDescription{Limit: 100}
	if v, ok := m["service_name"].(string); ok {
		d.ServiceName = v
	}
	if v, ok := m["left_window"].(string); ok {
		d.LeftWindow = v
	}
	if v, ok := m["right_window"].(string); ok {
		d.RightWindow = v
	}
	if v, ok := m["limit"].(int); ok {
		d.Limit = v
	}
	return d
}
