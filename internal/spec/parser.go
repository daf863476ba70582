package spec

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parser reads and decodes experiment spec files, with ${VAR}/$VAR
// substitution against parser-set variables falling back to the process
// environment. Adapted from the teacher's pkg/scenario/parser/parser.go.
type Parser struct {
	Variables map[string]string
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// New creates a Parser seeded with vars (may be nil).
func New(vars map[string]string) *Parser {
	if vars == nil {
		vars = make(map[string]string)
	}
	return &Parser{Variables: vars}
}

// SetVariable records a substitution variable.
func (p *Parser) SetVariable(key, value string) { p.Variables[key] = value }

// ParseFile reads path and parses it as an experiment Spec.
func (p *Parser) ParseFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("spec: read %s: %w", path, err)
	}
	return p.Parse(data)
}

// Parse substitutes variables into data and unmarshals it into a Spec,
// applying the required-field validation every parse must satisfy.
func (p *Parser) Parse(data []byte) (*Spec, error) {
	substituted := p.substituteVariables(string(data))

	var raw struct {
		Experiment struct {
			Responses  []ResponseSpec           `yaml:"responses"`
			Treatments []map[string]rawTreatment `yaml:"treatments"`
			SUE        SUESpec                  `yaml:"sue"`
			Loadgen    LoadgenSpec              `yaml:"loadgen"`
		} `yaml:"experiment"`
	}

	if err := yaml.Unmarshal([]byte(substituted), &raw); err != nil {
		return nil, fmt.Errorf("spec: yaml unmarshal: %w", err)
	}

	s := &Spec{Experiment: Experiment{
		Responses: raw.Experiment.Responses,
		SUE:       raw.Experiment.SUE,
		Loadgen:   raw.Experiment.Loadgen,
	}}

	for _, entry := range raw.Experiment.Treatments {
		for name, t := range entry {
			s.Experiment.Treatments = append(s.Experiment.Treatments, TreatmentSpec{
				Name:   name,
				Action: t.Action,
				Params: t.Params,
			})
		}
	}

	if err := validateRequiredFields(s); err != nil {
		return nil, err
	}

	return s, nil
}

type rawTreatment struct {
	Action string                 `yaml:"action"`
	Params map[string]interface{} `yaml:"params"`
}

func (p *Parser) substituteVariables(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		if v, ok := p.Variables[name]; ok {
			return v
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// ParseOverrides splits "key=value" CLI override strings into a map.
func (p *Parser) ParseOverrides(overrides []string) (map[string]string, error) {
	result := make(map[string]string, len(overrides))
	for _, o := range overrides {
		parts := strings.SplitN(o, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("spec: invalid override %q, expected key=value", o)
		}
		result[parts[0]] = parts[1]
	}
	return result, nil
}

// validateRequiredFields accumulates, rather than fail-fasts on, missing
// required fields — mirroring the accumulate-then-report pattern used
// throughout oxn's validation layers.
func validateRequiredFields(s *Spec) error {
	var messages []string
	add := func(format string, args ...interface{}) {
		messages = append(messages, fmt.Sprintf(format, args...))
	}

	if len(s.Experiment.Responses) == 0 {
		add("experiment.responses must have at least one entry")
	}
	for i, r := range s.Experiment.Responses {
		if r.Name == "" {
			add("experiment.responses[%d].name is required", i)
		}
		if r.Type != "metric" && r.Type != "trace" {
			add("experiment.responses[%d].type must be 'metric' or 'trace'", i)
		}
	}
	if s.Experiment.SUE.Compose == "" {
		add("experiment.sue.compose is required")
	}
	if s.Experiment.Loadgen.RunTime == "" {
		add("experiment.loadgen.run_time is required")
	}
	if len(s.Experiment.Loadgen.Tasks) == 0 {
		add("experiment.loadgen.tasks must have at least one entry")
	}
	for i, t := range s.Experiment.Treatments {
		if t.Action == "" {
			add("experiment.treatments[%d] (%s) requires an action", i, t.Name)
		}
	}

	if len(messages) > 0 {
		return fmt.Errorf("Can't validate experiment spec: %s", strings.Join(messages, "\n"))
	}
	return nil
}
