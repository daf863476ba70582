package orchestrator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// composeFile is a minimal parse of a docker-compose file sufficient to
// enumerate service names and each service's container_name. No
// compose-parsing library is present anywhere in the example pack (the
// original shells out to python-on-whales's compose.config), so oxn reads
// the handful of fields it needs directly with gopkg.in/yaml.v3 and
// otherwise drives docker-compose through the CLI via os/exec.
type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	ContainerName string `yaml:"container_name"`
}

func loadComposeFile(path string) (*composeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read compose file %s: %w", path, err)
	}
	var cf composeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("orchestrator: parse compose file %s: %w", path, err)
	}
	return &cf, nil
}
