package metadata

import "fmt"

/**
 * @brief Resolves shader binaries by their path relative to the shader root,
 * e.g. "cameraSpaceLight/opaque.frag.spv".
 */
type ShaderLoader interface {
	LoadShader(path string) ([]byte, error)
}

// LoadStages fills in the code of every stage of config.
func LoadStages(loader ShaderLoader, config *PipelineConfig) error {
	for i := range config.Stages {
		code, err := loader.LoadShader(config.Stages[i].Path)
		if err != nil {
			return fmt.Errorf("pipeline %s: %w", config.Name, err)
		}
		config.Stages[i].Code = code
	}
	return nil
}
