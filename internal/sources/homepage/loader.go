package homepage

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"gopkg.in/yaml.v3"
)

// Kind selects which Homepage file a Loader reads.
type Kind int

const (
	Bookmarks Kind = iota // bookmarks.yaml
	Services              // services.yaml
)

// Loader reads a Homepage config file and exposes it as an external tree:
// every group is a folder, every entry with an href a link.
type Loader struct {
	filePath string
	kind     Kind
}

func NewLoader(filePath string, kind Kind) *Loader {
	return &Loader{
		filePath: filePath,
		kind:     kind,
	}
}

func (l *Loader) Path() string { return l.filePath }

func (l *Loader) Load(_ context.Context) (domain.ExternalTree, error) {
	switch l.kind {
	case Services:
		var cfg ServicesConfig
		if err := readYAML(l.filePath, &cfg); err != nil {
			return nil, err
		}
		return ServicesTree(cfg), nil
	default:
		var cfg BookmarksConfig
		if err := readYAML(l.filePath, &cfg); err != nil {
			return nil, err
		}
		return BookmarksTree(cfg), nil
	}
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read homepage file: %w", err)
	}

	// Strip Homepage template variables ({{HOMEPAGE_VAR_...}})
	data = stripTemplateVariables(data)

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse homepage yaml: %w", err)
	}
	return nil
}

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// stripTemplateVariables removes Homepage template variables from YAML
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
