package classifier

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// LabelEncoder maps class indices back to crop names.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// LoadLabels reads a label encoder artifact.
func LoadLabels(path string) (*LabelEncoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label encoder %s: %w", path, err)
	}

	var le LabelEncoder
	if err := json.Unmarshal(data, &le); err != nil {
		return nil, fmt.Errorf("%w: label encoder: %v", ErrInvalidModel, err)
	}
	if len(le.Classes) == 0 {
		return nil, fmt.Errorf("%w: label encoder has no classes", ErrInvalidModel)
	}
	seen := make(map[string]bool, len(le.Classes))
	for i, c := range le.Classes {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("%w: empty label at index %d", ErrInvalidModel, i)
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidModel, c)
		}
		seen[c] = true
	}
	return &le, nil
}

// InverseTransform returns the crop name for a class index.
func (le *LabelEncoder) InverseTransform(i int) string {
	return le.Classes[i]
}

// Len returns the number of classes.
func (le *LabelEncoder) Len() int {
	return len(le.Classes)
}

// Model pairs a classifier with its label encoder.
type Model struct {
	Classifier Probabilistic
	Labels     *LabelEncoder
}

// Load reads both artifacts and checks that they agree on the label space.
// Callers treat any error as fatal.
func Load(modelPath, labelsPath string) (*Model, error) {
	forest, err := LoadForest(modelPath)
	if err != nil {
		return nil, err
	}
	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	return NewModel(forest, labels)
}

// NewModel validates that clf and labels cover the same classes.
func NewModel(clf Probabilistic, labels *LabelEncoder) (*Model, error) {
	if clf.NumClasses() != labels.Len() {
		return nil, fmt.Errorf("%w: model has %d classes but label encoder has %d",
			ErrInvalidModel, clf.NumClasses(), labels.Len())
	}
	return &Model{Classifier: clf, Labels: labels}, nil
}
