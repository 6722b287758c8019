package rubric

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/kapu/sales-skills-engine/internal/domain"
)

//go:embed data/rubrics.json
var embeddedRubrics []byte

// FileSource serves rubric sets decoded from a JSON document.
type FileSource struct {
	sets map[string]domain.RubricSet
}

// NewEmbeddedSource serves the rubric catalog compiled into the binary.
func NewEmbeddedSource(defaultSet string) (*FileSource, error) {
	sets, err := ParseDocument(embeddedRubrics, defaultSet)
	if err != nil {
		return nil, err
	}
	return &FileSource{sets: sets}, nil
}

func NewFileSource(path, defaultSet string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric file: %w", err)
	}
	sets, err := ParseDocument(data, defaultSet)
	if err != nil {
		return nil, err
	}
	return &FileSource{sets: sets}, nil
}

func (f *FileSource) Load(_ context.Context, setKey string) (domain.RubricSet, error) {
	set, ok := f.sets[setKey]
	if !ok {
		return nil, loadError(setKey, ErrSetNotFound)
	}
	return set, nil
}

// Sets exposes every set in the document, used to seed a database.
func (f *FileSource) Sets() map[string]domain.RubricSet {
	return f.sets
}
