package rubric

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kapu/sales-skills-engine/internal/domain"
	engineerrors "github.com/kapu/sales-skills-engine/pkg/errors"
)

// ErrSetNotFound is returned by a Source that has no set under the requested key.
var ErrSetNotFound = errors.New("rubric set not found")

// Source loads a versioned rubric catalog.
type Source interface {
	Load(ctx context.Context, setKey string) (domain.RubricSet, error)
}

func loadError(setKey string, cause error) error {
	return engineerrors.NewServiceError(fmt.Sprintf("Could not load rubrics for %s", setKey), "rubric", "load", cause)
}

// ParseDocument accepts either {setKey: RubricSet} or a bare RubricSet, which
// is filed under defaultSet.
func ParseDocument(data []byte, defaultSet string) (map[string]domain.RubricSet, error) {
	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rubric document: %w", err)
	}

	bare := len(doc) > 0
	for _, v := range doc {
		if _, ok := v["skills"]; !ok {
			bare = false
			break
		}
	}

	if bare {
		var set domain.RubricSet
		if err := json.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("decode rubric set: %w", err)
		}
		return map[string]domain.RubricSet{defaultSet: set}, nil
	}

	var sets map[string]domain.RubricSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("decode rubric sets: %w", err)
	}
	return sets, nil
}
