package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/internal/logging"
	"github.com/agrisight/intercrop-scenegen/model"
)

// GroundLabel is the segmentation label written on soil primitives.
const GroundLabel = "ground"

// LabelAssignment describes one labeling pass over a scene: which primitives
// are ground, which belong to which plant instance, and what species each
// instance is.
type LabelAssignment struct {
	// DataKey is the string-data key the labels are written under.
	DataKey string

	Ground        []engine.PrimitiveID
	Species       map[engine.PlantID]model.Species
	InstancePrims map[engine.PlantID][]engine.PrimitiveID

	// Fallback labels primitives that belong to no tracked instance and are
	// not ground. A growth engine may emit support geometry outside any
	// instance's identity range; those primitives get the fallback species.
	Fallback model.Species
}

// AssignLabels writes per-primitive species labels onto the scene and
// returns how many primitives needed the fallback label. A non-zero count is
// logged as a warning; it means the scene contains geometry the instance
// bookkeeping did not account for.
func AssignLabels(ctx context.Context, scene engine.Scene, a LabelAssignment, log logging.Logger) (int, error) {
	if a.DataKey == "" {
		return 0, fmt.Errorf("empty label data key")
	}
	if !a.Fallback.Valid() {
		return 0, fmt.Errorf("fallback species %q unknown", a.Fallback)
	}
	if log == nil {
		log = logging.Noop()
	}

	claimed := make(map[engine.PrimitiveID]bool)
	if len(a.Ground) > 0 {
		if err := scene.SetString(a.Ground, a.DataKey, GroundLabel); err != nil {
			return 0, fmt.Errorf("labeling ground: %w", err)
		}
		for _, id := range a.Ground {
			claimed[id] = true
		}
	}

	// Group instance primitives per species so each label is one write.
	plantIDs := make([]engine.PlantID, 0, len(a.InstancePrims))
	for id := range a.InstancePrims {
		plantIDs = append(plantIDs, id)
	}
	sort.Slice(plantIDs, func(i, j int) bool { return plantIDs[i] < plantIDs[j] })

	bySpecies := make(map[model.Species][]engine.PrimitiveID)
	for _, id := range plantIDs {
		sp, ok := a.Species[id]
		if !ok || !sp.Valid() {
			// No species on record: leave the primitives to the fallback.
			continue
		}
		for _, prim := range a.InstancePrims[id] {
			if claimed[prim] {
				continue
			}
			bySpecies[sp] = append(bySpecies[sp], prim)
			claimed[prim] = true
		}
	}
	for _, sp := range model.KnownSpecies() {
		ids := bySpecies[sp]
		if len(ids) == 0 {
			continue
		}
		if err := scene.SetString(ids, a.DataKey, string(sp)); err != nil {
			return 0, fmt.Errorf("labeling %s: %w", sp, err)
		}
	}

	var leftover []engine.PrimitiveID
	for _, id := range scene.Primitives() {
		if !claimed[id] {
			leftover = append(leftover, id)
		}
	}
	if len(leftover) > 0 {
		if err := scene.SetString(leftover, a.DataKey, string(a.Fallback)); err != nil {
			return 0, fmt.Errorf("labeling fallback: %w", err)
		}
		log.Warn(ctx, "primitives outside instance bookkeeping got the fallback label",
			logging.Int("count", len(leftover)),
			logging.String("species", string(a.Fallback)),
		)
	}
	return len(leftover), nil
}
