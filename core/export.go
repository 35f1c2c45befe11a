package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/internal/logging"
)

// exportScene writes the requested mesh formats into the run directory.
// Formats fail independently; the stage reports an error only when at least
// one requested format could not be written.
func (p *Pipeline) exportScene(ctx context.Context, scene engine.Scene, st *RunState, log logging.Logger) error {
	runDir, err := p.ensureOutputDir(st)
	if err != nil {
		return fmt.Errorf("allocating run dir: %w", err)
	}

	var errs []error
	if p.cfg.Export.PLY {
		path := filepath.Join(runDir, PLYName)
		if werr := scene.WritePLY(path); werr != nil {
			log.Error(ctx, "ply export failed", logging.Err(werr))
			errs = append(errs, fmt.Errorf("ply: %w", werr))
		} else {
			log.Info(ctx, "mesh exported", logging.String("path", path))
		}
	}
	if p.cfg.Export.OBJ {
		path := filepath.Join(runDir, OBJName)
		if werr := scene.WriteOBJ(path); werr != nil {
			log.Error(ctx, "obj export failed", logging.Err(werr))
			errs = append(errs, fmt.Errorf("obj: %w", werr))
		} else {
			log.Info(ctx, "mesh exported", logging.String("path", path))
		}
	}
	if !p.cfg.Export.PLY && !p.cfg.Export.OBJ {
		log.Debug(ctx, "no mesh formats requested")
	}
	return errors.Join(errs...)
}
