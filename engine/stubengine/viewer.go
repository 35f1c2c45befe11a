package stubengine

import (
	"context"
	"fmt"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/model"
)

type viewerSession struct {
	scene  *Scene
	opts   engine.ViewerOptions
	built  bool
	closed bool
}

func (v *viewerSession) BuildGeometry() error {
	if v.closed {
		return engine.ErrSceneClosed
	}
	v.built = true
	return nil
}

func (v *viewerSession) SetBackgroundColor(c model.RGB) error {
	if v.closed {
		return engine.ErrSceneClosed
	}
	return nil
}

func (v *viewerSession) SetBackgroundSky(texturePath string) error {
	if v.closed {
		return engine.ErrSceneClosed
	}
	if texturePath == "" {
		return fmt.Errorf("stubengine: empty sky texture path")
	}
	return nil
}

func (v *viewerSession) SetLight(direction model.Vec3, intensity float64) error {
	if v.closed {
		return engine.ErrSceneClosed
	}
	if intensity < 0 {
		return fmt.Errorf("stubengine: negative light intensity %.2f", intensity)
	}
	return nil
}

func (v *viewerSession) SetLightingModel(m engine.LightingModel) error {
	if v.closed {
		return engine.ErrSceneClosed
	}
	switch m {
	case engine.LightingNone, engine.LightingPhong, engine.LightingPhongShadowed:
		return nil
	}
	return fmt.Errorf("stubengine: unknown lighting model %q", m)
}

func (v *viewerSession) AddGridWireframe(center model.Vec3, sizeX, sizeY float64, subdiv int) error {
	if v.closed {
		return engine.ErrSceneClosed
	}
	return nil
}

func (v *viewerSession) SetCamera(position, lookAt model.Vec3) error {
	if v.closed {
		return engine.ErrSceneClosed
	}
	return nil
}

// Show returns immediately: the stub is headless, there is no window to
// wait on.
func (v *viewerSession) Show(ctx context.Context) error {
	if v.closed {
		return engine.ErrSceneClosed
	}
	if !v.built {
		return fmt.Errorf("stubengine: show before geometry build")
	}
	return ctx.Err()
}

func (v *viewerSession) Close() error {
	v.closed = true
	return nil
}
