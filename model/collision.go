package model

// OrganSelection picks which organ classes participate in collision
// avoidance during growth.
type OrganSelection struct {
	Internodes bool
	Leaves     bool
	Petioles   bool
	Flowers    bool
	Fruit      bool
}

// CollisionConfig tunes the growth engine's soft collision avoidance. Zero
// value means collision handling disabled.
type CollisionConfig struct {
	Enabled bool

	// ViewHalfAngleDeg is the half-angle of the detection cone an organ
	// sweeps ahead of its growth direction.
	ViewHalfAngleDeg float64
	// LookAheadM is how far ahead of the organ tip the cone reaches.
	LookAheadM float64
	// SampleCount is the number of rays cast per detection cone.
	SampleCount int
	// Inertia weights the previous growth direction against the avoidance
	// correction; 0 turns instantly, 1 never turns.
	Inertia float64
	// GroundClearanceM is the minimum height organs keep above registered
	// ground obstacles.
	GroundClearanceM float64
	// PruneAtObstacle removes organs that penetrate a solid obstacle.
	PruneAtObstacle bool
	// FruitAdjustment relocates fruit that would rest below an obstacle.
	FruitAdjustment bool

	Organs OrganSelection
}

// DefaultCollision returns the avoidance tuning used for dense field plots:
// structural organs steer, reproductive organs do not.
func DefaultCollision() CollisionConfig {
	return CollisionConfig{
		Enabled:          true,
		ViewHalfAngleDeg: 70,
		LookAheadM:       0.08,
		SampleCount:      256,
		Inertia:          0.3,
		GroundClearanceM: 0.1,
		PruneAtObstacle:  true,
		FruitAdjustment:  true,
		Organs: OrganSelection{
			Internodes: true,
			Leaves:     true,
		},
	}
}
