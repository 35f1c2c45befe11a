package model

// CameraProperties describes a radiation-camera sensor.
type CameraProperties struct {
	WidthPx  int
	HeightPx int
	FOVDeg   float64
	// FocalPlaneDist is the focus distance in metres, normally the camera
	// height for a nadir view.
	FocalPlaneDist float64
	// LensDiameter in metres; 0 selects an ideal pinhole, in focus at
	// every distance.
	LensDiameter float64
}

// DefaultCameraProperties returns the nadir sensor used for training
// imagery. FocalPlaneDist is filled in once the camera height is known.
func DefaultCameraProperties() CameraProperties {
	return CameraProperties{
		WidthPx:  1024,
		HeightPx: 1024,
		FOVDeg:   60,
	}
}
