package model

// Canonical band names. The optics table, the radiation config, and the
// camera all refer to bands by these labels; registering a band under one
// name and configuring it under another is the classic silent-black-image
// mistake, so everything goes through these constants.
const (
	BandRed   = "Red"
	BandGreen = "Green"
	BandBlue  = "Blue"
	BandNIR   = "NIR"
)

// Band is a named spectral interval in nanometres.
type Band struct {
	Name  string
	MinNm float64
	MaxNm float64
}

// BandSet is the ordered set of bands a run registers and renders.
type BandSet []Band

// Names returns the band labels in set order.
func (b BandSet) Names() []string {
	names := make([]string, 0, len(b))
	for _, band := range b {
		names = append(names, band.Name)
	}
	return names
}

// Contains reports whether the set carries a band with the given name.
func (b BandSet) Contains(name string) bool {
	for _, band := range b {
		if band.Name == name {
			return true
		}
	}
	return false
}

// RGBBands returns the visible three-band set an RGB camera renders.
func RGBBands() BandSet {
	return BandSet{
		{Name: BandRed, MinNm: 620, MaxNm: 750},
		{Name: BandGreen, MinNm: 495, MaxNm: 570},
		{Name: BandBlue, MinNm: 450, MaxNm: 495},
	}
}

// MultispectralBands returns the four-band set for multispectral imagery:
// visible RGB plus near-infrared.
func MultispectralBands() BandSet {
	return append(RGBBands(), Band{Name: BandNIR, MinNm: 750, MaxNm: 1400})
}
