package perspective

import "strings"

// Orientation describes how the stored pixels relate to the upright scene.
//
// Values follow the EXIF / camera numbering so raw values from capture
// metadata can be converted with OrientationFromRaw.
type Orientation uint32

const (
	OrientationUp            Orientation = 1
	OrientationUpMirrored    Orientation = 2
	OrientationDown          Orientation = 3
	OrientationDownMirrored  Orientation = 4
	OrientationLeftMirrored  Orientation = 5
	OrientationRight         Orientation = 6
	OrientationRightMirrored Orientation = 7
	OrientationLeft          Orientation = 8
)

var orientationNames = map[Orientation]string{
	OrientationUp:            "up",
	OrientationUpMirrored:    "up-mirrored",
	OrientationDown:          "down",
	OrientationDownMirrored:  "down-mirrored",
	OrientationLeftMirrored:  "left-mirrored",
	OrientationRight:         "right",
	OrientationRightMirrored: "right-mirrored",
	OrientationLeft:          "left",
}

// AllOrientations lists the eight known orientations in raw-value order.
func AllOrientations() []Orientation {
	return []Orientation{
		OrientationUp, OrientationUpMirrored, OrientationDown, OrientationDownMirrored,
		OrientationLeftMirrored, OrientationRight, OrientationRightMirrored, OrientationLeft,
	}
}

// OrientationFromRaw converts a raw camera orientation value.
// Unknown values resolve to OrientationUp.
func OrientationFromRaw(v uint32) Orientation {
	return Orientation(v).Normalize()
}

// ParseOrientation converts a name such as "left" or "down-mirrored".
// Underscores and case are ignored. Unknown names resolve to OrientationUp.
func ParseOrientation(s string) Orientation {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for o, name := range orientationNames {
		if name == key {
			return o
		}
	}
	return OrientationUp
}

// Normalize maps any value outside the eight known orientations to OrientationUp.
func (o Orientation) Normalize() Orientation {
	if _, ok := orientationNames[o]; ok {
		return o
	}
	return OrientationUp
}

// String returns the orientation name.
func (o Orientation) String() string {
	return orientationNames[o.Normalize()]
}

// Mirrored reports whether the orientation includes a horizontal flip.
func (o Orientation) Mirrored() bool {
	switch o {
	case OrientationUpMirrored, OrientationDownMirrored, OrientationLeftMirrored, OrientationRightMirrored:
		return true
	}
	return false
}

// orientationClass groups an orientation with its mirrored variant.
type orientationClass int

const (
	classUp orientationClass = iota
	classDown
	classLeft
	classRight
)

func (o Orientation) class() orientationClass {
	switch o {
	case OrientationDown, OrientationDownMirrored:
		return classDown
	case OrientationLeft, OrientationLeftMirrored:
		return classLeft
	case OrientationRight, OrientationRightMirrored:
		return classRight
	default:
		return classUp
	}
}
