package street

import "math"

// Optimize selects how bicycle edges are weighted.
type Optimize uint8

const (
	OptimizeQuick Optimize = iota
	OptimizeSafe
	OptimizeFlat
	OptimizeTriangle
)

// Profile holds the street-relevant routing preferences of a request.
//
// Profile must stay comparable: transfer indexes are cached by Profile value.
type Profile struct {
	Mode     Mode
	Optimize Optimize

	BikeTriangleSafetyFactor float64
	BikeTriangleSlopeFactor  float64
	BikeTriangleTimeFactor   float64

	Wheelchair bool

	WalkSpeed        float64
	BikeSpeed        float64
	BikeWalkingSpeed float64

	WalkReluctance        float64
	StairsReluctance      float64
	StairsTimeFactor      float64
	TurnReluctance        float64
	BikeWalkingReluctance float64

	ElevatorBoardCost int
	ElevatorBoardTime int
	ElevatorHopCost   int
	ElevatorHopTime   int

	BikeSwitchCost int
	BikeSwitchTime int
}

// DefaultProfile returns the walking profile used when a request sets nothing.
func DefaultProfile() Profile {
	return Profile{
		Mode:                  ModeWalk,
		Optimize:              OptimizeQuick,
		WalkSpeed:             1.33,
		BikeSpeed:             5,
		BikeWalkingSpeed:      1.33,
		WalkReluctance:        2,
		StairsReluctance:      2,
		StairsTimeFactor:      3,
		TurnReluctance:        1,
		BikeWalkingReluctance: 5,
		ElevatorBoardCost:     90,
		ElevatorBoardTime:     90,
		ElevatorHopCost:       20,
		ElevatorHopTime:       20,
	}
}

// WithMode returns a copy of p for another street mode.
func (p Profile) WithMode(m Mode) Profile {
	p.Mode = m
	return p
}

// DefaultCarSpeed is used on edges without a speed of their own, in m/s.
const DefaultCarSpeed = 11.2

// Traversal is the outcome of traversing one edge.
type Traversal struct {
	Seconds float64
	Weight  float64
	// WalkingBike is set when a bicycle had to be walked along the edge.
	WalkingBike bool
}

// Traverse computes the time and generalized weight of e for the given traverse mode.
// ok is false when the edge cannot be traversed; such an edge is absent, never free.
func (p Profile) Traverse(e *Edge, mode TraverseMode) (t Traversal, ok bool) {
	if p.Wheelchair && mode != TraverseCar && !e.WheelchairAccessible {
		return Traversal{}, false
	}

	switch e.Kind {
	case EdgeElevatorBoard:
		if mode == TraverseCar {
			return Traversal{}, false
		}
		return Traversal{Seconds: float64(p.ElevatorBoardTime), Weight: float64(p.ElevatorBoardCost)}, true
	case EdgeElevatorHop:
		if mode == TraverseCar {
			return Traversal{}, false
		}
		return Traversal{Seconds: float64(p.ElevatorHopTime), Weight: float64(p.ElevatorHopCost)}, true
	case EdgeStairs:
		if mode == TraverseCar {
			return Traversal{}, false
		}
		return p.walk(e, mode == TraverseBicycle, true)
	}

	switch mode {
	case TraverseWalk:
		if !e.Permission.Allows(PermissionWalk) {
			return Traversal{}, false
		}
		return p.walk(e, false, false)
	case TraverseBicycle:
		if e.Permission.Allows(PermissionBike) {
			return p.ride(e), true
		}
		if e.Permission.Allows(PermissionWalk) {
			return p.walk(e, true, false)
		}
		return Traversal{}, false
	case TraverseCar:
		if !e.Permission.Allows(PermissionCar) {
			return Traversal{}, false
		}
		speed := e.CarSpeed
		if speed <= 0 {
			speed = DefaultCarSpeed
		}
		secs := e.Length / speed
		return Traversal{Seconds: secs, Weight: secs}, true
	}
	return Traversal{}, false
}

func (p Profile) walk(e *Edge, withBike, stairs bool) (Traversal, bool) {
	speed, reluctance := p.WalkSpeed, p.WalkReluctance
	if withBike {
		speed, reluctance = p.BikeWalkingSpeed, p.BikeWalkingReluctance
	}
	if speed <= 0 {
		return Traversal{}, false
	}
	secs := e.Length / speed
	weight := secs * reluctance
	if stairs {
		secs *= p.StairsTimeFactor
		weight = secs * p.StairsReluctance
	}
	t := Traversal{Seconds: secs, Weight: weight, WalkingBike: withBike}
	if withBike {
		t.Seconds += float64(p.BikeSwitchTime)
		t.Weight += float64(p.BikeSwitchCost)
	}
	return t, true
}

func (p Profile) ride(e *Edge) Traversal {
	secs := e.Length / math.Max(p.BikeSpeed, 0.1)
	safety := e.BikeSafety
	if safety <= 0 {
		safety = 1
	}
	factor := 1.0
	switch p.Optimize {
	case OptimizeSafe:
		factor = safety
	case OptimizeTriangle:
		// no elevation data, so the slope part is flat
		factor = p.BikeTriangleTimeFactor + p.BikeTriangleSafetyFactor*safety + p.BikeTriangleSlopeFactor
		if factor <= 0 {
			factor = 1
		}
	}
	return Traversal{Seconds: secs, Weight: secs * factor}
}

// Speed returns the nominal speed of a traverse mode, used for straight-line links.
func (p Profile) Speed(mode TraverseMode) float64 {
	switch mode {
	case TraverseBicycle:
		return p.BikeSpeed
	case TraverseCar:
		return DefaultCarSpeed
	}
	return p.WalkSpeed
}

// Reluctance returns the weight per second of a traverse mode on a plain edge.
func (p Profile) Reluctance(mode TraverseMode) float64 {
	if mode == TraverseWalk {
		return p.WalkReluctance
	}
	return 1
}
