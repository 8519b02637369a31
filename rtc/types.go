package rtc

// Point2D is a position in the plane.
type Point2D struct {
	X float64
	Y float64
}

// Pose2D is a planar position with a heading in radians.
type Pose2D struct {
	Position Point2D
	Heading  float64
}

// Velocity2D is a planar velocity. Va is the angular velocity in rad/s.
type Velocity2D struct {
	Vx float64
	Vy float64
	Va float64
}

// TimedPose2D is a stamped Pose2D sample.
type TimedPose2D struct {
	Tm   Time
	Data Pose2D
}

// TimedVelocity2D is a stamped Velocity2D sample.
type TimedVelocity2D struct {
	Tm   Time
	Data Velocity2D
}

// DataTypeName returns the interface name the framework advertises for a
// port carrying v.
func DataTypeName(v interface{}) string {
	switch v.(type) {
	case TimedPose2D, *TimedPose2D:
		return "RTC::TimedPose2D"
	case TimedVelocity2D, *TimedVelocity2D:
		return "RTC::TimedVelocity2D"
	default:
		return "unknown"
	}
}
