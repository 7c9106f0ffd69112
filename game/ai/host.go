package ai

// Layer is a bitmask used to filter spatial queries.
type Layer uint32

const (
	LayerNone     Layer = 0
	LayerPlayer   Layer = 1 << 0
	LayerEnemy    Layer = 1 << 1
	LayerObstacle Layer = 1 << 2
	LayerAll      Layer = ^Layer(0)
)

// Has reports whether any bit of o is set in l.
func (l Layer) Has(o Layer) bool { return l&o != 0 }

// Entity is the snapshot a spatial query returns for an agent or target.
type Entity struct {
	ID       string
	Position Vec3
	Forward  Vec3
	Faction  int
	Layer    Layer
}

// Hit describes the first obstacle a ray struck.
type Hit struct {
	Point    Vec3
	Distance float64
	EntityID string // empty for static geometry
}

// SpatialQuery answers radius and ray queries over the host's world.
// Implemented by *world.World; declared here to avoid an import cycle.
type SpatialQuery interface {
	OverlapSphere(center Vec3, radius float64, mask Layer) []Entity
	Raycast(origin, dir Vec3, maxDistance float64, mask Layer) (Hit, bool)
}

// Navigator snaps arbitrary points onto walkable space.
type Navigator interface {
	SampleValidPosition(point Vec3, radius float64) (Vec3, bool)
}

// Pather is an optional Navigator extension. Movers that find it follow the
// returned waypoints instead of walking straight at their destination.
type Pather interface {
	FindPath(from, to Vec3) []Vec3
}

// Transform gives read/write access to an agent's pose.
type Transform interface {
	Position() Vec3
	SetPosition(Vec3)
	Forward() Vec3
	SetForward(Vec3)
}

// TargetLocator resolves the entity an agent should react to (normally the
// player). ok is false when there is none, e.g. the player is dead or gone.
type TargetLocator interface {
	Target() (Entity, bool)
}

// TargetFunc adapts a function to TargetLocator.
type TargetFunc func() (Entity, bool)

func (f TargetFunc) Target() (Entity, bool) { return f() }
