package world

import (
	"math"
	"sort"

	"github.com/kasuganosora/enemyai/game/ai"
	"go.uber.org/zap"
)

// EntityRadius is the collision radius used when rays test entities.
const EntityRadius = 0.5

// ProjectileRange is how far a hit-scan projectile travels.
const ProjectileRange = 40.0

// Box is an axis-aligned obstacle.
type Box struct {
	Min, Max ai.Vec3
}

type cellKey struct{ x, z int }

type body struct {
	ent ai.Entity
	seq uint64
	key cellKey
}

// World is the reference host for the AI core: it stores entity snapshots in
// a uniform spatial hash, holds static box obstacles and tracks the player's
// health. It implements ai.SpatialQuery, enemy.DamageSink and
// enemy.ProjectileLauncher. Not safe for concurrent use; Room serialises
// access.
type World struct {
	cellSize float64
	bodies   map[string]*body
	cells    map[cellKey]map[string]*body
	boxes    []Box
	seq      uint64

	playerID string
	playerHP float64
	logger   *zap.Logger
}

// NewWorld creates an empty world with the given hash cell size.
func NewWorld(cellSize float64, logger *zap.Logger) *World {
	if cellSize <= 0 {
		cellSize = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &World{
		cellSize: cellSize,
		bodies:   make(map[string]*body),
		cells:    make(map[cellKey]map[string]*body),
		logger:   logger,
	}
}

func (w *World) keyOf(p ai.Vec3) cellKey {
	return cellKey{int(math.Floor(p.X / w.cellSize)), int(math.Floor(p.Z / w.cellSize))}
}

// Upsert inserts or moves an entity.
func (w *World) Upsert(e ai.Entity) {
	k := w.keyOf(e.Position)
	b, ok := w.bodies[e.ID]
	if !ok {
		w.seq++
		b = &body{seq: w.seq, key: k}
		w.bodies[e.ID] = b
		w.cell(k)[e.ID] = b
	} else if b.key != k {
		delete(w.cells[b.key], e.ID)
		if len(w.cells[b.key]) == 0 {
			delete(w.cells, b.key)
		}
		b.key = k
		w.cell(k)[e.ID] = b
	}
	b.ent = e
}

// Remove deletes an entity. Unknown ids are ignored.
func (w *World) Remove(id string) {
	b, ok := w.bodies[id]
	if !ok {
		return
	}
	delete(w.bodies, id)
	delete(w.cells[b.key], id)
	if len(w.cells[b.key]) == 0 {
		delete(w.cells, b.key)
	}
	if id == w.playerID {
		w.playerID = ""
	}
}

// Get returns the entity with id.
func (w *World) Get(id string) (ai.Entity, bool) {
	b, ok := w.bodies[id]
	if !ok {
		return ai.Entity{}, false
	}
	return b.ent, true
}

// Len returns the number of entities.
func (w *World) Len() int { return len(w.bodies) }

func (w *World) cell(k cellKey) map[string]*body {
	c, ok := w.cells[k]
	if !ok {
		c = make(map[string]*body)
		w.cells[k] = c
	}
	return c
}

// AddBox adds a static obstacle.
func (w *World) AddBox(b Box) { w.boxes = append(w.boxes, b) }

// Boxes returns the static obstacles.
func (w *World) Boxes() []Box { return w.boxes }

// OverlapSphere returns every entity on mask within radius of center (XZ
// distance) in insertion order.
func (w *World) OverlapSphere(center ai.Vec3, radius float64, mask ai.Layer) []ai.Entity {
	if radius < 0 {
		return nil
	}
	lo := w.keyOf(center.Sub(ai.Vec3{X: radius, Z: radius}))
	hi := w.keyOf(center.Add(ai.Vec3{X: radius, Z: radius}))
	var found []*body
	for x := lo.x; x <= hi.x; x++ {
		for z := lo.z; z <= hi.z; z++ {
			for _, b := range w.cells[cellKey{x, z}] {
				if !mask.Has(b.ent.Layer) {
					continue
				}
				if ai.FlatDistance(b.ent.Position, center) <= radius {
					found = append(found, b)
				}
			}
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	out := make([]ai.Entity, len(found))
	for i, b := range found {
		out[i] = b.ent
	}
	return out
}

// Raycast returns the nearest hit along dir within maxDistance. Boxes are
// hit when mask includes LayerObstacle; entities on mask are hit as spheres
// of EntityRadius.
func (w *World) Raycast(origin, dir ai.Vec3, maxDistance float64, mask ai.Layer) (ai.Hit, bool) {
	dir = dir.Normalize()
	if dir.IsZero() || maxDistance <= 0 {
		return ai.Hit{}, false
	}
	best := ai.Hit{Distance: math.Inf(1)}
	if mask.Has(ai.LayerObstacle) {
		for _, b := range w.boxes {
			if t, ok := rayBox(origin, dir, b); ok && t <= maxDistance && t < best.Distance {
				best = ai.Hit{Point: origin.Add(dir.Scale(t)), Distance: t}
			}
		}
	}
	if mask&^ai.LayerObstacle != 0 {
		for id, b := range w.bodies {
			if !mask.Has(b.ent.Layer) {
				continue
			}
			if t, ok := raySphere(origin, dir, b.ent.Position, EntityRadius); ok && t <= maxDistance && t < best.Distance {
				best = ai.Hit{Point: origin.Add(dir.Scale(t)), Distance: t, EntityID: id}
			}
		}
	}
	if math.IsInf(best.Distance, 1) {
		return ai.Hit{}, false
	}
	return best, true
}

// rayBox is the slab test. A ray starting inside the box hits at t=0.
func rayBox(o, d ai.Vec3, b Box) (float64, bool) {
	tmin, tmax := 0.0, math.Inf(1)
	os := [3]float64{o.X, o.Y, o.Z}
	ds := [3]float64{d.X, d.Y, d.Z}
	mins := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	maxs := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for i := range os {
		origin, dir := os[i], ds[i]
		if math.Abs(dir) < 1e-12 {
			if origin < mins[i] || origin > maxs[i] {
				return 0, false
			}
			continue
		}
		t1 := (mins[i] - origin) / dir
		t2 := (maxs[i] - origin) / dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// raySphere intersects a ray with a vertical cylinder of radius r around
// center. The returned t is the distance along the unit ray d.
func raySphere(o, d, center ai.Vec3, r float64) (float64, bool) {
	oc := o.Sub(center).Flat()
	df := d.Flat()
	a := df.LenSq()
	if a < 1e-12 {
		return 0, false
	}
	b := oc.Dot(df)
	c := oc.LenSq() - r*r
	if c <= 0 {
		return 0, true
	}
	disc := b*b - a*c
	if disc < 0 || b > 0 {
		return 0, false
	}
	return (-b - math.Sqrt(disc)) / a, true
}

// ---- player ----

// SetPlayer places the player entity and restores its health.
func (w *World) SetPlayer(id string, pos ai.Vec3, hp float64) {
	w.playerID = id
	w.playerHP = hp
	w.Upsert(ai.Entity{ID: id, Position: pos, Forward: ai.WorldForward, Layer: ai.LayerPlayer, Faction: -1})
}

// MovePlayer moves the player. It is a no-op without a player.
func (w *World) MovePlayer(pos ai.Vec3) {
	if p, ok := w.Player(); ok {
		p.Position = pos
		w.Upsert(p)
	}
}

// Player returns the player entity while it is alive.
func (w *World) Player() (ai.Entity, bool) {
	if w.playerID == "" || w.playerHP <= 0 {
		return ai.Entity{}, false
	}
	return w.Get(w.playerID)
}

// PlayerHP returns the player's remaining health.
func (w *World) PlayerHP() float64 { return w.playerHP }

// Target implements ai.TargetLocator with the player.
func (w *World) Target() (ai.Entity, bool) { return w.Player() }

// ApplyDamage implements enemy.DamageSink. Only the player takes damage.
func (w *World) ApplyDamage(targetID string, amount float64, dir ai.Vec3) {
	if targetID == "" || targetID != w.playerID || w.playerHP <= 0 {
		return
	}
	w.playerHP = math.Max(0, w.playerHP-amount)
	w.logger.Debug("player damaged",
		zap.String("target_id", targetID),
		zap.Float64("amount", amount),
		zap.Float64("hp", w.playerHP))
	if w.playerHP == 0 {
		w.logger.Info("player down", zap.String("target_id", targetID))
	}
}

// Launch implements enemy.ProjectileLauncher with an instant hit-scan:
// the shot damages the player if it reaches them before any obstacle.
func (w *World) Launch(ownerID string, origin, dir ai.Vec3, damage float64) {
	hit, ok := w.Raycast(origin, dir, ProjectileRange, ai.LayerObstacle|ai.LayerPlayer)
	if !ok || hit.EntityID == "" || hit.EntityID == ownerID {
		return
	}
	w.ApplyDamage(hit.EntityID, damage, dir.Flat().Normalize())
}
