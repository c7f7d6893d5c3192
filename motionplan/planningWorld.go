package motionplan

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/armplanning/armplan/referenceframe"
	spatial "github.com/armplanning/armplan/spatialmath"
)

// Collision is a pair of names of geometries in collision, and a penetrationDepth describing the
// Euclidean distance a geometry would have to be moved to resolve the collision.
type Collision struct {
	Name1, Name2     string
	PenetrationDepth float64
}

// attachedBody is a geometry rigidly attached to a robot link, e.g. a held tool. Its world pose is
// never stored; it is recomputed as link_pose * offset on every query, so it can never go stale.
type attachedBody struct {
	link     string
	offset   spatial.Pose
	geometry spatial.Geometry
}

type collisionPair struct {
	a, b string
}

func newCollisionPair(a, b string) collisionPair {
	if a < b {
		return collisionPair{a, b}
	}
	return collisionPair{b, a}
}

// PlanningWorld aggregates an articulated model with all collision objects and is the single
// source of truth for whether a configuration is valid. It is constructed once per planning
// session and mutated only by explicit add/remove/attach/detach calls between plans; it must not
// be mutated, nor shared between planning queries, concurrently.
type PlanningWorld struct {
	model     *referenceframe.SimpleModel
	obstacles map[string]spatial.Geometry
	attached  map[string]*attachedBody
	disabled  map[collisionPair]bool
	clearance float64
	logger    golog.Logger

	// geometry-bearing link names in chain order; consecutive entries are physically adjacent and
	// excluded from self-collision checks.
	orderedLinks map[string]int
}

// NewPlanningWorld creates a world around the given model with no obstacles and no attached bodies.
// Self-collision between adjacent links is disabled by default.
func NewPlanningWorld(model *referenceframe.SimpleModel, logger golog.Logger) *PlanningWorld {
	ordered := map[string]int{}
	for i, name := range model.GeometryNames() {
		ordered[name] = i
	}
	return &PlanningWorld{
		model:        model,
		obstacles:    map[string]spatial.Geometry{},
		attached:     map[string]*attachedBody{},
		disabled:     map[collisionPair]bool{},
		orderedLinks: ordered,
		logger:       logger,
	}
}

// Model returns the articulated model this world was built around.
func (pw *PlanningWorld) Model() *referenceframe.SimpleModel {
	return pw.model
}

// SetClearance sets the margin, in mm, within which two geometries are considered colliding.
func (pw *PlanningWorld) SetClearance(clearance float64) {
	pw.clearance = clearance
}

// AddObstacle registers a static world obstacle under the geometry's label.
func (pw *PlanningWorld) AddObstacle(geometry spatial.Geometry) error {
	name := geometry.Label()
	if name == "" {
		return errors.New("cannot add obstacle with empty label")
	}
	if _, ok := pw.obstacles[name]; ok {
		return errors.Errorf("obstacle %q already present in planning world", name)
	}
	pw.obstacles[name] = geometry
	return nil
}

// RemoveObstacle removes the named static obstacle, returning whether it was present.
func (pw *PlanningWorld) RemoveObstacle(name string) bool {
	_, ok := pw.obstacles[name]
	delete(pw.obstacles, name)
	return ok
}

// AttachObject rigidly attaches a geometry to the named robot link, offset from the link frame by
// the given pose. The attached object moves with the link for all subsequent queries.
func (pw *PlanningWorld) AttachObject(name, link string, offset spatial.Pose, geometry spatial.Geometry) error {
	if !pw.model.HasLink(link) {
		return errors.Wrapf(ErrUnknownLink, "cannot attach %q to link %q", name, link)
	}
	if _, ok := pw.attached[name]; ok {
		return errors.Errorf("object %q already attached", name)
	}
	pw.attached[name] = &attachedBody{link: link, offset: offset, geometry: geometry}
	return nil
}

// DetachObject removes the named attached object, returning whether it was present.
func (pw *PlanningWorld) DetachObject(name string) bool {
	_, ok := pw.attached[name]
	delete(pw.attached, name)
	return ok
}

// DisableCollision excludes a pair of robot links from self-collision checking, e.g. links that
// physically touch in normal operation (adjacency filtering beyond the default).
func (pw *PlanningWorld) DisableCollision(link1, link2 string) {
	pw.disabled[newCollisionPair(pw.model.Name()+":"+link1, pw.model.Name()+":"+link2)] = true
}

// AttachedObjectPose returns the world pose of a named attached object at the given configuration.
func (pw *PlanningWorld) AttachedObjectPose(name string, inputs []referenceframe.Input) (spatial.Pose, error) {
	body, ok := pw.attached[name]
	if !ok {
		return nil, errors.Errorf("no attached object named %q", name)
	}
	linkPose, err := pw.model.LinkPose(body.link, inputs)
	if err != nil {
		return nil, err
	}
	return spatial.Compose(linkPose, body.offset), nil
}

// IsValid evaluates forward kinematics for all links, updates attached-object poses, and runs all
// enabled pairwise collision checks. A configuration is valid iff it is within joint limits and no
// enabled pair intersects within the clearance margin.
func (pw *PlanningWorld) IsValid(inputs []referenceframe.Input) bool {
	collisions, err := pw.CheckCollisions(inputs)
	if err != nil {
		pw.logger.Debugw("error checking configuration validity", "error", err)
		return false
	}
	return len(collisions) == 0
}

// CheckCollisions returns every colliding pair at the given configuration. An out-of-limit
// configuration is an error, not a collision.
func (pw *PlanningWorld) CheckCollisions(inputs []referenceframe.Input) ([]Collision, error) {
	if err := referenceframe.LimitsViolated(pw.model.DoF(), inputs); err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	linkGeometries, err := pw.model.Geometries(inputs)
	if err != nil {
		return nil, err
	}
	attachedGeometries := make(map[string]spatial.Geometry, len(pw.attached))
	attachedLinks := make(map[string]string, len(pw.attached))
	for name, body := range pw.attached {
		pose, err := pw.AttachedObjectPose(name, inputs)
		if err != nil {
			return nil, err
		}
		attachedGeometries[name] = body.geometry.Transform(pose)
		attachedLinks[name] = pw.model.Name() + ":" + body.link
	}

	var collisions []Collision
	check := func(name1 string, g1 spatial.Geometry, name2 string, g2 spatial.Geometry) error {
		collides, err := g1.CollidesWith(g2, pw.clearance)
		if err != nil {
			return err
		}
		if collides {
			dist, err := g1.DistanceFrom(g2)
			if err != nil {
				return err
			}
			collisions = append(collisions, Collision{Name1: name1, Name2: name2, PenetrationDepth: -dist})
		}
		return nil
	}

	linkNames := make([]string, 0, len(linkGeometries))
	for name := range linkGeometries {
		linkNames = append(linkNames, name)
	}

	// robot self-collisions, skipping adjacent links and explicitly disabled pairs
	for i, name1 := range linkNames {
		for _, name2 := range linkNames[i+1:] {
			if pw.pairDisabled(name1, name2) {
				continue
			}
			if err := check(name1, linkGeometries[name1], name2, linkGeometries[name2]); err != nil {
				return nil, err
			}
		}
	}

	// robot links vs world obstacles
	for _, linkName := range linkNames {
		for obsName, obstacle := range pw.obstacles {
			if err := check(linkName, linkGeometries[linkName], obsName, obstacle); err != nil {
				return nil, err
			}
		}
	}

	// attached objects vs robot links (except their own parent link), obstacles, and each other
	attachedNames := make([]string, 0, len(attachedGeometries))
	for name := range attachedGeometries {
		attachedNames = append(attachedNames, name)
	}
	for i, name := range attachedNames {
		geometry := attachedGeometries[name]
		for _, linkName := range linkNames {
			if linkName == attachedLinks[name] {
				continue
			}
			if err := check(name, geometry, linkName, linkGeometries[linkName]); err != nil {
				return nil, err
			}
		}
		for obsName, obstacle := range pw.obstacles {
			if err := check(name, geometry, obsName, obstacle); err != nil {
				return nil, err
			}
		}
		for _, otherName := range attachedNames[i+1:] {
			if err := check(name, geometry, otherName, attachedGeometries[otherName]); err != nil {
				return nil, err
			}
		}
	}

	return collisions, nil
}

func (pw *PlanningWorld) pairDisabled(name1, name2 string) bool {
	if pw.disabled[newCollisionPair(name1, name2)] {
		return true
	}
	i, ok1 := pw.orderedLinks[name1]
	j, ok2 := pw.orderedLinks[name2]
	if !ok1 || !ok2 {
		return false
	}
	// consecutive geometry-bearing links physically touch at the joint between them
	return i-j == 1 || j-i == 1
}
