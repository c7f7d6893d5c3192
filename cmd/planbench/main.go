// planbench plans a motion for a three-axis gantry through a YAML-described scene and prints the
// resulting trajectory. It demonstrates the intended calling pattern: try the direct screw motion
// first, and fall back to sampling-based planning when the straight line is blocked.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/armplanning/armplan/motionplan"
	"github.com/armplanning/armplan/referenceframe"
	spatial "github.com/armplanning/armplan/spatialmath"
	"github.com/armplanning/armplan/utils"
)

type vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func (v vec3) r3() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// rotationConfig is an axis-angle rotation with the angle in degrees, the friendlier unit for
// hand-written scene files.
type rotationConfig struct {
	Axis    vec3    `yaml:"axis"`
	Degrees float64 `yaml:"degrees"`
}

type obstacleConfig struct {
	Name     string          `yaml:"name"`
	Type     string          `yaml:"type"` // box or sphere
	Center   vec3            `yaml:"center"`
	Rotation *rotationConfig `yaml:"rotation"` // optional, box only
	Dims     vec3            `yaml:"dims"`     // box only, full extents in mm
	Radius   float64         `yaml:"radius"`   // sphere only, mm
}

type sceneConfig struct {
	Obstacles []obstacleConfig `yaml:"obstacles"`
	Start     []float64        `yaml:"start"`
	Goal      vec3             `yaml:"goal"`
	TimeStep  float64          `yaml:"time_step"`
}

func main() {
	logger := golog.NewLogger("planbench")
	if err := realMain(logger); err != nil {
		logger.Fatal(err)
	}
}

func realMain(logger golog.Logger) error {
	scenePath := flag.String("scene", "", "path to YAML scene description")
	flag.Parse()
	if *scenePath == "" {
		return errors.New("a -scene file is required")
	}

	raw, err := os.ReadFile(*scenePath)
	if err != nil {
		return err
	}
	var scene sceneConfig
	if err := yaml.Unmarshal(raw, &scene); err != nil {
		return errors.Wrap(err, "cannot parse scene")
	}
	if scene.TimeStep == 0 {
		scene.TimeStep = 0.05
	}

	model, err := gantryModel()
	if err != nil {
		return err
	}
	world := motionplan.NewPlanningWorld(model, logger)
	for _, oc := range scene.Obstacles {
		geometry, err := obstacleGeometry(oc)
		if err != nil {
			return err
		}
		if err := world.AddObstacle(geometry); err != nil {
			return err
		}
	}

	planner, err := motionplan.NewPlanner(world, "z", logger, nil)
	if err != nil {
		return err
	}

	goal := spatial.NewPoseFromPoint(scene.Goal.r3())
	ctx := context.Background()

	// straight-line screw motion first, sampling-based detour if blocked
	result := planner.PlanToPose(ctx, goal, scene.Start, scene.TimeStep, true)
	if result.Status != motionplan.Success {
		logger.Infow("screw motion failed, falling back to sampling planner", "status", result.Status, "error", result.Err)
		result = planner.PlanToPose(ctx, goal, scene.Start, scene.TimeStep, false)
	}
	if result.Status != motionplan.Success {
		return errors.Wrapf(result.Err, "planning failed with status %s", result.Status)
	}

	finalPose, err := model.Transform(referenceframe.FloatsToInputs(result.Path[len(result.Path)-1]))
	if err != nil {
		return err
	}
	finalAA := spatial.QuatToR4AA(finalPose.Orientation())
	logger.Infow("plan found",
		"waypoints", len(result.Path),
		"duration", result.Trajectory.Duration,
		"final_point", finalPose.Point(),
		"final_rotation_deg", utils.RadToDeg(finalAA.Theta),
	)
	for i, t := range result.Trajectory.Times {
		fmt.Printf("%7.3f  pos=%v  vel=%v\n", t, result.Trajectory.Positions[i], result.Trajectory.Velocities[i])
	}
	return nil
}

// gantryModel builds a 1m-cube three-axis gantry. Only the final axis carries geometry: a box
// standing in for the tool carriage.
func gantryModel() (*referenceframe.SimpleModel, error) {
	model := referenceframe.NewSimpleModel("gantry")
	limit := referenceframe.Limit{Min: 0, Max: 1000}
	xFrame, err := referenceframe.NewTranslationalFrame("x", r3.Vector{X: 1}, limit)
	if err != nil {
		return nil, err
	}
	yFrame, err := referenceframe.NewTranslationalFrame("y", r3.Vector{Y: 1}, limit)
	if err != nil {
		return nil, err
	}
	carriage, err := spatial.NewBox(spatial.NewZeroPose(), r3.Vector{X: 40, Y: 40, Z: 40}, "carriage")
	if err != nil {
		return nil, err
	}
	zFrame, err := referenceframe.NewTranslationalFrameWithGeometry("z", r3.Vector{Z: 1}, limit, carriage)
	if err != nil {
		return nil, err
	}
	model.OrdTransforms = []referenceframe.Frame{xFrame, yFrame, zFrame}
	return model, nil
}

func obstacleGeometry(oc obstacleConfig) (spatial.Geometry, error) {
	pose := spatial.NewPoseFromPoint(oc.Center.r3())
	if oc.Rotation != nil {
		axis := oc.Rotation.Axis.r3()
		pose = spatial.NewPose(oc.Center.r3(), &spatial.R4AA{
			Theta: utils.DegToRad(oc.Rotation.Degrees),
			RX:    axis.X,
			RY:    axis.Y,
			RZ:    axis.Z,
		})
	}
	switch oc.Type {
	case "box":
		return spatial.NewBox(pose, oc.Dims.r3(), oc.Name)
	case "sphere":
		return spatial.NewSphere(pose, oc.Radius, oc.Name)
	default:
		return nil, errors.Errorf("unknown obstacle type %q", oc.Type)
	}
}
