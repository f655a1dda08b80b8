// Command psoreg aligns a source point cloud onto a target point cloud
// with particle-swarm registration and writes the aligned source cloud.
//
//	psoreg [flags] source.pcd target.pcd
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	_ "modernc.org/sqlite"

	registration "github.com/liuxinren456852/probabilistic-point-clouds-registration"
	"github.com/liuxinren456852/probabilistic-point-clouds-registration/bench"
	"github.com/liuxinren456852/probabilistic-point-clouds-registration/pcd"
	"github.com/liuxinren456852/probabilistic-point-clouds-registration/pop"
	"github.com/liuxinren456852/probabilistic-point-clouds-registration/pswarm"
)

var (
	sourceFilter = flag.Float64("s", 0, "leaf size of the voxel filter for the source cloud (0 = off)")
	targetFilter = flag.Float64("t", 0, "leaf size of the voxel filter for the target cloud (0 = off)")
	numPart      = flag.Int("p", 50, "number of particles in the swarm")
	numGen       = flag.Int("e", 1000, "number of generations to run")
	numIter      = flag.Int("i", 10, "max inner refinement iterations per evaluation")
	dof          = flag.Float64("d", 5, "degrees of freedom of the t-distribution weights")
	costDrop     = flag.Float64("c", 0.01, "inner loop stops once the cost drop stays below this")
	numDropIter  = flag.Int("n", 5, "consecutive sub-threshold iterations tolerated by the inner loop")
	groundTruth  = flag.String("g", "", "path of the ground truth cloud for the source, if available")
	output       = flag.String("o", "output.pcd", "path of the aligned output cloud")
	seed         = flag.Int64("seed", 0, "random seed (0 = time-based)")
	dbPath       = flag.String("db", "", "record per-generation swarm state into this sqlite file")
	plotPath     = flag.String("plot", "", "write a cost-history plot to this file (png/svg/pdf)")
	verbose      = flag.Bool("v", false, "print the swarm snapshot every generation")
	summary      = flag.Bool("summary", true, "print the final summary")
)

func main() {
	log.SetFlags(0)
	flag.Parse()
	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: psoreg [flags] source.pcd target.pcd")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Arg(1)); err != nil {
		log.Fatal(err)
	}
}

func run(sourcePath, targetPath string) error {
	log.Printf("loading source point cloud from %v", sourcePath)
	source, err := pcd.Load(sourcePath)
	if err != nil {
		return err
	}
	log.Printf("loading target point cloud from %v", targetPath)
	target, err := pcd.Load(targetPath)
	if err != nil {
		return err
	}

	if *sourceFilter != 0 {
		source = pcd.VoxelGrid(source, *sourceFilter)
	}
	if *targetFilter != 0 {
		target = pcd.VoxelGrid(target, *targetFilter)
	}
	log.Printf("%v source points, %v target points", len(source), len(target))

	var truth registration.PointCloud
	if *groundTruth != "" {
		log.Printf("loading ground truth point cloud from %v", *groundTruth)
		truth, err = pcd.Load(*groundTruth)
		if err != nil {
			return err
		}
		if *sourceFilter != 0 {
			truth = pcd.VoxelGrid(truth, *sourceFilter)
		}
	}

	prm := registration.DefaultParams()
	prm.Dof = *dof
	prm.NIter = *numIter
	prm.CostDropThresh = *costDrop
	prm.NCostDropIt = *numDropIter
	prm.Verbose = *verbose
	prm.Summary = *summary

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	low, up := pop.Bounds(target)
	opts := []pswarm.Option{pswarm.Seed(rngSeed), pswarm.VmaxBounds(low, up)}
	var db *sql.DB
	if *dbPath != "" {
		db, err = sql.Open("sqlite", *dbPath)
		if err != nil {
			return fmt.Errorf("open recording db: %w", err)
		}
		defer db.Close()
		opts = append(opts, pswarm.DB(db))
	}

	swarm, err := pswarm.New(source, target, prm, opts...)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(rngSeed))
	poses := pop.New(*numPart, low, up, rng)
	vels := pop.Velocities(*numPart, pop.Vmax(low, up), rng)
	for i := range poses {
		swarm.AddParticle(registration.FromVector(poses[i]), vels[i])
	}

	if err := swarm.Init(); err != nil {
		return err
	}
	log.Println(swarm)

	for g := 0; g < *numGen; g++ {
		if err := swarm.Evolve(); err != nil {
			return err
		}
		if prm.Verbose {
			log.Println(swarm)
		}
	}

	best := swarm.Best()
	aligned := source.Transformed(best)
	if prm.Summary {
		log.Println(swarm)
		log.Printf("best transform: %v", best)
		if truth != nil {
			log.Printf("rmse against ground truth: %.6g", bench.RMSE(aligned, truth))
		}
	}

	if *plotPath != "" {
		if err := writeHistory(*plotPath, swarm.History()); err != nil {
			return err
		}
	}

	log.Printf("writing aligned cloud to %v", *output)
	return pcd.Save(*output, aligned, false)
}

func writeHistory(path string, history []float64) error {
	p := plot.New()
	p.Title.Text = "global best cost"
	p.X.Label.Text = "generation"
	p.Y.Label.Text = "cost"

	xys := make(plotter.XYs, len(history))
	for i, c := range history {
		xys[i].X = float64(i + 1)
		xys[i].Y = c
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("cost-history plot: %w", err)
	}
	p.Add(line, plotter.NewGrid())
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("cost-history plot: %w", err)
	}
	return nil
}
