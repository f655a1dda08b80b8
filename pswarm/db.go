package pswarm

import (
	"fmt"

	registration "github.com/liuxinren456852/probabilistic-point-clouds-registration"
)

const (
	// TblParticles is the sql table holding every particle's pose and cost
	// for each generation.
	TblParticles = "swarmparticles"
	// TblParticlesBest is the sql table holding each particle's personal
	// best at each generation.
	TblParticlesBest = "swarmparticlesbest"
	// TblBest is the sql table holding the swarm-wide best pose at each
	// generation.
	TblBest = "swarmbest"
)

func (s *Swarm) initdb() error {
	if s.db == nil {
		return nil
	}

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + TblParticles + " (particle INTEGER, gen INTEGER, cost REAL" + xdbsql("define") + ");",
		"CREATE TABLE IF NOT EXISTS " + TblParticlesBest + " (particle INTEGER, gen INTEGER, best REAL" + xdbsql("define") + ");",
		"CREATE TABLE IF NOT EXISTS " + TblBest + " (gen INTEGER, cost REAL" + xdbsql("define") + ");",
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("pswarm: create recording tables: %w", err)
		}
	}
	return nil
}

func xdbsql(op string) string {
	str := ""
	for i := 0; i < registration.PoseDims; i++ {
		switch op {
		case "?":
			str += ",?"
		case "define":
			str += fmt.Sprintf(",x%v REAL", i)
		case "x":
			str += fmt.Sprintf(",x%v", i)
		default:
			panic("pswarm: invalid db op " + op)
		}
	}
	return str
}

func pose2iface(prefix []interface{}, t registration.Transform) []interface{} {
	args := append([]interface{}{}, prefix...)
	for _, v := range t.Vector() {
		args = append(args, v)
	}
	return args
}

// record writes the population snapshot for the just-completed generation.
func (s *Swarm) record() error {
	if s.db == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("pswarm: record generation %v: %w", s.gen, err)
	}
	defer tx.Commit()

	s0 := "INSERT INTO " + TblParticles + " (particle,gen,cost" + xdbsql("x") + ") VALUES (?,?,?" + xdbsql("?") + ");"
	s1 := "INSERT INTO " + TblParticlesBest + " (particle,gen,best" + xdbsql("x") + ") VALUES (?,?,?" + xdbsql("?") + ");"
	for _, p := range s.pop {
		if _, err := tx.Exec(s0, pose2iface([]interface{}{p.Id, s.gen, p.Cost}, p.Pose)...); err != nil {
			return fmt.Errorf("pswarm: record generation %v: %w", s.gen, err)
		}
		if _, err := tx.Exec(s1, pose2iface([]interface{}{p.Id, s.gen, p.BestCost}, p.Best)...); err != nil {
			return fmt.Errorf("pswarm: record generation %v: %w", s.gen, err)
		}
	}

	s2 := "INSERT INTO " + TblBest + " (gen,cost" + xdbsql("x") + ") VALUES (?,?" + xdbsql("?") + ");"
	if _, err := tx.Exec(s2, pose2iface([]interface{}{s.gen, s.bestCost}, s.best)...); err != nil {
		return fmt.Errorf("pswarm: record generation %v: %w", s.gen, err)
	}
	return nil
}
