// Package scoring computes the priority score that orders pending production
// jobs. Scoring is a pure function of its inputs: the same job, material
// snapshot, machine snapshot and clock reading always give the same score.
package scoring

import (
	"math"
	"time"

	"lab-production-engine/internal/entity"
)

// OverrideScore outranks every computed score.
const OverrideScore = 1000.0

const (
	etaWeight      = 0.4
	durationWeight = 0.15
	materialWeight = 0.25
	machineWeight  = 0.2

	minETAHours       = 0.1
	minDurationMins   = 10.0
	neutralMaterial   = 50.0
	neutralMachine    = 70.0
	basePriorityScale = 10.0
)

// Breakdown exposes the unweighted terms behind a score.
type Breakdown struct {
	ETA      float64 `json:"eta"`
	Duration float64 `json:"duration"`
	Material float64 `json:"material"`
	Machine  float64 `json:"machine"`
	Base     float64 `json:"base"`
	Total    float64 `json:"total"`
	Override bool    `json:"override"`
}

type Scorer struct {
	now func() time.Time
}

func NewScorer(now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{now: now}
}

func (s *Scorer) Score(job entity.ProductionJob, materials map[string]int, machines map[string]entity.MachineStatus) float64 {
	return s.Breakdown(job, materials, machines).Total
}

// Breakdown scores job and returns every term. Urgency override short-circuits
// the weighted sum but the material term is still reported.
func (s *Scorer) Breakdown(job entity.ProductionJob, materials map[string]int, machines map[string]entity.MachineStatus) Breakdown {
	b := Breakdown{Material: MaterialScore(job.MaterialRequirements, materials)}
	if job.UrgencyOverride {
		b.Override = true
		b.Total = OverrideScore
		return b
	}

	b.ETA = s.etaScore(job.PatientETA)
	b.Duration = durationScore(job.EstimatedDuration)
	b.Machine = MachineScore(job.MachineID, machines)
	b.Base = float64(job.BasePriority()) * basePriorityScale

	total := b.ETA*etaWeight +
		b.Duration*durationWeight +
		b.Material*materialWeight +
		b.Machine*machineWeight +
		b.Base
	b.Total = round2(total)
	return b
}

func (s *Scorer) etaScore(eta *time.Time) float64 {
	if eta == nil {
		return 0
	}
	hours := math.Max(eta.Sub(s.now()).Hours(), minETAHours)
	return (1 / hours) * 100
}

func durationScore(d *string) float64 {
	minutes := defaultDurationMinutes
	if d != nil {
		minutes = ParseDurationMinutes(*d)
	}
	return (1 / math.Max(minutes, minDurationMins)) * 50
}

// MaterialScore averages min(available/required, 1)*100 over every required
// material. Jobs without requirements score a neutral 50.
func MaterialScore(required map[string]int, available map[string]int) float64 {
	if len(required) == 0 {
		return neutralMaterial
	}
	var sum float64
	for name, qty := range required {
		if qty <= 0 {
			sum += 100
			continue
		}
		ratio := math.Min(float64(available[name])/float64(qty), 1)
		sum += ratio * 100
	}
	return sum / float64(len(required))
}

func MachineScore(machineID *string, machines map[string]entity.MachineStatus) float64 {
	if machineID == nil {
		return neutralMachine
	}
	switch machines[*machineID] {
	case entity.MachineAvailable:
		return 100
	case entity.MachineBusy:
		return 30
	case entity.MachineMaintenance:
		return 0
	default:
		return neutralMachine
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
