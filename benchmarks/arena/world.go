package arena

import (
	"math"

	"github.com/zeu5/combat-rl/agent"
)

// frameRate converts the per-frame speed tiers into per-second movement
const frameRate = 60

type WorldConfig struct {
	AgentSpawn  agent.Vec3
	TargetSpawn agent.Vec3
	MaxHealth   float64

	InitialParams agent.CombatParams

	AgentDamage         float64
	AgentAttackCooldown float64

	TargetDamage         float64
	TargetRange          float64
	TargetAttackInterval float64

	Hazards      []agent.Vec3
	HazardRadius float64
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		AgentSpawn:  agent.Vec3{X: 0, Y: 0, Z: 15},
		TargetSpawn: agent.Vec3{},
		MaxHealth:   100,
		InitialParams: agent.CombatParams{
			AttackRange:  agent.AttackRangeTiers[1],
			ChasingRange: agent.ChasingRangeTiers[2],
			Speed:        agent.SpeedRangeTiers[2],
		},
		AgentDamage:          10,
		AgentAttackCooldown:  1,
		TargetDamage:         2,
		TargetRange:          1.5,
		TargetAttackInterval: 1.5,
		Hazards: []agent.Vec3{
			{X: 10, Z: 10},
			{X: -10, Z: 10},
		},
		HazardRadius: 1,
	}
}

// World is a minimal combat host: one agent chasing one scripted target.
type World struct {
	cfg WorldConfig

	agentPos  agent.Vec3
	targetPos agent.Vec3

	agentHealth  float64
	targetHealth float64
	targetScore  float64

	attacks int
	hits    int

	params agent.CombatParams
	moving bool

	attackCooldown float64
	targetCooldown float64

	dt float64
}

var _ agent.Host = &World{}

func NewWorld(cfg WorldConfig, dt float64) *World {
	w := &World{cfg: cfg, dt: dt}
	w.Reset()
	return w
}

func (w *World) Reset() {
	w.agentPos = w.cfg.AgentSpawn
	w.targetPos = w.cfg.TargetSpawn
	w.agentHealth = w.cfg.MaxHealth
	w.targetHealth = w.cfg.MaxHealth
	w.targetScore = 0
	w.attacks = 0
	w.hits = 0
	w.params = w.cfg.InitialParams
	w.moving = false
	w.attackCooldown = 0
	w.targetCooldown = 0
}

func (w *World) accuracy() float64 {
	if w.attacks == 0 {
		return 0
	}
	return float64(w.hits) / float64(w.attacks)
}

func (w *World) nearHazard() bool {
	for _, h := range w.cfg.Hazards {
		if w.agentPos.Distance(h) <= w.cfg.HazardRadius {
			return true
		}
	}
	return false
}

func (w *World) Snapshot() agent.WorldSnapshot {
	return agent.WorldSnapshot{
		AgentPosition:  w.agentPos,
		TargetPosition: w.targetPos,
		AgentHealth:    w.agentHealth,
		TargetHealth:   w.targetHealth,
		TargetScore:    w.targetScore,
		AgentAccuracy:  w.accuracy(),
		NearHazard:     w.nearHazard(),
	}
}

func (w *World) Params() agent.CombatParams {
	return w.params
}

func (w *World) Moving() bool {
	return w.moving
}

// Apply advances the world by one tick.
func (w *World) Apply(hc agent.HostCommand) agent.AttackOutcome {
	w.params = hc.Params
	w.moving = hc.Moving
	w.agentPos = w.agentPos.Add(hc.Displacement)

	// inside the chasing range the host closes in on its own
	if w.moving {
		toTarget := w.targetPos.Sub(w.agentPos)
		if d := toTarget.Length(); d < w.params.ChasingRange && d > 0 {
			step := math.Min(w.params.Speed*frameRate*w.dt, d)
			w.agentPos = w.agentPos.Add(toTarget.Normalized().Scale(step))
		}
	}

	outcome := agent.NoAttack
	if hc.Attack && w.attackCooldown <= 0 {
		w.attacks++
		w.attackCooldown = w.cfg.AgentAttackCooldown
		if w.agentPos.Distance(w.targetPos) <= w.params.AttackRange {
			w.hits++
			w.targetHealth = math.Max(0, w.targetHealth-w.cfg.AgentDamage)
			outcome = agent.AttackSuccess
		} else {
			outcome = agent.AttackFail
		}
	}

	if w.targetCooldown <= 0 && w.agentPos.Distance(w.targetPos) <= w.cfg.TargetRange {
		w.agentHealth = math.Max(0, w.agentHealth-w.cfg.TargetDamage)
		w.targetScore++
		w.targetCooldown = w.cfg.TargetAttackInterval
	}

	w.attackCooldown -= w.dt
	w.targetCooldown -= w.dt
	return outcome
}
