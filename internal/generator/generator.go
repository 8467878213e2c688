package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/dferrand/planweave/internal/engine"
	"github.com/dferrand/planweave/internal/service"
)

// Dataset contains a generated plan: people, teams, the work item hierarchy
// and the allocations connecting them. Nodes are ordered parents-first so an
// ingester can replay them sequentially.
type Dataset struct {
	Members     []service.MemberInput     `json:"members"`
	Teams       []service.TeamInput       `json:"teams"`
	Nodes       []service.NodeInput       `json:"nodes"`
	Allocations []service.AllocationInput `json:"allocations"`
}

// Generator produces synthetic plan data aligned with the planning schema.
type Generator struct {
	cfg       Config
	rand      *rand.Rand
	fragments nameFragments
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	defaults := DefaultConfig()
	if cfg.NumMilestones <= 0 {
		cfg.NumMilestones = defaults.NumMilestones
	}
	if cfg.FeaturesPerMilestone <= 0 {
		cfg.FeaturesPerMilestone = defaults.FeaturesPerMilestone
	}
	if cfg.OptionsPerFeature <= 0 {
		cfg.OptionsPerFeature = defaults.OptionsPerFeature
	}
	if cfg.NumMembers <= 0 {
		cfg.NumMembers = defaults.NumMembers
	}
	if cfg.NumTeams <= 0 {
		cfg.NumTeams = defaults.NumTeams
	}
	if cfg.AllocationChance <= 0 {
		cfg.AllocationChance = defaults.AllocationChance
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:       cfg,
		rand:      rand.New(rand.NewSource(cfg.Seed)),
		fragments: defaultNameFragments(),
	}
}

// Generate synthesises a full plan dataset. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	members, err := g.generateMembers(ctx)
	if err != nil {
		return Dataset{}, err
	}

	teams, err := g.generateTeams(ctx, members)
	if err != nil {
		return Dataset{}, err
	}

	nodes, leaves, err := g.generateNodes(ctx)
	if err != nil {
		return Dataset{}, err
	}

	allocations, err := g.generateAllocations(ctx, leaves, members, teams)
	if err != nil {
		return Dataset{}, err
	}

	return Dataset{
		Members:     members,
		Teams:       teams,
		Nodes:       nodes,
		Allocations: allocations,
	}, nil
}

func (g *Generator) generateMembers(ctx context.Context) ([]service.MemberInput, error) {
	members := make([]service.MemberInput, g.cfg.NumMembers)
	for i := 0; i < g.cfg.NumMembers; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		member := service.MemberInput{
			ID:                fmt.Sprintf("MBR-%04d", i+1),
			Name:              g.randomFullName(),
			DailyRate:         float64(400 + g.rand.Intn(9)*100),
			AllocationPercent: float64(50 + g.rand.Intn(6)*10),
		}
		// Half the members carry an explicit weekly capacity; the rest derive
		// it from hours-per-day and days-per-week.
		if g.rand.Float64() < 0.5 {
			member.WeeklyCapacity = []float64{32, 36, 40}[g.rand.Intn(3)]
		} else {
			member.HoursPerDay = []float64{6, 7, 8}[g.rand.Intn(3)]
			member.DaysPerWeek = []float64{4, 5}[g.rand.Intn(2)]
		}
		members[i] = member
	}
	return members, nil
}

func (g *Generator) generateTeams(ctx context.Context, members []service.MemberInput) ([]service.TeamInput, error) {
	teams := make([]service.TeamInput, g.cfg.NumTeams)
	for i := 0; i < g.cfg.NumTeams; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		size := 3 + g.rand.Intn(4)
		seen := map[string]bool{}
		team := service.TeamInput{
			ID:   fmt.Sprintf("TEAM-%03d", i+1),
			Name: g.randomTeamName(),
		}
		for len(team.Members) < size && len(seen) < len(members) {
			candidate := members[g.rand.Intn(len(members))]
			if seen[candidate.ID] {
				continue
			}
			seen[candidate.ID] = true
			team.Members = append(team.Members, service.TeamMemberInput{
				MemberID:          candidate.ID,
				AllocationPercent: float64(25 + g.rand.Intn(4)*25),
			})
		}
		teams[i] = team
	}
	return teams, nil
}

// generateNodes builds the milestone→feature→option hierarchy. The returned
// leaves slice holds option IDs for allocation targeting.
func (g *Generator) generateNodes(ctx context.Context) ([]service.NodeInput, []string, error) {
	var nodes []service.NodeInput
	var leaves []string

	featureSeq := 0
	optionSeq := 0

	for m := 0; m < g.cfg.NumMilestones; m++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		milestoneID := fmt.Sprintf("MS-%03d", m+1)
		nodes = append(nodes, service.NodeInput{
			ID:    milestoneID,
			Kind:  "MILESTONE",
			Title: g.randomMilestoneTitle(),
		})

		for f := 0; f < g.cfg.FeaturesPerMilestone; f++ {
			featureSeq++
			featureID := fmt.Sprintf("FEAT-%04d", featureSeq)
			nodes = append(nodes, service.NodeInput{
				ID:             featureID,
				Kind:           "FEATURE",
				Title:          g.randomFeatureTitle(),
				DirectEstimate: float64(g.rand.Intn(3)) * 4,
				ParentID:       milestoneID,
			})

			for o := 0; o < g.cfg.OptionsPerFeature; o++ {
				optionSeq++
				optionID := fmt.Sprintf("OPT-%05d", optionSeq)
				nodes = append(nodes, service.NodeInput{
					ID:             optionID,
					Kind:           "OPTION",
					Title:          g.randomOptionTitle(),
					DirectEstimate: float64(4 + g.rand.Intn(10)*4),
					ParentID:       featureID,
				})
				leaves = append(leaves, optionID)
			}
		}
	}

	return nodes, leaves, nil
}

func (g *Generator) generateAllocations(ctx context.Context, leaves []string, members []service.MemberInput, teams []service.TeamInput) ([]service.AllocationInput, error) {
	var allocations []service.AllocationInput
	planStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // a Monday

	edgeSeq := 0
	for _, nodeID := range leaves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if g.rand.Float64() >= g.cfg.AllocationChance {
			continue
		}

		start := planStart.AddDate(0, 0, 7*g.rand.Intn(40))
		durationWeeks := 1 + g.rand.Intn(6)
		end := start.AddDate(0, 0, 7*durationWeeks-3) // ends on a Friday

		edgeSeq++
		alloc := service.AllocationInput{
			EdgeID:      fmt.Sprintf("ALLOC-%05d", edgeSeq),
			NodeID:      nodeID,
			StartDate:   start.Format(engine.DateLayout),
			EndDate:     end.Format(engine.DateLayout),
			WeeklyHours: float64(5 + g.rand.Intn(8)*5),
		}
		// Most allocations are individual; some go to a whole team.
		if g.rand.Float64() < 0.25 && len(teams) > 0 {
			alloc.TeamID = teams[g.rand.Intn(len(teams))].ID
		} else {
			alloc.MemberID = members[g.rand.Intn(len(members))].ID
		}
		allocations = append(allocations, alloc)
	}

	return allocations, nil
}

func (g *Generator) randomFullName() string {
	return fmt.Sprintf("%s %s", g.fragments.first[g.rand.Intn(len(g.fragments.first))],
		g.fragments.last[g.rand.Intn(len(g.fragments.last))])
}

func (g *Generator) randomTeamName() string {
	return fmt.Sprintf("%s %s", g.fragments.teamAdjectives[g.rand.Intn(len(g.fragments.teamAdjectives))],
		g.fragments.teamNouns[g.rand.Intn(len(g.fragments.teamNouns))])
}

func (g *Generator) randomMilestoneTitle() string {
	return fmt.Sprintf("%s %s", g.fragments.quarters[g.rand.Intn(len(g.fragments.quarters))],
		g.fragments.initiatives[g.rand.Intn(len(g.fragments.initiatives))])
}

func (g *Generator) randomFeatureTitle() string {
	return fmt.Sprintf("%s %s", g.fragments.featureVerbs[g.rand.Intn(len(g.fragments.featureVerbs))],
		g.fragments.featureAreas[g.rand.Intn(len(g.fragments.featureAreas))])
}

func (g *Generator) randomOptionTitle() string {
	return fmt.Sprintf("%s via %s", g.fragments.featureAreas[g.rand.Intn(len(g.fragments.featureAreas))],
		g.fragments.approaches[g.rand.Intn(len(g.fragments.approaches))])
}

type nameFragments struct {
	first          []string
	last           []string
	teamAdjectives []string
	teamNouns      []string
	quarters       []string
	initiatives    []string
	featureVerbs   []string
	featureAreas   []string
	approaches     []string
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		first:          []string{"Jane", "John", "Alex", "Priya", "Liu", "Maria", "Omar", "Sofia", "Noah", "Emma", "Lucas", "Mia", "Ava", "Ethan", "Zara"},
		last:           []string{"Doe", "Smith", "Chen", "Patel", "Garcia", "Khan", "Kim", "Ivanov", "Nguyen", "Silva", "Brown", "Lee"},
		teamAdjectives: []string{"Crimson", "Atlas", "Quantum", "Polar", "Ember", "Cobalt", "Vector", "Aurora"},
		teamNouns:      []string{"Squad", "Crew", "Guild", "Unit", "Pod"},
		quarters:       []string{"Q1", "Q2", "Q3", "Q4", "H1", "H2"},
		initiatives:    []string{"Platform Hardening", "Growth Launch", "Billing Overhaul", "Mobile Parity", "Data Residency", "Self-serve Onboarding"},
		featureVerbs:   []string{"Redesign", "Migrate", "Instrument", "Automate", "Localize", "Consolidate"},
		featureAreas:   []string{"Checkout", "Search", "Notifications", "Reporting", "Permissions", "Billing", "Audit Trail", "Workspace Settings"},
		approaches:     []string{"feature flag", "batch job", "shared service", "edge cache", "event stream", "SDK"},
	}
}
