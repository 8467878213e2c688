package generator

// Config drives the synthetic plan generator.
type Config struct {
	NumMilestones        int
	FeaturesPerMilestone int
	OptionsPerFeature    int
	NumMembers           int
	NumTeams             int
	AllocationChance     float64
	Seed                 int64
}

// DefaultConfig returns baseline settings producing a plan large enough to
// exercise rollup propagation and availability aggregation.
func DefaultConfig() Config {
	return Config{
		NumMilestones:        10,
		FeaturesPerMilestone: 6,
		OptionsPerFeature:    4,
		NumMembers:           40,
		NumTeams:             8,
		AllocationChance:     0.7,
		Seed:                 42,
	}
}
