package stats

import (
	"math/rand"
	"time"

	"github.com/mkarpov/usagevault/internal/models"
)

// modelPricing is the simulated cost per million tokens, loosely tracking
// published Claude API pricing.
var modelPricing = map[string]float64{
	"claude-3-5-sonnet": 3.00,
	"claude-3-5-haiku":  0.80,
	"claude-3-opus":     15.00,
}

var generatorModels = []string{
	"claude-3-5-sonnet",
	"claude-3-5-haiku",
	"claude-3-opus",
}

var generatorSources = []models.Source{
	models.SourceWeb,
	models.SourceCode,
}

// CostFor prices a token count for a model. Unknown models price at the
// cheapest tier so totals stay plausible rather than zero.
func CostFor(model string, tokens uint64) float64 {
	perMillion, ok := modelPricing[model]
	if !ok {
		perMillion = modelPricing["claude-3-5-haiku"]
	}
	return float64(tokens) / 1_000_000 * perMillion
}

// Generator fabricates plausible usage records. There is no backend; all
// displayed usage is generated locally or read back from storage.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator returns a generator seeded for reproducible output.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Generate fabricates n records spread uniformly over the past days days,
// most recent first position not guaranteed.
func (g *Generator) Generate(n, days int) []models.UsageRecord {
	if days < 1 {
		days = 1
	}
	out := make([]models.UsageRecord, 0, n)
	now := g.now()
	for i := 0; i < n; i++ {
		model := generatorModels[g.rng.Intn(len(generatorModels))]
		tokens := uint64(g.rng.Intn(49_000) + 1_000)
		ts := now.Add(-time.Duration(g.rng.Int63n(int64(days) * int64(24*time.Hour))))
		out = append(out, models.UsageRecord{
			Source:    generatorSources[g.rng.Intn(len(generatorSources))],
			Model:     model,
			Tokens:    tokens,
			Cost:      CostFor(model, tokens),
			Timestamp: ts,
			Date:      ts.Format("2006-01-02"),
		})
	}
	return out
}
