package testorders

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxAgeMinutes   = 300
	maxAmountCents  = 2_000_000
	escalationDelay = 30
	timestampLayout = "2006-01-02T15:04:05Z07:00"
)

//nolint:gochecknoglobals // sample customer names
var clients = []string{
	"Bodega Santa Rosa", "Minimarket El Sol", "Distribuidora Norte",
	"Comercial Lima Sur", "Farmacia Central", "Ferreteria Los Andes",
}

// generateSubmissions builds n new-order submissions, followed by replays
// of a share of them under the same event id.
func generateSubmissions(cfg *Config, now time.Time) []Submission {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	subs := make([]Submission, 0, cfg.NumOrders+int(float64(cfg.NumOrders)*cfg.DuplicateRatio)+1)
	for i := 0; i < cfg.NumOrders; i++ {
		subs = append(subs, Submission{
			EventID: uuid.NewString(),
			Type:    "pedido_nuevo",
			Order:   generateOrder(rng, i, now, cfg.EscalatedRatio),
		})
	}

	replays := int(float64(cfg.NumOrders) * cfg.DuplicateRatio)
	for i := 0; i < replays && cfg.NumOrders > 0; i++ {
		subs = append(subs, subs[rng.IntN(cfg.NumOrders)])
	}
	return subs
}

func generateOrder(rng *rand.Rand, index int, now time.Time, escalatedRatio float64) OrderPayload {
	age := rng.IntN(maxAgeMinutes + 1)
	created := now.Add(-time.Duration(age) * time.Minute)
	o := OrderPayload{
		ID:         "load-" + strconv.Itoa(index),
		Number:     "PED-" + strconv.Itoa(100000+index),
		ClientName: clients[rng.IntN(len(clients))],
		Total:      decimal.New(rng.Int64N(maxAmountCents), -2),
		CreatedAt:  created.UTC().Format(timestampLayout),
	}
	if age > escalationDelay && rng.Float64() < escalatedRatio {
		o.EscalatedAt = created.Add(escalationDelay * time.Minute).UTC().Format(timestampLayout)
		o.Reason = "excede limite"
	}
	return o
}
