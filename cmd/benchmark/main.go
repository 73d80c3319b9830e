package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joripage/matching-engine-lab/pkg/core"
	"github.com/joripage/matching-engine-lab/pkg/orderbook"
	"github.com/joripage/matching-engine-lab/pkg/workload"
)

type result struct {
	engine   string
	elapsed  time.Duration
	trades   int
	tradeQty int64
	notional decimal.Decimal
	resting  string
}

func main() {
	var (
		profileName string
		count       int
		seed        uint64
	)
	flag.StringVar(&profileName, "profile", "default", "Workload profile")
	flag.IntVar(&count, "count", 1_000_000, "Number of commands")
	flag.Uint64Var(&seed, "seed", 42, "Random seed")
	flag.Parse()

	profile, err := workload.GetProfile(profileName)
	if err != nil {
		panic(err)
	}
	cmds := workload.NewGenerator(profile, seed).Generate(count)

	fmt.Printf("profile %s, %d commands, seed %d\n", profile.Name, len(cmds), seed)
	fmt.Println("--------")
	for _, name := range orderbook.EngineNames() {
		r := runOnce(orderbook.MustEngine(name), cmds)
		ops := decimal.Zero
		if r.elapsed > 0 {
			ops = decimal.NewFromInt(int64(len(cmds))).DivRound(decimal.NewFromFloat(r.elapsed.Seconds()), 0)
		}
		fmt.Printf("%-12s time %-14s ops/sec %-10s trades %-8d qty %-10d notional %-14s resting %s\n",
			r.engine, r.elapsed, ops.StringFixed(0), r.trades, r.tradeQty, r.notional.StringFixed(0), r.resting)
	}
}

func runOnce(eng *orderbook.Engine, cmds []core.Command) result {
	r := result{engine: eng.Name(), notional: decimal.Zero}

	start := time.Now()
	for _, cmd := range cmds {
		for _, ev := range eng.Submit(cmd) {
			if t, ok := ev.(core.Trade); ok {
				r.trades++
				r.tradeQty += t.Qty
				r.notional = r.notional.Add(decimal.NewFromInt(t.Qty).Mul(decimal.NewFromInt(t.Price)))
			}
		}
	}
	r.elapsed = time.Since(start)
	r.resting = eng.Stats()["resting_qty"]
	return r
}
