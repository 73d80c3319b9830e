package workload

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

const (
	firstSellID  core.ID = 1
	firstBuyerID core.ID = 10001
)

type commandKind int

const (
	kindPlace commandKind = iota
	kindCancel
	kindBuyQty
	kindBuyBudget
)

// Generator produces a reproducible command stream. Timestamps strictly
// increase, sell ids count up from 1 and buyer ids from 10001.
type Generator struct {
	profile Profile
	rng     *rand.Rand

	lastSell  core.ID
	lastBuyer core.ID
	ts        core.Timestamp
}

func NewGenerator(profile Profile, seed uint64) *Generator {
	return &Generator{
		profile:   profile,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		lastSell:  firstSellID - 1,
		lastBuyer: firstBuyerID - 1,
	}
}

// Next returns the next command. A cancel drawn before any sell exists is
// redrawn, so every call yields a command.
func (g *Generator) Next() core.Command {
	kind := g.pick()
	for kind == kindCancel && g.lastSell < firstSellID {
		kind = g.pick()
	}
	g.ts += core.Timestamp(g.between(1, 10))

	switch kind {
	case kindPlace:
		g.lastSell++
		return core.PlaceSell{
			ID:        g.lastSell,
			Price:     g.between(g.profile.MinPrice, g.profile.MaxPrice),
			Qty:       g.between(g.profile.MinQty, g.profile.MaxQty),
			Timestamp: g.ts,
		}
	case kindCancel:
		return core.CancelSell{ID: core.ID(g.between(int64(firstSellID), int64(g.lastSell)))}
	case kindBuyQty:
		g.lastBuyer++
		return core.BuyByQty{
			ID:        g.lastBuyer,
			Qty:       g.between(g.profile.MinQty, g.profile.MaxQty),
			Timestamp: g.ts,
		}
	default:
		g.lastBuyer++
		return core.BuyByBudget{
			ID:        g.lastBuyer,
			Budget:    g.between(g.profile.MinBudget, g.profile.MaxBudget),
			Timestamp: g.ts,
		}
	}
}

// ValidateCount rejects a negative command count.
func ValidateCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidCount, n)
	}
	return nil
}

// Generate returns the next n commands. A negative n yields none.
func (g *Generator) Generate(n int) []core.Command {
	cmds := make([]core.Command, max(n, 0))
	for i := range cmds {
		cmds[i] = g.Next()
	}
	return cmds
}

// WriteNDJSON writes n commands, one JSON object per line.
func (g *Generator) WriteNDJSON(w io.Writer, n int) error {
	if err := ValidateCount(n); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for i := 0; i < n; i++ {
		line, err := core.MarshalCommand(g.Next())
		if err != nil {
			return err
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (g *Generator) pick() commandKind {
	r := g.rng.IntN(g.profile.totalWeight())
	for i, w := range g.profile.Weights {
		if r < w {
			return commandKind(i)
		}
		r -= w
	}
	return kindBuyBudget
}

// between is inclusive on both ends.
func (g *Generator) between(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Int64N(hi-lo+1)
}
