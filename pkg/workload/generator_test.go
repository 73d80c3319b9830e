package workload

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

func TestGetProfile(t *testing.T) {
	for _, name := range []string{"default", "sell_heavy", "buy_heavy"} {
		p, err := GetProfile(name)
		require.NoError(t, err)
		require.Equal(t, name, p.Name)
	}

	_, err := GetProfile("spiky")
	require.True(t, errors.Is(err, ErrUnknownProfile))
	require.Contains(t, err.Error(), "buy_heavy")
}

func TestGeneratorIsDeterministic(t *testing.T) {
	p, _ := GetProfile("default")
	a := NewGenerator(p, 42).Generate(500)
	b := NewGenerator(p, 42).Generate(500)
	c := NewGenerator(p, 43).Generate(500)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestGeneratorStreamShape(t *testing.T) {
	for _, name := range ProfileNames() {
		t.Run(name, func(t *testing.T) {
			p, _ := GetProfile(name)
			cmds := NewGenerator(p, 7).Generate(2000)
			require.Len(t, cmds, 2000)

			var lastTs core.Timestamp
			nextSell, nextBuyer := firstSellID, firstBuyerID
			for _, cmd := range cmds {
				switch c := cmd.(type) {
				case core.PlaceSell:
					require.Equal(t, nextSell, c.ID)
					nextSell++
					require.Greater(t, c.Timestamp, lastTs)
					require.LessOrEqual(t, c.Timestamp-lastTs, core.Timestamp(10))
					lastTs = c.Timestamp
					require.GreaterOrEqual(t, c.Price, p.MinPrice)
					require.LessOrEqual(t, c.Price, p.MaxPrice)
					require.GreaterOrEqual(t, c.Qty, p.MinQty)
					require.LessOrEqual(t, c.Qty, p.MaxQty)
				case core.CancelSell:
					require.GreaterOrEqual(t, c.ID, firstSellID)
					require.Less(t, c.ID, nextSell)
				case core.BuyByQty:
					require.Equal(t, nextBuyer, c.ID)
					nextBuyer++
					require.Greater(t, c.Timestamp, lastTs)
					lastTs = c.Timestamp
					require.GreaterOrEqual(t, c.Qty, p.MinQty)
				case core.BuyByBudget:
					require.Equal(t, nextBuyer, c.ID)
					nextBuyer++
					require.Greater(t, c.Timestamp, lastTs)
					lastTs = c.Timestamp
					require.GreaterOrEqual(t, c.Budget, p.MinBudget)
					require.LessOrEqual(t, c.Budget, p.MaxBudget)
				default:
					t.Fatalf("unexpected command %T", cmd)
				}
			}
		})
	}
}

func TestFirstCommandIsNeverCancel(t *testing.T) {
	p := Profile{Name: "cancel_only", Weights: [4]int{1, 1000, 0, 0}, MinPrice: 1, MaxPrice: 1, MinQty: 1, MaxQty: 1}
	for seed := uint64(0); seed < 20; seed++ {
		_, ok := NewGenerator(p, seed).Next().(core.PlaceSell)
		require.True(t, ok)
	}
}

func TestWriteNDJSON(t *testing.T) {
	p, _ := GetProfile("sell_heavy")
	var buf bytes.Buffer
	require.NoError(t, NewGenerator(p, 1).WriteNDJSON(&buf, 100))

	want := NewGenerator(p, 1).Generate(100)
	sc := bufio.NewScanner(&buf)
	i := 0
	for sc.Scan() {
		cmd, err := core.ParseCommand(sc.Bytes())
		require.NoError(t, err)
		require.Equal(t, want[i], cmd)
		i++
	}
	require.Equal(t, 100, i)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestNegativeCount(t *testing.T) {
	profile, err := GetProfile("default")
	require.NoError(t, err)

	require.ErrorIs(t, ValidateCount(-1), ErrInvalidCount)
	require.NoError(t, ValidateCount(0))

	g := NewGenerator(profile, 1)
	require.Empty(t, g.Generate(-1))

	var buf bytes.Buffer
	require.ErrorIs(t, g.WriteNDJSON(&buf, -5), ErrInvalidCount)
	require.Zero(t, buf.Len())
}

func TestWriteNDJSONReportsWriteError(t *testing.T) {
	profile, err := GetProfile("default")
	require.NoError(t, err)

	err = NewGenerator(profile, 1).WriteNDJSON(failingWriter{}, 10_000)
	require.EqualError(t, err, "disk full")
}
