package workload

import (
	"fmt"
	"sort"
	"strings"
)

// Profile shapes a generated stream. Weights are relative and apply in
// the order PlaceSell, CancelSell, BuyByQty, BuyByBudget.
type Profile struct {
	Name      string
	Weights   [4]int
	MinPrice  int64
	MaxPrice  int64
	MinQty    int64
	MaxQty    int64
	MinBudget int64
	MaxBudget int64
}

var profiles = map[string]Profile{
	"default": {
		Name:      "default",
		Weights:   [4]int{4, 1, 2, 2},
		MinPrice:  90,
		MaxPrice:  110,
		MinQty:    1,
		MaxQty:    100,
		MinBudget: 100,
		MaxBudget: 10000,
	},
	"sell_heavy": {
		Name:      "sell_heavy",
		Weights:   [4]int{8, 1, 1, 1},
		MinPrice:  95,
		MaxPrice:  105,
		MinQty:    10,
		MaxQty:    50,
		MinBudget: 500,
		MaxBudget: 5000,
	},
	"buy_heavy": {
		Name:      "buy_heavy",
		Weights:   [4]int{2, 1, 4, 4},
		MinPrice:  98,
		MaxPrice:  102,
		MinQty:    5,
		MaxQty:    200,
		MinBudget: 1000,
		MaxBudget: 20000,
	},
}

func GetProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w %q, available: %s", ErrUnknownProfile, name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}

func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Profile) totalWeight() int {
	total := 0
	for _, w := range p.Weights {
		total += w
	}
	return total
}
