package game

import "math/rand/v2"

// The round schedule decides who writes line s of whose poem. For n
// players it is an n×n Latin square: cell (i,j) holds the step at which
// player i contributes to player j's poem, every row and every column
// containing each step exactly once. Step 1 is pinned to the diagonal so
// each player opens their own poem. Later steps are filled one at a time
// with a perfect matching over the still-empty cells; a randomized greedy
// pass does most of the work and Kuhn's augmenting-path search finishes
// any rows the greedy pass missed. A perfect matching always exists at
// every stage (the empty-cell graph stays regular), so the construction
// cannot fail for any n in [MinPlayers, MaxPlayers].

// stepMatrix is an owned row-major n×n matrix, private to a single
// generation call.
type stepMatrix struct {
	n int
	v []int
}

func newStepMatrix(n int) *stepMatrix {
	return &stepMatrix{n: n, v: make([]int, n*n)}
}

func (m *stepMatrix) at(row, col int) int {
	return m.v[row*m.n+col]
}

func (m *stepMatrix) set(row, col, value int) {
	m.v[row*m.n+col] = value
}

// latinSquare builds the step matrix for n players.
func latinSquare(n int, rng *rand.Rand) *stepMatrix {
	m := newStepMatrix(n)

	for i := 0; i < n; i++ {
		m.set(i, i, 1)
	}

	hasEdge := func(row, col int) bool {
		return m.at(row, col) == 0
	}

	for step := 2; step <= n; step++ {
		matching := kuhnMatching(n, hasEdge, rng)
		for col, row := range matching {
			if row != -1 {
				m.set(row, col, step)
			}
		}
	}

	return m
}

// kuhnMatching returns a perfect matching as a column-to-row table.
// Rows are first matched greedily to a uniformly random available column;
// leftovers are resolved with augmenting paths.
func kuhnMatching(n int, hasEdge func(row, col int) bool, rng *rand.Rand) []int {
	matching := make([]int, n)
	for i := range matching {
		matching[i] = -1
	}

	matchedGreedy := make([]bool, n)
	candidates := make([]int, 0, n)
	for row := 0; row < n; row++ {
		candidates = candidates[:0]
		for col := 0; col < n; col++ {
			if hasEdge(row, col) && matching[col] == -1 {
				candidates = append(candidates, col)
			}
		}
		if len(candidates) > 0 {
			matching[candidates[rng.IntN(len(candidates))]] = row
			matchedGreedy[row] = true
		}
	}

	used := make([]bool, n)
	for row := 0; row < n; row++ {
		if matchedGreedy[row] {
			continue
		}
		for i := range used {
			used[i] = false
		}
		augment(row, used, matching, n, hasEdge)
	}

	return matching
}

func augment(row int, used []bool, matching []int, n int, hasEdge func(row, col int) bool) bool {
	if used[row] {
		return false
	}
	used[row] = true
	for col := 0; col < n; col++ {
		if hasEdge(row, col) && (matching[col] == -1 || augment(matching[col], used, matching, n, hasEdge)) {
			matching[col] = row
			return true
		}
	}
	return false
}

// newAssignment generates the round schedule for the given players. The
// caller must have already enforced the player-count bounds.
func newAssignment(players []string, rng *rand.Rand) (results map[string][]Line, playerToResult map[string][]string, order []string) {
	n := len(players)
	m := latinSquare(n, rng)

	results = make(map[string][]Line, n)
	playerToResult = make(map[string][]string, n)
	order = make([]string, n)
	for j, id := range players {
		order[j] = id
		results[id] = make([]Line, n)
		playerToResult[id] = make([]string, n)
	}

	// m.at(i, j) == s means player i authors line s of player j's poem.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			step := m.at(i, j)
			results[players[j]][step-1] = Line{Author: players[i]}
			playerToResult[players[i]][step-1] = players[j]
		}
	}

	return results, playerToResult, order
}
