package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestLatinSquareProperty(t *testing.T) {
	for n := MinPlayers; n <= MaxPlayers; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			for seed := uint64(0); seed < 20; seed++ {
				m := latinSquare(n, testRNG(seed))

				for i := 0; i < n; i++ {
					assert.Equal(t, 1, m.at(i, i), "diagonal must hold step 1")

					rowSeen := make(map[int]bool, n)
					colSeen := make(map[int]bool, n)
					for j := 0; j < n; j++ {
						rv := m.at(i, j)
						cv := m.at(j, i)
						require.True(t, rv >= 1 && rv <= n, "row value out of range: %d", rv)
						require.True(t, cv >= 1 && cv <= n, "col value out of range: %d", cv)
						assert.False(t, rowSeen[rv], "row %d repeats step %d", i, rv)
						assert.False(t, colSeen[cv], "col %d repeats step %d", i, cv)
						rowSeen[rv] = true
						colSeen[cv] = true
					}
				}
			}
		})
	}
}

func TestAssignmentConsistency(t *testing.T) {
	for n := MinPlayers; n <= MaxPlayers; n++ {
		players := make([]string, n)
		for i := range players {
			players[i] = fmt.Sprintf("player-%d", i)
		}

		results, playerToResult, order := newAssignment(players, testRNG(uint64(n)))

		require.Len(t, results, n)
		require.Len(t, playerToResult, n)
		assert.Equal(t, players, order)

		for _, p := range players {
			require.Len(t, playerToResult[p], n)
			require.Len(t, results[p], n)

			// Step 1 is the identity: everyone opens their own poem.
			assert.Equal(t, p, playerToResult[p][0])
			assert.Equal(t, p, results[p][0].Author)
		}

		// playerToResult and results must agree: if p writes for owner o
		// at step s, then o's line at step s is authored by p.
		for _, p := range players {
			for s := 0; s < n; s++ {
				owner := playerToResult[p][s]
				assert.Equal(t, p, results[owner][s].Author,
					"owner %s step %d", owner, s+1)
			}
		}

		// Per step, the owner->author map is a permutation.
		for s := 0; s < n; s++ {
			authors := make(map[string]bool, n)
			for _, o := range players {
				authors[results[o][s].Author] = true
			}
			assert.Len(t, authors, n, "step %d authors must be a permutation", s+1)
		}

		// Per player, the owner sequence across steps is a permutation.
		for _, p := range players {
			owners := make(map[string]bool, n)
			for s := 0; s < n; s++ {
				owners[playerToResult[p][s]] = true
			}
			assert.Len(t, owners, n, "player %s owners must be a permutation", p)
		}
	}
}
