package cluster

import "sort"

// autojunkMinLen is the length of b from which popular bytes stop seeding
// matches when autojunk is enabled.
const autojunkMinLen = 200

// Match is a matching block: a[A:A+Size] == b[B:B+Size].
type Match struct {
	A    int
	B    int
	Size int
}

// Matcher finds the matching blocks between two strings by repeatedly taking
// the longest common block and recursing on what is left on either side.
// It works on bytes, not runes.
//
// The zero value is not usable; create one with NewMatcher.
type Matcher struct {
	a, b    string
	b2j     map[byte][]int
	popular map[byte]struct{}
	blocks  []Match
}

// NewMatcher prepares a Matcher comparing a against b. With autojunk, bytes
// making up more than 1% of a b of 200+ bytes are treated as popular: they
// never start a match but can extend one.
func NewMatcher(a, b string, autojunk bool) *Matcher {
	m := &Matcher{a: a, b: b}
	m.chainB(autojunk)
	return m
}

func (m *Matcher) chainB(autojunk bool) {
	m.b2j = make(map[byte][]int)
	for j := 0; j < len(m.b); j++ {
		m.b2j[m.b[j]] = append(m.b2j[m.b[j]], j)
	}

	m.popular = make(map[byte]struct{})
	n := len(m.b)
	if !autojunk || n < autojunkMinLen {
		return
	}
	ntest := n/100 + 1
	for c, idxs := range m.b2j {
		if len(idxs) > ntest {
			m.popular[c] = struct{}{}
		}
	}
	for c := range m.popular {
		delete(m.b2j, c)
	}
}

// FindLongestMatch returns the longest block with a[alo:ahi] and b[blo:bhi].
// Among equally long blocks the one starting earliest in a wins, then the
// one starting earliest in b. Size is 0 when nothing matches.
func (m *Matcher) FindLongestMatch(alo, ahi, blo, bhi int) Match {
	besti, bestj, bestsize := alo, blo, 0

	// j2len[j] is the length of the longest match ending at a[i-1], b[j].
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		next := make(map[int]int)
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	// Popular bytes were left out of b2j; let them extend the block.
	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi && m.a[besti+bestsize] == m.b[bestj+bestsize] {
		bestsize++
	}

	return Match{A: besti, B: bestj, Size: bestsize}
}

// MatchingBlocks returns the non-adjacent matching blocks in increasing
// order of A and B, terminated by the sentinel {len(a), len(b), 0}.
func (m *Matcher) MatchingBlocks() []Match {
	if m.blocks != nil {
		return m.blocks
	}

	type span struct{ alo, ahi, blo, bhi int }

	la, lb := len(m.a), len(m.b)
	queue := []span{{0, la, 0, lb}}
	var found []Match
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		x := m.FindLongestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if x.Size == 0 {
			continue
		}
		found = append(found, x)
		if s.alo < x.A && s.blo < x.B {
			queue = append(queue, span{s.alo, x.A, s.blo, x.B})
		}
		if x.A+x.Size < s.ahi && x.B+x.Size < s.bhi {
			queue = append(queue, span{x.A + x.Size, s.ahi, x.B + x.Size, s.bhi})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].A != found[j].A {
			return found[i].A < found[j].A
		}
		if found[i].B != found[j].B {
			return found[i].B < found[j].B
		}
		return found[i].Size < found[j].Size
	})

	blocks := make([]Match, 0, len(found)+1)
	var cur Match
	for _, x := range found {
		if cur.A+cur.Size == x.A && cur.B+cur.Size == x.B {
			cur.Size += x.Size
			continue
		}
		if cur.Size > 0 {
			blocks = append(blocks, cur)
		}
		cur = x
	}
	if cur.Size > 0 {
		blocks = append(blocks, cur)
	}
	blocks = append(blocks, Match{A: la, B: lb, Size: 0})

	m.blocks = blocks
	return blocks
}

// Ratio returns 2*M/T, where M is the number of matched bytes and T the
// combined length of both strings. Two empty strings have ratio 1.
func (m *Matcher) Ratio() float64 {
	matches := 0
	for _, blk := range m.MatchingBlocks() {
		matches += blk.Size
	}
	total := len(m.a) + len(m.b)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matches) / float64(total)
}

// Ratio is shorthand for NewMatcher(a, b, true).Ratio().
func Ratio(a, b string) float64 {
	return NewMatcher(a, b, true).Ratio()
}
