package cluster

import (
	"sort"
	"strings"
	"unicode"

	"github.com/TobiSchelling/Pulse/internal/format"
)

const (
	DefaultSimilarity = 0.3
	DefaultTopN       = 5
)

// Lifecycle values.
const (
	Active       = "active"
	Consolidated = "consolidated"
	Paused       = "paused"
	Abandoned    = "abandoned"
	Noise        = "noise"
)

// Trajectory values.
const (
	Rising = "rising"
	Stable = "stable"
	Fading = "fading"
)

var stopWords = map[string]bool{
	"the": true, "and": true, "of": true, "to": true, "a": true, "in": true,
	"for": true, "with": true, "on": true, "at": true, "by": true, "an": true,
	"is": true, "it": true, "from": true, "task": true, "project": true,
	"habit": true, "todo": true,
}

// Candidate is one category label from one source, weighted by that source's
// recent activity factor.
type Candidate struct {
	Label   string
	Value   float64
	Source  string
	Recency float64
}

// Cluster accumulates candidates whose token sets overlap.
type Cluster struct {
	Tokens  map[string]bool
	Total   float64
	Sources map[string]bool
	Labels  []string
	Recency float64
}

// Theme is a scored, classified cluster ready for the context payload.
type Theme struct {
	Theme      string   `json:"theme"`
	SharePct   float64  `json:"share_pct"`
	Sources    []string `json:"sources"`
	Examples   []string `json:"examples"`
	Relevance  float64  `json:"relevance"`
	Lifecycle  string   `json:"lifecycle"`
	Trajectory string   `json:"trajectory"`
}

// Clusterer groups category labels across sources into themes.
type Clusterer struct {
	similarity float64
	topN       int
}

// NewClusterer creates a clusterer. Non-positive arguments select the defaults.
func NewClusterer(similarity float64, topN int) *Clusterer {
	if similarity <= 0 {
		similarity = DefaultSimilarity
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Clusterer{similarity: similarity, topN: topN}
}

// Themes clusters the candidates and returns the non-noise themes ordered by
// relevance, truncated to the configured top N.
func (c *Clusterer) Themes(candidates []Candidate) []Theme {
	clusters := c.Cluster(candidates)

	var grand float64
	for _, cl := range clusters {
		grand += cl.Total
	}
	if grand == 0 {
		grand = 1
	}

	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].Total > clusters[j].Total })

	themes := make([]Theme, 0, len(clusters))
	for _, cl := range clusters {
		share := cl.Total / grand
		lifecycle, trajectory := Classify(share, cl.Recency)
		if lifecycle == Noise {
			continue
		}
		themes = append(themes, Theme{
			Theme:      label(cl.Tokens),
			SharePct:   format.Round(share*100, 1),
			Sources:    sortedKeys(cl.Sources),
			Examples:   firstN(cl.Labels, 3),
			Relevance:  format.Round(Relevance(share, cl.Recency), 3),
			Lifecycle:  lifecycle,
			Trajectory: trajectory,
		})
	}

	sort.SliceStable(themes, func(i, j int) bool { return themes[i].Relevance > themes[j].Relevance })
	if len(themes) > c.topN {
		themes = themes[:c.topN]
	}
	return themes
}

// Cluster runs a single greedy pass over the candidates in descending value
// order. Each candidate joins the first cluster whose token set is similar
// enough, otherwise it opens a new cluster. Ties in value keep input order.
func (c *Clusterer) Cluster(candidates []Candidate) []*Cluster {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Value > ordered[j].Value })

	var clusters []*Cluster
	for _, cand := range ordered {
		tokens := tokenSet(cand.Label)

		var placed bool
		for _, cl := range clusters {
			if Jaccard(tokens, cl.Tokens) >= c.similarity {
				for t := range tokens {
					cl.Tokens[t] = true
				}
				cl.Total += cand.Value
				cl.Sources[cand.Source] = true
				cl.Labels = append(cl.Labels, cand.Label)
				if cand.Recency > cl.Recency {
					cl.Recency = cand.Recency
				}
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, &Cluster{
				Tokens:  tokens,
				Total:   cand.Value,
				Sources: map[string]bool{cand.Source: true},
				Labels:  []string{cand.Label},
				Recency: cand.Recency,
			})
		}
	}
	return clusters
}

// Tokenize splits a label on '/', '-', '_' and whitespace, lowercases the
// parts and drops stopwords.
func Tokenize(label string) []string {
	fields := strings.FieldsFunc(label, func(r rune) bool {
		return r == '/' || r == '-' || r == '_' || unicode.IsSpace(r)
	})
	var tokens []string
	for _, f := range fields {
		t := strings.ToLower(strings.TrimSpace(f))
		if t == "" || stopWords[t] {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]bool) float64 {
	var inter int
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Relevance favours recent themes with a meaningful share.
func Relevance(share, recency float64) float64 {
	if share < 0.01 {
		share = 0.01
	}
	return recency * share
}

// Classify maps a theme's share and recency onto a lifecycle and trajectory.
func Classify(share, recency float64) (lifecycle, trajectory string) {
	if share < 0.02 {
		return Noise, Stable
	}
	switch {
	case recency >= 0.3:
		lifecycle = Active
	case recency >= 0.1:
		lifecycle = Paused
	case recency >= 0.05 && share >= 0.1:
		lifecycle = Consolidated
	case recency < 0.05 && share >= 0.05:
		lifecycle = Abandoned
	default:
		lifecycle = Noise
	}

	switch {
	case recency >= 0.25:
		trajectory = Rising
	case recency <= 0.05:
		trajectory = Fading
	default:
		trajectory = Stable
	}
	return lifecycle, trajectory
}

// tokenSet falls back to the lowercased label when every token is a stopword.
func tokenSet(label string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokenize(label) {
		set[t] = true
	}
	if len(set) == 0 {
		set[strings.ToLower(label)] = true
	}
	return set
}

func label(tokens map[string]bool) string {
	return strings.Join(firstN(sortedKeys(tokens), 3), " / ")
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
