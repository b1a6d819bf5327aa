package resolve

import (
	"context"
	"strings"
	"testing"

	"cveorigin/internal/corpus"
	"cveorigin/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repo(t *testing.T, s string) model.RepoID {
	t.Helper()
	r, err := model.ParseRepoID(s)
	require.NoError(t, err)
	return r
}

func TestCandidates(t *testing.T) {
	idx := corpus.BuildIndex([]model.Record{
		{ID: "CVE-1", Vendor: "acme", Product: "widget"},
		{ID: "CVE-2", Vendor: "Acme", Product: "Widget"},
		{ID: "CVE-3", Vendor: "widget", Product: "acme"},
		{ID: "CVE-4", Vendor: "acme", Product: "widget-pro"},
		{ID: "CVE-5", Vendor: "other", Product: "gizmo"},
		{ID: "CVE-6", Vendor: "gizmo", Product: "gizmo-server", URLs: []string{"https://github.com/bob/gizmo/commit/1"}},
		{ID: "CVE-7", Vendor: "n/a", Product: "gizmo"},
	})
	r := NewResolver(idx)

	tests := []struct {
		name  string
		repo  string
		tier  model.Tier
		pairs []string
	}{
		{"exact both orders", "acme/widget", model.TierExact, []string{"acme,widget", "widget,acme"}},
		{"case insensitive", "ACME/WIDGET", model.TierExact, []string{"acme,widget", "widget,acme"}},
		{"url short-circuits semi", "bob/gizmo", model.TierURLOnly, []string{"gizmo,gizmo-server"}},
		{"semi name inside product", "acme/get-pro", model.TierSemi, []string{"acme,widget-pro"}},
		{"semi product inside name", "acme/widget-extra", model.TierSemi, []string{"acme,widget"}},
		{"semi product equals name", "carol/gizmo", model.TierSemi, []string{"other,gizmo"}},
		{"nothing", "dave/none", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := r.Candidates(repo(t, tt.repo))
			var pairs []string
			for _, c := range cands {
				assert.Equal(t, tt.tier, c.Tier)
				pairs = append(pairs, c.String())
			}
			assert.Equal(t, tt.pairs, pairs)
		})
	}
}

func TestCandidatesEvidenceMerged(t *testing.T) {
	idx := corpus.BuildIndex([]model.Record{
		{ID: "CVE-9", Vendor: "acme", Product: "widget"},
		{ID: "CVE-1", Vendor: "ACME", Product: "widget"},
	})
	cands := NewResolver(idx).Candidates(repo(t, "acme/widget"))
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"CVE-1", "CVE-9"}, cands[0].Evidence)
}

func TestExactBeatsURL(t *testing.T) {
	idx := corpus.BuildIndex([]model.Record{
		{ID: "CVE-1", Vendor: "acme", Product: "widget"},
		{ID: "CVE-2", Vendor: "foo", Product: "bar", URLs: []string{"https://github.com/acme/widget"}},
	})
	cands := NewResolver(idx).Candidates(repo(t, "acme/widget"))
	require.Len(t, cands, 1)
	assert.Equal(t, model.TierExact, cands[0].Tier)
}

func TestPlaceholderURLHitNeedsReview(t *testing.T) {
	idx := corpus.BuildIndex([]model.Record{
		{ID: "CVE-2024-0001", Vendor: "n/a", Product: "n/a", URLs: []string{"https://github.com/acme/widget/commit/abc123"}},
	})
	r := repo(t, "acme/widget")
	cands := NewResolver(idx).Candidates(r)
	require.Len(t, cands, 1)
	assert.Equal(t, model.TierURLOnly, cands[0].Tier)
	assert.Equal(t, []string{"CVE-2024-0001"}, cands[0].Evidence)

	res := Aggregate(r, cands)
	assert.Equal(t, model.BucketAmbiguous, res.Bucket)
	assert.Equal(t, cands, res.Candidates)
	assert.Empty(t, res.Vendor)
}

func TestURLHitIsSubstringMatch(t *testing.T) {
	idx := corpus.BuildIndex([]model.Record{
		{ID: "CVE-1", Vendor: "acme", Product: "widget-extra", URLs: []string{"https://github.com/acme/widget-extra/issues/1"}},
	})
	r := repo(t, "acme/widget")
	cands := NewResolver(idx).Candidates(r)
	require.Len(t, cands, 1)
	assert.Equal(t, model.TierURLOnly, cands[0].Tier)

	res := Aggregate(r, cands)
	assert.Equal(t, model.BucketResolved, res.Bucket)
	assert.Equal(t, "widget-extra", res.Product)
}

func TestAggregate(t *testing.T) {
	r := model.RepoID{Owner: "acme", Name: "widget"}
	semi := func(v, p string) model.Candidate {
		return model.Candidate{Repo: r, Vendor: v, Product: p, Tier: model.TierSemi}
	}

	t.Run("empty is missing", func(t *testing.T) {
		assert.Equal(t, model.BucketMissing, Aggregate(r, nil).Bucket)
	})

	t.Run("exact prefers identical pair", func(t *testing.T) {
		res := Aggregate(r, []model.Candidate{
			{Vendor: "widget", Product: "acme", Tier: model.TierExact},
			{Vendor: "acme", Product: "widget", Tier: model.TierExact},
		})
		assert.Equal(t, model.BucketResolved, res.Bucket)
		assert.Equal(t, "acme", res.Vendor)
		assert.Equal(t, "widget", res.Product)
	})

	t.Run("single semi accepted", func(t *testing.T) {
		res := Aggregate(r, []model.Candidate{semi("acme", "widget-pro")})
		assert.Equal(t, model.BucketResolved, res.Bucket)
		assert.Equal(t, model.TierSemi, res.Tier)
	})

	t.Run("slug refinement", func(t *testing.T) {
		res := Aggregate(r, []model.Candidate{semi("acme", "acme/widget"), semi("acme", "widget-pro")})
		assert.Equal(t, model.BucketResolved, res.Bucket)
		assert.Equal(t, "acme/widget", res.Product)
	})

	t.Run("placeholder does not block a usable candidate", func(t *testing.T) {
		res := Aggregate(r, []model.Candidate{semi("acme", "widget-pro"), {Repo: r, Vendor: "n/a", Product: "n/a", Tier: model.TierSemi}})
		assert.Equal(t, model.BucketResolved, res.Bucket)
		assert.Equal(t, "widget-pro", res.Product)
	})

	t.Run("unrefined is ambiguous", func(t *testing.T) {
		cands := []model.Candidate{semi("acme", "widget-cli"), semi("acme", "widget-pro")}
		res := Aggregate(r, cands)
		assert.Equal(t, model.BucketAmbiguous, res.Bucket)
		assert.Equal(t, cands, res.Candidates)
		assert.Empty(t, res.Vendor)
	})
}

const repoList = `# curated
acme/widget
acme/widget-extra
https://github.com/acme/gadget.git
not a repo
acme/widget

acme/multi
nobody/nothing
`

func batchIndex() *corpus.Index {
	return corpus.BuildIndex([]model.Record{
		{ID: "CVE-2024-1", Vendor: "acme", Product: "widget"},
		{ID: "CVE-2024-2", Vendor: "acme", Product: "multi-server"},
		{ID: "CVE-2024-3", Vendor: "acme", Product: "multi-client"},
		{ID: "CVE-2024-4", Vendor: "acme-corp", Product: "gadget", URLs: []string{"https://github.com/acme/gadget/issues/4"}},
	})
}

func TestRunBuckets(t *testing.T) {
	repos, skipped, err := ReadRepoList(strings.NewReader(repoList))
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Error(), "line 5")

	results, err := Run(context.Background(), repos, batchIndex(), Options{Workers: 3})
	require.NoError(t, err)
	require.Len(t, results, 5, "duplicates are resolved once")

	byRepo := make(map[string]model.Resolution)
	for _, res := range results {
		byRepo[res.Repo.Slug()] = res
	}

	widget := byRepo["acme/widget"]
	assert.Equal(t, model.BucketResolved, widget.Bucket)
	assert.Equal(t, model.TierExact, widget.Tier)
	assert.Equal(t, "acme", widget.Vendor)
	assert.Equal(t, "widget", widget.Product)

	extra := byRepo["acme/widget-extra"]
	assert.Equal(t, model.BucketResolved, extra.Bucket)
	assert.Equal(t, model.TierSemi, extra.Tier)
	assert.Equal(t, "widget", extra.Product)

	gadget := byRepo["acme/gadget"]
	assert.Equal(t, model.BucketResolved, gadget.Bucket)
	assert.Equal(t, model.TierURLOnly, gadget.Tier)

	multi := byRepo["acme/multi"]
	assert.Equal(t, model.BucketAmbiguous, multi.Bucket)
	assert.Len(t, multi.Candidates, 2)

	assert.Equal(t, model.BucketMissing, byRepo["nobody/nothing"].Bucket)

	tally := Count(results)
	assert.Equal(t, len(results), tally.Total(), "buckets are exhaustive and exclusive")
	assert.Equal(t, Tally{Resolved: 3, Ambiguous: 1, Missing: 1}, tally)
}

func TestRunSemiAutoAccept(t *testing.T) {
	idx := corpus.BuildIndex([]model.Record{{ID: "CVE-1", Vendor: "acme", Product: "widget"}})
	results, err := Run(context.Background(), []model.RepoID{{Owner: "acme", Name: "widget-extra"}}, idx, Options{Workers: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.BucketResolved, results[0].Bucket)
	assert.Equal(t, model.TierSemi, results[0].Tier)
}

func TestRunIdempotent(t *testing.T) {
	repos, _, err := ReadRepoList(strings.NewReader(repoList))
	require.NoError(t, err)
	idx := batchIndex()

	first, err := Run(context.Background(), repos, idx, Options{Workers: 4})
	require.NoError(t, err)
	second, err := Run(context.Background(), repos, idx, Options{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Run(ctx, []model.RepoID{{Owner: "a", Name: "b"}}, batchIndex(), Options{Workers: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestRunProgress(t *testing.T) {
	var last int
	_, err := Run(context.Background(), []model.RepoID{{Owner: "a", Name: "b"}, {Owner: "c", Name: "d"}}, batchIndex(), Options{
		Workers:  1,
		Progress: func(done, total int) { last = done },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, last)
}
