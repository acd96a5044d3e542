package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_RanksByFieldWeights(t *testing.T) {
	doc := testDocument()

	hits := Search(doc, "weekly lifetime value")
	require.NotEmpty(t, hits)
	assert.Equal(t, "ltv_weekly", hits[0].Model.Name)
	assert.Contains(t, hits[0].MatchedFields, "description")
	assert.Contains(t, hits[0].MatchedFields, "grain")
	assert.Positive(t, hits[0].Score)
}

func TestSearch_MetricAndDimensionTokens(t *testing.T) {
	doc := testDocument()

	hits := Search(doc, "spend per campaign")
	require.NotEmpty(t, hits)
	assert.Equal(t, "campaign_spend", hits[0].Model.Name)
	assert.Contains(t, hits[0].MatchedFields, "metrics")
	assert.Contains(t, hits[0].MatchedFields, "dimensions")
}

func TestSearch_NoMatchIsEmptyNotError(t *testing.T) {
	doc := testDocument()

	assert.Empty(t, Search(doc, "orbital bakery logistics"))
	assert.Empty(t, Search(doc, ""))
	assert.Empty(t, Search(doc, "  !!  "))
}

func TestSearch_Idempotent(t *testing.T) {
	doc := testDocument()

	first := Search(doc, "weekly ltv")
	second := Search(doc, "weekly ltv")
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Model.Name, second[i].Model.Name)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestSearch_TieBreakIsDocumentOrder(t *testing.T) {
	doc := testDocument()
	// Both models carry the "finance"/"marketing" domains; use a query that
	// scores both equally on the shared column-description token "usd"... the
	// simplest equal-score query here is one hitting only the domain field.
	docEq := *doc
	docEq.Models[0].Domain = "growth"
	docEq.Models[1].Domain = "growth"

	hits := Search(&docEq, "growth")
	require.Len(t, hits, 2)
	assert.Equal(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "ltv_weekly", hits[0].Model.Name, "ties keep document order")
	assert.Equal(t, "campaign_spend", hits[1].Model.Name)
}
