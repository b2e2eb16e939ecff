package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "senior go engineer", NormalizeQuery("  Senior   Go-Engineer!! "))
	assert.Equal(t, "c++ backend", NormalizeQuery("C++ / Backend"))
	assert.Equal(t, "", NormalizeQuery("   "))
}

func TestAlternativesBothDirections(t *testing.T) {
	assert.Equal(t, []string{"go", "golang"}, Alternatives("go"))
	assert.Equal(t, []string{"golang", "go"}, Alternatives("golang"))
	assert.Equal(t, []string{"rust"}, Alternatives("rust"))
	assert.Empty(t, Alternatives(""))
}

func TestQueryMatches(t *testing.T) {
	q := ProcessQuery("Go PostgreSQL")
	require.Len(t, q.Groups, 2)

	assert.True(t, q.Matches("Golang developer, Postgres experience"))
	assert.True(t, q.Matches("We use Go and PostgreSQL"))
	assert.False(t, q.Matches("Google Cloud and PostgreSQL"), "short terms match whole words only")
	assert.False(t, q.Matches("Go developer"), "every word must match")
}

func TestQueryMatchesMultiWordSynonym(t *testing.T) {
	q := ProcessQuery("frontend")
	assert.True(t, q.Matches("Senior Front End Engineer"))
	assert.True(t, q.Matches("front-end developer"))
	assert.False(t, q.Matches("backend developer"))
}

func TestEmptyQueryMatchesEverything(t *testing.T) {
	q := ProcessQuery("  ")
	assert.True(t, q.Empty())
	assert.True(t, q.Matches("anything"))
}
