package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTopology = `# lab topology
router r1
router r2
link r1:eth0 r2:eth1
link r2:eth2 r3
link averyveryverylongname:eth0 r3:eth3

host h1
`

func TestParseTopology(t *testing.T) {
	topo, err := ParseTopology(strings.NewReader(sampleTopology))
	require.NoError(t, err)

	assert.True(t, topo.LinkExists("r1", "r2"))
	assert.True(t, topo.LinkExists("r2", "r1"), "links are undirected")
	assert.True(t, topo.LinkExists("r3", "r2"))
	assert.False(t, topo.LinkExists("r1", "r3"))
	assert.True(t, topo.LinkExists("averyveryv", "r3"), "names are truncated")

	assert.Equal(t, []string{"averyveryv", "r1", "r2", "r3"}, topo.AllNodes())
	assert.Equal(t, []string{"averyveryv", "r2"}, topo.Neighbors("r3"))
	assert.Equal(t, [][2]string{{"averyveryv", "r3"}, {"r1", "r2"}, {"r2", "r3"}}, topo.Links())
}

func TestParseTopology_ShortLink(t *testing.T) {
	_, err := ParseTopology(strings.NewReader("link r1\n"))
	assert.ErrorIs(t, err, ErrMalformedTopology)

	_, err = ParseTopology(strings.NewReader("link :eth0 r2\n"))
	assert.ErrorIs(t, err, ErrMalformedTopology)
}

func TestParseTopology_Empty(t *testing.T) {
	topo, err := ParseTopology(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, topo.AllNodes())
	assert.False(t, topo.LinkExists("a", "b"))
}

func TestComponents(t *testing.T) {
	topo := NewTopology()
	topo.AddLink("a", "b")
	topo.AddLink("b", "c")
	topo.AddLink("x", "y")

	assert.Equal(t, [][]string{{"a", "b", "c"}, {"x", "y"}}, Components(topo))
	assert.Empty(t, Components(NewTopology()))
}
