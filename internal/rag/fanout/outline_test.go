package fanout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outlineJSON = `{
  "sections": [
    {
      "id": "s1",
      "name": "Problem",
      "subsections": [
        {"id": "s1-1", "name": "Background", "order": 1, "minChar": 300, "maxChar": 800},
        {"id": "s1-2", "name": "Pain Points", "order": 2, "minChar": 300, "maxChar": 800, "enabled": false}
      ]
    },
    {
      "id": "s2",
      "name": "Solution",
      "subsections": [
        {"id": "s2-1", "name": "Product", "order": 3, "minChar": 500, "maxChar": 1200, "enabled": true}
      ]
    }
  ]
}`

func TestLoadOutline_AndJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procedure.json")
	require.NoError(t, os.WriteFile(path, []byte(outlineJSON), 0o644))

	outline, err := LoadOutline(path)
	require.NoError(t, err)

	jobs := outline.Jobs()
	require.Len(t, jobs, 2, "disabled subsections are excluded")

	assert.Equal(t, "s1-1", jobs[0].SubsectionID)
	assert.Equal(t, "Problem", jobs[0].SectionName)
	assert.Equal(t, 1, jobs[0].Order)
	assert.Equal(t, 800, jobs[0].MaxChar)

	assert.Equal(t, "s2-1", jobs[1].SubsectionID)
	assert.Equal(t, "Solution", jobs[1].SectionName)
}

func TestLoadOutline_MissingFile(t *testing.T) {
	_, err := LoadOutline(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestJobs_AllEnabledByDefault(t *testing.T) {
	outline := &Outline{Sections: []Section{
		{ID: "s1", Name: "One", Subsections: []Subsection{
			{ID: "a", Name: "A", Order: 1},
			{ID: "b", Name: "B", Order: 2},
		}},
	}}
	assert.Len(t, outline.Jobs(), 2)
}
