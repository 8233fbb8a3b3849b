package fanout

import (
	"encoding/json"
	"fmt"
	"os"
)

// Outline is the plan structure driving retrieval fan-out.
type Outline struct {
	Sections []Section `json:"sections"`
}

// Section groups subsections under a named plan chapter.
type Section struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Subsections []Subsection `json:"subsections"`
}

// Subsection is one retrieval target. Enabled defaults to true when absent.
type Subsection struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Order   int    `json:"order"`
	MinChar int    `json:"minChar"`
	MaxChar int    `json:"maxChar"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Job is a flattened, enabled subsection ready for retrieval.
type Job struct {
	SubsectionID   string
	SubsectionName string
	SectionID      string
	SectionName    string
	Order          int
	MinChar        int
	MaxChar        int
}

// LoadOutline reads and parses an outline file.
func LoadOutline(path string) (*Outline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read outline %s: %w", path, err)
	}
	outline := &Outline{}
	if err := json.Unmarshal(data, outline); err != nil {
		return nil, fmt.Errorf("failed to parse outline %s: %w", path, err)
	}
	return outline, nil
}

// Jobs flattens the outline into enabled subsections, preserving document
// order.
func (o *Outline) Jobs() []Job {
	var jobs []Job
	for _, section := range o.Sections {
		for _, sub := range section.Subsections {
			if sub.Enabled != nil && !*sub.Enabled {
				continue
			}
			jobs = append(jobs, Job{
				SubsectionID:   sub.ID,
				SubsectionName: sub.Name,
				SectionID:      section.ID,
				SectionName:    section.Name,
				Order:          sub.Order,
				MinChar:        sub.MinChar,
				MaxChar:        sub.MaxChar,
			})
		}
	}
	return jobs
}
