// Package importer validates and decodes student roster documents.
package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/noah-isme/ssmap-api/internal/models"
)

// RosterSchema describes an uploadable roster. Scores are optional and keyed
// by series, then subject.
const RosterSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["students"],
  "additionalProperties": false,
  "properties": {
    "students": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "name": {"type": "string", "minLength": 2},
          "gender": {"type": "string", "enum": ["M", "F", ""]},
          "parent_contact": {"type": "string"},
          "scores": {
            "type": "object",
            "additionalProperties": {
              "type": "object",
              "additionalProperties": {
                "type": "object",
                "required": ["section_a", "section_b"],
                "additionalProperties": false,
                "properties": {
                  "section_a": {"type": "number"},
                  "section_b": {"type": "number"},
                  "sba": {"type": ["number", "null"]}
                }
              }
            }
          }
        }
      }
    }
  }
}`

var rosterSchema = gojsonschema.NewStringLoader(RosterSchema)

// Roster is a decoded roster document.
type Roster struct {
	Students []RosterStudent `json:"students"`
}

// RosterStudent is one roster row.
type RosterStudent struct {
	ID            int                                       `json:"id,omitempty"`
	Name          string                                    `json:"name"`
	Gender        string                                    `json:"gender,omitempty"`
	ParentContact string                                    `json:"parent_contact,omitempty"`
	Scores        map[string]map[string]models.SubjectScore `json:"scores,omitempty"`
}

// ValidationError lists every schema violation in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "roster invalid: " + strings.Join(e.Problems, "; ")
}

// Validate checks a document against RosterSchema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(rosterSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("roster is not valid json: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &ValidationError{Problems: problems}
}

// Parse validates and decodes a roster document.
func Parse(data []byte) (*Roster, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var roster Roster
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return &roster, nil
}

// Load reads and parses a roster file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return Parse(data)
}

// Records converts roster rows into student records. Rows without an id are
// numbered from nextID upwards.
func (r *Roster) Records(nextID int) []models.Student {
	if nextID < 1 {
		nextID = 1
	}
	taken := make(map[int]struct{}, len(r.Students))
	for _, row := range r.Students {
		if row.ID > 0 {
			taken[row.ID] = struct{}{}
		}
	}
	out := make([]models.Student, 0, len(r.Students))
	for _, row := range r.Students {
		id := row.ID
		if id <= 0 {
			for {
				if _, used := taken[nextID]; !used {
					break
				}
				nextID++
			}
			id = nextID
			taken[id] = struct{}{}
		}
		st := models.Student{
			ID:            id,
			Name:          strings.TrimSpace(row.Name),
			Gender:        row.Gender,
			ParentContact: row.ParentContact,
			MockData:      map[string]models.MockSet{},
		}
		for series, subjects := range row.Scores {
			set := models.MockSet{Scores: make(map[string]models.SubjectScore, len(subjects))}
			for subject, sc := range subjects {
				set.Scores[subject] = sc
			}
			st.MockData[series] = set
		}
		out = append(out, st)
	}
	return out
}
