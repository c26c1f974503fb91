package index

import (
	"fmt"

	"ghindexer/internal/model"
)

// Schema is the fixed layout of a collection of one kind. Every collection
// stores id, parent_id, updated_at, active and the JSON body; TextFields are
// the keys of Record.SearchFields that are full-text indexed.
type Schema struct {
	Kind       model.Kind
	TextFields []string
}

var schemas = map[model.Kind]Schema{
	model.KindRepos:        {Kind: model.KindRepos, TextFields: []string{"name", "owner"}},
	model.KindIssues:       {Kind: model.KindIssues, TextFields: []string{"title", "body", "author"}},
	model.KindPullRequests: {Kind: model.KindPullRequests, TextFields: []string{"title", "body", "author"}},
	model.KindMilestones:   {Kind: model.KindMilestones, TextFields: []string{"title", "description"}},
	model.KindProjects:     {Kind: model.KindProjects, TextFields: []string{"name", "body"}},
	model.KindLabels:       {Kind: model.KindLabels, TextFields: []string{"name", "description"}},
}

func SchemaFor(kind model.Kind) (Schema, error) {
	s, ok := schemas[kind]
	if !ok {
		return Schema{}, fmt.Errorf("no index schema for kind %q", kind)
	}
	return s, nil
}

func (s Schema) textValues(d Document) []any {
	out := make([]any, len(s.TextFields))
	for i, f := range s.TextFields {
		out[i] = d.Text[f]
	}
	return out
}
