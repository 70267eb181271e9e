package transcript

import (
	"fmt"
	"sort"
)

// UnknownTranscriptError reports a lookup for a transcript id that is
// absent from the registry.
type UnknownTranscriptError struct {
	ID string
}

func (e *UnknownTranscriptError) Error() string {
	return fmt.Sprintf("unknown transcript %s", e.ID)
}

// Registry indexes transcripts by id for repeated lookup.
// Built once by a loader; read-only afterwards, so it is safe for
// concurrent lookups from multiple mapping workers.
type Registry struct {
	transcripts map[string]*Transcript
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transcripts: make(map[string]*Transcript),
	}
}

// Add registers a transcript. Ids are unique; re-adding an id is an error.
func (r *Registry) Add(t *Transcript) error {
	if _, ok := r.transcripts[t.ID]; ok {
		return fmt.Errorf("duplicate transcript id %s", t.ID)
	}
	r.transcripts[t.ID] = t
	return nil
}

// Lookup returns the transcript for an id.
func (r *Registry) Lookup(id string) (*Transcript, error) {
	t, ok := r.transcripts[id]
	if !ok {
		return nil, &UnknownTranscriptError{ID: id}
	}
	return t, nil
}

// Len returns the number of registered transcripts.
func (r *Registry) Len() int {
	return len(r.transcripts)
}

// IDs returns a sorted list of registered transcript ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.transcripts))
	for id := range r.transcripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
