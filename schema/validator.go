package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed evidence_corpus.schema.json
var evidenceCorpusSchemaJSON string

//go:embed timeline_events.schema.json
var timelineEventsSchemaJSON string

const (
	evidenceCorpusSchemaName = "evidence_corpus.schema.json"
	timelineEventsSchemaName = "timeline_events.schema.json"
)

type compiledSchema struct {
	once   sync.Once
	name   string
	source *string
	schema *jsonschema.Schema
	err    error
}

var (
	corpusSchema = &compiledSchema{name: evidenceCorpusSchemaName, source: &evidenceCorpusSchemaJSON}
	eventsSchema = &compiledSchema{name: timelineEventsSchemaName, source: &timelineEventsSchemaJSON}
)

// ValidateEvidenceCorpus checks a raw evidence.json payload against the corpus schema
// and returns the decoded value. Numbers are decoded as json.Number.
func ValidateEvidenceCorpus(payload []byte) (any, error) {
	return validate(corpusSchema, payload)
}

// ValidateTimelineEvents checks an events_raw.json or events_deduped.json payload.
func ValidateTimelineEvents(payload []byte) error {
	_, err := validate(eventsSchema, payload)
	return err
}

func validate(cs *compiledSchema, payload []byte) (any, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := cs.load()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return value, nil
}

func (cs *compiledSchema) load() (*jsonschema.Schema, error) {
	cs.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(cs.name, strings.NewReader(*cs.source)); err != nil {
			cs.err = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(cs.name)
		if err != nil {
			cs.err = fmt.Errorf("compile schema: %w", err)
			return
		}
		cs.schema = schema
	})

	if cs.err != nil {
		return nil, cs.err
	}
	if cs.schema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return cs.schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
