package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON schema, compiled lazily on first use.
type Schema struct {
	name string
	def  map[string]any

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewSchema wraps a JSON-Schema document given as a generic map.
func NewSchema(name string, def map[string]any) *Schema {
	return &Schema{name: name, def: def}
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	s.once.Do(func() {
		b, err := json.Marshal(s.def)
		if err != nil {
			s.err = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(s.name, bytes.NewReader(b)); err != nil {
			s.err = fmt.Errorf("add schema: %w", err)
			return
		}
		s.compiled, s.err = compiler.Compile(s.name)
		if s.err != nil {
			s.err = fmt.Errorf("compile schema: %w", s.err)
		}
	})
	return s.compiled, s.err
}

// Validate checks raw JSON against the schema. Data errors wrap ErrValidation.
func (s *Schema) Validate(data []byte) error {
	if _, err := s.compile(); err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: malformed json: %v", ErrValidation, err)
	}
	return s.ValidateValue(v)
}

// ValidateValue checks an already-decoded JSON value.
func (s *Schema) ValidateValue(v any) error {
	compiled, err := s.compile()
	if err != nil {
		return err
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
