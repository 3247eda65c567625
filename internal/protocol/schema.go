package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemaErr  error
	schemas    map[string]*jsonschema.Schema
)

func compileSchemas() {
	schemas = map[string]*jsonschema.Schema{}
	for typ, name := range map[string]string{
		TypeHello: "schemas/hello.schema.json",
		TypeInput: "schemas/input.schema.json",
	} {
		raw, err := schemaFS.ReadFile(name)
		if err != nil {
			schemaErr = err
			return
		}
		s, err := jsonschema.CompileString(name, string(raw))
		if err != nil {
			schemaErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		schemas[typ] = s
	}
}

// Validate checks a client frame of the given type against its schema.
// Types without a schema pass.
func Validate(typ string, raw []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	s := schemas[typ]
	if s == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return s.Validate(doc)
}
