package storage

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaBase       = "https://realtor-scraper.local/schemas/"
	schemaCheckpoint = "checkpoint.json"
	schemaBackup     = "backup.json"
)

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema = make(map[string]*jsonschema.Schema)
)

func compileSchemas() error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true

		for _, name := range []string{"listing.json", schemaCheckpoint, schemaBackup} {
			data, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				schemaErr = fmt.Errorf("schema: read %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(schemaBase+name, bytes.NewReader(data)); err != nil {
				schemaErr = fmt.Errorf("schema: add %s: %w", name, err)
				return
			}
		}
		for _, name := range []string{schemaCheckpoint, schemaBackup} {
			s, err := compiler.Compile(schemaBase + name)
			if err != nil {
				schemaErr = fmt.Errorf("schema: compile %s: %w", name, err)
				return
			}
			compiledSchema[name] = s
		}
	})
	return schemaErr
}

// validateDocument checks body against the named embedded schema.
func validateDocument(name string, body []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("schema: document is not valid JSON: %w", err)
	}
	if err := compiledSchema[name].Validate(v); err != nil {
		return fmt.Errorf("schema: %s validation failed: %w", name, err)
	}
	return nil
}
