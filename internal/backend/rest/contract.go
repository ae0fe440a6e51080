package rest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/at-ishikawa/microlearn/schemas"
)

const schemaBaseURL = "schema://microlearn/"

const (
	schemaStartResponse  = "start_response.json"
	schemaAnswerResponse = "answer_response.json"
	schemaProgress       = "progress.json"
	schemaHistory        = "history.json"
)

var (
	compileOnce     sync.Once
	compiledSchemas map[string]*jsonschema.Schema
	compileErr      error
)

// loadSchemas compiles every embedded contract schema once
func loadSchemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchemas, compileErr = compileSchemas(schemas.Contract)
	})
	return compiledSchemas, compileErr
}

func compileSchemas(fsys fs.FS) (map[string]*jsonschema.Schema, error) {
	files, err := fs.Glob(fsys, "contract/*.json")
	if err != nil {
		return nil, fmt.Errorf("fs.Glob > %w", err)
	}

	c := jsonschema.NewCompiler()
	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("fs.ReadFile(%s) > %w", file, err)
		}
		// The jsonschema library expects a parsed JSON value, not raw bytes.
		var doc any
		if err := json.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", file, err)
		}
		if err := c.AddResource(schemaBaseURL+path.Base(file), doc); err != nil {
			return nil, fmt.Errorf("add resource %s: %w", file, err)
		}
	}

	result := make(map[string]*jsonschema.Schema)
	for _, name := range []string{schemaStartResponse, schemaAnswerResponse, schemaProgress, schemaHistory} {
		compiled, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		result[name] = compiled
	}
	return result, nil
}

// validateContract checks raw against the named schema
func validateContract(name string, raw []byte) error {
	compiled, err := loadSchemas()
	if err != nil {
		return fmt.Errorf("loadSchemas > %w", err)
	}
	schema, ok := compiled[name]
	if !ok {
		return fmt.Errorf("unknown schema %s", name)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
