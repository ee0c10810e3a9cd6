package settings

import (
	"bytes"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hpungsan/qet/internal/errors"
)

//go:embed schema.json
var schemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// Validate checks a settings update against the settings schema.
// Store.Set does not call it; update paths do.
func Validate(raw []byte) error {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("settings is not valid JSON: %v", err))
	}

	schema, err := loadSchema()
	if err != nil {
		return errors.NewInternal(err)
	}

	if err := schema.Validate(value); err != nil {
		qErr := errors.NewInvalidRequest("invalid settings")
		var ve *jsonschema.ValidationError
		if stderrors.As(err, &ve) {
			problems := validationProblems(ve)
			if len(problems) > 0 {
				qErr.Message = "invalid settings: " + strings.Join(problems, "; ")
			}
			qErr.Details = map[string]any{"problems": problems}
		}
		return qErr
	}

	if problems := integerLiteralProblems(value); len(problems) > 0 {
		qErr := errors.NewInvalidRequest("invalid settings: " + strings.Join(problems, "; "))
		qErr.Details = map[string]any{"problems": problems}
		return qErr
	}
	return nil
}

// integerKeys are stored as Go ints. JSON Schema counts 2000.0 as an
// integer; encoding/json does not.
var integerKeys = []string{"maxChars", "autoCloseDelay"}

func integerLiteralProblems(value any) []string {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	var out []string
	for _, key := range integerKeys {
		n, ok := obj[key].(json.Number)
		if !ok {
			continue
		}
		if _, err := n.Int64(); err != nil {
			out = append(out, fmt.Sprintf("/%s: must be written without a fraction or exponent, got %s", key, n))
		}
	}
	return out
}

// validationProblems flattens leaf errors to "location: message".
func validationProblems(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("settings.schema.json", strings.NewReader(schemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("settings.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
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
