package entity

import (
	"errors"

	"github.com/xeipuuv/gojsonschema"
)

func validateRawJson(specData []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(specSchema)
	documentLoader := gojsonschema.NewBytesLoader(specData)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		specErrors := ""
		for _, desc := range result.Errors() {
			specErrors += " - " + desc.String()
		}
		err = errors.New(specErrors)
	}
	return err
}

// Dataset spec schema covering the structural checks. Semantic rules such as
// dataset naming and map function parameters are checked in Spec.Validate()
// and in the transform package.
var specSchema = []byte(`
{
  "$schema": "http://json-schema.org/draft-07/schema",
  "type": "object",
  "required": [
    "dataset",
    "description",
    "version",
    "source",
    "mapping",
    "sink"
  ],
  "properties": {
    "dataset": {
      "type": "string",
      "minLength": 1
    },
    "description": {
      "type": "string",
      "minLength": 1
    },
    "version": {
      "type": "integer"
    },
    "institution": {
      "type": "string"
    },
    "disabled": {
      "type": "boolean"
    },
    "ops": {
      "$ref": "#/$defs/ops"
    },
    "source": {
      "type": "object",
      "required": [
        "type"
      ],
      "properties": {
        "type": {
          "type": "string",
          "minLength": 1
        }
      }
    },
    "mapping": {
      "type": "object",
      "required": [
        "sections"
      ],
      "properties": {
        "excludeRowsWith": {
          "type": "array",
          "items": {
            "type": "object",
            "required": [
              "column"
            ]
          }
        },
        "sections": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": [
              "name",
              "groups"
            ],
            "properties": {
              "groups": {
                "type": "array",
                "minItems": 1,
                "items": {
                  "type": "object",
                  "required": [
                    "name",
                    "fields"
                  ],
                  "properties": {
                    "fields": {
                      "type": "array",
                      "minItems": 1,
                      "items": {
                        "type": "object",
                        "required": [
                          "name"
                        ]
                      }
                    }
                  }
                }
              }
            }
          }
        }
      }
    },
    "sink": {
      "type": "object",
      "required": [
        "type"
      ],
      "properties": {
        "type": {
          "type": "string",
          "minLength": 1
        }
      }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "mapString": {
      "type": "string"
    },
    "ops": {
      "type": "object",
      "properties": {
        "logRowData": {
          "type": "boolean"
        },
        "rowLogInterval": {
          "type": "integer"
        },
        "customProperties": {
          "anyOf": [
            {
              "type": "object",
              "additionalProperties": {
                "$ref": "#/$defs/mapString"
              }
            },
            {
              "type": "null"
            }
          ]
        }
      },
      "additionalProperties": false
    }
  }
}
`)
