package skill

// schemaJSON is the structural JSON Schema every skill document must
// satisfy before unmarshalling. Cross-field invariants (one strategy per
// command, CLI mode exclusivity, known post-processor kinds) are checked
// separately by Validate.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "commands"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "risk": {"enum": ["normal", "dangerous"]},
    "vault_service": {"type": "string"},
    "api": {
      "type": "object",
      "properties": {
        "base_url": {"type": "string"},
        "headers": {"type": "object", "additionalProperties": {"type": "string"}},
        "auth_header": {"type": "string"},
        "auth_prefix": {"type": "string"},
        "auth_query_param": {"type": "string"},
        "model": {"type": "string"},
        "hub_url": {"type": "string"}
      }
    },
    "oauth": {
      "type": "object",
      "required": ["provider"],
      "properties": {
        "provider": {"type": "string", "minLength": 1},
        "token_url": {"type": "string"}
      }
    },
    "commands": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "params": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {"name": {"type": "string", "minLength": 1}}
            }
          },
          "request": {"$ref": "#/definitions/request"},
          "multi_request": {
            "type": "object",
            "required": ["param", "values", "request"],
            "properties": {
              "param": {"type": "string", "minLength": 1},
              "values": {"type": "array", "minItems": 1},
              "merge_strategy": {"enum": ["concat", "object", "array"]},
              "request": {"$ref": "#/definitions/request"}
            }
          },
          "cli_template": {
            "type": "object",
            "properties": {
              "url_template": {"type": "string"},
              "method": {"type": "string"},
              "headers": {"type": "object", "additionalProperties": {"type": "string"}},
              "response_type": {"type": "string"},
              "gateway_exec": {"type": "boolean"},
              "command_template": {"type": "string"},
              "timeout_seconds": {"type": "integer"}
            }
          },
          "response": {
            "type": "object",
            "properties": {
              "error_path": {"type": "string"},
              "extract": {"type": "object", "additionalProperties": {"type": "string"}},
              "extract_raw": {"type": "string"},
              "passthrough": {"type": "boolean"},
              "image_field": {"type": "string"}
            }
          },
          "output_template": {"type": "string"},
          "post_processors": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["kind"],
              "properties": {
                "kind": {"type": "string"},
                "config": {"type": "object"}
              }
            }
          }
        }
      }
    }
  },
  "definitions": {
    "request": {
      "type": "object",
      "properties": {
        "method": {"type": "string"},
        "path": {"type": "string"},
        "query": {"type": "object", "additionalProperties": {"type": "string"}},
        "headers": {"type": "object", "additionalProperties": {"type": "string"}},
        "response_format": {"enum": ["json", "text", "binary"]},
        "proxy": {"type": "boolean"}
      }
    }
  }
}`
