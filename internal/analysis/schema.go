package analysis

import "encoding/json"

// JSON schemas handed to the reasoning model. They mirror the types in
// types.go and are enforced by the provider.
var (
	ReportSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "feature_analysis": {
      "type": "array",
      "description": "Features that must be understood or changed to solve the problem.",
      "items": {
        "type": "object",
        "properties": {
          "feature_description": {"type": "string", "description": "What the feature does and why it matters for the problem."},
          "implementation_location": {
            "type": "array",
            "description": "Where the feature is implemented.",
            "items": {
              "type": "object",
              "properties": {
                "file_path": {"type": "string", "description": "File path from the repository listing."},
                "function": {"type": "string", "description": "Function name."},
                "lines": {"type": "string", "description": "Line range, formatted start-end."}
              },
              "required": ["file_path", "function", "lines"]
            }
          }
        },
        "required": ["feature_description", "implementation_location"]
      }
    },
    "execution_plan_suggestion": {"type": "string", "description": "Suggested steps to solve the problem."}
  },
  "required": ["feature_analysis", "execution_plan_suggestion"]
}`)

	SubSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "feature_analysis": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "feature_description": {"type": "string", "description": "A feature related to the problem or to the focus feature."},
          "function": {"type": "string", "description": "Exact function name as it appears in the file."},
          "lines": {"type": "string", "description": "Line range, formatted start-end."}
        },
        "required": ["feature_description", "function", "lines"]
      }
    }
  },
  "required": ["feature_analysis"]
}`)

	DelegateInputSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "focus_file_list": {
      "type": "array",
      "items": {
        "type": "object",
        "description": "A feature to look for and the file to look in.",
        "properties": {
          "focus_feature": {"type": "string", "description": "The feature to analyse."},
          "code_path": {"type": "string", "description": "File path; must appear in the repository listing."}
        },
        "required": ["focus_feature", "code_path"]
      }
    }
  },
  "required": ["focus_file_list"]
}`)

	DelegateOutputSchema = json.RawMessage(`{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "code_path": {"type": "string"},
      "feature_analysis": {
        "type": "array",
        "items": {
          "type": "object",
          "properties": {
            "feature_description": {"type": "string"},
            "function": {"type": "string"},
            "lines": {"type": "string"}
          }
        }
      }
    }
  }
}`)
)
