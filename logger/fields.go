package logger

// Standard field names for structured logging.
const (
	FieldComponent = "component"
	FieldModel     = "model"
	FieldProvider  = "provider"
	FieldPath      = "path"

	// Timing
	FieldDurationMS    = "duration_ms"
	FieldPreprocessMS  = "preprocess_ms"
	FieldInferenceMS   = "inference_ms"
	FieldPostprocessMS = "postprocess_ms"

	// Counts and sizes
	FieldCount      = "count"
	FieldCandidates = "candidates"
	FieldWidth      = "width"
	FieldHeight     = "height"

	FieldError = "error"
)
