package log

import "time"

// Attribute keys.
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldUserAgent     = "user_agent"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldSuccess       = "success"

	// Budget data
	FieldCollection = "collection"
	FieldVersion    = "version"
	FieldRecordID   = "record_id"
	FieldMonth      = "month"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldCount      = "count"
	FieldSkipped    = "skipped"
	FieldSource     = "source"
)

// Component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentData    = "data"
	ComponentWorker  = "worker"
	ComponentBackend = "backend"
	ComponentStorage = "storage"
)

// Operation names.
const (
	OpCreate  = "create"
	OpRead    = "read"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpList    = "list"
	OpImport  = "import"
	OpSuggest = "suggest"
)

// LogFields collects attributes for one record.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError records err's message; a nil err adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithChange describes a committed collection write.
func (f LogFields) WithChange(collection string, version int64, count int) LogFields {
	f[FieldCollection] = collection
	f[FieldVersion] = version
	f[FieldCount] = count
	return f
}

// WithHTTPRequest adds the request line. The query and user agent are
// omitted when empty.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(status int, elapsed time.Duration) LogFields {
	f[FieldStatusCode] = status
	f[FieldDuration] = elapsed.Milliseconds()
	f[FieldDurationHuman] = elapsed.Round(time.Microsecond).String()
	f[FieldSuccess] = status < 400
	return f
}

// ToSlice flattens the fields into slog key/value arguments.
func (f LogFields) ToSlice() []any {
	args := make([]any, 0, len(f)*2)
	for k, v := range f {
		args = append(args, k, v)
	}
	return args
}
