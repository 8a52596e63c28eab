package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldSpreadsheet = "spreadsheet"
	FieldSheet       = "sheet"
	FieldSheetClass  = "sheet_class"
	FieldRow         = "row"
	FieldColumn      = "column"
	FieldMonth       = "month"
	FieldTxID        = "transaction_id"
	FieldTxKind      = "transaction_kind"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldSubCategory = "sub_category"
	FieldAccount     = "account"
	FieldExpected    = "expected"
	FieldActual      = "actual"
	FieldMismatches  = "mismatches"
	FieldTraceID     = "trace_id"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentSheets   = "sheets"
	ComponentRegistry = "registry"
	ComponentValidate = "validate"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpProcess  = "process"
	OpValidate = "validate"
	OpRecord   = "record"
	OpAppend   = "append"
	OpUpdate   = "update"
	OpRead     = "read"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSheet adds the spreadsheet and sheet names
func (f LogFields) WithSheet(spreadsheet, sheet string) LogFields {
	f[FieldSpreadsheet] = spreadsheet
	f[FieldSheet] = sheet
	return f
}

// WithTransaction adds transaction-related fields. Empty subcategories are
// left out.
func (f LogFields) WithTransaction(id int64, kind string, amountCents int64, category, subCategory, account string) LogFields {
	if id != 0 {
		f[FieldTxID] = id
	}
	f[FieldTxKind] = kind
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	if subCategory != "" {
		f[FieldSubCategory] = subCategory
	}
	f[FieldAccount] = account
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
