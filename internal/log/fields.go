package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldTable     = "table"
	FieldRecordID  = "id"
	FieldUserID    = "user_id"
	FieldCount     = "count"
	FieldSynced    = "synced"
	FieldFailed    = "failed"
	FieldPending   = "pending"
	FieldOnline    = "online"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldMessageID = "message_id"
	FieldQueue     = "queue"
	FieldExchange  = "exchange"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentStore        = "store"
	ComponentCache        = "cache"
	ComponentSyncer       = "syncer"
	ComponentConnectivity = "connectivity"
	ComponentRemote       = "remote"
	ComponentAMQP         = "amqp"
	ComponentCLI          = "cli"
)

// Operations defines standard operation names
const (
	OpCache    = "cache"
	OpRead     = "read"
	OpWrite    = "write"
	OpDelete   = "delete"
	OpSync     = "sync"
	OpClear    = "clear"
	OpProbe    = "probe"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
