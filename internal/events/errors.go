package events

import "codeberg.org/mutker/infotainctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("events_invalid_db_path")
	ErrInvalidBatch  = errors.ErrorCode("events_invalid_batch_size")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("events_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("events_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("events_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("events_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("events_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Journal Errors
	ErrInvalidEvent     = errors.ErrorCode("events_invalid_event")
	ErrJournalClosed    = errors.ErrorCode("events_journal_closed")
	ErrOperationTimeout = errors.ErrTimeout
)
