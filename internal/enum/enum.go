package enum

// ── Group A: Values persisted inside stored transactions ──

const (
	PaymentMethodCash = "cash"
	PaymentMethodQRIS = "qris"
)

const (
	TransactionStatusCompleted = "completed"
)

// ── Group B: Catalog labels ──

const (
	CategoryNasi    = "nasi"
	CategoryTopping = "topping"
	CategoryMinuman = "minuman"
)

// ── Group C: Runtime configuration ──

const (
	DiscountPolicyNone    = "none"
	DiscountPolicyPaket   = "paket"
	DiscountPolicyCombo10 = "combo10"
)

const (
	UserRoleOwner   = "OWNER"
	UserRoleCashier = "CASHIER"
)

const (
	StorageDriverFile     = "file"
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverMySQL    = "mysql"
)

// ── Group D: Realtime event types ──

const (
	EventCartUpdated          = "cart.updated"
	EventTransactionCommitted = "transaction.committed"
	EventTransactionDeleted   = "transaction.deleted"
	EventLedgerImported       = "ledger.imported"
	EventSyncStatus           = "sync.status"
	EventNotice               = "notice"
)

const (
	TopicCart   = "cart"
	TopicLedger = "ledger"
	TopicSync   = "sync"
	TopicNotice = "notice"
)

// ── Group E: Per-transaction sync states ──

const (
	SyncStatePending = "pending"
	SyncStateSynced  = "synced"
	SyncStateFailed  = "failed"
)

// PaymentMethodLabel returns the cashier-facing label used on receipts and exports.
func PaymentMethodLabel(method string) string {
	switch method {
	case PaymentMethodCash:
		return "Tunai"
	case PaymentMethodQRIS:
		return "QRIS"
	}
	return method
}
