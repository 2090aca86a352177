package types

import "time"

// Config contains the configuration for the server, storage and backend.
type Config struct {
	// HTTPPort is the port the server listens on
	HTTPPort int
	// BasePath is the mount path of the JSON API, e.g. "/api"
	BasePath string
	// ActionParam is the query parameter used for actions
	ActionParam string
	// SessionSecret signs CSRF tokens and seals stored passwords
	SessionSecret string

	// StorageDriver selects the local persistence backend (sqlite, postgres, mysql, sqlserver)
	StorageDriver string
	// StorageDSN is the data source for the persistence backend
	StorageDSN string
	// EnabledStorageDrivers limits which storage drivers may be selected
	EnabledStorageDrivers []string

	// ScanBatchSize is the COUNT hint used when scanning keys
	ScanBatchSize int
	// DialTimeout bounds establishing a Redis connection
	DialTimeout time.Duration

	// SecureCookies marks cookies Secure regardless of the request scheme
	SecureCookies bool
}
