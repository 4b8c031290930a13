package stores

import (
	"context"
	"database/sql"
	"time"
)

// AssemblyStatus represents the outcome of a plan assembly.
type AssemblyStatus string

const (
	AssemblyStatusOK       AssemblyStatus = "ok"
	AssemblyStatusDegraded AssemblyStatus = "degraded"
)

// Assembly represents one recorded plan assembly.
type Assembly struct {
	ID            string         `json:"id"`
	ProfileName   string         `json:"profile_name"`
	ProfileOrigin string         `json:"profile_origin"`
	Status        AssemblyStatus `json:"status"`
	Plan          string         `json:"plan"` // JSON blob
	ModuleCount   int            `json:"module_count"`
	Provider      string         `json:"provider"`
	Model         string         `json:"model"`
	WorkDir       string         `json:"work_dir"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Activation represents an append-only record of a profile activation or
// deactivation at a scope.
type Activation struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"` // e.g., "profile.set", "profile.clear"
	Scope     string    `json:"scope"`
	Profile   string    `json:"profile"`
	Timestamp time.Time `json:"timestamp"`
}

// Resolution represents a cached module source resolution.
type Resolution struct {
	ID        string     `json:"id"`
	ModuleID  string     `json:"module_id"`
	Layer     string     `json:"layer"`
	Source    string     `json:"source"`
	TTL       int        `json:"ttl"` // seconds, 0 = no expiry
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Store defines the interface for the persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Assembly operations
	CreateAssembly(ctx context.Context, a *Assembly) error
	GetAssembly(ctx context.Context, id string) (*Assembly, error)
	LatestAssembly(ctx context.Context) (*Assembly, error)
	ListAssemblies(ctx context.Context, limit, offset int) ([]*Assembly, error)
	DeleteAssembly(ctx context.Context, id string) error
	PruneAssemblies(ctx context.Context, keep int) (int64, error)

	// Activation operations
	AppendActivation(ctx context.Context, entry *Activation) error
	ListActivations(ctx context.Context, scope *string, profile *string, limit, offset int) ([]*Activation, error)

	// Resolution cache operations
	UpsertResolution(ctx context.Context, r *Resolution) error
	GetResolution(ctx context.Context, moduleID string) (*Resolution, error)
	ListResolutions(ctx context.Context, layer *string, limit, offset int) ([]*Resolution, error)
	DeleteExpiredResolutions(ctx context.Context) (int64, error)
	DeleteResolution(ctx context.Context, id string) error

	// Utility
	HealthCheck(ctx context.Context) error
}
