package entities

import "time"

// Shapes passed through the admin CRUD endpoints. The gateway forwards these
// to the upstream panel API verbatim; it owns none of them.

type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Support   bool      `json:"support"`
	Admin     bool      `json:"admin"`
	Balance   int64     `json:"balance"`
	PlanID    string    `json:"plan_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Plan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	QueryQuota   int    `json:"query_quota"`
	DurationDays int    `json:"duration_days"`
	Active       bool   `json:"active"`
}

type Testimonial struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Rating    int       `json:"rating"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// ConfigEntry is one row of the upstream system-configuration store.
type ConfigEntry struct {
	Key   string `json:"config_key"`
	Value string `json:"config_value"`
}

// MaintenanceKey is the config entry the maintenance poller watches.
const MaintenanceKey = "maintenance_mode"

// On reports whether the entry flags its feature as enabled.
func (c ConfigEntry) On() bool {
	return c.Value == "1" || c.Value == "true"
}

// LookupModule is the closed set of record-lookup modules the panel sells.
type LookupModule string

const (
	LookupCPF     LookupModule = "cpf"
	LookupCNPJ    LookupModule = "cnpj"
	LookupVehicle LookupModule = "vehicle"
)

func (m LookupModule) Valid() bool {
	switch m {
	case LookupCPF, LookupCNPJ, LookupVehicle:
		return true
	}
	return false
}
