package model

const ServiceName = "PostgreSQL Database API"

type HealthStatus struct {
	Status   string `json:"status"`   // "healthy" | "unhealthy"
	Service  string `json:"service"`
	Database string `json:"database"` // "connected" | "disconnected"
	Error    string `json:"error,omitempty"`
}

type ConnectionTest struct {
	Success    bool   `json:"success"`
	Version    string `json:"version,omitempty"`
	Connection string `json:"connection"` // redacted summary, never the password
	Message    string `json:"message"`
}

type DebugConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Database    string `json:"database"`
	User        string `json:"user"`
	PasswordSet bool   `json:"password_set"`
	SSLMode     string `json:"sslmode"`
}
