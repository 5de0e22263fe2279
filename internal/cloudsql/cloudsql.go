// Package cloudsql resolves the PostgreSQL connection string for both
// local development (DATABASE_URL) and Cloud Run deployments where the
// Cloud SQL instance is mounted as a Unix socket.
package cloudsql

import (
	"fmt"
	"os"
	"strings"
)

// BuildDatabaseURL constructs a PostgreSQL connection string.
//
// Local development sets DATABASE_URL directly. On Cloud Run, set
// INSTANCE_CONNECTION_NAME (project:region:instance) plus DB_USER and
// DB_NAME; the instance socket is mounted under /cloudsql. DB_PASSWORD is
// optional when IAM database authentication is in use.
func BuildDatabaseURL() (string, error) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		return dbURL, nil
	}

	instance := os.Getenv("INSTANCE_CONNECTION_NAME")
	if instance == "" {
		return "", fmt.Errorf("neither DATABASE_URL nor INSTANCE_CONNECTION_NAME is set")
	}

	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if user == "" || name == "" {
		return "", fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	socketPath := "/cloudsql/" + instance

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
			socketPath, user, password, name), nil
	}
	return fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
		socketPath, user, name), nil
}

// ConnectionInfo describes the active database configuration with
// credentials redacted, for startup logging.
func ConnectionInfo() map[string]string {
	info := make(map[string]string)

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		info["connection_type"] = "direct"
		info["database_url"] = redactPassword(dbURL)
		return info
	}

	if instance := os.Getenv("INSTANCE_CONNECTION_NAME"); instance != "" {
		info["connection_type"] = "cloud_sql"
		info["instance"] = instance
		info["user"] = os.Getenv("DB_USER")
		info["database"] = os.Getenv("DB_NAME")
		info["socket_path"] = "/cloudsql/" + instance
		return info
	}

	info["connection_type"] = "none"
	info["error"] = "no database configuration found"
	return info
}

func redactPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgresql://") || strings.HasPrefix(connStr, "postgres://") {
		parts := strings.SplitN(connStr, "@", 2)
		if len(parts) == 2 {
			userParts := strings.Split(parts[0], ":")
			if len(userParts) >= 3 {
				return userParts[0] + "://" + userParts[1] + ":***@" + parts[1]
			}
		}
	}
	return connStr
}
