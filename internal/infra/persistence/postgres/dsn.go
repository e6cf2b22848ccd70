package postgres

import (
	"fmt"
	"strings"

	"storefront/config"
)

const defaultSSLMode = "disable"

// BuildDSN renders a libpq key/value connection string for one database.
func BuildDSN(conn config.ConnectionConfig, database, sslMode string) string {
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	parts := []string{
		"host=" + quoteDSNValue(conn.Host),
		"dbname=" + quoteDSNValue(database),
		"sslmode=" + quoteDSNValue(sslMode),
	}
	if conn.Port != "" {
		parts = append(parts, "port="+quoteDSNValue(conn.Port))
	}
	if conn.UserName != "" {
		parts = append(parts, "user="+quoteDSNValue(conn.UserName))
	}
	if conn.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(conn.Password))
	}

	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}

	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return fmt.Sprintf("'%s'", escaped)
}
