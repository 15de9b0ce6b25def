package database

import (
	"net/url"
	"strings"
)

// ConstructDatabaseURL combines a server URL with a database name.
// The database name replaces any path already on the base URL, and
// sslmode=disable is added when the URL does not set an sslmode.
// An empty database name returns the base URL unchanged.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		// Leave malformed URLs for pgx to reject with a better message
		return baseURL
	}

	u.Path = "/" + databaseName

	query := u.Query()
	if query.Get("sslmode") == "" {
		query.Set("sslmode", "disable")
	}
	u.RawQuery = query.Encode()

	return u.String()
}
