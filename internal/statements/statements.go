// Package statements keeps the raw CSV statements users upload so they can be normalized again later.
package statements

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/domain"
)

// ErrNotFound is returned when no statement matches a lookup.
var ErrNotFound = errors.New("statement not found")

const rootPrefix = "statements"

// Store saves and retrieves raw statements.
type Store interface {
	// Put stores data under the user's period and returns the statement URI.
	Put(ctx context.Context, userID string, period domain.Period, name string, data []byte) (string, error)

	// Fetch returns the bytes behind a URI produced by Put.
	Fetch(ctx context.Context, uri string) ([]byte, error)

	// List returns the URIs of every statement stored for a period, ordered by name.
	// It returns ErrNotFound when there are none.
	List(ctx context.Context, userID string, period domain.Period) ([]string, error)
}

// ObjectName builds the storage key statements/<user>/<period>/<name>.
func ObjectName(userID string, period domain.Period, name string) (string, error) {
	if err := checkSegment("user id", userID); err != nil {
		return "", err
	}
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return "", err
	}
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if err := checkSegment("file name", base); err != nil {
		return "", err
	}
	return path.Join(rootPrefix, userID, string(period), base), nil
}

// PeriodPrefix is the key prefix under which a period's statements live.
func PeriodPrefix(userID string, period domain.Period) string {
	return path.Join(rootPrefix, userID, string(period)) + "/"
}

func checkSegment(what, s string) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." || s == "/" || strings.Contains(s, "/") {
		return fmt.Errorf("invalid %s %q", what, s)
	}
	return nil
}

// ParseGCSURI splits gs://bucket/object into its bucket and object names.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// Filename extracts the file name from a statement URI.
// e.g., "gs://bucket/statements/u/2024-01/jan.csv" → "jan.csv"
func Filename(uri string) string {
	for _, scheme := range []string{"gs://", "file://"} {
		if strings.HasPrefix(uri, scheme) {
			uri = strings.TrimPrefix(uri, scheme)
			break
		}
	}
	return path.Base(uri)
}
