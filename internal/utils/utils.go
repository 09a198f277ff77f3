package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// --- 1. Error Reporting ---

// ShowError prints the framed error block used by every veil command.
// Unlike a hard exit it leaves the decision to terminate to the caller, so
// deferred cleanup (closing logs, the archive connection) still runs.
func ShowError(context string, err error) {
	writeError(os.Stderr, context, err)
}

func writeError(w io.Writer, context string, err error) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🚨 VEIL ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(w, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// --- 2. Log Identity & Archive Location ---

// GenerateLogID creates a deterministic hash for a sensor log
// based on its path, size, and modification time.
func GenerateLogID(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	input := fmt.Sprintf("%s-%d-%d", path, info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:]), nil
}

// DefaultDBURL is used when neither a flag nor the environment names a database.
const DefaultDBURL = "postgres://localhost:5432/veil"

// ResolveDBURL returns the explicit connection string when set, otherwise
// builds one from the POSTGRES_* environment variables.
func ResolveDBURL(explicit string) string {
	if explicit != "" {
		return explicit
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return DefaultDBURL
	}
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	name := os.Getenv("POSTGRES_DB")
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
}
