package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// reader collects the names of required variables that are missing or
// malformed so Load can report all of them at once.
type reader struct {
	missing []string
	invalid []string
}

func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.missing = append(r.missing, key)
	}
	return v
}

func (r *reader) mustInt(key string) int {
	s := r.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.invalid = append(r.invalid, fmt.Sprintf("%s=%q", key, s))
	}
	return n
}

func (r *reader) err() error {
	if len(r.missing) == 0 && len(r.invalid) == 0 {
		return nil
	}
	sort.Strings(r.missing)
	var parts []string
	if len(r.missing) > 0 {
		parts = append(parts, "missing required env vars: "+strings.Join(r.missing, ", "))
	}
	if len(r.invalid) > 0 {
		parts = append(parts, "invalid int: "+strings.Join(r.invalid, ", "))
	}
	return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
