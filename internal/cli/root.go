package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/phonginreallife/leadtriage/db"
)

// NewRootCmd builds the triagectl command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "triagectl",
		Short: "Offline lead triage",
		Long: `Filter, group and SLA-check leads from a JSON export without a running server.

The export is either a JSON array of leads or an object with a "leads" array.
Keys may be snake_case (owner_id, created_at) or camelCase (ownerId, createdAt).`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newFilterCmd())
	rootCmd.AddCommand(newWarningsCmd())
	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadLeads reads a lead export from path
func loadLeads(path string) ([]db.Lead, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	content, err = normalizeKeys(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var leads []db.Lead
	if err := json.Unmarshal(content, &leads); err == nil {
		return leads, nil
	}

	var wrapped struct {
		Leads []db.Lead `json:"leads"`
	}
	if err := json.Unmarshal(content, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return wrapped.Leads, nil
}

// normalizeKeys rewrites every camelCase object key in a JSON document to snake_case
func normalizeKeys(content []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return json.Marshal(snakeKeys(doc))
}

func snakeKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if toSnake(k) == k {
				out[k] = snakeKeys(val)
			}
		}
		// A snake_case key wins when an export carries both spellings
		for k, val := range t {
			if sk := toSnake(k); sk != k {
				if _, ok := out[sk]; !ok {
					out[sk] = snakeKeys(val)
				}
			}
		}
		return out
	case []interface{}:
		for i := range t {
			t[i] = snakeKeys(t[i])
		}
		return t
	}
	return v
}

// toSnake maps ownerId, ownerID and SLAStatus to owner_id, owner_id and sla_status
func toSnake(key string) string {
	runes := []rune(key)
	var b strings.Builder
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
