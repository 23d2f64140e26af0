package prompt

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

//go:embed rice/*.txt
var riceFS embed.FS

const DefaultVersion = "v2"

// ResultSchema: контракт ответа, общий для всех версий промпта.
const ResultSchema = `{
  "type": "object",
  "properties": {
    "disease_name": {"type": "string"},
    "confidence_score": {"type": ["string", "number"]},
    "next_steps": {"type": "string"}
  },
  "required": ["disease_name", "confidence_score", "next_steps"]
}`

// Schema returns ResultSchema decoded for request bodies.
func Schema() map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(ResultSchema), &m); err != nil {
		panic("prompt: bad ResultSchema: " + err.Error())
	}
	return m
}

var allowedVersionRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Prompt is one versioned system prompt.
type Prompt struct {
	Version string
	Text    string
	Source  string // "embedded" or a file path
}

// Load returns the system prompt for version. A file <dir>/<version>.txt wins
// over the embedded copy so prompts can be edited without a rebuild.
func Load(version, dir string) (Prompt, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		version = DefaultVersion
	}
	if !allowedVersionRe.MatchString(version) {
		return Prompt{}, fmt.Errorf("invalid prompt version %q: must match %q", version, allowedVersionRe.String())
	}

	if dir = strings.TrimSpace(dir); dir != "" {
		p := filepath.Join(dir, version+".txt")
		if b, err := os.ReadFile(p); err == nil && len(strings.TrimSpace(string(b))) > 0 {
			return Prompt{Version: version, Text: strings.TrimSpace(string(b)), Source: p}, nil
		}
	}

	b, err := riceFS.ReadFile("rice/" + version + ".txt")
	if err != nil {
		return Prompt{}, fmt.Errorf("prompt %q not found (dir=%q, embedded=%v)", version, dir, Versions())
	}
	return Prompt{Version: version, Text: strings.TrimSpace(string(b)), Source: "embedded"}, nil
}

// Versions lists the embedded prompt versions.
func Versions() []string {
	entries, err := riceFS.ReadDir("rice")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if name := e.Name(); strings.HasSuffix(name, ".txt") {
			out = append(out, strings.TrimSuffix(name, ".txt"))
		}
	}
	sort.Strings(out)
	return out
}
