package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"treecheck/internal/engine/match"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDMismatch   = "TC001"
	ruleIDParseError = "TC002"
	ruleIDInfra      = "TC003"

	toolVersion = "1.0.0"
)

// sarifReport is the top-level SARIF document.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

// GenerateSARIF builds a SARIF v2.1.0 document from a finalized report.
// All file URIs are made relative to rootPath; absolute paths are never
// included so that reports are safe to share.
func GenerateSARIF(rootPath string, r *Report) ([]byte, error) {
	results := make([]sarifResult, 0)
	seenRules := make(map[string]bool)

	for _, fr := range r.Results {
		if fr.Passed {
			continue
		}
		for _, m := range fr.Verdict.Mismatches {
			ruleID, level := classifyMismatch(m.Kind)
			seenRules[ruleID] = true

			msg := fmt.Sprintf("[%s] %s: %s", fr.Language, m.Kind, m.String())
			result := sarifResult{
				RuleID:  ruleID,
				Level:   level,
				Message: sarifMessage{Text: msg},
			}

			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(rootPath, fr.Path),
						URIBaseID: "%SRCROOT%",
					},
				},
			}
			if m.EndByte > m.StartByte || m.Row > 0 || m.Column > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{
					StartLine:   int(m.Row) + 1,
					StartColumn: int(m.Column) + 1,
				}
			}
			result.Locations = []sarifLocation{loc}
			results = append(results, result)
		}
	}

	doc := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "treecheck",
						Version: toolVersion,
						Rules:   buildSARIFRules(seenRules),
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(doc, "", "  ")
}

func classifyMismatch(kind match.MismatchKind) (ruleID, level string) {
	switch kind {
	case match.MismatchParseError:
		return ruleIDParseError, "error"
	case match.MismatchUnknownLanguage, match.MismatchAdapterFailure, match.MismatchTimeout:
		return ruleIDInfra, "warning"
	default:
		return ruleIDMismatch, "error"
	}
}

// buildSARIFRules returns only the rules that are relevant for the given findings.
func buildSARIFRules(seen map[string]bool) []sarifRule {
	rules := make([]sarifRule, 0, 3)
	if seen[ruleIDMismatch] {
		rules = append(rules, sarifRule{
			ID:               ruleIDMismatch,
			Name:             "StructuralMismatch",
			ShortDescription: sarifMessage{Text: "The parsed tree diverges from the fixture's expectation pattern."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
		})
	}
	if seen[ruleIDParseError] {
		rules = append(rules, sarifRule{
			ID:               ruleIDParseError,
			Name:             "ParseErrorEncountered",
			ShortDescription: sarifMessage{Text: "The grammar could not fully parse the fixture source."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
		})
	}
	if seen[ruleIDInfra] {
		rules = append(rules, sarifRule{
			ID:               ruleIDInfra,
			Name:             "InfrastructureFailure",
			ShortDescription: sarifMessage{Text: "The fixture could not be evaluated (unknown language, adapter failure or timeout)."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	return rules
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at rootPath. If the path is already relative or rootPath is
// empty, the original path (with forward slashes) is returned.
func relativeURI(rootPath, filePath string) string {
	if rootPath != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(rootPath, filePath)
		if err == nil {
			filePath = rel
		}
	}
	// SARIF URIs use forward slashes.
	return filepath.ToSlash(filePath)
}
