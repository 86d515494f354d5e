package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
)

func newImportCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import code pairs from a JSON or YAML file",
		Long: `Import code pairs through the API.

The file is either a list of pairs or an object with a codePairs list. Each pair
has version1, version2, commitMessage and optionally id, projectName,
commitHash and performanceChange. Pairs without an id get one assigned.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.importRun(cmd, args[0], dryRun)
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Parse and list the pairs without importing")
	return cmd
}

func (a *app) importRun(cmd *cobra.Command, file string, dryRun bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	pairs, err := parseCodePairs(file, data)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		a.ui.Info("No code pairs in %s", file)
		return nil
	}

	if dryRun {
		table := a.ui.Table([]string{"#", "ID", "PROJECT", "COMMIT MESSAGE"})
		for i, p := range pairs {
			_ = table.Append([]string{fmt.Sprint(i + 1), p.CodePairID, p.ProjectName, firstLine(p.CommitMessage)})
		}
		_ = table.Render()
		a.ui.Warning("[DRY-RUN] Would import %d code pairs", len(pairs))
		return nil
	}

	n, err := a.client().ImportCodePairs(cmd.Context(), pairs)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	a.ui.Success("Imported %d code pairs", n)
	return nil
}

func parseCodePairs(file string, data []byte) ([]model.CodePair, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return parseYAMLPairs(data)
	default:
		return parseJSONPairs(data)
	}
}

func parseJSONPairs(data []byte) ([]model.CodePair, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pairs []model.CodePair
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return pairs, nil
	}
	var doc struct {
		CodePairs []model.CodePair `json:"codePairs"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return doc.CodePairs, nil
}

func parseYAMLPairs(data []byte) ([]model.CodePair, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var pairs []model.CodePair
		if err := node.Content[0].Decode(&pairs); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return pairs, nil
	}
	var doc struct {
		CodePairs []model.CodePair `yaml:"codePairs"`
	}
	if err := node.Content[0].Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return doc.CodePairs, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
