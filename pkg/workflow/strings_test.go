//go:build !integration

package workflow

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "ubuntu-latest", expected: "ubuntu-latest"},
		{input: "3.10", expected: "'3.10'"},
		{input: "3", expected: "'3'"},
		{input: "1", expected: "'1'"},
		{input: "true", expected: "'true'"},
		{input: "on", expected: "'on'"},
		{input: "", expected: "''"},
		{input: "key: value", expected: "'key: value'"},
		{input: "value # comment", expected: "'value # comment'"},
		{input: "*alias", expected: "'*alias'"},
		{input: "- item", expected: "'- item'"},
		{input: "it's", expected: "it's"},
		{input: "'quoted'", expected: "'''quoted'''"},
		{input: " padded", expected: "' padded'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := yamlString(tt.input)
			assert.Equal(t, tt.expected, got)

			var decoded map[string]string
			require.NoError(t, yaml.Unmarshal([]byte("v: "+got), &decoded))
			assert.Equal(t, tt.input, decoded["v"], "rendered scalar must read back unchanged")
		})
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "README.md", expected: "README.md"},
		{input: "docs/index.md", expected: "docs/index.md"},
		{input: "Update README.md", expected: "'Update README.md'"},
		{input: "github-actions[bot]", expected: "'github-actions[bot]'"},
		{input: "it's", expected: `'it'"'"'s'`},
		{input: "", expected: "''"},
		{input: "$HOME", expected: "'$HOME'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, shellQuote(tt.input))
		})
	}
}

func TestCollectSecretReferences(t *testing.T) {
	content := `
env:
  A: ${{ secrets.CODECOV_TOKEN }}
  B: ${{ secrets.GITHUB_TOKEN }}
  C: ${{ secrets.CODECOV_TOKEN }}
  D: ${{ github.token }}
`
	assert.Equal(t, []string{"CODECOV_TOKEN", "GITHUB_TOKEN"}, CollectSecretReferences(content))
	assert.Empty(t, CollectSecretReferences("jobs: {}"))
}
