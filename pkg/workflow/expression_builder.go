package workflow

import (
	"fmt"
	"strings"

	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/logger"
)

var expressionBuilderLog = logger.New("workflow:expression_builder")

// Expression Builder Functions
//
// Conditions are built from composable functions returning immutable
// ConditionNode values:
//
//	condition := BuildAnd(
//	    BuildMatrixEquals(constants.MatrixPlatformKey, "ubuntu-latest"),
//	    BuildMatrixEquals(constants.MatrixVersionKey, "3.13"),
//	)
//	expression := condition.Render()

// BuildAnd creates an AND node combining two conditions
func BuildAnd(left ConditionNode, right ConditionNode) ConditionNode {
	return &AndNode{Left: left, Right: right}
}

// BuildOr creates an OR node combining two conditions
func BuildOr(left ConditionNode, right ConditionNode) ConditionNode {
	return &OrNode{Left: left, Right: right}
}

// BuildPropertyAccess creates a property access node for context properties
func BuildPropertyAccess(path string) *PropertyAccessNode {
	return &PropertyAccessNode{PropertyPath: path}
}

// BuildStringLiteral creates a string literal node
func BuildStringLiteral(value string) *StringLiteralNode {
	return &StringLiteralNode{Value: value}
}

// BuildBooleanLiteral creates a boolean literal node
func BuildBooleanLiteral(value bool) *BooleanLiteralNode {
	return &BooleanLiteralNode{Value: value}
}

// BuildComparison creates a comparison node with the specified operator
func BuildComparison(left ConditionNode, operator string, right ConditionNode) *ComparisonNode {
	return &ComparisonNode{Left: left, Operator: operator, Right: right}
}

// BuildEquals creates an equality comparison
func BuildEquals(left ConditionNode, right ConditionNode) *ComparisonNode {
	return BuildComparison(left, "==", right)
}

// BuildNotEquals creates an inequality comparison
func BuildNotEquals(left ConditionNode, right ConditionNode) *ComparisonNode {
	return BuildComparison(left, "!=", right)
}

// BuildFunctionCall creates a function call node
func BuildFunctionCall(functionName string, args ...ConditionNode) *FunctionCallNode {
	return &FunctionCallNode{FunctionName: functionName, Arguments: args}
}

// BuildDisjunction creates a disjunction node (OR operation) from the given terms.
// The multiline parameter controls whether to render each term on a separate line.
func BuildDisjunction(multiline bool, terms ...ConditionNode) *DisjunctionNode {
	return &DisjunctionNode{Terms: terms, Multiline: multiline}
}

// BuildEventTypeEquals checks the name of the triggering event
func BuildEventTypeEquals(eventType string) *ComparisonNode {
	return BuildEquals(
		BuildPropertyAccess("github.event_name"),
		BuildStringLiteral(eventType),
	)
}

// BuildMatrixEquals compares one matrix axis with a value
func BuildMatrixEquals(key, value string) *ComparisonNode {
	return BuildEquals(
		BuildPropertyAccess("matrix."+key),
		BuildStringLiteral(value),
	)
}

// BuildCoverageGate is true only in the single cell that uploads coverage.
func BuildCoverageGate(platform, version string) ConditionNode {
	expressionBuilderLog.Printf("Building coverage gate condition: platform=%s, version=%s", platform, version)
	return BuildAnd(
		BuildMatrixEquals(constants.MatrixPlatformKey, platform),
		BuildMatrixEquals(constants.MatrixVersionKey, version),
	)
}

// BuildStepOutputEquals compares an output of an earlier step
func BuildStepOutputEquals(stepID, output, value string) *ComparisonNode {
	return BuildEquals(
		BuildPropertyAccess(fmt.Sprintf("steps.%s.outputs.%s", stepID, output)),
		BuildStringLiteral(value),
	)
}

// BuildCommittedCondition is the push guard of the documentation job: it
// holds only when the commit step recorded a commit.
func BuildCommittedCondition() ConditionNode {
	return BuildStepOutputEquals(constants.CommitStepID, constants.CommitStatusEnv, constants.CommitStatusDone)
}

// BuildSourceBranch is the branch a run was triggered from: the head branch
// of a pull request, the pushed branch otherwise.
func BuildSourceBranch() ConditionNode {
	return BuildDisjunction(false,
		BuildPropertyAccess("github.head_ref"),
		BuildPropertyAccess("github.ref_name"),
	)
}

// RenderConditionAsIf renders a ConditionNode as a step-level 'if' with the given indentation
func RenderConditionAsIf(yaml *strings.Builder, condition ConditionNode, indent string) {
	conditionStr := condition.Render()
	if !strings.Contains(conditionStr, "\n") {
		yaml.WriteString(indent + "if: " + yamlString(conditionStr) + "\n")
		return
	}
	yaml.WriteString(indent + "if: |\n")
	for _, line := range strings.Split(conditionStr, "\n") {
		yaml.WriteString(indent + "  " + line + "\n")
	}
}
