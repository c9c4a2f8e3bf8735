// Package detector implements the signup detection rule engine.
package detector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"

	"trackerwatch/internal/model"
)

// Evaluate runs a detection rule against fetched page content and returns
// the tri-state outcome. Parsing or expression failures yield
// OutcomeIndeterminate, never an error: the caller treats an indeterminate
// check as "no change".
func Evaluate(content string, rule model.DetectionRule) model.Outcome {
	switch rule.Method {
	case model.MethodTextMatch:
		return evalTextMatch(content, rule)
	case model.MethodCSSSelector:
		return evalCSSSelector(content, rule.CSSSelector)
	case model.MethodXPath:
		return evalXPath(content, rule.XPath)
	default:
		return model.OutcomeIndeterminate
	}
}

// evalTextMatch matches case-insensitive phrase sets against the content.
// Closed phrases win over open phrases: a page that still carries a
// "registration closed" banner must not notify, whatever else it says.
func evalTextMatch(content string, rule model.DetectionRule) model.Outcome {
	lower := strings.ToLower(content)

	for _, phrase := range rule.NotMatchText {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return model.OutcomeClosed
		}
	}
	for _, phrase := range rule.MatchText {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return model.OutcomeOpen
		}
	}
	return model.OutcomeIndeterminate
}

func evalCSSSelector(content, selector string) model.Outcome {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return model.OutcomeIndeterminate
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return model.OutcomeIndeterminate
	}
	if doc.FindMatcher(matcher).Length() > 0 {
		return model.OutcomeOpen
	}
	return model.OutcomeClosed
}

func evalXPath(content, expr string) model.Outcome {
	doc, err := htmlquery.Parse(strings.NewReader(content))
	if err != nil {
		return model.OutcomeIndeterminate
	}
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return model.OutcomeIndeterminate
	}
	if len(nodes) > 0 {
		return model.OutcomeOpen
	}
	return model.OutcomeClosed
}
