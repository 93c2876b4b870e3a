package rules

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Condition is the JSON predicate gating a rule. Every clause that is
// present must hold; an empty condition matches every cell.
type Condition struct {
	Column        string   `json:"column,omitempty"`
	Columns       []string `json:"columns,omitempty"`
	ColumnPattern string   `json:"column_pattern,omitempty"`
	ValuePattern  string   `json:"value_pattern,omitempty"`
	NotEmpty      bool     `json:"not_empty,omitempty"`
}

type condition struct {
	columns  []string
	columnRe *regexp.Regexp
	valueRe  *regexp.Regexp
	notEmpty bool
}

func compileCondition(raw json.RawMessage) (condition, error) {
	var c condition
	if len(raw) == 0 || string(raw) == "null" {
		return c, nil
	}
	var cond Condition
	if err := json.Unmarshal(raw, &cond); err != nil {
		return c, fmt.Errorf("condition: %w", err)
	}
	if cond.Column != "" {
		c.columns = append(c.columns, cond.Column)
	}
	c.columns = append(c.columns, cond.Columns...)
	if cond.ColumnPattern != "" {
		re, err := regexp.Compile(cond.ColumnPattern)
		if err != nil {
			return c, fmt.Errorf("condition column_pattern: %w", err)
		}
		c.columnRe = re
	}
	if cond.ValuePattern != "" {
		re, err := regexp.Compile(cond.ValuePattern)
		if err != nil {
			return c, fmt.Errorf("condition value_pattern: %w", err)
		}
		c.valueRe = re
	}
	c.notEmpty = cond.NotEmpty
	return c, nil
}

func (c condition) matchesColumn(column string) bool {
	if len(c.columns) > 0 {
		found := false
		for _, col := range c.columns {
			if strings.EqualFold(col, column) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return c.columnRe == nil || c.columnRe.MatchString(column)
}

func (c condition) matches(column, value string) bool {
	if !c.matchesColumn(column) {
		return false
	}
	if c.notEmpty && strings.TrimSpace(value) == "" {
		return false
	}
	return c.valueRe == nil || c.valueRe.MatchString(value)
}
