package recurrence

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/homevisit/internal/clock"
)

// RuleSpec is the textual form of a Rule used by rule files and the admin
// API. EndDate is exclusive; FinalDate is the inclusive alternative used by
// the command line.
type RuleSpec struct {
	Name            string   `yaml:"name" json:"name"`
	BeginDate       string   `yaml:"begin_date" json:"begin_date"`
	EndDate         string   `yaml:"end_date" json:"end_date,omitempty"`
	FinalDate       string   `yaml:"final_date" json:"final_date,omitempty"`
	Weekdays        []string `yaml:"weekdays" json:"weekdays"`
	StartTimes      []string `yaml:"start_times" json:"start_times"`
	DurationMinutes int      `yaml:"duration_minutes" json:"duration_minutes"`
}

type ruleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// LoadRules reads a YAML rule file from disk.
func LoadRules(path string, defaultDuration int) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recurrence: read rules %s: %w", path, err)
	}
	rules, err := ParseRules(data, defaultDuration)
	if err != nil {
		return nil, fmt.Errorf("recurrence: %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes a YAML document of the form
//
//	rules:
//	  - name: spring
//	    begin_date: 2019-01-29
//	    end_date: 2019-03-19
//	    weekdays: [WED]
//	    start_times: ["19:00"]
//	    duration_minutes: 60
//
// Entries without a duration use defaultDuration. Every returned rule has
// passed Validate.
func ParseRules(data []byte, defaultDuration int) ([]Rule, error) {
	var doc ruleFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, errors.New("no rules defined")
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i, entry := range doc.Rules {
		rule, err := entry.Rule(defaultDuration)
		if err == nil {
			err = rule.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i+1, entry.Name, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Rule parses the textual fields. Entries without a duration use
// defaultDuration. The result is not validated.
func (d RuleSpec) Rule(defaultDuration int) (Rule, error) {
	rule := Rule{Name: d.Name, DurationMinutes: d.DurationMinutes}
	if rule.DurationMinutes == 0 {
		rule.DurationMinutes = defaultDuration
	}

	var err error
	if rule.BeginDate, err = clock.ParseDate(d.BeginDate); err != nil {
		return Rule{}, err
	}
	switch {
	case d.EndDate != "" && d.FinalDate != "":
		return Rule{}, errors.New("set either end_date or final_date, not both")
	case d.EndDate != "":
		if rule.EndDate, err = clock.ParseDate(d.EndDate); err != nil {
			return Rule{}, err
		}
	default:
		final, err := clock.ParseDate(d.FinalDate)
		if err != nil {
			return Rule{}, err
		}
		rule.EndDate = final.AddDays(1)
	}

	for _, name := range d.Weekdays {
		day, err := ParseWeekday(name)
		if err != nil {
			return Rule{}, err
		}
		rule.Weekdays = append(rule.Weekdays, day)
	}
	for _, value := range d.StartTimes {
		at, err := clock.ParseTimeOfDay(value)
		if err != nil {
			return Rule{}, err
		}
		rule.StartTimes = append(rule.StartTimes, at)
	}
	return rule, nil
}
