package arbiter

// Rule maps one player attribute/value pair to a monitor-name pattern.
// Order in a RuleSet is significant; earlier rules win. A rule with any
// empty field is skipped during matching rather than rejected at load.
type Rule struct {
	PlayerAttribute string `yaml:"player_attribute" json:"player_attribute"`
	AttributeValue  string `yaml:"attribute_value" json:"attribute_value"`
	MonitorPattern  string `yaml:"monitor_pattern" json:"monitor_pattern"`
}

// complete reports whether all three fields are present.
func (r Rule) complete() bool {
	return r.PlayerAttribute != "" && r.AttributeValue != "" && r.MonitorPattern != ""
}

// matches reports whether the player info satisfies the attribute test.
// Only string attribute values can match; the comparison is verbatim.
func (r Rule) matches(info map[string]any) bool {
	v, ok := info[r.PlayerAttribute].(string)
	return ok && v == r.AttributeValue
}

// RuleSet is an ordered list of routing rules.
type RuleSet []Rule

// DefaultRules returns the built-in rules used when configuration provides
// none: right-handed players to monitors named with "1", left-handed to "2".
func DefaultRules() RuleSet {
	return RuleSet{
		{PlayerAttribute: "Handed", AttributeValue: "RH", MonitorPattern: "1"},
		{PlayerAttribute: "Handed", AttributeValue: "LH", MonitorPattern: "2"},
	}
}
