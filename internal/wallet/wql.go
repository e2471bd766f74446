package wallet

import (
	"encoding/json"
	"regexp"
	"strconv"

	"aries-agent-core/internal/agenterr"
)

// Query is a parsed WQL expression restricted to the subset spec §4.1
// requires: equality on tag keys, $and/$or composition, and the scalar
// operators $regex and $gte. Anything outside this subset is rejected at
// Parse time rather than silently ignored.
type Query struct {
	and   []Query
	or    []Query
	eq    map[string]string
	regex map[string]*regexp.Regexp
	gte   map[string]float64
}

// ParseWQL decodes a WQL JSON document into a Query, rejecting any operator
// outside the §4.1 subset.
func ParseWQL(raw []byte) (Query, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return Query{}, agenterr.Wrap(agenterr.InvalidInput, "ParseWQL", "invalid JSON", err)
	}
	return parseWQLMap(m)
}

func parseWQLMap(m map[string]interface{}) (Query, error) {
	q := Query{eq: map[string]string{}, regex: map[string]*regexp.Regexp{}, gte: map[string]float64{}}
	for k, v := range m {
		switch k {
		case "$and":
			arr, ok := v.([]interface{})
			if !ok {
				return Query{}, agenterr.New(agenterr.InvalidInput, "ParseWQL", "$and requires an array")
			}
			for _, item := range arr {
				sub, ok := item.(map[string]interface{})
				if !ok {
					return Query{}, agenterr.New(agenterr.InvalidInput, "ParseWQL", "$and entries must be objects")
				}
				parsed, err := parseWQLMap(sub)
				if err != nil {
					return Query{}, err
				}
				q.and = append(q.and, parsed)
			}
		case "$or":
			arr, ok := v.([]interface{})
			if !ok {
				return Query{}, agenterr.New(agenterr.InvalidInput, "ParseWQL", "$or requires an array")
			}
			for _, item := range arr {
				sub, ok := item.(map[string]interface{})
				if !ok {
					return Query{}, agenterr.New(agenterr.InvalidInput, "ParseWQL", "$or entries must be objects")
				}
				parsed, err := parseWQLMap(sub)
				if err != nil {
					return Query{}, err
				}
				q.or = append(q.or, parsed)
			}
		default:
			switch val := v.(type) {
			case string:
				q.eq[k] = val
			case map[string]interface{}:
				if len(val) != 1 {
					return Query{}, agenterr.New(agenterr.InvalidInput, "ParseWQL", "exactly one scalar operator is supported for key "+k)
				}
				if rx, ok := val["$regex"]; ok {
					pattern, ok := rx.(string)
					if !ok {
						return Query{}, agenterr.New(agenterr.InvalidInput, "ParseWQL", "$regex requires a string")
					}
					re, err := regexp.Compile(pattern)
					if err != nil {
						return Query{}, agenterr.Wrap(agenterr.InvalidInput, "ParseWQL", "compile $regex", err)
					}
					q.regex[k] = re
					continue
				}
				if gte, ok := val["$gte"]; ok {
					num, err := toFloat(gte)
					if err != nil {
						return Query{}, agenterr.Wrap(agenterr.InvalidInput, "ParseWQL", "$gte requires a number", err)
					}
					q.gte[k] = num
					continue
				}
				return Query{}, agenterr.New(agenterr.InvalidInput, "ParseWQL", "unsupported scalar operator for key "+k)
			default:
				return Query{}, agenterr.New(agenterr.InvalidInput, "ParseWQL", "unsupported tag value type for key "+k)
			}
		}
	}
	return q, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, agenterr.New(agenterr.InvalidInput, "toFloat", "not a number")
	}
}

// Match reports whether tags satisfies q.
func (q Query) Match(tags map[string]string) bool {
	for k, v := range q.eq {
		if tags[k] != v {
			return false
		}
	}
	for k, re := range q.regex {
		if !re.MatchString(tags[k]) {
			return false
		}
	}
	for k, threshold := range q.gte {
		val, err := strconv.ParseFloat(tags[k], 64)
		if err != nil || val < threshold {
			return false
		}
	}
	for _, sub := range q.and {
		if !sub.Match(tags) {
			return false
		}
	}
	if len(q.or) > 0 {
		anyTrue := false
		for _, sub := range q.or {
			if sub.Match(tags) {
				anyTrue = true
				break
			}
		}
		if !anyTrue {
			return false
		}
	}
	return true
}
