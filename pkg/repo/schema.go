package repo

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

// FieldKind decides how a filter key is parsed and compiled.
type FieldKind int

const (
	// KindText is a case-insensitive substring match.
	KindText FieldKind = iota
	// KindExact is an equality match on a typed value.
	KindExact
	// KindBool accepts true/false or their string forms.
	KindBool
	// KindRange accepts [start, end]; empty bounds are open.
	KindRange
	// KindIDSet matches owners linked through a join table to any given id.
	KindIDSet
	// KindID is equality on one id or membership in a list of ids.
	KindID
	// KindJSONKey matches jsonb objects holding the given key.
	KindJSONKey
)

// ValueType is the Go type a filter value is coerced to.
type ValueType int

const (
	TypeString ValueType = iota
	TypeInt
	TypeFloat
	TypeTime
	TypeUUID
	TypeJSON
)

// FieldSpec describes one public filter key of an entity.
type FieldSpec struct {
	Kind   FieldKind
	Column string
	Type   ValueType
	// Subquery is used by KindIDSet. It selects owner ids and has a single %d
	// verb for the uuid[] placeholder.
	Subquery string
}

// Op is the operator of a Criterion.
type Op string

const (
	OpEq           Op = "eq"
	OpNotEq        Op = "ne"
	OpGte          Op = "gte"
	OpLte          Op = "lte"
	OpContains     Op = "like"
	OpPrefix       Op = "prefix"
	OpIn           Op = "in"
	OpInSubquery   Op = "inSubquery"
	OpJSONContains Op = "jsonContains"
	OpHasKey       Op = "hasKey"
	OpIsNull       Op = "isNull"
)

// Criterion is one validated predicate of a filter.
type Criterion struct {
	Field string
	Op    Op
	Value any
}

// Schema is the filter and sort vocabulary of one entity.
type Schema struct {
	Entity string
	Fields map[string]FieldSpec
	// Sort maps an orderBy token to a column or computed expression.
	Sort        map[string]string
	DefaultSort SortBy[string]
}

func invalidFilter(field, format string, args ...any) error {
	return serrors.Validation(
		"invalidFilter",
		fmt.Sprintf("filter %q: %s", field, fmt.Sprintf(format, args...)),
	).WithTemplateData(map[string]string{"Field": field})
}

// Parse validates a decoded filter object against the schema. Unknown keys
// are ignored. Criteria are returned sorted by key for stable SQL.
func (s Schema) Parse(raw map[string]any) ([]Criterion, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if _, ok := s.Fields[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []Criterion
	for _, key := range keys {
		spec := s.Fields[key]
		value := raw[key]
		if value == nil {
			continue
		}
		if tagged, ok := value.(map[string]any); ok && spec.Kind != KindRange {
			cs, err := s.parseTagged(key, spec, tagged)
			if err != nil {
				return nil, err
			}
			out = append(out, cs...)
			continue
		}
		cs, err := parseField(key, spec, value)
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)
	}
	return out, nil
}

func parseField(key string, spec FieldSpec, value any) ([]Criterion, error) {
	switch spec.Kind {
	case KindText:
		str := strings.TrimSpace(stringify(value))
		if str == "" {
			return nil, nil
		}
		return []Criterion{{Field: key, Op: OpContains, Value: str}}, nil
	case KindExact:
		if isEmpty(value) {
			return nil, nil
		}
		v, err := coerce(value, spec.Type)
		if err != nil {
			return nil, invalidFilter(key, "%v", err)
		}
		if spec.Type == TypeJSON {
			return []Criterion{{Field: key, Op: OpJSONContains, Value: v}}, nil
		}
		return []Criterion{{Field: key, Op: OpEq, Value: v}}, nil
	case KindBool:
		b, err := parseBool(value)
		if err != nil {
			return nil, invalidFilter(key, "%v", err)
		}
		return []Criterion{{Field: key, Op: OpEq, Value: b}}, nil
	case KindRange:
		return parseRange(key, spec, value)
	case KindIDSet:
		ids, err := parseIDs(value)
		if err != nil {
			return nil, invalidFilter(key, "%v", err)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		return []Criterion{{Field: key, Op: OpInSubquery, Value: ids}}, nil
	case KindID:
		if list, ok := value.([]any); ok {
			ids, err := parseIDs(list)
			if err != nil {
				return nil, invalidFilter(key, "%v", err)
			}
			if len(ids) == 0 {
				return nil, nil
			}
			return []Criterion{{Field: key, Op: OpIn, Value: ids}}, nil
		}
		if isEmpty(value) {
			return nil, nil
		}
		id, err := uuid.Parse(stringify(value))
		if err != nil {
			return nil, invalidFilter(key, "invalid id %q", stringify(value))
		}
		return []Criterion{{Field: key, Op: OpEq, Value: id}}, nil
	case KindJSONKey:
		str := strings.TrimSpace(stringify(value))
		if str == "" {
			return nil, nil
		}
		return []Criterion{{Field: key, Op: OpHasKey, Value: str}}, nil
	}
	return nil, invalidFilter(key, "unsupported field kind")
}

func parseRange(key string, spec FieldSpec, value any) ([]Criterion, error) {
	var bounds []any
	switch v := value.(type) {
	case []any:
		bounds = v
	case []string:
		for _, s := range v {
			bounds = append(bounds, s)
		}
	case map[string]any:
		bounds = []any{v["start"], v["end"]}
	default:
		return nil, invalidFilter(key, "range must be [start, end]")
	}
	if len(bounds) == 0 || len(bounds) > 2 {
		return nil, invalidFilter(key, "range must have one or two bounds, got %d", len(bounds))
	}
	var out []Criterion
	for i, bound := range bounds {
		if isEmpty(bound) {
			continue
		}
		v, err := coerce(bound, spec.Type)
		if err != nil {
			return nil, invalidFilter(key, "%v", err)
		}
		op := OpGte
		if i == 1 {
			op = OpLte
		}
		out = append(out, Criterion{Field: key, Op: op, Value: v})
	}
	return out, nil
}

var taggedOps = map[string]Op{
	"eq":     OpEq,
	"ne":     OpNotEq,
	"gte":    OpGte,
	"lte":    OpLte,
	"like":   OpContains,
	"prefix": OpPrefix,
	"in":     OpIn,
	"isNull": OpIsNull,
}

// parseTagged handles operator-tagged values such as {"gte": 10} or
// {"in": ["a", "b"]}.
func (s Schema) parseTagged(key string, spec FieldSpec, tagged map[string]any) ([]Criterion, error) {
	ops := make([]string, 0, len(tagged))
	for op := range tagged {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	var out []Criterion
	for _, name := range ops {
		op, ok := taggedOps[name]
		if !ok {
			return nil, invalidFilter(key, "unknown operator %q", name)
		}
		raw := tagged[name]
		switch op {
		case OpIsNull:
			b, err := parseBool(raw)
			if err != nil {
				return nil, invalidFilter(key, "%v", err)
			}
			out = append(out, Criterion{Field: key, Op: op, Value: b})
		case OpIn:
			if spec.Kind == KindIDSet {
				ids, err := parseIDs(raw)
				if err != nil {
					return nil, invalidFilter(key, "%v", err)
				}
				out = append(out, Criterion{Field: key, Op: OpInSubquery, Value: ids})
				continue
			}
			list, ok := raw.([]any)
			if !ok {
				return nil, invalidFilter(key, "in requires a list")
			}
			vals, err := coerceList(list, spec.Type)
			if err != nil {
				return nil, invalidFilter(key, "%v", err)
			}
			out = append(out, Criterion{Field: key, Op: OpIn, Value: vals})
		case OpContains, OpPrefix:
			out = append(out, Criterion{Field: key, Op: op, Value: stringify(raw)})
		default:
			if spec.Kind == KindIDSet {
				return nil, invalidFilter(key, "only the in operator is supported")
			}
			var (
				v   any
				err error
			)
			switch spec.Kind {
			case KindBool:
				v, err = parseBool(raw)
			case KindID:
				v, err = coerce(raw, TypeUUID)
			default:
				v, err = coerce(raw, spec.Type)
			}
			if err != nil {
				return nil, invalidFilter(key, "%v", err)
			}
			out = append(out, Criterion{Field: key, Op: op, Value: v})
		}
	}
	return out, nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func parseBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %v", v)
}

func parseIDs(v any) ([]uuid.UUID, error) {
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			raw = append(raw, stringify(item))
		}
	case []string:
		raw = t
	case string:
		if strings.TrimSpace(t) != "" {
			raw = strings.Split(t, ",")
		}
	default:
		return nil, fmt.Errorf("expected a list of ids")
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func coerceList(list []any, typ ValueType) (any, error) {
	switch typ {
	case TypeUUID:
		return parseIDs(list)
	case TypeInt:
		out := make([]int64, 0, len(list))
		for _, item := range list {
			v, err := coerce(item, typ)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(int64))
		}
		return out, nil
	default:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, stringify(item))
		}
		return out, nil
	}
}

func coerce(v any, typ ValueType) (any, error) {
	switch typ {
	case TypeString:
		return stringify(v), nil
	case TypeInt:
		switch t := v.(type) {
		case int:
			return int64(t), nil
		case int64:
			return t, nil
		case float64:
			if t != float64(int64(t)) {
				return nil, fmt.Errorf("expected integer, got %v", t)
			}
			return int64(t), nil
		default:
			n, err := strconv.ParseInt(strings.TrimSpace(stringify(v)), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %v", v)
			}
			return n, nil
		}
	case TypeFloat:
		if f, ok := v.(float64); ok {
			return f, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(stringify(v)), 64)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %v", v)
		}
		return f, nil
	case TypeTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		s := strings.TrimSpace(stringify(v))
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("expected timestamp, got %q", s)
	case TypeUUID:
		id, err := uuid.Parse(strings.TrimSpace(stringify(v)))
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", stringify(v))
		}
		return id, nil
	case TypeJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return nil, fmt.Errorf("unsupported value type")
}

// Compile renders criteria to predicates. New placeholders continue after
// the supplied args, which normally already hold the tenant id.
func (s Schema) Compile(criteria []Criterion, args []any) ([]string, []any) {
	where := make([]string, 0, len(criteria))
	for _, c := range criteria {
		spec, ok := s.Fields[c.Field]
		if !ok {
			continue
		}
		f := criterionFilter(c, spec)
		if f == nil {
			continue
		}
		where = append(where, f.String(spec.Column, len(args)+1))
		args = append(args, f.Value()...)
	}
	return where, args
}

func criterionFilter(c Criterion, spec FieldSpec) Filter {
	switch c.Op {
	case OpEq:
		return Eq(c.Value)
	case OpNotEq:
		return NotEq(c.Value)
	case OpGte:
		return Gte(c.Value)
	case OpLte:
		return Lte(c.Value)
	case OpContains:
		return ILike(stringify(c.Value))
	case OpPrefix:
		return Prefix(stringify(c.Value))
	case OpIn:
		switch c.Value.(type) {
		case []uuid.UUID:
			return In(c.Value, "uuid[]")
		case []int64:
			return In(c.Value, "bigint[]")
		default:
			return In(c.Value, "text[]")
		}
	case OpInSubquery:
		return InSubquery(spec.Subquery, c.Value)
	case OpJSONContains:
		return JSONContains(c.Value)
	case OpHasKey:
		return HasKey(stringify(c.Value))
	case OpIsNull:
		b, _ := c.Value.(bool)
		return IsNull(b)
	}
	return nil
}

// ParseAndCompile is the common path: validate the raw filter and render it.
func (s Schema) ParseAndCompile(raw map[string]any, args []any) ([]string, []any, error) {
	criteria, err := s.Parse(raw)
	if err != nil {
		return nil, nil, err
	}
	where, args := s.Compile(criteria, args)
	return where, args, nil
}
