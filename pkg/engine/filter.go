package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/astarworks/flextable/pkg/types"
	"github.com/astarworks/flextable/pkg/validate"
)

// Operator is a filter comparison operator.
type Operator string

// Recognized filter operators. Validity depends on the property's type.
const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpContains Operator = "contains"
)

// Filter is one (propertyKey, operator, value) predicate.
type Filter struct {
	Key   string   `json:"propertyKey"`
	Op    Operator `json:"operator"`
	Value any      `json:"value"`
}

// SortSpec orders records by a property key, or by position when Key is
// "position" or empty.
type SortSpec struct {
	Key  string `json:"key"`
	Desc bool   `json:"desc"`
}

// PositionSortKey sorts by the record's position column.
const PositionSortKey = "position"

// validOperators returns the operators a property type admits. Equality
// works everywhere filterable; ordering needs an ordered domain; substring
// match needs free text.
func validOperators(t types.PropertyType) map[Operator]bool {
	switch t {
	case types.TypeText, types.TypeLongText, types.TypeEmail, types.TypeURL:
		return map[Operator]bool{OpEq: true, OpNeq: true, OpContains: true}
	case types.TypeNumber, types.TypeDate, types.TypeDateTime:
		return map[Operator]bool{OpEq: true, OpNeq: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true}
	case types.TypeSelect, types.TypeCheckbox:
		return map[Operator]bool{OpEq: true, OpNeq: true}
	default:
		return nil
	}
}

// compileFilters validates every predicate against the table schema and
// normalizes the comparison values. All problems are collected into one
// ValidationError.
func compileFilters(tbl *types.Table, filters []Filter) ([]compiledFilter, error) {
	ve := &types.ValidationError{}
	out := make([]compiledFilter, 0, len(filters))

	for _, f := range filters {
		def, err := validate.FilterableProperty(tbl, f.Key)
		if err != nil {
			if fve, ok := types.AsValidation(err); ok {
				ve.Merge(fve)
				continue
			}
			return nil, err
		}
		if !validOperators(def.Type)[f.Op] {
			ve.Add(types.FieldError{
				Key:     f.Key,
				Message: "operator " + string(f.Op) + " is not valid for type " + string(def.Type),
			})
			continue
		}
		norm, ferr := validate.Value(stripBounds(def), f.Value)
		if ferr != nil {
			ve.Add(*ferr)
			continue
		}
		out = append(out, compiledFilter{def: def, op: f.Op, value: norm})
	}

	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// stripBounds drops NUMBER min/max from a definition so filter comparison
// values outside the configured range are still usable predicates.
func stripBounds(def types.PropertyDefinition) types.PropertyDefinition {
	if def.Type != types.TypeNumber {
		return def
	}
	d := def.Clone()
	d.Config.Min = nil
	d.Config.Max = nil
	return d
}

type compiledFilter struct {
	def   types.PropertyDefinition
	op    Operator
	value any
}

// match evaluates the predicate against one record. An unset value matches
// only neq.
func (f compiledFilter) match(rec *types.Record) bool {
	got, present := rec.Data[f.def.Key]
	if !present || got == nil {
		return f.op == OpNeq
	}

	switch f.op {
	case OpEq:
		return equalValue(f.def.Type, got, f.value)
	case OpNeq:
		return !equalValue(f.def.Type, got, f.value)
	case OpContains:
		gs, ok1 := got.(string)
		ws, ok2 := f.value.(string)
		return ok1 && ok2 && strings.Contains(gs, ws)
	case OpLt, OpLte, OpGt, OpGte:
		cmp, ok := compareOrdered(f.def.Type, got, f.value)
		if !ok {
			return false
		}
		switch f.op {
		case OpLt:
			return cmp < 0
		case OpLte:
			return cmp <= 0
		case OpGt:
			return cmp > 0
		default:
			return cmp >= 0
		}
	default:
		return false
	}
}

// equalValue compares two stored-shape values of the same property type.
func equalValue(t types.PropertyType, a, b any) bool {
	if t == types.TypeNumber {
		an, ok1 := a.(float64)
		bn, ok2 := b.(float64)
		return ok1 && ok2 && an == bn
	}
	return a == b
}

// compareOrdered compares values of an ordered type: numbers numerically,
// DATE/DATETIME chronologically.
func compareOrdered(t types.PropertyType, a, b any) (int, bool) {
	switch t {
	case types.TypeNumber:
		an, ok1 := a.(float64)
		bn, ok2 := b.(float64)
		if !ok1 || !ok2 {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	case types.TypeDate, types.TypeDateTime:
		layout := validate.DateLayout
		if t == types.TypeDateTime {
			layout = validate.DateTimeLayout
		}
		as, ok1 := a.(string)
		bs, ok2 := b.(string)
		if !ok1 || !ok2 {
			return 0, false
		}
		at, err1 := time.Parse(layout, as)
		bt, err2 := time.Parse(layout, bs)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

// compileSort validates a sort spec against the schema. Position order needs
// no validation; a property sort key must resolve to a filterable type.
func compileSort(tbl *types.Table, spec *SortSpec) (*SortSpec, error) {
	if spec == nil || spec.Key == "" || spec.Key == PositionSortKey {
		if spec == nil {
			return &SortSpec{Key: PositionSortKey}, nil
		}
		return &SortSpec{Key: PositionSortKey, Desc: spec.Desc}, nil
	}
	if _, err := validate.FilterableProperty(tbl, spec.Key); err != nil {
		return nil, err
	}
	return spec, nil
}

// sortRecords orders records in place per the compiled spec. Ties and unset
// values fall back to position ascending, so the order stays stable.
func sortRecords(tbl *types.Table, records []*types.Record, spec *SortSpec) {
	if spec.Key == PositionSortKey {
		sort.SliceStable(records, func(i, j int) bool {
			if spec.Desc {
				return records[i].Position > records[j].Position
			}
			return records[i].Position < records[j].Position
		})
		return
	}

	def := tbl.Properties[spec.Key]
	sort.SliceStable(records, func(i, j int) bool {
		vi, vj := records[i].Data[spec.Key], records[j].Data[spec.Key]
		// Unset values go last regardless of direction.
		if vi == nil || vj == nil {
			if vi == nil && vj == nil {
				return records[i].Position < records[j].Position
			}
			return vj == nil
		}
		cmp, ok := compareValues(def.Type, vi, vj)
		if !ok || cmp == 0 {
			return records[i].Position < records[j].Position
		}
		if spec.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// compareValues compares two set record values of one property type for
// sorting. Non-ordered types compare lexically.
func compareValues(t types.PropertyType, a, b any) (int, bool) {
	if cmp, ok := compareOrdered(t, a, b); ok {
		return cmp, true
	}
	as, ok1 := a.(string)
	bs, ok2 := b.(string)
	if ok1 && ok2 {
		return strings.Compare(as, bs), true
	}
	if ab, ok1 := a.(bool); ok1 {
		if bb, ok2 := b.(bool); ok2 {
			switch {
			case ab == bb:
				return 0, true
			case !ab:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}
