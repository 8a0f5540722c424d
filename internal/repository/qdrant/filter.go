package qdrant

import (
	"fmt"

	"github.com/northmart/reco-backend/internal/domain"
	"github.com/qdrant/go-client/qdrant"
)

// buildFilter переводит нейтральный VectorFilter в язык запросов Qdrant:
// eq -> must match, ne -> must_not match, exists -> must_not is_empty.
func buildFilter(filter *domain.VectorFilter) (*qdrant.Filter, error) {
	if filter == nil || len(filter.Conditions) == 0 {
		return nil, nil
	}

	result := &qdrant.Filter{}
	for _, condition := range filter.Conditions {
		switch condition.Op {
		case domain.FilterOpEq:
			match, err := matchCondition(condition.Field, condition.Value)
			if err != nil {
				return nil, err
			}
			result.Must = append(result.Must, match)
		case domain.FilterOpNe:
			match, err := matchCondition(condition.Field, condition.Value)
			if err != nil {
				return nil, err
			}
			result.MustNot = append(result.MustNot, match)
		case domain.FilterOpExists:
			result.MustNot = append(result.MustNot, qdrant.NewIsEmpty(condition.Field))
		default:
			return nil, fmt.Errorf("unsupported filter op %d for field %s", condition.Op, condition.Field)
		}
	}

	return result, nil
}

func matchCondition(field string, value any) (*qdrant.Condition, error) {
	switch v := value.(type) {
	case string:
		return qdrant.NewMatch(field, v), nil
	case int:
		return qdrant.NewMatchInt(field, int64(v)), nil
	case int64:
		return qdrant.NewMatchInt(field, v), nil
	case bool:
		return qdrant.NewMatchBool(field, v), nil
	default:
		return nil, fmt.Errorf("unsupported filter value type %T for field %s", value, field)
	}
}

// payloadToMap разворачивает qdrant-payload в обычную карту.
func payloadToMap(payload map[string]*qdrant.Value) domain.Payload {
	result := make(domain.Payload, len(payload))
	for key, value := range payload {
		result[key] = valueToAny(value)
	}

	return result
}

func valueToAny(value *qdrant.Value) any {
	switch kind := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		items := make([]any, 0, len(values))
		for _, item := range values {
			items = append(items, valueToAny(item))
		}
		return items
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		nested := make(map[string]any, len(fields))
		for key, item := range fields {
			nested[key] = valueToAny(item)
		}
		return nested
	default:
		return nil
	}
}
